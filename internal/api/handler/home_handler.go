package handler

import (
	"html/template"
	"log/slog"
	"net/http"
)

var homeTemplate = template.Must(template.New("home").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>{{.Title}}</title>
</head>
<body>
  <h1>{{.Title}}</h1>
  <p>Manage customer records over a JSON REST interface.</p>
  <p><a href="{{.SwaggerURL}}">Open the API documentation</a></p>
</body>
</html>
`))

type homePage struct {
	Title      string
	SwaggerURL string
}

type HomeHandler struct {
	page   homePage
	logger *slog.Logger
}

func NewHomeHandler(l *slog.Logger) *HomeHandler {
	if l == nil {
		panic("logger cannot be nil")
	}
	return &HomeHandler{
		page:   homePage{Title: "Customer API", SwaggerURL: "/swagger/index.html"},
		logger: l.With("component", "HomeHandler"),
	}
}

// Index serves the landing page. It is not part of the API document.
func (h *HomeHandler) Index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := homeTemplate.Execute(w, h.page); err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to render landing page", slog.Any("error", err))
	}
}
