package handlers

import (
	"html/template"
	"net/http"
)

const swaggerVersion = "5.10.0"

var swaggerPage = template.Must(template.New("swagger").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>{{.Title}}</title>
    <link rel="stylesheet" type="text/css" href="https://unpkg.com/swagger-ui-dist@{{.Version}}/swagger-ui.css">
    <style>
        html { box-sizing: border-box; overflow-y: scroll; }
        *, *:before, *:after { box-sizing: inherit; }
        body { margin:0; padding:0; }
    </style>
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@{{.Version}}/swagger-ui-bundle.js"></script>
    <script src="https://unpkg.com/swagger-ui-dist@{{.Version}}/swagger-ui-standalone-preset.js"></script>
    <script>
        window.onload = function() {
            window.ui = SwaggerUIBundle({
                url: "{{.SpecURL}}",
                dom_id: '#swagger-ui',
                deepLinking: true,
                presets: [SwaggerUIBundle.presets.apis, SwaggerUIStandalonePreset],
                layout: "StandaloneLayout"
            });
        };
    </script>
</body>
</html>`))

// SwaggerUI serves the Swagger UI page for /api/docs/openapi.json
func SwaggerUI(w http.ResponseWriter, r *http.Request) {
	data := struct {
		Title   string
		Version string
		SpecURL string
	}{
		Title:   "ACS-F2 Signature Platform API",
		Version: swaggerVersion,
		SpecURL: "/api/docs/openapi.json",
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := swaggerPage.Execute(w, data); err != nil {
		http.Error(w, "failed to render documentation", http.StatusInternalServerError)
	}
}
