package handlers

import (
	"html/template"

	"github.com/gin-gonic/gin"
)

var swaggerPage = template.Must(template.New("docs").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>AgriNeural API</title>
<link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui.css">
</head>
<body style="margin:0">
<div id="api-docs"></div>
<script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
<script>
function withBearer(req) {
  var h = req.headers.Authorization;
  if (h && h.indexOf("Bearer ") !== 0) {
    req.headers.Authorization = "Bearer " + h;
  }
  return req;
}
SwaggerUIBundle({
  url: {{.}},
  dom_id: "#api-docs",
  deepLinking: true,
  persistAuthorization: true,
  requestInterceptor: withBearer
});
</script>
</body>
</html>
`))

// SwaggerUIWithBearerFix serves Swagger UI for the document at docURL. Tokens
// pasted into the authorize dialog without a scheme get "Bearer " prepended.
func SwaggerUIWithBearerFix(docURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		if err := swaggerPage.Execute(c.Writer, docURL); err != nil {
			c.Error(err)
		}
	}
}
