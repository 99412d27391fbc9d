package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints:
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Header("Content-Type", "application/json")
		c.String(http.StatusOK, swaggerJSON)
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>veridoc — Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

// Minimal OpenAPI document describing the main document-control endpoints.
const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "veridoc", "version": "v0.1.0" },
  "paths": {
    "/api/v1/document-types": {
      "post": { "summary": "Create a document type (numbering class)", "responses": { "201": { "description": "created" } } },
      "get": { "summary": "List document types for the tenant", "responses": { "200": { "description": "list" } } }
    },
    "/api/v1/documents": {
      "post": { "summary": "Create a new document lineage (prototype, first version, draft)", "responses": { "201": { "description": "created" }, "400": { "description": "validation failed" } } }
    },
    "/api/v1/documents/{id}": {
      "get": { "summary": "Get a document version with its approvers", "responses": { "200": { "description": "document" }, "404": { "description": "not found" } } },
      "patch": { "summary": "Edit a draft", "responses": { "200": { "description": "updated" }, "409": { "description": "not a draft" } } },
      "delete": { "summary": "Delete a draft (number is not reused)", "responses": { "204": { "description": "deleted" } } }
    },
    "/api/v1/documents/{id}/submit": {
      "post": { "summary": "Submit a draft for approval", "responses": { "200": { "description": "in approval" }, "400": { "description": "no approvers assigned" } } }
    },
    "/api/v1/documents/{id}/decision": {
      "post": { "summary": "Record an approver decision; unanimous approval releases", "responses": { "200": { "description": "recorded" }, "409": { "description": "already decided" } } }
    },
    "/api/v1/documents/{id}/release": {
      "post": { "summary": "Direct release from draft", "responses": { "200": { "description": "released" } } }
    },
    "/api/v1/documents/{id}/versions": {
      "post": { "summary": "Open the next version as a draft", "responses": { "201": { "description": "created" }, "409": { "description": "open version exists" } } }
    },
    "/api/v1/documents/{id}/promote": {
      "post": { "summary": "Promote a released prototype to a production lineage", "responses": { "201": { "description": "created" } } }
    },
    "/api/v1/lineages/{number}": {
      "get": { "summary": "List all versions of a document number", "responses": { "200": { "description": "lineage" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } }
  }
}`
