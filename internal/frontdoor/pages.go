package frontdoor

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const landingPage = `<html>
    <head><title>MCP Server auf Azure</title></head>
    <body>
        <h1>🚀 MCP Server läuft auf Azure!</h1>
        <h2>Verfügbare Endpoints:</h2>
        <ul>
            <li><a href="/health">/health</a> - Health Check</li>
            <li><a href="/mcp">/mcp</a> - MCP HTTP Endpoint</li>
            <li><a href="/docs">/docs</a> - API Dokumentation</li>
        </ul>
    </body>
</html>
`

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

var healthy = HealthResponse{Status: "healthy", Service: "mcp-server", Version: "1.0.0"}

// serveLanding handles GET /.
func serveLanding(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(landingPage))
}

// serveHealth handles GET /health. It succeeds whenever the process can
// answer at all.
func serveHealth(c *gin.Context) {
	recordHealthCheck()
	c.JSON(http.StatusOK, healthy)
}
