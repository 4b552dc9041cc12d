// Package frontdoor is the outward-facing HTTP application. It serves the
// landing page, health check, docs and metrics itself, and forwards every
// request under a mount prefix to the sub-application mounted there.
package frontdoor

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/mcp-demo-server/pkg/mcpmanifest"
	"go.uber.org/zap"
)

// maxBodyBytes caps request bodies, including protocol messages.
const maxBodyBytes = 1 << 20

// ManifestSource describes a mounted capability set for GET /docs.
type ManifestSource interface {
	Manifest(endpoint string) mcpmanifest.Manifest
}

// Options configures the front door.
type Options struct {
	// CORSOrigins lists allowed origins. Empty or containing "*" allows all.
	CORSOrigins []string
	// RateLimitRPS enables per-IP rate limiting when positive.
	RateLimitRPS int
}

type mount struct {
	prefix  string
	handler http.Handler
}

func (m mount) matches(path string) bool {
	return path == m.prefix || strings.HasPrefix(path, m.prefix+"/")
}

// FrontDoor is the root HTTP handler.
type FrontDoor struct {
	engine *gin.Engine
	logger *zap.Logger

	mounts   []mount
	docs     ManifestSource
	docsPath string
}

// New builds the front door. ctx bounds background work such as rate-limiter
// cleanup.
func New(ctx context.Context, opts Options, logger *zap.Logger) *FrontDoor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	f := &FrontDoor{logger: logger}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestID())
	router.Use(cors.New(corsConfig(opts.CORSOrigins)))
	router.Use(securityHeaders())
	router.Use(bodyLimit(maxBodyBytes))
	router.Use(PrometheusMiddleware())
	if opts.RateLimitRPS > 0 {
		router.Use(RateLimiter(ctx, opts.RateLimitRPS, opts.RateLimitRPS*2))
	}
	router.Use(requestLogger(logger))

	router.GET("/", serveLanding)
	router.GET("/health", serveHealth)
	router.GET("/docs", f.serveDocs)
	router.GET("/metrics", MetricsHandler())

	// Anything gin has no route for is either under a mount or a 404.
	router.NoRoute(f.delegate)

	f.engine = router
	return f
}

// Mount forwards every request whose path is prefix or lies below it to h.
// The request is passed through unmodified. Mounts are checked in the order
// they were added.
func (f *FrontDoor) Mount(prefix string, h http.Handler) {
	prefix = "/" + strings.Trim(prefix, "/")
	f.mounts = append(f.mounts, mount{prefix: prefix, handler: h})
	f.logger.Info("mounted sub-application", zap.String("prefix", prefix))
}

// MountCapabilities mounts the protocol handler at prefix and publishes src's
// manifest at GET /docs.
func (f *FrontDoor) MountCapabilities(prefix string, h http.Handler, src ManifestSource) {
	f.Mount(prefix, h)
	f.docs = src
	f.docsPath = "/" + strings.Trim(prefix, "/")
}

// ServeHTTP implements http.Handler.
func (f *FrontDoor) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.engine.ServeHTTP(w, r)
}

func (f *FrontDoor) delegate(c *gin.Context) {
	path := c.Request.URL.Path
	for _, m := range f.mounts {
		if !m.matches(path) {
			continue
		}
		c.Set(routeKey, m.prefix+"/*")
		// gin pre-sets 404 for unmatched routes; start from net/http's default.
		c.Status(http.StatusOK)
		m.handler.ServeHTTP(c.Writer, c.Request)
		return
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
}

func (f *FrontDoor) serveDocs(c *gin.Context) {
	if f.docs == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no capabilities mounted"})
		return
	}
	c.IndentedJSON(http.StatusOK, f.docs.Manifest(f.docsPath))
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "HEAD", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"*"},
		ExposeHeaders: []string{"Mcp-Session-Id", "X-Request-ID", "Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || containsWildcard(origins) {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cfg
}

// containsWildcard returns true if origins includes "*".
func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if strings.TrimSpace(o) == "*" {
			return true
		}
	}
	return false
}
