// Package api provides HTTP router setup.
package api

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/adcompliance/auditor/internal/config"
	"github.com/adcompliance/auditor/internal/database"
	"github.com/adcompliance/auditor/internal/pipeline"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// estimatedTokensPerAuditCall is the flat per-request charge against an API
// key's daily token budget, debited before the reasoner call since the
// actual completion token count isn't known until it returns.
const estimatedTokensPerAuditCall = 2000

// NewRouter creates a new HTTP router with all routes configured.
func NewRouter(cfg *config.Config, p *pipeline.Pipeline, store database.Store, staticFS embed.FS, maxTextLength int) http.Handler {
	r := chi.NewRouter()

	handler := NewHandler(p, store, maxTextLength)

	// Global middleware
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", handler.HealthCheck)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(store))
			r.Use(AuditMiddleware(store))
			r.Use(RateLimitMiddleware(cfg.RateLimits.RequestsPerMinute))

			// Audit submission and retrieval
			r.With(TokenBudgetMiddleware(store, estimatedTokensPerAuditCall)).Post("/audit", handler.Audit)
			r.Get("/audit/{id}", handler.GetAudit)
			r.Get("/audit/{id}/export.pdf", handler.ExportReportPDF)

			// History
			r.Get("/history", handler.ListHistory)
			r.Get("/history/export.xlsx", handler.ExportHistoryXLSX)

			// HTTP request audit logs
			r.Get("/logs", handler.GetAuditLogs)
		})

		// Admin routes (API key management)
		// In production, these should be protected differently
		r.Route("/admin", func(r chi.Router) {
			r.Post("/keys", handler.CreateAPIKey)
			r.Get("/keys", handler.ListAPIKeys)
			r.Delete("/keys/{id}", handler.DeleteAPIKey)
		})
	})

	// Serve static frontend if enabled
	if cfg.Server.EnableUI {
		// Try to serve embedded files
		staticContent, err := fs.Sub(staticFS, "static")
		if err == nil {
			_, err = fs.Stat(staticContent, ".")
		}
		if err == nil {
			fileServer := http.FileServer(http.FS(staticContent))
			r.Handle("/*", fileServer)
		} else {
			// Serve a simple placeholder if no static files
			r.Get("/", func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/html")
				w.Write([]byte(`<!DOCTYPE html>
<html>
<head>
    <title>Compliance Auditor</title>
    <style>
        body { font-family: system-ui, sans-serif; max-width: 800px; margin: 50px auto; padding: 20px; }
        h1 { color: #2563eb; }
        code { background: #f1f5f9; padding: 2px 6px; border-radius: 4px; }
        .endpoint { margin: 10px 0; }
    </style>
</head>
<body>
    <h1>Compliance Auditor API</h1>
    <p>Advertising-compliance audit API is running. Use the endpoints below:</p>

    <h2>Endpoints</h2>
    <div class="endpoint"><code>GET /api/v1/health</code> - Health check</div>
    <div class="endpoint"><code>POST /api/v1/audit</code> - Submit content for compliance audit (text, url, or file upload)</div>
    <div class="endpoint"><code>GET /api/v1/audit/{id}</code> - Get a persisted audit record</div>
    <div class="endpoint"><code>GET /api/v1/audit/{id}/export.pdf</code> - Export an audit record as PDF</div>
    <div class="endpoint"><code>GET /api/v1/history</code> - List audit history</div>
    <div class="endpoint"><code>GET /api/v1/history/export.xlsx</code> - Export audit history as an Excel workbook</div>

    <h2>Authentication</h2>
    <p>Use <code>Authorization: Bearer your-api-key</code> header for all requests except health check.</p>

    <h2>Create API Key</h2>
    <p><code>POST /api/v1/admin/keys</code> with body <code>{"name": "my-key"}</code></p>
</body>
</html>`))
			})
		}
	}

	return r
}
