package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/classpoints/internal/backup"
	"github.com/dukerupert/classpoints/internal/classroom"
	"github.com/dukerupert/classpoints/internal/handler"
	"github.com/dukerupert/classpoints/internal/middleware"
	ws "github.com/dukerupert/classpoints/internal/websocket"
)

type Options struct {
	// AllowedOrigins restricts websocket origins. Empty accepts any.
	AllowedOrigins []string
	// HealthCheck reports whether storage is reachable. Nil always passes.
	HealthCheck func(ctx context.Context) error
	Logger      *slog.Logger
}

type Server struct {
	hub         *ws.Hub
	studentH    *handler.StudentHandler
	groupH      *handler.GroupHandler
	ruleH       *handler.RuleHandler
	shopH       *handler.ShopHandler
	rankingH    *handler.RankingHandler
	transferH   *handler.TransferHandler
	backupH     *handler.BackupHandler
	rateLimiter *middleware.RateLimiter
	origins     []string
	healthCheck func(ctx context.Context) error
	logger      *slog.Logger
}

func New(c *classroom.Classroom, hub *ws.Hub, backups handler.Backups, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		hub:         hub,
		studentH:    handler.NewStudentHandler(c, logger.With("component", "student")),
		groupH:      handler.NewGroupHandler(c, logger.With("component", "group")),
		ruleH:       handler.NewRuleHandler(c, logger.With("component", "rule")),
		shopH:       handler.NewShopHandler(c, logger.With("component", "shop")),
		rankingH:    handler.NewRankingHandler(c, logger.With("component", "ranking")),
		transferH:   handler.NewTransferHandler(c, logger.With("component", "transfer")),
		backupH:     handler.NewBackupHandler(backups, logger.With("component", "backup")),
		rateLimiter: middleware.NewRateLimiter(),
		origins:     opts.AllowedOrigins,
		healthCheck: opts.HealthCheck,
		logger:      logger,
	}
}

// ChangeNotifier broadcasts classroom changes to websocket clients.
func ChangeNotifier(hub *ws.Hub) func(classroom.Change) {
	return func(ch classroom.Change) {
		hub.Broadcast(ws.NewMessage(ch.Entity, ch.Action, ch.ID, nil))
	}
}

// BackupNotifier broadcasts backup manager state changes.
func BackupNotifier(hub *ws.Hub) backup.StatusCallback {
	return func(s backup.Status) {
		hub.Broadcast(ws.NewMessage("backup", string(s.State), "", map[string]any{
			"in_progress": s.InProgress,
			"error":       s.Error,
		}))
	}
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.origins))

	mux.HandleFunc("GET /api/students", s.studentH.List)
	mux.HandleFunc("POST /api/students", s.studentH.Create)
	mux.HandleFunc("GET /api/students/{id}", s.studentH.Get)
	mux.HandleFunc("PUT /api/students/{id}", s.studentH.Update)
	mux.HandleFunc("DELETE /api/students/{id}", s.studentH.Delete)
	mux.HandleFunc("POST /api/students/batch-delete", s.studentH.BatchDelete)
	mux.HandleFunc("POST /api/students/{id}/points", s.studentH.AdjustPoints)
	mux.HandleFunc("POST /api/students/points/batch", s.studentH.BatchPoints)

	mux.HandleFunc("GET /api/groups", s.groupH.List)
	mux.HandleFunc("POST /api/groups", s.groupH.Create)
	mux.HandleFunc("GET /api/groups/{id}", s.groupH.Get)
	mux.HandleFunc("PUT /api/groups/{id}", s.groupH.Update)
	mux.HandleFunc("DELETE /api/groups/{id}", s.groupH.Delete)
	mux.HandleFunc("GET /api/groups/{id}/score", s.groupH.Score)
	mux.HandleFunc("GET /api/groups/{id}/members", s.groupH.Members)
	mux.HandleFunc("POST /api/groups/{id}/members/{studentId}", s.groupH.AddMember)
	mux.HandleFunc("DELETE /api/groups/{id}/members/{studentId}", s.groupH.RemoveMember)

	mux.HandleFunc("GET /api/rules", s.ruleH.List)
	mux.HandleFunc("POST /api/rules", s.ruleH.Create)
	mux.HandleFunc("GET /api/rules/{id}", s.ruleH.Get)
	mux.HandleFunc("PUT /api/rules/{id}", s.ruleH.Update)
	mux.HandleFunc("DELETE /api/rules/{id}", s.ruleH.Delete)

	mux.HandleFunc("GET /api/shop/items", s.shopH.List)
	mux.HandleFunc("POST /api/shop/items", s.shopH.Create)
	mux.HandleFunc("GET /api/shop/items/{id}", s.shopH.Get)
	mux.HandleFunc("PUT /api/shop/items/{id}", s.shopH.Update)
	mux.HandleFunc("DELETE /api/shop/items/{id}", s.shopH.Delete)
	mux.HandleFunc("POST /api/shop/items/{id}/exchange", s.shopH.Exchange)
	mux.HandleFunc("GET /api/shop/items/{id}/eligible", s.shopH.Eligible)

	mux.HandleFunc("GET /api/rankings/total", s.rankingH.Total)
	mux.HandleFunc("GET /api/rankings/progress", s.rankingH.Progress)
	mux.HandleFunc("GET /api/rankings/groups", s.rankingH.Groups)
	mux.HandleFunc("GET /api/statistics", s.rankingH.Stats)

	mux.HandleFunc("GET /api/export", s.transferH.Export)
	mux.HandleFunc("POST /api/import", s.rateLimitedHandler(s.transferH.Import))
	mux.HandleFunc("PUT /api/collections/{name}", s.rateLimitedHandler(s.transferH.ReplaceCollection))

	mux.HandleFunc("GET /api/backups", s.backupH.List)
	mux.HandleFunc("POST /api/backups", s.rateLimitedHandler(s.backupH.Create))
	mux.HandleFunc("POST /api/backups/{id}/restore", s.rateLimitedHandler(s.backupH.Restore))

	logged := middleware.RequestLogger(s.logger.With("component", "http"))(mux)
	return middleware.Recover(s.logger)(logged)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if s.healthCheck != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.healthCheck(ctx); err != nil {
			s.logger.Warn("health check failed", "error", err)
			writeHealth(w, http.StatusServiceUnavailable, "unavailable", s.hub)
			return
		}
	}
	writeHealth(w, http.StatusOK, "ok", s.hub)
}

// rateLimitedHandler allows 10 requests per minute per client address.
func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	rl := middleware.RateLimit(s.rateLimiter, middleware.RealIP, 10, time.Minute)
	return rl(h).ServeHTTP
}
