// AngelaMos | 2026
// handler.go

package admin

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"runtime"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/storefront-api/internal/core"
	"github.com/carterperez-dev/storefront-api/internal/middleware"
)

type SessionService interface {
	RevokeSessions(ctx context.Context, userID string) error
}

type Handler struct {
	storeName     string
	storePing     func(ctx context.Context) error
	dbStats       func() sql.DBStats
	redisPing     func(ctx context.Context) error
	redisStats    func() *redis.PoolStats
	countUsers    func(ctx context.Context) (int, error)
	countProducts func(ctx context.Context) (int, error)
	sessions      SessionService
}

// HandlerConfig wires the stats sources. Any func may be nil; DBStats is
// only set for the SQL store. Without Sessions the revoke route is not
// mounted.
type HandlerConfig struct {
	StoreName     string
	StorePing     func(ctx context.Context) error
	DBStats       func() sql.DBStats
	RedisPing     func(ctx context.Context) error
	RedisStats    func() *redis.PoolStats
	CountUsers    func(ctx context.Context) (int, error)
	CountProducts func(ctx context.Context) (int, error)
	Sessions      SessionService
}

func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		storeName:     cfg.StoreName,
		storePing:     cfg.StorePing,
		dbStats:       cfg.DBStats,
		redisPing:     cfg.RedisPing,
		redisStats:    cfg.RedisStats,
		countUsers:    cfg.CountUsers,
		countProducts: cfg.CountProducts,
		sessions:      cfg.Sessions,
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Get("/stats", h.GetSystemStats)
		r.Get("/stats/db", h.GetDatabaseStats)
		r.Get("/stats/redis", h.GetRedisStats)
		r.Get("/stats/runtime", h.GetRuntimeStats)

		if h.sessions != nil {
			r.Post("/users/{id}/revoke-sessions", h.RevokeUserSessions)
		}
	})
}

// RevokeUserSessions signs a user out of every device.
func (h *Handler) RevokeUserSessions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := chi.URLParam(r, "id")

	if err := h.sessions.RevokeSessions(ctx, userID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "user")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	slog.InfoContext(ctx, "user sessions revoked",
		"user_id", userID,
		"actor_id", middleware.GetUserID(ctx),
	)
	core.OKMessage(w, "all sessions revoked", nil)
}

func (h *Handler) GetSystemStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		wg                         sync.WaitGroup
		storeHealthy, redisHealthy bool
		users, products            *int
	)

	wg.Add(4)
	go func() { defer wg.Done(); storeHealthy = ping(ctx, h.storePing) }()
	go func() { defer wg.Done(); redisHealthy = ping(ctx, h.redisPing) }()
	go func() { defer wg.Done(); users = count(ctx, "users", h.countUsers) }()
	go func() { defer wg.Done(); products = count(ctx, "products", h.countProducts) }()
	wg.Wait()

	core.OK(w, core.Payload{"stats": SystemStatsResponse{
		Database: DatabaseStatus{
			Driver:  h.storeName,
			Healthy: storeHealthy,
			Stats:   h.getDBStats(),
		},
		Redis: RedisStatus{
			Healthy: redisHealthy,
			Stats:   h.getRedisStats(),
		},
		Runtime: runtimeStats(),
		Counts: Counts{
			Users:    users,
			Products: products,
		},
	}})
}

func (h *Handler) GetDatabaseStats(w http.ResponseWriter, _ *http.Request) {
	core.OK(w, core.Payload{"stats": h.getDBStats()})
}

func (h *Handler) GetRedisStats(w http.ResponseWriter, _ *http.Request) {
	core.OK(w, core.Payload{"stats": h.getRedisStats()})
}

func (h *Handler) GetRuntimeStats(w http.ResponseWriter, _ *http.Request) {
	core.OK(w, core.Payload{"stats": runtimeStats()})
}

// ping reports false for an unconfigured dependency.
func ping(ctx context.Context, fn func(context.Context) error) bool {
	if fn == nil {
		return false
	}
	return fn(ctx) == nil
}

func count(ctx context.Context, what string, fn func(context.Context) (int, error)) *int {
	if fn == nil {
		return nil
	}
	n, err := fn(ctx)
	if err != nil {
		slog.WarnContext(ctx, "admin stats count failed", "collection", what, "error", err)
		return nil
	}
	return &n
}

func runtimeStats() RuntimeStats {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return RuntimeStats{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		MemAlloc:     memStats.Alloc,
		MemSys:       memStats.Sys,
		NumGC:        memStats.NumGC,
	}
}

func (h *Handler) getDBStats() *DBPoolStats {
	if h.dbStats == nil {
		return nil
	}

	stats := h.dbStats()
	return &DBPoolStats{
		MaxOpenConnections: stats.MaxOpenConnections,
		OpenConnections:    stats.OpenConnections,
		InUse:              stats.InUse,
		Idle:               stats.Idle,
		WaitCount:          stats.WaitCount,
		WaitDuration:       stats.WaitDuration.String(),
		MaxIdleClosed:      stats.MaxIdleClosed,
		MaxIdleTimeClosed:  stats.MaxIdleTimeClosed,
		MaxLifetimeClosed:  stats.MaxLifetimeClosed,
	}
}

func (h *Handler) getRedisStats() *RedisPoolStats {
	if h.redisStats == nil {
		return nil
	}

	stats := h.redisStats()
	return &RedisPoolStats{
		Hits:       stats.Hits,
		Misses:     stats.Misses,
		Timeouts:   stats.Timeouts,
		TotalConns: stats.TotalConns,
		IdleConns:  stats.IdleConns,
		StaleConns: stats.StaleConns,
	}
}

type SystemStatsResponse struct {
	Database DatabaseStatus `json:"database"`
	Redis    RedisStatus    `json:"redis"`
	Runtime  RuntimeStats   `json:"runtime"`
	Counts   Counts         `json:"counts"`
}

type DatabaseStatus struct {
	Driver  string       `json:"driver"`
	Healthy bool         `json:"healthy"`
	Stats   *DBPoolStats `json:"stats,omitempty"`
}

type RedisStatus struct {
	Healthy bool            `json:"healthy"`
	Stats   *RedisPoolStats `json:"stats,omitempty"`
}

// Counts are nil when the store could not answer.
type Counts struct {
	Users    *int `json:"users"`
	Products *int `json:"activeProducts"`
}

type DBPoolStats struct {
	MaxOpenConnections int    `json:"maxOpenConnections"`
	OpenConnections    int    `json:"openConnections"`
	InUse              int    `json:"inUse"`
	Idle               int    `json:"idle"`
	WaitCount          int64  `json:"waitCount"`
	WaitDuration       string `json:"waitDuration"`
	MaxIdleClosed      int64  `json:"maxIdleClosed"`
	MaxIdleTimeClosed  int64  `json:"maxIdleTimeClosed"`
	MaxLifetimeClosed  int64  `json:"maxLifetimeClosed"`
}

type RedisPoolStats struct {
	Hits       uint32 `json:"hits"`
	Misses     uint32 `json:"misses"`
	Timeouts   uint32 `json:"timeouts"`
	TotalConns uint32 `json:"totalConns"`
	IdleConns  uint32 `json:"idleConns"`
	StaleConns uint32 `json:"staleConns"`
}

type RuntimeStats struct {
	GoVersion    string `json:"goVersion"`
	NumGoroutine int    `json:"numGoroutine"`
	NumCPU       int    `json:"numCpu"`
	MemAlloc     uint64 `json:"memAllocBytes"`
	MemSys       uint64 `json:"memSysBytes"`
	NumGC        uint32 `json:"numGc"`
}
