package web

import (
	"crypto/rand"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"

	"gymops/internal/adapters/email"
	"gymops/internal/adapters/http/middleware"
	"gymops/internal/adapters/http/perf"
	scheduleStore "gymops/internal/adapters/storage/schedule"
)

// Config carries everything the HTTP surface needs.
type Config struct {
	Registry  *scheduleStore.Registry
	Collector *perf.Collector

	// Sender and Recipients receive recurrence commit summaries.
	Sender     email.Sender
	Recipients []string

	MaxWeeks     int
	CalendarName string

	AdminUser         string
	AdminPasswordHash []byte

	CSRFKey        []byte // 32 bytes; a random key is used when unset
	SecureCookies  bool
	TrustedOrigins []string
	AllowedOrigins []string

	RatePerSecond float64
	RateBurst     int
	SlowRequestMs int

	// Now is the clock used for ICS stamps and perf windows.
	Now func() time.Time
}

// handlers holds the dependencies shared by every route.
type handlers struct {
	cfg Config
}

// NewMux wires HTTP handlers for the app.
// PRE: cfg.Registry is non-nil
// POST: Returns the router wrapped in the middleware chain
func NewMux(cfg Config) http.Handler {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 10
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 20
	}
	if len(cfg.CSRFKey) != 32 {
		cfg.CSRFKey = randomKey()
	}

	h := &handlers{cfg: cfg}
	router := httprouter.New()
	h.registerRoutes(router)

	limiter := middleware.NewRateLimiter(cfg.RatePerSecond, cfg.RateBurst)

	// Outermost last: Timing -> CORS -> RateLimit -> Auth -> CSRF -> SecurityHeaders -> router
	return middleware.Chain(router,
		middleware.SecurityHeaders,
		middleware.CSRF(cfg.CSRFKey, cfg.SecureCookies, cfg.TrustedOrigins),
		middleware.BasicAuth(cfg.AdminUser, cfg.AdminPasswordHash, "/health"),
		middleware.RateLimit(limiter),
		middleware.CORS(cfg.AllowedOrigins),
		middleware.Timing(cfg.Collector, cfg.SlowRequestMs, routeLabel),
	)
}

func (h *handlers) registerRoutes(router *httprouter.Router) {
	router.GET("/health", h.handleHealth)
	router.GET("/admin/perf", h.handlePerf)

	const branch = "/api/branches/:branch"
	router.GET(branch+"/slots", h.handleListSlots)
	router.POST(branch+"/slots", h.handleCreateSlot)
	router.GET(branch+"/slots/:id", h.handleGetSlot)
	router.PUT(branch+"/slots/:id", h.handleUpdateSlot)
	router.DELETE(branch+"/slots/:id", h.handleDeleteSlot)
	router.POST(branch+"/recurrence/preview", h.handlePreviewRecurrence)
	router.POST(branch+"/recurrence/commit", h.handleCommitRecurrence)
	router.GET(branch+"/schedule.ics", h.handleScheduleICS)
}

// routeLabel collapses branch and slot ids so perf stats group by route.
func routeLabel(r *http.Request) string {
	parts := strings.Split(r.URL.Path, "/")
	for i := 1; i < len(parts); i++ {
		switch parts[i-1] {
		case "branches":
			parts[i] = ":branch"
		case "slots":
			parts[i] = ":id"
		}
	}
	return r.Method + " " + strings.Join(parts, "/")
}

// randomKey generates a per-process CSRF key.
func randomKey() []byte {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		panic("failed to generate CSRF key: " + err.Error())
	}
	slog.Warn("csrf_key_random", "reason", "no CSRF key configured; tokens won't survive restart")
	return key
}
