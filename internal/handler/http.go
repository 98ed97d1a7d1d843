package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/MikhailRaia/codekeeper/internal/logger"
	"github.com/MikhailRaia/codekeeper/internal/middleware"
	"github.com/MikhailRaia/codekeeper/internal/model"
	"github.com/MikhailRaia/codekeeper/internal/service"
)

// MappingService is the part of the mapping service the transports use.
type MappingService interface {
	Shorten(ctx context.Context, ownerID string, in service.ShortenInput) (model.URLMapping, error)
	Resolve(ctx context.Context, code string) (string, error)
	ListMine(ctx context.Context, ownerID string) ([]model.URLMapping, error)
	Update(ctx context.Context, id, ownerID string, in service.UpdateInput) (model.URLMapping, error)
	Delete(ctx context.Context, id, ownerID string) error
}

// UserService is the part of the user service the HTTP surface uses.
type UserService interface {
	Signup(ctx context.Context, in service.SignupInput) (model.User, error)
	Login(ctx context.Context, in service.LoginInput) (string, error)
	Profile(ctx context.Context, userID string) (model.User, error)
}

// idParam names the single root path segment. For PUT and DELETE it holds
// a mapping id, for GET a short code.
const idParam = "id"

type DBPinger interface {
	Ping(ctx context.Context) error
}

// Options tunes the HTTP surface.
type Options struct {
	BaseURL      string
	CORSOrigins  []string
	RateLimit    float64
	RateBurst    int
	TokenTTL     time.Duration
	SecureCookie bool
}

type Handler struct {
	mappings MappingService
	users    UserService
	dbPinger DBPinger
	auth     *middleware.AuthMiddleware
	limiter  *middleware.RateLimiter
	opts     Options
}

func NewHandler(mappings MappingService, users UserService, dbPinger DBPinger, auth *middleware.AuthMiddleware, opts Options) *Handler {
	return &Handler{
		mappings: mappings,
		users:    users,
		dbPinger: dbPinger,
		auth:     auth,
		limiter:  middleware.NewRateLimiter(opts.RateLimit, opts.RateBurst),
		opts:     opts,
	}
}

func (h *Handler) RegisterRoutes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(logger.RequestLogger)
	r.Use(chimiddleware.Recoverer)

	r.Use(h.cors().Handler)
	r.Use(middleware.GzipReader)
	r.Use(chimiddleware.Compress(5, "application/json", "text/plain"))

	r.Get("/", h.handleHealth)
	r.Get("/ping", h.handlePing)

	r.Route("/user", func(r chi.Router) {
		r.With(h.limiter.Limit).Post("/signup", h.handleSignup)
		r.With(h.limiter.Limit).Post("/login", h.handleLogin)
		r.With(h.auth.RequireAuth).Get("/", h.handleProfile)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.auth.RequireAuth)

		r.With(h.limiter.Limit).Post("/shorten", h.handleShorten)
		r.Get("/codes", h.handleListCodes)
		r.Put("/{"+idParam+"}", h.handleUpdate)
		r.Delete("/{"+idParam+"}", h.handleDelete)
	})

	r.Get("/{"+idParam+"}", h.handleRedirect)

	return r
}

func (h *Handler) cors() *cors.Cors {
	origins := h.opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Content-Encoding"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

func (h *Handler) handlePing(w http.ResponseWriter, r *http.Request) {
	if h.dbPinger == nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "storage unavailable"})
		return
	}

	if err := h.dbPinger.Ping(r.Context()); err != nil {
		logFailure(r, err, "Storage ping failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "storage unavailable"})
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}
