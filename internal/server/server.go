package server

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/simonjohansson/taskboard/internal/auth"
	"github.com/simonjohansson/taskboard/internal/metrics"
	"github.com/simonjohansson/taskboard/internal/model"
	"github.com/simonjohansson/taskboard/internal/service"
	"github.com/simonjohansson/taskboard/internal/store"
)

type Options struct {
	SQLitePath string
	JWTSecret  string
	Logger     *slog.Logger
	// Registry receives the server's collectors. A fresh registry is used
	// when nil.
	Registry *prometheus.Registry
	// RateLimit caps mutating requests per identity. Zero disables limiting.
	RateLimit rate.Limit
	RateBurst int
	Now       func() time.Time
}

type Server struct {
	store   *store.SQLiteStore
	service *service.Service
	hub     *hub
	metrics *metrics.Collector
	limiter *rateLimiter
	secret  string
	logger  *slog.Logger
	router  *chi.Mux
	api     huma.API
}

func New(opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	registry := opts.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	sqliteStore, err := store.Open(opts.SQLitePath)
	if err != nil {
		return nil, err
	}

	collector := metrics.NewCollector(registry)
	h := newHub()
	svc := service.New(service.FromSQLite(sqliteStore), service.Options{
		Publisher: h,
		Recorder:  collector,
		Logger:    logger,
		Now:       opts.Now,
	})

	s := &Server{
		store:   sqliteStore,
		service: svc,
		hub:     h,
		metrics: collector,
		limiter: newRateLimiter(opts.RateLimit, opts.RateBurst, logger),
		secret:  opts.JWTSecret,
		logger:  logger,
		router:  chi.NewRouter(),
	}
	s.routes(registry)
	s.logger.Info("server initialized", "sqlite_path", opts.SQLitePath, "rate_limit", float64(opts.RateLimit))
	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.api.OpenAPI()
}

// Service exposes the domain service for in-process callers such as the
// operator CLI and tests.
func (s *Server) Service() *service.Service {
	return s.service
}

func (s *Server) Close() error {
	s.hub.Close()
	s.limiter.Stop()
	return s.store.Close()
}

func (s *Server) routes(gatherer prometheus.Gatherer) {
	s.router.Use(middleware.StripSlashes)
	s.router.Use(requestIDMiddleware)
	s.router.Use(s.requestLoggingMiddleware)
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.metrics.Middleware)
	s.router.Use(auth.Middleware(s.secret))
	s.router.Use(s.limiter.Middleware)
	s.router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	config := huma.DefaultConfig("Taskboard API", "1.0.0")
	config.OpenAPIPath = "/openapi"
	config.DocsPath = ""
	// Drop the schema-link hook so bodies carry no $schema field.
	config.CreateHooks = nil
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {Type: "http", Scheme: "bearer", BearerFormat: "JWT"},
	}

	s.api = humachi.New(s.router, config)
	s.registerOperations()
	s.registerWebSocketOperationDocs()

	s.router.Get("/ws", s.hub.ServeWS)
	s.router.Handle("/metrics", metrics.Handler(gatherer))
}

var bearerSecurity = []map[string][]string{{"bearer": {}}}

func (s *Server) registerOperations() {
	huma.Get(s.api, "/health", s.health)

	huma.Register(s.api, huma.Operation{
		OperationID: "listCards",
		Method:      http.MethodGet,
		Path:        "/cards",
		Summary:     "List cards",
		Errors:      []int{http.StatusInternalServerError},
	}, s.listCards)

	huma.Register(s.api, huma.Operation{
		OperationID: "getCard",
		Method:      http.MethodGet,
		Path:        "/cards/{id}",
		Summary:     "Get card",
		Errors:      []int{http.StatusNotFound, http.StatusInternalServerError},
	}, s.getCard)

	huma.Register(s.api, huma.Operation{
		OperationID: "createCard",
		Method:      http.MethodPost,
		Path:        "/cards",
		Summary:     "Create card",
		Security:    bearerSecurity,
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusTooManyRequests, http.StatusInternalServerError},
	}, s.createCard)

	for _, method := range []string{http.MethodPut, http.MethodPatch} {
		huma.Register(s.api, huma.Operation{
			OperationID: operationID("updateCard", method),
			Method:      method,
			Path:        "/cards/{id}",
			Summary:     "Update card",
			Security:    bearerSecurity,
			Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound, http.StatusInternalServerError},
		}, s.updateCard)
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteCard",
		Method:      http.MethodDelete,
		Path:        "/cards/{id}",
		Summary:     "Delete card",
		Security:    bearerSecurity,
		Errors:      []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound, http.StatusInternalServerError},
	}, s.deleteCard)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createComment",
		Method:        http.MethodPost,
		Path:          "/cards/{cardId}/comments",
		DefaultStatus: http.StatusCreated,
		Summary:       "Comment on card",
		Security:      bearerSecurity,
		Errors:        []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound, http.StatusInternalServerError},
	}, s.createComment)

	for _, method := range []string{http.MethodPut, http.MethodPatch} {
		huma.Register(s.api, huma.Operation{
			OperationID: operationID("updateComment", method),
			Method:      method,
			Path:        "/cards/{cardId}/comments/{id}",
			Summary:     "Update comment",
			Security:    bearerSecurity,
			Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound, http.StatusInternalServerError},
		}, s.updateComment)
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteComment",
		Method:      http.MethodDelete,
		Path:        "/cards/{cardId}/comments/{id}",
		Summary:     "Delete comment",
		Security:    bearerSecurity,
		Errors:      []int{http.StatusUnauthorized, http.StatusNotFound, http.StatusInternalServerError},
	}, s.deleteComment)
}

// operationID keeps PUT as the canonical name so generated clients get
// updateCard/updateComment, with PATCH as a suffixed alias.
func operationID(base, method string) string {
	if method == http.MethodPatch {
		return base + "Patch"
	}
	return base
}

func (s *Server) registerWebSocketOperationDocs() {
	oapi := s.api.OpenAPI()
	if oapi.Paths == nil {
		oapi.Paths = map[string]*huma.PathItem{}
	}
	oapi.Paths["/ws"] = &huma.PathItem{
		Get: &huma.Operation{
			OperationID: "websocketEvents",
			Summary:     "Websocket event stream",
			Description: "Subscribe to card and comment events (" + strings.Join(eventTypeNames(), ", ") + "). Optional card query param filters by card id.",
			Parameters: []*huma.Param{
				{Name: "card", In: "query", Schema: &huma.Schema{Type: huma.TypeInteger}},
			},
			Responses: map[string]*huma.Response{
				"101": {Description: "Switching protocols to websocket"},
			},
		},
	}
}

func eventTypeNames() []string {
	types := model.WebSocketEventTypes()
	names := make([]string, 0, len(types))
	for _, t := range types {
		names = append(names, string(t))
	}
	return names
}

type healthOutput struct {
	Body struct {
		Ok bool `json:"ok"`
	}
}

func (s *Server) health(_ context.Context, _ *struct{}) (*healthOutput, error) {
	out := &healthOutput{}
	out.Body.Ok = true
	return out, nil
}

func requireIdentity(ctx context.Context) (model.Identity, error) {
	identity, ok := auth.IdentityFrom(ctx)
	if !ok {
		return 0, huma.Error401Unauthorized(msgMissingToken)
	}
	return identity, nil
}
