// Package api exposes the catalog over HTTP. Mutation routes are
// registered from the same declared path table the request gatekeeper
// screens, so the two enforcement layers cannot drift apart.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/RAXITGAJERA/product-management/pkg/auth"
	"github.com/RAXITGAJERA/product-management/pkg/catalog"
	"github.com/RAXITGAJERA/product-management/pkg/config"
	"github.com/RAXITGAJERA/product-management/pkg/httputil"
	"github.com/RAXITGAJERA/product-management/pkg/observability"
	"github.com/RAXITGAJERA/product-management/pkg/rbac"
)

// Server is the catalog HTTP server.
type Server struct {
	catalog  *catalog.Service
	users    *auth.Store
	sessions *auth.SessionManager
	logger   *observability.Logger
	metrics  *observability.Metrics

	router *mux.Router
	server *http.Server
}

// NewServer wires the middleware chain and routes. metrics may be nil.
func NewServer(
	cfg config.ServerConfig,
	catalogService *catalog.Service,
	users *auth.Store,
	sessions *auth.SessionManager,
	logger *observability.Logger,
	metrics *observability.Metrics,
) *Server {
	s := &Server{
		catalog:  catalogService,
		users:    users,
		sessions: sessions,
		logger:   logger,
		metrics:  metrics,
		router:   mux.NewRouter().StrictSlash(true),
	}

	gatekeeper := rbac.NewGatekeeper(users.EnsureProfile, logger, metrics)

	// Outermost first. The profile stage runs before the access stage
	// so a freshly repaired role is what the access stage screens.
	s.router.Use(httputil.RecoveryMiddleware(logger))
	s.router.Use(httputil.LoggingMiddleware(logger))
	if metrics != nil {
		s.router.Use(observability.HTTPMetricsMiddleware(metrics))
	}
	s.router.Use(auth.SessionMiddleware(sessions, logger))
	s.router.Use(gatekeeper.ProfileHandler)
	s.router.Use(gatekeeper.AccessHandler)

	s.registerRoutes()

	s.server = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

func (s *Server) registerRoutes() {
	r := s.router

	r.HandleFunc("/", s.handleHome).Methods(http.MethodGet)

	// Identity surface.
	r.HandleFunc("/login/", s.handleLoginPage).Methods(http.MethodGet)
	r.HandleFunc("/login/", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/register/", s.handleRegisterPage).Methods(http.MethodGet)
	r.HandleFunc("/register/", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/logout/", s.handleLogout).Methods(http.MethodPost)
	r.HandleFunc("/profile/", s.handleProfile).Methods(http.MethodGet)
	r.HandleFunc("/profile/update/", s.handleProfileUpdate).Methods(http.MethodPost)
	r.HandleFunc("/password/change/", s.handlePasswordChange).Methods(http.MethodPost)

	// Categories.
	r.HandleFunc("/categories/", s.handleCategoryList).Methods(http.MethodGet)
	r.HandleFunc("/categories/{id:[0-9]+}/", s.handleCategoryDetail).Methods(http.MethodGet)
	r.HandleFunc(rbac.PathCategoryCreate, s.handleCategoryCreate).Methods(http.MethodPost)
	r.HandleFunc(rbac.PathCategoryUpdate, s.handleCategoryUpdate).Methods(http.MethodPost)
	r.HandleFunc(rbac.PathCategoryDelete, s.handleCategoryDelete).Methods(http.MethodPost)

	// SubCategories.
	r.HandleFunc("/subcategories/", s.handleSubCategoryList).Methods(http.MethodGet)
	r.HandleFunc("/subcategories/{id:[0-9]+}/", s.handleSubCategoryDetail).Methods(http.MethodGet)
	r.HandleFunc(rbac.PathSubCategoryCreate, s.handleSubCategoryCreate).Methods(http.MethodPost)
	r.HandleFunc(rbac.PathSubCategoryUpdate, s.handleSubCategoryUpdate).Methods(http.MethodPost)
	r.HandleFunc(rbac.PathSubCategoryDelete, s.handleSubCategoryDelete).Methods(http.MethodPost)

	// Products.
	r.HandleFunc("/products/", s.handleProductList).Methods(http.MethodGet)
	r.HandleFunc("/products/{id:[0-9]+}/", s.handleProductDetail).Methods(http.MethodGet)
	r.HandleFunc(rbac.PathProductCreate, s.handleProductCreate).Methods(http.MethodPost)
	r.HandleFunc(rbac.PathProductUpdate, s.handleProductUpdate).Methods(http.MethodPost)
	r.HandleFunc(rbac.PathProductDelete, s.handleProductDelete).Methods(http.MethodPost)
}

// Handler returns the fully wired handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.server.Addr).Info("catalog server listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// actor extracts the catalog actor for the request, or reports false
// for anonymous requests. The gatekeeper keeps anonymous requests off
// protected routes, so a missing subject here means a misrouted call.
func (s *Server) actor(w http.ResponseWriter, r *http.Request) (catalog.Actor, bool) {
	subject := rbac.SubjectFromRequest(r)
	if subject == nil {
		httputil.SetFlash(w, httputil.FlashWarning, "Please log in to continue.")
		httputil.Redirect(w, r, rbac.LoginPath)
		return catalog.Actor{}, false
	}
	return catalog.Actor{ID: subject.UserID, Role: subject.Role}, true
}

// writeServiceError maps catalog service errors onto HTTP responses.
// Role denials redirect home with a notice instead of a hard error.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if fields, ok := catalog.IsValidation(err); ok {
		httputil.WriteFieldErrors(w, fields)
		return
	}
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		httputil.WriteNotFoundError(w, "not found")
	case errors.Is(err, catalog.ErrDenied):
		if s.metrics != nil {
			s.metrics.AccessDeniedTotal.WithLabelValues("forbidden_role").Inc()
		}
		httputil.SetFlash(w, httputil.FlashError, "You do not have permission to perform this action.")
		httputil.Redirect(w, r, rbac.HomePath)
	case errors.Is(err, catalog.ErrIntegrity):
		observability.FromContext(r.Context()).WithError(err).Warn("constraint violation")
		httputil.WriteErrorMessage(w, http.StatusConflict, "the request conflicts with existing data")
	default:
		observability.FromContext(r.Context()).WithError(err).Error("request failed")
		httputil.WriteInternalError(w, err)
	}
}
