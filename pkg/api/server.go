package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mobelwerk/gatehouse/pkg/access"
	"github.com/mobelwerk/gatehouse/pkg/catalog"
	"github.com/mobelwerk/gatehouse/pkg/entitlements"
	"github.com/mobelwerk/gatehouse/pkg/httputil"
	"github.com/mobelwerk/gatehouse/pkg/observability"
	"github.com/mobelwerk/gatehouse/pkg/orgs"
)

// maxBodyBytes bounds entitlement mutation payloads.
const maxBodyBytes = 1 << 20 // 1MB

// Server is the Gatehouse API server.
type Server struct {
	router    *mux.Router
	catalog   *catalog.Catalog
	service   *entitlements.Service
	evaluator *access.Evaluator
	directory orgs.Directory
	logger    *observability.Logger
	metrics   *observability.Metrics
}

// NewServer creates an API server. metrics may be nil.
func NewServer(cat *catalog.Catalog, service *entitlements.Service, evaluator *access.Evaluator, directory orgs.Directory, logger *observability.Logger, metrics *observability.Metrics) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		catalog:   cat,
		service:   service,
		evaluator: evaluator,
		directory: directory,
		logger:    logger,
		metrics:   metrics,
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	s.router.Use(
		httputil.RequestIDMiddleware,
		s.loggerMiddleware,
		httputil.LoggingMiddleware,
		httputil.RecoveryMiddleware,
		httputil.ContentTypeMiddleware,
		httputil.MaxBytesMiddleware(maxBodyBytes),
	)
	if s.metrics != nil {
		s.router.Use(observability.HTTPMetricsMiddleware(s.metrics))
	}

	// Catalog routes are read-only and unauthenticated.
	s.router.HandleFunc("/catalog/modules", s.listCatalogModules).Methods("GET")

	// Org-scoped routes require a requester identity.
	orgRoutes := s.router.PathPrefix("/orgs").Subrouter()
	orgRoutes.Use(s.IdentityMiddleware)
	orgRoutes.HandleFunc("/{org_id}/modules", s.listOrgModules).Methods("GET")
	orgRoutes.HandleFunc("/{org_id}/modules/{module_key}", s.updateEntitlement).Methods("PUT")
	orgRoutes.HandleFunc("/{org_id}/modules/{module_key}/access", s.checkAccess).Methods("GET")
}

// Router returns the underlying mux router so binaries can mount extra
// routes (health probes, metrics) beside the API.
func (s *Server) Router() *mux.Router {
	return s.router
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// loggerMiddleware seeds the request context with a request-scoped logger.
func (s *Server) loggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := observability.WithLogger(r.Context(), s.logger)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
