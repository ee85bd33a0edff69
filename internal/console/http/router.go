package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/brightpay/console/internal/console/service"
	"github.com/brightpay/console/internal/console/store"
	"github.com/brightpay/console/pkg/httpx"
	"github.com/brightpay/console/pkg/slogx"

	_ "github.com/brightpay/console/api/console" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	devMode      bool

	store       store.Store
	AuthService *service.AuthService
	UserService *service.UserService
}

func NewRouter(buildVersion string, devMode bool, st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		devMode:      devMode,
		store:        st,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

// ServeHTTP implements http.Handler and applies the global middleware chain.
//
//	@title			BrightPay Console API
//	@version		0.1.0
//	@description	Backend for the business-operations console. Protected routes require a bearer session token obtained from the auth endpoints.
//
//	@BasePath		/
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Session token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerUsers()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())

	// Catch-all so unmatched paths get a JSON 404 instead of the default
	// plain-text page.
	r.Mux.HandleFunc("/", func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteJSON(w, http.StatusNotFound, ErrorResponse{Message: "route not found"})
	})
}

func (r *Router) registerAuth() {
	gate := AuthnMiddleware(r.AuthService)

	// Credential endpoints take the strict limit to slow online guessing.
	r.Mux.Handle("POST /api/auth/login",
		httpx.Chain(&LoginHandler{AuthService: r.AuthService, DevMode: r.devMode},
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("POST /api/auth/register",
		httpx.Chain(&RegisterHandler{AuthService: r.AuthService, DevMode: r.devMode},
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("GET /api/auth/verify",
		httpx.Chain(&VerifyHandler{},
			gate,
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerUsers() {
	h := &UsersHandler{UserService: r.UserService, DevMode: r.devMode}
	gate := AuthnMiddleware(r.AuthService)

	// Reads need only an authenticated identity.
	r.Mux.Handle("GET /api/users",
		httpx.Chain(http.HandlerFunc(h.HandleList),
			gate,
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /api/users/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleGet),
			gate,
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)

	// Mutations are layered: gate first, then the independent role check.
	admin := RequireRole("admin")
	r.Mux.Handle("POST /api/users",
		httpx.Chain(http.HandlerFunc(h.HandleCreate),
			gate, admin,
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("PUT /api/users/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleUpdate),
			gate, admin,
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("DELETE /api/users/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleDelete),
			gate, admin,
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.store, r.startTime, r.buildVersion))
}
