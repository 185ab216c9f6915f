package router

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/localmart/marketplace-service/internal/transport/http/handlers"
	"github.com/localmart/marketplace-service/internal/transport/http/middleware"
)

type Deps struct {
	Health   *handlers.HealthHandler
	Auth     *handlers.AuthHandler
	Listings *handlers.ListingsHandler
	Messages *handlers.MessagesHandler
	Media    *handlers.MediaHandler
	Admin    *handlers.AdminHandler

	AuthMW *middleware.AuthMiddleware

	// Limiter backs the per-route fixed windows on login/register. Nil
	// disables them (dev without Redis).
	Limiter middleware.RateLimiter

	// IPRequestLimit caps requests per IP per minute across the whole API.
	// Zero disables the global limiter.
	IPRequestLimit int

	// LoginLimit/LoginWindow override the login window; zero keeps the
	// defaults. Register always runs at half the login budget.
	LoginLimit  int
	LoginWindow time.Duration
}

func New(deps Deps) (http.Handler, error) {
	if deps.Health == nil {
		return nil, fmt.Errorf("nil Health handler")
	}
	if deps.Auth == nil {
		return nil, fmt.Errorf("nil Auth handler")
	}
	if deps.Listings == nil {
		return nil, fmt.Errorf("nil Listings handler")
	}
	if deps.Messages == nil {
		return nil, fmt.Errorf("nil Messages handler")
	}
	if deps.Media == nil {
		return nil, fmt.Errorf("nil Media handler")
	}
	if deps.Admin == nil {
		return nil, fmt.Errorf("nil Admin handler")
	}
	if deps.AuthMW == nil {
		return nil, fmt.Errorf("nil Auth middleware")
	}

	loginLimit := deps.LoginLimit
	if loginLimit <= 0 {
		loginLimit = 10
	}
	loginWindow := deps.LoginWindow
	if loginWindow <= 0 {
		loginWindow = time.Minute
	}
	registerLimit := loginLimit / 2
	if registerLimit < 1 {
		registerLimit = 1
	}

	loginRL := middleware.RateLimitFixedWindow(deps.Limiter, middleware.FixedWindowConfig{
		RouteKey: "login", Limit: loginLimit, Window: loginWindow,
	})
	registerRL := middleware.RateLimitFixedWindow(deps.Limiter, middleware.FixedWindowConfig{
		RouteKey: "register", Limit: registerLimit, Window: loginWindow,
	})

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.AccessLog)
	r.Use(middleware.Metrics)
	if deps.IPRequestLimit > 0 {
		r.Use(httprate.LimitByIP(deps.IPRequestLimit, time.Minute))
	}

	r.Get("/healthz", deps.Health.Healthz)
	r.Get("/readyz", deps.Health.Readyz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(registerRL).Post("/register", deps.Auth.Register)
			r.With(loginRL).Post("/login", deps.Auth.Login)
			r.Post("/refresh", deps.Auth.Refresh)
			r.Post("/logout", deps.Auth.Logout)

			r.Group(func(r chi.Router) {
				r.Use(deps.AuthMW.Require)
				r.Get("/me", deps.Auth.Me)
				r.Post("/password/change", deps.Auth.ChangePassword)
				r.Post("/sessions/revoke", deps.Auth.RevokeSessions)
			})
		})

		r.Route("/listings", func(r chi.Router) {
			// Reads are public; the viewer still matters for the response
			// shape, so the token is parsed when present.
			r.With(deps.AuthMW.Optional).Get("/", deps.Listings.Search)

			r.Group(func(r chi.Router) {
				r.Use(deps.AuthMW.Require)
				r.Post("/", deps.Listings.Create)
				r.Get("/mine", deps.Listings.Mine)
				r.Get("/resolve-area", deps.Listings.ResolveArea)
				r.Patch("/{id}", deps.Listings.Update)
				r.Delete("/{id}", deps.Listings.Delete)
				r.Post("/{id}/sold", deps.Listings.MarkSold)
			})

			r.With(deps.AuthMW.Optional).Get("/{id}", deps.Listings.Get)
		})

		r.Route("/conversations", func(r chi.Router) {
			r.Use(deps.AuthMW.Require)
			r.Post("/", deps.Messages.Start)
			r.Get("/", deps.Messages.ListConversations)
			r.Get("/{id}/messages", deps.Messages.ListMessages)
			r.Post("/{id}/messages", deps.Messages.Send)
		})

		r.Route("/uploads", func(r chi.Router) {
			r.Use(deps.AuthMW.Require)
			r.Post("/", deps.Media.CreateUpload)
			r.Post("/{id}/complete", deps.Media.Complete)
			r.Get("/{id}", deps.Media.Get)
			r.Post("/{id}/attach", deps.Media.Attach)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(deps.AuthMW.Require)
			r.Use(middleware.RequireAtLeast("admin"))
			r.Delete("/listings/{id}", deps.Admin.DeleteListing)
			r.Get("/users/{id}", deps.Admin.GetUser)
		})
	})

	return r, nil
}
