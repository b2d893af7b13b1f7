package app

import (
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"
)

// MiddlewareStack assembles the shared middleware chain applied to every
// route. Ordering matters: recovery first, then identification, limits, and
// security headers.
func MiddlewareStack(cfg *Config) []func(http.Handler) http.Handler {
	secureMW := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		IsDevelopment:      !cfg.IsProduction(),
	})

	stack := []func(http.Handler) http.Handler{
		chimw.Recoverer,
		chimw.RequestID,
		chimw.RealIP,
		chimw.Timeout(cfg.AppRequestTimeout),
		secureMW.Handler,
	}

	if cfg.RateLimitRequests > 0 {
		stack = append(stack, httprate.LimitByIP(cfg.RateLimitRequests, cfg.RateLimitWindow))
	}

	return stack
}
