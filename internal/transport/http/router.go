// Package http wires the GraphQL handler and the plain operational endpoints
// into a chi router.
package http

import (
	"context"
	"net"
	stdhttp "net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/graphql-go/graphql"
	gqlhandler "github.com/graphql-go/handler"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	dErrors "chrometour/pkg/domain-errors"
	"chrometour/pkg/platform/httputil"
	"chrometour/pkg/requestcontext"
)

const welcomeMessage = "Welcome to the Chrome Tour API! Visit /graphql to start querying."

// Config collects the router's collaborators.
type Config struct {
	Schema   graphql.Schema
	Gatherer prometheus.Gatherer

	// HealthCheck reports backing-store reachability. Optional.
	HealthCheck func(context.Context) error
}

// NewRouter builds the full HTTP surface: the GraphQL endpoint with GraphiQL
// enabled, a welcome root, health, and metrics.
func NewRouter(cfg Config) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestMetadata)

	r.Handle("/graphql", gqlhandler.New(&gqlhandler.Config{
		Schema:   &cfg.Schema,
		Pretty:   true,
		GraphiQL: true,
	}))

	r.Get("/", func(w stdhttp.ResponseWriter, _ *stdhttp.Request) {
		httputil.WriteJSON(w, stdhttp.StatusOK, map[string]string{"message": welcomeMessage})
	})

	r.Get("/healthz", func(w stdhttp.ResponseWriter, req *stdhttp.Request) {
		if cfg.HealthCheck != nil {
			if err := cfg.HealthCheck(req.Context()); err != nil {
				httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "database unreachable"))
				return
			}
		}
		httputil.WriteJSON(w, stdhttp.StatusOK, map[string]string{"status": "ok"})
	})

	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Method(stdhttp.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return r
}

// requestMetadata captures request origin details for the resolvers to use
// as registration metadata defaults.
func requestMetadata(next stdhttp.Handler) stdhttp.Handler {
	return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, req *stdhttp.Request) {
		ctx := req.Context()
		ctx = requestcontext.WithClientIP(ctx, clientIP(req))
		ctx = requestcontext.WithUserAgent(ctx, req.UserAgent())
		ctx = requestcontext.WithReferrer(ctx, req.Referer())
		next.ServeHTTP(w, req.WithContext(ctx))
	})
}

// clientIP strips the port RemoteAddr usually carries. RealIP runs first, so
// proxied requests already hold the originating address.
func clientIP(req *stdhttp.Request) string {
	if host, _, err := net.SplitHostPort(req.RemoteAddr); err == nil {
		return host
	}
	return req.RemoteAddr
}
