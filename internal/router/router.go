package router

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/undercity/backend/internal/auth"
	"github.com/undercity/backend/internal/contracts"
	"github.com/undercity/backend/internal/middleware"
)

// New returns the API handler. Auth routes are public; all contract routes
// require an authenticated caller.
func New(authHandler *auth.Handler, contractsHandler *contracts.Handler, validator middleware.TokenValidator) http.Handler {
	mux := http.NewServeMux()
	requireUser := middleware.RequireUser(validator)

	mux.HandleFunc("POST /api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)

	mux.Handle("GET /api/v1/contracts", requireUser(http.HandlerFunc(contractsHandler.ListAvailable)))
	mux.Handle("POST /api/v1/contracts", requireUser(http.HandlerFunc(contractsHandler.Create)))
	mux.Handle("POST /api/v1/contracts/ghost-assassin", requireUser(http.HandlerFunc(contractsHandler.GhostAssassin)))
	mux.Handle("POST /api/v1/contracts/{id}/accept", requireUser(http.HandlerFunc(contractsHandler.Accept)))
	mux.Handle("GET /api/v1/contracts/{id}/reward", requireUser(http.HandlerFunc(contractsHandler.Reward)))
	mux.Handle("GET /api/v1/contracts/{id}/result", requireUser(http.HandlerFunc(contractsHandler.Result)))

	mux.Handle("GET /metrics", promhttp.Handler())

	return mux
}
