package handlers

import (
	"net/http"

	"github.com/friendcircle/backend/internal/middleware"
)

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{}
	authHandler := AuthHandler{Users: deps.Users, Sessions: deps.Sessions, Limiter: deps.Limiter}
	friendHandler := FriendHandler{Friends: deps.Friends}
	userHandler := UserHandler{Users: deps.Users}

	gate := middleware.Authenticate(deps.Sessions)

	mux.HandleFunc("/healthz", health.Handle)
	mux.HandleFunc("/api/v1/auth/signup", authHandler.SignUp)
	mux.HandleFunc("/api/v1/auth/login", authHandler.Login)
	mux.HandleFunc("/api/v1/auth/refresh", authHandler.Refresh)
	mux.Handle("/api/v1/auth/me", gate(http.HandlerFunc(authHandler.Me)))
	mux.Handle("/api/v1/friends", gate(http.HandlerFunc(friendHandler.ListFriends)))
	mux.Handle("/api/v1/friends/request", gate(http.HandlerFunc(friendHandler.Send)))
	mux.Handle("/api/v1/friends/requests", gate(http.HandlerFunc(friendHandler.ListRequests)))
	mux.Handle("/api/v1/friends/respond", gate(http.HandlerFunc(friendHandler.Respond)))
	mux.Handle("/api/v1/users", gate(http.HandlerFunc(userHandler.List)))
}

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Users    UserStore
	Sessions SessionManager
	Friends  FriendService
	Limiter  RateLimiter
}
