package app

import (
	"github.com/friendcircle/backend/internal/auth"
	"github.com/friendcircle/backend/internal/config"
	"github.com/friendcircle/backend/internal/db"
	"github.com/friendcircle/backend/internal/friends"
	"github.com/friendcircle/backend/internal/handlers"
	"github.com/friendcircle/backend/internal/middleware"
	"github.com/friendcircle/backend/internal/repositories"
)

// buildDependencies wires together concrete implementations used by the HTTP handlers.
func buildDependencies(pool db.Pool, cfg config.Config) handlers.Dependencies {
	users := repositories.NewPostgresUserRepository(pool)
	requests := repositories.NewPostgresFriendRepository(pool)
	sessionStore := repositories.NewPostgresSessionStore(pool)

	return handlers.Dependencies{
		Users:    users,
		Sessions: auth.NewManager(cfg.AccessTTL, cfg.RefreshTTL, sessionStore),
		Friends:  friends.NewEngine(users, requests),
		Limiter:  middleware.NewIPRateLimiter(cfg.LoginLimit, cfg.LoginWindow, cfg.LoginLimit, 10*cfg.LoginWindow),
	}
}
