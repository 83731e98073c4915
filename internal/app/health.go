package app

import (
	"context"
	"time"

	"github.com/shandysiswandi/irnotify/internal/pkg/goerror"
	"github.com/shandysiswandi/irnotify/internal/pkg/router"
)

type healthResponse struct {
	Database string `json:"database"`
	Redis    string `json:"redis"`
}

func (h healthResponse) Message() string { return "service is healthy" }

// health pings the database and redis with a short deadline.
func (a *App) health(r *router.Request) (any, error) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.dbConn.Ping(ctx); err != nil {
		return nil, goerror.NewUnavailable("Database is unreachable", err)
	}
	if err := a.cacheConn.Ping(ctx).Err(); err != nil {
		return nil, goerror.NewUnavailable("Redis is unreachable", err)
	}

	return healthResponse{Database: "up", Redis: "up"}, nil
}
