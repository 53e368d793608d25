package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/paybridge/api/responses"
	"github.com/angelmondragon/paybridge/pkg/config"
	pkgerrors "github.com/angelmondragon/paybridge/pkg/errors"
	"github.com/angelmondragon/paybridge/pkg/logger"
)

const readyTimeout = 3 * time.Second

type storePinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Paybridge-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready once the transaction store answers a ping.
func HealthReady(cfg *config.Config, logg *logger.Logger, store storePinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Paybridge-Env", cfg.App.Env)
		if store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "transaction store not configured"))
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "transaction store unreachable"))
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready", "store": cfg.Store.Driver})
	}
}
