package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/marco-pos/api/responses"
	"github.com/angelmondragon/marco-pos/pkg/config"
	pkgerrors "github.com/angelmondragon/marco-pos/pkg/errors"
	"github.com/angelmondragon/marco-pos/pkg/logger"
)

const readyTimeout = 3 * time.Second

// Pinger is implemented by every dependency the readiness probe checks.
type Pinger interface {
	Ping(context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-MarcoPOS-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready only when the local queue store answers. A failing
// remote sink is reported but does not fail readiness: the terminal keeps selling
// offline.
func HealthReady(cfg *config.Config, logg *logger.Logger, localStore Pinger, remote Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-MarcoPOS-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		if localStore != nil {
			if err := localStore.Ping(ctx); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "local store unavailable"))
				return
			}
		}

		sinkStatus := "ok"
		if remote != nil {
			if err := remote.Ping(ctx); err != nil {
				sinkStatus = "unreachable"
				if logg != nil {
					logg.Warn(logg.WithField(r.Context(), "error", err.Error()), "remote sink unreachable")
				}
			}
		}

		responses.WriteSuccess(w, map[string]string{
			"status":      "ready",
			"local_store": "ok",
			"sink":        sinkStatus,
		})
	}
}
