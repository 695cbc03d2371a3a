package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/marco-pos/api/responses"
	"github.com/angelmondragon/marco-pos/internal/checkout"
	"github.com/angelmondragon/marco-pos/internal/offlinequeue"
	pkgerrors "github.com/angelmondragon/marco-pos/pkg/errors"
	"github.com/angelmondragon/marco-pos/pkg/logger"
)

type syncService interface {
	Sync(ctx context.Context) (offlinequeue.DrainResult, error)
	Status() checkout.Status
}

func SyncStatus(svc syncService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sync service unavailable"))
			return
		}
		responses.WriteSuccess(w, newSyncStatusResponse(svc.Status()))
	}
}

// SyncNow drains the offline queue in the request and reports what happened.
func SyncNow(svc syncService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sync service unavailable"))
			return
		}

		result, err := svc.Sync(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newDrainResponse(result))
	}
}
