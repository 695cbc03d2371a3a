package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/marco-pos/api/responses"
	"github.com/angelmondragon/marco-pos/internal/offlinequeue"
	pkgerrors "github.com/angelmondragon/marco-pos/pkg/errors"
	"github.com/angelmondragon/marco-pos/pkg/logger"
)

type deadLetterStore interface {
	DeadLetters() []offlinequeue.DeadLetter
	RequeueDeadLetter(ctx context.Context, id uuid.UUID) error
}

func DeadLetterList(store deadLetterStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "offline queue unavailable"))
			return
		}
		letters := store.DeadLetters()
		out := make([]deadLetterResponse, 0, len(letters))
		for _, dl := range letters {
			out = append(out, newDeadLetterResponse(dl))
		}
		responses.WriteSuccess(w, out)
	}
}

// DeadLetterRequeue moves a dead-lettered sale back to the tail of the queue with a
// fresh attempt budget.
func DeadLetterRequeue(store deadLetterStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "offline queue unavailable"))
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "transactionId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid transaction id"))
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithTransactionID(ctx, id.String())
		}
		if err := store.RequeueDeadLetter(ctx, id); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
