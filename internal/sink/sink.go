// Package sink writes finalized sales to the remote transaction store.
package sink

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/marco-pos/internal/transactions"
	"github.com/angelmondragon/marco-pos/pkg/config"
	"github.com/angelmondragon/marco-pos/pkg/db"
	pkgerrors "github.com/angelmondragon/marco-pos/pkg/errors"
	"github.com/angelmondragon/marco-pos/pkg/logger"
	"github.com/angelmondragon/marco-pos/pkg/pubsub"
)

// Sink delivers one payload. Failures are typed: CodeRejected for records the remote
// side will never accept, CodeDependency for anything worth retrying.
type Sink interface {
	Write(ctx context.Context, payload transactions.Payload) error
	Ping(ctx context.Context) error
	Name() string
}

// New builds the sink selected by cfg.Driver from already-connected clients.
func New(cfg config.SinkConfig, dbClient *db.Client, psClient *pubsub.Client, logg *logger.Logger) (Sink, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case config.SinkPostgres:
		if dbClient == nil {
			return nil, fmt.Errorf("postgres sink requires a database client")
		}
		return NewPostgresSink(dbClient.DB(), cfg.WriteTimeout, logg), nil
	case config.SinkPubSub:
		if psClient == nil {
			return nil, fmt.Errorf("pubsub sink requires a pubsub client")
		}
		pub := psClient.TransactionsPublisher()
		if pub == nil {
			return nil, fmt.Errorf("pubsub transactions topic not configured")
		}
		return NewPubSubSink(pub, psClient, cfg.WriteTimeout, logg), nil
	default:
		return nil, fmt.Errorf("unknown sink driver %q", cfg.Driver)
	}
}

func rejectInvalid(payload transactions.Payload) error {
	if err := payload.Validate(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeRejected, err, "payload failed validation")
	}
	return nil
}
