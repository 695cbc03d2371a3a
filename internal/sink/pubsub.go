package sink

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/marco-pos/internal/transactions"
	pkgerrors "github.com/angelmondragon/marco-pos/pkg/errors"
	"github.com/angelmondragon/marco-pos/pkg/logger"
)

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

type pinger interface {
	Ping(context.Context) error
}

// PubSubSink publishes each sale as a JSON message on the transactions topic.
// Consumers dedupe on the transaction_id attribute.
type PubSubSink struct {
	pub     publisher
	health  pinger
	timeout time.Duration
	logg    *logger.Logger
}

func NewPubSubSink(pub *gcppubsub.Publisher, health pinger, timeout time.Duration, logg *logger.Logger) *PubSubSink {
	return newPubSubSink(&gcpPublisher{Publisher: pub}, health, timeout, logg)
}

func newPubSubSink(pub publisher, health pinger, timeout time.Duration, logg *logger.Logger) *PubSubSink {
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &PubSubSink{pub: pub, health: health, timeout: timeout, logg: logg}
}

func (s *PubSubSink) Name() string { return "pubsub" }

func (s *PubSubSink) Write(ctx context.Context, payload transactions.Payload) error {
	if err := rejectInvalid(payload); err != nil {
		return err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeRejected, err, "encode sale")
	}

	msg := &gcppubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"transaction_id": payload.ID.String(),
			"terminal_id":    payload.TerminalID,
			"status":         string(payload.Status),
			"sold_at":        payload.CreatedAt.Format(time.RFC3339Nano),
		},
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	result := s.pub.Publish(ctx, msg)
	if result == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "publisher returned no result")
	}
	serverID, err := result.Get(ctx)
	if err != nil {
		return classifyGRPC(err)
	}

	logCtx := s.logg.WithTransactionID(ctx, payload.ID.String())
	s.logg.Debug(s.logg.WithField(logCtx, "message_id", serverID), "sale published")
	return nil
}

func (s *PubSubSink) Ping(ctx context.Context) error {
	if s.health == nil {
		return nil
	}
	return s.health.Ping(ctx)
}

func classifyGRPC(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "publish timed out")
	}
	switch status.Code(err) {
	case codes.InvalidArgument, codes.PermissionDenied, codes.NotFound, codes.FailedPrecondition:
		return pkgerrors.Wrap(pkgerrors.CodeRejected, err, "pubsub rejected sale").
			WithDetails(map[string]any{"grpc_code": status.Code(err).String()})
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "publish failed")
	}
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return &gcpPublishResult{PublishResult: p.Publisher.Publish(ctx, msg)}
}

type gcpPublishResult struct {
	*gcppubsub.PublishResult
}

func (r *gcpPublishResult) Get(ctx context.Context) (string, error) {
	if r == nil || r.PublishResult == nil {
		return "", errors.New("publish result is nil")
	}
	return r.PublishResult.Get(ctx)
}
