package sink

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/marco-pos/internal/transactions"
	pkgerrors "github.com/angelmondragon/marco-pos/pkg/errors"
)

type fakePublisher struct {
	msgs []*gcppubsub.Message
	err  error
}

func (f *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	f.msgs = append(f.msgs, msg)
	return fakeResult{err: f.err}
}

type fakeResult struct {
	err error
}

func (r fakeResult) Get(context.Context) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return "msg-1", nil
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func TestPubSubSinkPublishesPayload(t *testing.T) {
	pub := &fakePublisher{}
	s := newPubSubSink(pub, fakePinger{}, time.Second, nil)
	payload := samplePayload(t)

	require.NoError(t, s.Write(context.Background(), payload))
	require.Len(t, pub.msgs, 1)

	msg := pub.msgs[0]
	assert.Equal(t, payload.ID.String(), msg.Attributes["transaction_id"])
	assert.Equal(t, "till-1", msg.Attributes["terminal_id"])
	assert.Equal(t, "recorded", msg.Attributes["status"])

	var decoded transactions.Payload
	require.NoError(t, json.Unmarshal(msg.Data, &decoded))
	assert.Equal(t, payload.ID, decoded.ID)
	assert.True(t, decoded.Total.Equal(payload.Total))
	assert.Equal(t, "pubsub", s.Name())
	assert.NoError(t, s.Ping(context.Background()))
}

func TestPubSubSinkClassifiesFailures(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		retryable bool
	}{
		{name: "unavailable", err: status.Error(codes.Unavailable, "try later"), retryable: true},
		{name: "deadline", err: context.DeadlineExceeded, retryable: true},
		{name: "invalid argument", err: status.Error(codes.InvalidArgument, "too large"), retryable: false},
		{name: "permission denied", err: status.Error(codes.PermissionDenied, "no"), retryable: false},
		{name: "topic missing", err: status.Error(codes.NotFound, "topic"), retryable: false},
		{name: "plain error", err: errors.New("boom"), retryable: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newPubSubSink(&fakePublisher{err: tc.err}, nil, time.Second, nil)
			err := s.Write(context.Background(), samplePayload(t))
			require.Error(t, err)
			assert.Equal(t, tc.retryable, pkgerrors.IsRetryable(err))
		})
	}
}

func TestPubSubSinkNilPublisherIsTransient(t *testing.T) {
	s := NewPubSubSink(nil, nil, time.Second, nil)
	err := s.Write(context.Background(), samplePayload(t))
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.As(err).Code())
}

func TestPubSubSinkRejectsInvalidPayload(t *testing.T) {
	pub := &fakePublisher{}
	s := newPubSubSink(pub, nil, time.Second, nil)
	payload := samplePayload(t)
	payload.CashierEmail = "not-an-email"

	err := s.Write(context.Background(), payload)
	require.Error(t, err)
	assert.False(t, pkgerrors.IsRetryable(err))
	assert.Empty(t, pub.msgs)
}
