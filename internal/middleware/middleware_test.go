package middleware

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/expensedash/internal/metrics"
	"github.com/mmynk/expensedash/internal/protocol"
)

func TestContextValues(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetUsername(ctx))
	assert.Empty(t, GetSessionID(ctx))

	ctx = WithSessionID(WithUsername(ctx, "alice"), "s-1")
	assert.Equal(t, "alice", GetUsername(ctx))
	assert.Equal(t, "s-1", GetSessionID(ctx))
}

func TestRequireLogin(t *testing.T) {
	called := 0
	h := Chain(func(ctx context.Context, cmd protocol.Command) error {
		called++
		return nil
	}, RequireLogin(protocol.CmdRequestSnapshot, protocol.CmdAddGroup))

	err := h(context.Background(), protocol.RequestSnapshot{})
	var re *protocol.ReplyError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "SNAPSHOT_ERR|User not logged in", re.Line)

	err = h(context.Background(), protocol.AddGroup{GroupName: "Trip"})
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "ADD_GROUP_ERR|User not logged in", re.Line)
	assert.Equal(t, 0, called)

	require.NoError(t, h(context.Background(), protocol.SearchGroup{}))
	require.NoError(t, h(WithUsername(context.Background(), "alice"), protocol.RequestSnapshot{}))
	assert.Equal(t, 2, called)
}

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(next Handler) Handler {
			return func(ctx context.Context, cmd protocol.Command) error {
				order = append(order, name)
				return next(ctx, cmd)
			}
		}
	}

	h := Chain(func(ctx context.Context, cmd protocol.Command) error {
		order = append(order, "handler")
		return nil
	}, mw("outer"), mw("inner"))

	require.NoError(t, h(context.Background(), protocol.RequestSnapshot{}))
	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}

func TestLoggingRecordsOutcome(t *testing.T) {
	m := metrics.New()

	results := []error{
		nil,
		protocol.Conflict(protocol.RegisterDup, nil),
		protocol.Failure(protocol.CmdRegister, errors.New("disk full")),
		errors.New("unclassified"),
	}
	for _, want := range results {
		h := Chain(func(ctx context.Context, cmd protocol.Command) error { return want }, Logging(m))
		got := h(context.Background(), protocol.Register{Username: "alice"})
		assert.Equal(t, want, got, "errors pass through unchanged")
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Commands.WithLabelValues("REGISTER", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Commands.WithLabelValues("REGISTER", "conflict")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Commands.WithLabelValues("REGISTER", "failure")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.CommandDuration))
}
