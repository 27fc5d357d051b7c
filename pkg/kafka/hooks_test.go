package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"StockPulse/pkg/logger"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHookChainOrder(t *testing.T) {
	var calls []string
	mk := func(name string) ConsumerHook {
		return HookFuncs{
			Before: func(ctx context.Context, _ string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
				calls = append(calls, "before-"+name)
				return ctx, km, append(data, name...), nil
			},
			After: func(context.Context, string, kafka.Message, []byte, error) {
				calls = append(calls, "after-"+name)
			},
		}
	}
	chain := NewHookChain(mk("a"), nil, mk("b"))

	ctx, km, data, err := chain.BeforeHandle(context.Background(), "t", kafka.Message{}, []byte("x"))
	require.NoError(t, err)
	chain.AfterHandle(ctx, "t", km, data, nil)

	assert.Equal(t, "xab", string(data))
	assert.Equal(t, []string{"before-a", "before-b", "after-b", "after-a"}, calls)
}

func TestHookChainBeforeErrorNotifiesAll(t *testing.T) {
	rejected := errors.New("bad payload")
	var notified int
	onErr := func(context.Context, string, kafka.Message, []byte, error) { notified++ }
	chain := NewHookChain(
		HookFuncs{Err: onErr},
		HookFuncs{
			Before: func(ctx context.Context, _ string, km kafka.Message, d []byte) (context.Context, kafka.Message, []byte, error) {
				return ctx, km, d, rejected
			},
			Err: onErr,
		},
	)

	_, _, _, err := chain.BeforeHandle(context.Background(), "t", kafka.Message{}, nil)

	assert.ErrorIs(t, err, rejected)
	assert.Equal(t, 2, notified)
}

func TestHookChainRecoversPanic(t *testing.T) {
	chain := NewHookChain(HookFuncs{
		Before: func(context.Context, string, kafka.Message, []byte) (context.Context, kafka.Message, []byte, error) {
			panic("boom")
		},
		After: func(context.Context, string, kafka.Message, []byte, error) { panic("boom") },
	})

	_, _, _, err := chain.BeforeHandle(context.Background(), "t", kafka.Message{}, nil)
	var herr *HookError
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, "ERR_PANIC", herr.Code)

	assert.NotPanics(t, func() {
		chain.AfterHandle(context.Background(), "t", kafka.Message{}, nil, nil)
	})
}

func TestLoggingHookStampsStart(t *testing.T) {
	h := NewLoggingHook(logger.Nop(), 0)
	ctx, _, _, err := h.BeforeHandle(context.Background(), "t", kafka.Message{}, nil)
	require.NoError(t, err)
	start, ok := ctx.Value(startKey{}).(time.Time)
	assert.True(t, ok)
	assert.False(t, start.IsZero())
}

func TestBackoffWithJitterBounds(t *testing.T) {
	for attempt := 1; attempt < 40; attempt++ {
		d := backoffWithJitter(10, 1000, attempt)
		assert.Greater(t, int64(d), int64(0))
		assert.LessOrEqual(t, int64(d), int64(1000))
	}
}

func TestNewConsumerRequiresBrokers(t *testing.T) {
	_, err := NewConsumer()
	assert.Error(t, err)
}

func TestEncodeValue(t *testing.T) {
	b, err := encodeValue(map[string]int{"n": 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":1}`, string(b))

	b, err = encodeValue("raw")
	require.NoError(t, err)
	assert.Equal(t, "raw", string(b))
}
