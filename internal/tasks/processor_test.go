package tasks

import (
	"context"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSweeper struct {
	calls int
	swept int64
	err   error
}

func (f *fakeSweeper) Sweep(context.Context) (int64, error) {
	f.calls++
	return f.swept, f.err
}

func TestProcessorHandle(t *testing.T) {
	tests := []struct {
		name      string
		values    map[string]interface{}
		sweepErr  error
		wantCalls int
		wantErr   bool
	}{
		{
			name:      "session sweep",
			values:    map[string]interface{}{"type": TypeSessionSweep, "requestedAt": "2026-01-01T00:00:00Z"},
			wantCalls: 1,
		},
		{
			name:      "sweep failure keeps the message pending",
			values:    map[string]interface{}{"type": TypeSessionSweep},
			sweepErr:  errors.New("db down"),
			wantCalls: 1,
			wantErr:   true,
		},
		{
			name:   "unknown type is acknowledged",
			values: map[string]interface{}{"type": "thumbnail"},
		},
		{
			name:   "missing type",
			values: map[string]interface{}{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sweeper := &fakeSweeper{swept: 3, err: tt.sweepErr}
			p := NewProcessor(sweeper, zerolog.Nop())

			err := p.Handle(context.Background(), redis.XMessage{ID: "1-0", Values: tt.values})
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantCalls, sweeper.calls)
		})
	}
}
