package schedule

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRunnable struct {
	runs   atomic.Int32
	source atomic.Value
	err    error
}

func (c *countingRunnable) Run(source string) error {
	c.runs.Add(1)
	c.source.Store(source)
	return c.err
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		want    int
		wantErr bool
	}{
		{"daily", "0 3 * * *", 1, false},
		{"two expressions", "0 3 * * *; 30 12 * * 1-5", 2, false},
		{"trailing separator", "0 3 * * *;", 1, false},
		{"descriptor", "@hourly", 1, false},
		{"empty", "", 0, true},
		{"only separators", " ; ;", 0, true},
		{"garbage", "not a cron spec", 0, true},
		{"too few fields", "0 2 *", 0, true},
		{"out of range", "60 2 * * *", 0, true},
		{"one bad of two", "0 3 * * *;61 * * * *", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.spec)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidSpec)
				return
			}
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}
}

func TestTrigger_NextRun(t *testing.T) {
	trigger, err := New("0 3 * * *; 30 1 * * *", &countingRunnable{}, discard())
	require.NoError(t, err)
	trigger.now = func() time.Time { return time.Date(2024, 6, 14, 2, 0, 0, 0, time.Local) }

	assert.Equal(t, time.Date(2024, 6, 14, 3, 0, 0, 0, time.Local), trigger.NextRun(), "the earliest schedule wins")

	trigger.now = func() time.Time { return time.Date(2024, 6, 14, 0, 0, 0, 0, time.Local) }
	assert.Equal(t, time.Date(2024, 6, 14, 1, 30, 0, 0, time.Local), trigger.NextRun())
	assert.Equal(t, "0 3 * * *; 30 1 * * *", trigger.Spec())
}

func TestTrigger_Fires(t *testing.T) {
	runnable := &countingRunnable{err: errors.New("run already in progress")}
	trigger, err := New("* * * * *", runnable, discard())
	require.NoError(t, err)

	fired := make(chan time.Time)
	trigger.after = func(time.Duration) <-chan time.Time { return fired }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	trigger.Start(ctx)

	fired <- time.Now()
	fired <- time.Now()
	assert.Eventually(t, func() bool { return runnable.runs.Load() == 2 }, time.Second, 5*time.Millisecond,
		"a refused run does not stop the schedule")
	assert.Equal(t, Source, runnable.source.Load())
}

func TestTrigger_CancellationStopsLoop(t *testing.T) {
	runnable := &countingRunnable{}
	trigger, err := New("* * * * *", runnable, discard())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	trigger.Start(ctx)
	time.Sleep(10 * time.Millisecond)
	cancel()
	time.Sleep(10 * time.Millisecond)

	assert.Equal(t, int32(0), runnable.runs.Load())
}
