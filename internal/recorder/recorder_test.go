package recorder

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/codec"
	"main/internal/schema"
)

type instantClock struct{}

func (instantClock) Sleep(ctx context.Context, d time.Duration) error { return ctx.Err() }

func captureEvents(t *testing.T, n int) (string, []schema.Tick) {
	t.Helper()
	dir := t.TempDir()
	w, err := NewWriter(DefaultConfig(dir))
	require.NoError(t, err)
	require.NoError(t, w.Start(t.Context()))

	base := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC).UnixNano()
	ticks := make([]schema.Tick, 0, n)
	for i := 0; i < n; i++ {
		tick := schema.Tick{SymbolID: 1, Price: 1000 + float64(i), Volume: float64((i + 1) * 100)}
		ticks = append(ticks, tick)
		header := schema.NewHeader(schema.EventTick, 1, uint64(i+1),
			base+int64(i)*int64(time.Second), base+int64(i)*int64(time.Second))
		require.NoError(t, w.TryAppend(header, codec.EncodeTick(nil, tick)))
	}
	require.NoError(t, w.Close())
	return dir, ticks
}

func TestWriteThenPlayback(t *testing.T) {
	dir, ticks := captureEvents(t, 25)

	pb, err := NewPlayback(PlaybackConfig{Dir: dir, Speed: 0})
	require.NoError(t, err)
	pb = pb.WithClock(instantClock{})

	var gotSeq []uint64
	var got []schema.Tick
	err = pb.Run(t.Context(), func(header schema.EventHeader, payload []byte) error {
		require.Equal(t, schema.EventTick, header.Type)
		require.EqualValues(t, schema.SchemaVersion, header.Version)
		tick, ok := codec.DecodeTick(payload)
		require.True(t, ok)
		gotSeq = append(gotSeq, header.Seq)
		got = append(got, tick)
		return nil
	})
	require.NoError(t, err)

	require.Len(t, got, len(ticks))
	assert.Equal(t, ticks, got)
	for i, seq := range gotSeq {
		assert.Equal(t, uint64(i+1), seq)
	}
}

func TestWriterLifecycle(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(DefaultConfig(dir))
	require.NoError(t, err)

	header := schema.NewHeader(schema.EventTick, 1, 1, 0, 0)
	assert.ErrorIs(t, w.TryAppend(header, nil), ErrNotStarted)

	require.NoError(t, w.Start(t.Context()))
	assert.ErrorIs(t, w.Start(t.Context()), ErrAlreadyStarted)

	require.NoError(t, w.Close())
	assert.ErrorIs(t, w.TryAppend(header, nil), ErrClosed)
}

func TestWriterConfigValidation(t *testing.T) {
	if _, err := NewWriter(Config{}); err == nil {
		t.Fatal("empty dir must fail")
	}
	if _, err := NewWriter(Config{Dir: t.TempDir(), FlushInterval: -time.Second}); err == nil {
		t.Fatal("negative flush interval must fail")
	}
}

func TestPlaybackConfigValidation(t *testing.T) {
	if _, err := NewPlayback(PlaybackConfig{}); err == nil {
		t.Fatal("empty dir must fail")
	}
	if _, err := NewPlayback(PlaybackConfig{Dir: t.TempDir(), Speed: -1}); err == nil {
		t.Fatal("negative speed must fail")
	}
}
