package chaos

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/schema"
)

func event(seq uint64) Event {
	return Event{Header: schema.NewHeader(schema.EventTick, 1, seq, int64(seq), int64(seq))}
}

func TestConfigValidate(t *testing.T) {
	testCases := []struct {
		desc string
		cfg  Config
		ok   bool
	}{
		{desc: "zero value", cfg: Config{ReorderWindow: 1}, ok: true},
		{desc: "drop rate over one", cfg: Config{DropRate: 1.5, ReorderWindow: 1}},
		{desc: "negative duplicate rate", cfg: Config{DuplicateRate: -0.1, ReorderWindow: 1}},
		{desc: "negative delay", cfg: Config{MaxDelay: -time.Second, ReorderWindow: 1}},
		{desc: "zero reorder window", cfg: Config{}},
	}
	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestPassThroughWithoutChaos(t *testing.T) {
	e, err := NewEngine(Config{Seed: 1})
	require.NoError(t, err)

	for seq := uint64(1); seq <= 5; seq++ {
		out := e.Process(event(seq))
		require.Len(t, out, 1)
		assert.Equal(t, seq, out[0].Header.Seq)
	}
	assert.Empty(t, e.Flush())
}

func TestDropAllAndDuplicateAll(t *testing.T) {
	drop, err := NewEngine(Config{Seed: 1, DropRate: 1})
	require.NoError(t, err)
	assert.Empty(t, drop.Process(event(1)))

	dup, err := NewEngine(Config{Seed: 1, DuplicateRate: 1})
	require.NoError(t, err)
	out := dup.Process(event(1))
	require.Len(t, out, 2)
	assert.Equal(t, out[0].Header, out[1].Header)
}

func TestReorderWindowPreservesEventSet(t *testing.T) {
	e, err := NewEngine(Config{Seed: 7, ReorderWindow: 4})
	require.NoError(t, err)

	var out []Event
	for seq := uint64(1); seq <= 10; seq++ {
		out = append(out, e.Process(event(seq))...)
	}
	out = append(out, e.Flush()...)

	require.Len(t, out, 10)
	seen := make(map[uint64]int)
	for _, ev := range out {
		seen[ev.Header.Seq]++
	}
	for seq := uint64(1); seq <= 10; seq++ {
		assert.Equal(t, 1, seen[seq], "seq %d", seq)
	}
}

func TestDelayPushesRecvTimestamp(t *testing.T) {
	e, err := NewEngine(Config{Seed: 3, MaxDelay: time.Millisecond})
	require.NoError(t, err)

	// seeded rng makes delays deterministic but not hand-derivable, so
	// assert the ordering invariant over a batch
	delayed := 0
	for seq := uint64(1); seq <= 50; seq++ {
		ev := event(seq)
		recv := ev.Header.TsRecv
		out := e.Process(ev)
		require.Len(t, out, 1)
		got := out[0].Header.TsRecv
		assert.GreaterOrEqual(t, got, recv)
		assert.LessOrEqual(t, got-recv, time.Millisecond.Nanoseconds())
		if got > recv {
			delayed++
		}
	}
	assert.Positive(t, delayed)
}

func TestDeterministicForSeed(t *testing.T) {
	run := func() []uint64 {
		e, err := NewEngine(Config{Seed: 11, DropRate: 0.3, DuplicateRate: 0.3, ReorderWindow: 3})
		require.NoError(t, err)
		var seqs []uint64
		for seq := uint64(1); seq <= 30; seq++ {
			for _, ev := range e.Process(event(seq)) {
				seqs = append(seqs, ev.Header.Seq)
			}
		}
		for _, ev := range e.Flush() {
			seqs = append(seqs, ev.Header.Seq)
		}
		return seqs
	}
	assert.Equal(t, run(), run())
}
