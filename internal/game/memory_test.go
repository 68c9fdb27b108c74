package game

import (
	"log/slog"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMemory(emotions ...string) *Memory {
	return NewMemory(MemoryConfig{
		Emotions:      emotions,
		MatchDelay:    5 * time.Millisecond,
		MismatchDelay: 10 * time.Millisecond,
		Rand:          rand.New(rand.NewPCG(7, 11)),
	}, nil, slog.Default())
}

func boardOf(t *testing.T, m *Memory) MemorySnapshot {
	t.Helper()
	s, ok := m.Snapshot().(MemorySnapshot)
	require.True(t, ok)
	return s
}

// pairs groups card IDs by pair key.
func pairs(s MemorySnapshot) map[string][]int {
	out := make(map[string][]int)
	for _, c := range s.Cards {
		out[c.PairKey] = append(out[c.PairKey], c.ID)
	}
	return out
}

func faceUpUnmatched(s MemorySnapshot) int {
	n := 0
	for _, c := range s.Cards {
		if c.FaceUp && !c.Matched {
			n++
		}
	}
	return n
}

func TestMemoryDeal(t *testing.T) {
	m := newTestMemory()
	s := boardOf(t, m)
	assert.Len(t, s.Cards, 16)
	assert.Equal(t, 8, s.TotalPairs)
	for key, ids := range pairs(s) {
		require.Len(t, ids, 2, key)
	}
	assert.Equal(t, MemoryIdle, s.State)
}

func TestMemoryMatch(t *testing.T) {
	m := newTestMemory("happy", "sad")
	p := pairs(boardOf(t, m))

	require.NoError(t, m.Flip(p["happy"][0]))
	assert.Equal(t, MemoryOneFaceUp, m.State())
	require.NoError(t, m.Flip(p["happy"][1]))
	assert.Equal(t, MemoryChecking, m.State())

	// A third card is refused while the pair is checked.
	assert.ErrorIs(t, m.Flip(p["sad"][0]), ErrBusy)
	assert.LessOrEqual(t, faceUpUnmatched(boardOf(t, m)), 2)

	require.Eventually(t, func() bool { return m.State() == MemoryIdle }, time.Second, time.Millisecond)
	s := boardOf(t, m)
	assert.Equal(t, 1, s.MatchedPairs)
	assert.Equal(t, 1, s.Moves)
	assert.Equal(t, 0, faceUpUnmatched(s))
}

func TestMemoryMismatch(t *testing.T) {
	m := newTestMemory("happy", "sad")
	p := pairs(boardOf(t, m))

	require.NoError(t, m.Flip(p["happy"][0]))
	require.NoError(t, m.Flip(p["sad"][0]))
	require.Eventually(t, func() bool { return m.State() == MemoryIdle }, time.Second, time.Millisecond)

	s := boardOf(t, m)
	assert.Equal(t, 0, s.MatchedPairs)
	assert.Equal(t, 1, s.Moves)
	for _, c := range s.Cards {
		assert.False(t, c.FaceUp)
	}
}

func TestMemoryRefusedFlips(t *testing.T) {
	m := newTestMemory("happy", "sad")
	p := pairs(boardOf(t, m))

	assert.ErrorIs(t, m.Flip(999), ErrInvalidMove)
	require.NoError(t, m.Flip(p["happy"][0]))
	assert.ErrorIs(t, m.Flip(p["happy"][0]), ErrInvalidMove)
	require.NoError(t, m.Flip(p["happy"][1]))
	require.Eventually(t, func() bool { return m.State() == MemoryIdle }, time.Second, time.Millisecond)

	assert.ErrorIs(t, m.Flip(p["happy"][1]), ErrInvalidMove)
}

func TestMemoryWin(t *testing.T) {
	m := newTestMemory("happy", "sad", "angry")
	p := pairs(boardOf(t, m))

	for _, key := range []string{"happy", "sad", "angry"} {
		require.NoError(t, m.Flip(p[key][0]))
		require.NoError(t, m.Flip(p[key][1]))
		require.Eventually(t, func() bool { return m.State() != MemoryChecking }, time.Second, time.Millisecond)
	}

	s := boardOf(t, m)
	assert.Equal(t, MemoryWon, s.State)
	assert.Equal(t, 3, s.MatchedPairs)
	assert.Equal(t, 3, s.Moves)
	assert.ErrorIs(t, m.Flip(p["happy"][0]), ErrInvalidState)
	assert.Equal(t, 3, m.Tally().Score)
}

func TestMemoryResetCancelsPendingResolution(t *testing.T) {
	m := newTestMemory("happy", "sad")
	p := pairs(boardOf(t, m))

	require.NoError(t, m.Flip(p["happy"][0]))
	require.NoError(t, m.Flip(p["happy"][1]))
	m.Reset()

	time.Sleep(30 * time.Millisecond)
	s := boardOf(t, m)
	assert.Equal(t, MemoryIdle, s.State)
	assert.Equal(t, 0, s.MatchedPairs)
	assert.Equal(t, 0, s.Moves)
	assert.Equal(t, 0, faceUpUnmatched(s))
}
