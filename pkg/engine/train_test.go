package engine

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestTrainerRunSessions(t *testing.T) {
	tr := NewTrainer(NewDefaultAgent(), 500, quietLogger())

	var seen []SessionStats
	stats, err := tr.Run(context.Background(), TrainOptions{
		Sessions:           3,
		EpisodesPerSession: 4,
		Alpha:              0.1,
		Seed:               1,
	}, func(s SessionStats) { seen = append(seen, s) })
	require.NoError(t, err)

	require.Len(t, stats, 3)
	assert.Equal(t, stats, seen)
	assert.Equal(t, int64(512), tr.GamesPlayed())
	for i, s := range stats {
		assert.Equal(t, i+1, s.Session)
		assert.Equal(t, 4, s.Episodes)
		assert.Equal(t, int64(500+4*(i+1)), s.GamesPlayed)
		assert.Greater(t, s.MeanReward, 0.0)
		assert.GreaterOrEqual(t, float64(s.BestTile), s.MeanMaxTile)
		assert.GreaterOrEqual(t, s.Rate2048, 0.0)
		assert.LessOrEqual(t, s.Rate2048, 1.0)
	}
	assert.NotEqual(t, tr.RunID().String(), NewTrainer(tr.Agent(), 0, nil).RunID().String())
}

func TestTrainerCancelled(t *testing.T) {
	tr := NewTrainer(NewDefaultAgent(), 7, quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stats, err := tr.Run(ctx, TrainOptions{Sessions: 5, EpisodesPerSession: 10, Seed: 3}, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, stats)
	assert.Equal(t, int64(7), tr.GamesPlayed())
}

func TestTrainerCancelMidSession(t *testing.T) {
	tr := NewTrainer(NewDefaultAgent(), 0, quietLogger())
	ctx, cancel := context.WithCancel(context.Background())

	var sessions int
	stats, err := tr.Run(ctx, TrainOptions{EpisodesPerSession: 2, Seed: 9}, func(SessionStats) {
		sessions++
		if sessions == 2 {
			cancel()
		}
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, stats, 2)
	assert.Equal(t, int64(4), tr.GamesPlayed())
}

func TestSummarize(t *testing.T) {
	eps := []*Episode{
		{Reward: 1000, MaxTile: 128, Moves: 100},
		{Reward: 3000, MaxTile: 2048, Moves: 300},
		{Reward: 2000, MaxTile: 256, Moves: 200},
		{Reward: 2000, MaxTile: 4096, Moves: 200},
	}
	s := summarize(2, eps, 40, time.Second)

	assert.Equal(t, 2, s.Session)
	assert.Equal(t, 4, s.Episodes)
	assert.Equal(t, int64(40), s.GamesPlayed)
	assert.InDelta(t, 2000, s.MeanReward, 1e-9)
	assert.InDelta(t, (128+2048+256+4096)/4.0, s.MeanMaxTile, 1e-9)
	assert.Equal(t, 4096, s.BestTile)
	assert.InDelta(t, 0.5, s.Rate2048, 1e-9)
	assert.InDelta(t, 200, s.MeanMoves, 1e-9)
	assert.Greater(t, s.StdReward, 0.0)
}
