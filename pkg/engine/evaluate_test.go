package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	a := NewDefaultAgent()

	var progress []EvalProgress
	res, err := a.EvaluateWithProgress(context.Background(), EvalOptions{Games: 40, Workers: 4, Seed: 7},
		func(p EvalProgress) { progress = append(progress, p) })
	require.NoError(t, err)

	assert.Equal(t, 40, res.Games)
	assert.Greater(t, res.MeanScore, 0.0)
	assert.GreaterOrEqual(t, float64(res.BestScore), res.MeanScore)
	assert.GreaterOrEqual(t, float64(res.BestTile), res.MeanMaxTile)
	assert.Greater(t, res.ScoreCI, 0.0)

	games, share := 0, 0.0
	for i, tc := range res.Tiles {
		if i > 0 {
			assert.Greater(t, tc.Tile, res.Tiles[i-1].Tile)
		}
		games += tc.Games
		share += tc.Share
	}
	assert.Equal(t, 40, games)
	assert.InDelta(t, 1.0, share, 1e-9)
	assert.Equal(t, res.BestTile, res.Tiles[len(res.Tiles)-1].Tile)

	require.NotEmpty(t, progress)
	last := progress[len(progress)-1]
	assert.Equal(t, 40, last.GamesCompleted)
	assert.InDelta(t, 100.0, last.Percent, 1e-9)
	for i := 1; i < len(progress); i++ {
		assert.Greater(t, progress[i].GamesCompleted, progress[i-1].GamesCompleted)
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	a := NewDefaultAgent()
	opts := EvalOptions{Games: 12, Workers: 3, Seed: 99}

	r1, err := a.Evaluate(context.Background(), opts)
	require.NoError(t, err)
	r2, err := a.Evaluate(context.Background(), opts)
	require.NoError(t, err)

	assert.InDelta(t, r1.MeanScore, r2.MeanScore, 1e-9)
	assert.Equal(t, r1.BestScore, r2.BestScore)
	assert.Equal(t, r1.Tiles, r2.Tiles)
}

func TestEvaluateMoreWorkersThanGames(t *testing.T) {
	a := NewDefaultAgent()
	res, err := a.Evaluate(context.Background(), EvalOptions{Games: 2, Workers: 8, Seed: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Games)
}

func TestEvaluateCancelled(t *testing.T) {
	a := NewDefaultAgent()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := a.Evaluate(ctx, EvalOptions{Games: 100, Workers: 2, Seed: 1})
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Zero(t, res.Games)
}
