package engine

import (
	"context"
	"math"
	"math/rand"
	"runtime"
	"sort"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// EvalOptions controls evaluation of the current network by self-play.
type EvalOptions struct {
	Games   int   // Number of games to play (default 1000)
	Workers int   // Number of parallel workers (0 = GOMAXPROCS)
	Seed    int64 // RNG seed (0 = random)
}

// DefaultEvalOptions returns sensible defaults.
func DefaultEvalOptions() EvalOptions {
	return EvalOptions{
		Games:   1000,
		Workers: 0,
		Seed:    0,
	}
}

// EvalProgress is reported after each batch of games.
type EvalProgress struct {
	GamesCompleted int     `json:"games_completed"`
	GamesTotal     int     `json:"games_total"`
	Percent        float64 `json:"percent"`
	MeanScore      float64 `json:"mean_score"`
	MeanMaxTile    float64 `json:"mean_max_tile"`
}

// EvalProgressCallback receives progress updates.
type EvalProgressCallback func(progress EvalProgress)

// TileCount is one bucket of the max-tile histogram.
type TileCount struct {
	Tile  int     `json:"tile"`
	Games int     `json:"games"`
	Share float64 `json:"share"`
}

// EvalResult summarises a batch of greedy games.
type EvalResult struct {
	Games       int         `json:"games"`
	MeanScore   float64     `json:"mean_score"`
	ScoreStdDev float64     `json:"score_std_dev"`
	ScoreCI     float64     `json:"score_ci"` // 95% confidence interval
	BestScore   int         `json:"best_score"`
	MeanMaxTile float64     `json:"mean_max_tile"`
	BestTile    int         `json:"best_tile"`
	MeanMoves   float64     `json:"mean_moves"`
	Rate2048    float64     `json:"rate_2048"`
	Tiles       []TileCount `json:"tiles"` // ascending by tile
}

// evalBatch holds the games from one worker batch.
type evalBatch struct {
	scores []float64
	tiles  []float64
	moves  []float64
	err    error
}

// Evaluate plays opts.Games greedy games without learning. The network is
// only read, so workers share it; no trainer may run at the same time.
func (a *Agent) Evaluate(ctx context.Context, opts EvalOptions) (*EvalResult, error) {
	return a.EvaluateWithProgress(ctx, opts, nil)
}

// EvaluateWithProgress is Evaluate with a callback after each batch.
// On cancellation the games completed so far are summarised and returned
// together with ctx.Err().
func (a *Agent) EvaluateWithProgress(ctx context.Context, opts EvalOptions, callback EvalProgressCallback) (*EvalResult, error) {
	if opts.Games <= 0 {
		opts.Games = 1000
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.Workers > opts.Games {
		opts.Workers = opts.Games
	}
	if opts.Seed == 0 {
		opts.Seed = rand.Int63()
	}

	// Report roughly 20 times
	batchSize := opts.Games / 20
	if batchSize > opts.Games/opts.Workers {
		batchSize = opts.Games / opts.Workers
	}
	if batchSize < 1 {
		batchSize = 1
	}

	batches := make(chan evalBatch, opts.Workers*4)
	var wg sync.WaitGroup

	gamesPerWorker := opts.Games / opts.Workers
	extraGames := opts.Games % opts.Workers
	for i := 0; i < opts.Workers; i++ {
		wg.Add(1)
		workerGames := gamesPerWorker
		if i < extraGames {
			workerGames++
		}
		workerSeed := opts.Seed + int64(i)*1000000

		go func(games int, seed int64) {
			defer wg.Done()
			a.evalWorker(ctx, games, seed, batchSize, batches)
		}(workerGames, workerSeed)
	}

	go func() {
		wg.Wait()
		close(batches)
	}()

	var all evalBatch
	var firstErr error
	for b := range batches {
		if b.err != nil {
			if firstErr == nil {
				firstErr = b.err
			}
			continue
		}
		all.scores = append(all.scores, b.scores...)
		all.tiles = append(all.tiles, b.tiles...)
		all.moves = append(all.moves, b.moves...)
		if callback != nil {
			done := len(all.scores)
			callback(EvalProgress{
				GamesCompleted: done,
				GamesTotal:     opts.Games,
				Percent:        float64(done) / float64(opts.Games) * 100,
				MeanScore:      stat.Mean(all.scores, nil),
				MeanMaxTile:    stat.Mean(all.tiles, nil),
			})
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}

	result := summarizeEval(all)
	return result, ctx.Err()
}

func (a *Agent) evalWorker(ctx context.Context, games int, seed int64, batchSize int, out chan<- evalBatch) {
	rng := rand.New(rand.NewSource(seed))

	for remaining := games; remaining > 0; {
		current := batchSize
		if current > remaining {
			current = remaining
		}

		var b evalBatch
		for i := 0; i < current; i++ {
			if ctx.Err() != nil {
				break
			}
			ep, err := a.PlayEpisode(nil, rng)
			if err != nil {
				out <- evalBatch{err: err}
				return
			}
			b.scores = append(b.scores, float64(ep.Reward))
			b.tiles = append(b.tiles, float64(ep.MaxTile))
			b.moves = append(b.moves, float64(ep.Moves))
		}
		if len(b.scores) > 0 {
			out <- b
		}
		if ctx.Err() != nil {
			return
		}
		remaining -= current
	}
}

func summarizeEval(all evalBatch) *EvalResult {
	n := len(all.scores)
	result := &EvalResult{Games: n}
	if n == 0 {
		return result
	}

	result.MeanScore = stat.Mean(all.scores, nil)
	if n > 1 {
		result.ScoreStdDev = stat.StdDev(all.scores, nil)
		result.ScoreCI = 1.96 * result.ScoreStdDev / math.Sqrt(float64(n))
	}
	result.BestScore = int(floats.Max(all.scores))
	result.MeanMaxTile = stat.Mean(all.tiles, nil)
	result.BestTile = int(floats.Max(all.tiles))
	result.MeanMoves = stat.Mean(all.moves, nil)

	counts := make(map[int]int)
	reached := 0
	for _, t := range all.tiles {
		counts[int(t)]++
		if int(t) >= Tile2048 {
			reached++
		}
	}
	result.Rate2048 = float64(reached) / float64(n)

	for tile, c := range counts {
		result.Tiles = append(result.Tiles, TileCount{
			Tile:  tile,
			Games: c,
			Share: float64(c) / float64(n),
		})
	}
	sort.Slice(result.Tiles, func(i, j int) bool {
		return result.Tiles[i].Tile < result.Tiles[j].Tile
	})
	return result
}
