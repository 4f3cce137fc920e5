package engine

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Tile2048 is the tile whose reach rate is reported per session.
const Tile2048 = 2048

// TrainOptions controls a training run.
type TrainOptions struct {
	Sessions           int     // Sessions to run (0 = until the context is done)
	EpisodesPerSession int     // Episodes per session (default 100)
	Alpha              float64 // Learning rate (default 0.1)
	Seed               int64   // RNG seed (0 = random)
}

// DefaultTrainOptions returns the reference training settings.
func DefaultTrainOptions() TrainOptions {
	return TrainOptions{
		Sessions:           0,
		EpisodesPerSession: 100,
		Alpha:              0.1,
	}
}

// SessionStats summarises one training session.
type SessionStats struct {
	Session     int           `json:"session"`
	Episodes    int           `json:"episodes"`
	GamesPlayed int64         `json:"games_played"` // total including earlier runs
	MeanReward  float64       `json:"mean_reward"`
	StdReward   float64       `json:"std_reward"`
	MeanMaxTile float64       `json:"mean_max_tile"`
	BestTile    int           `json:"best_tile"`
	Rate2048    float64       `json:"rate_2048"` // share of episodes reaching 2048
	MeanMoves   float64       `json:"mean_moves"`
	Duration    time.Duration `json:"duration"`
}

// SessionCallback receives each completed session.
type SessionCallback func(SessionStats)

// Trainer runs sessions of TD training episodes against a single agent.
// It is the network's only writer and must not run concurrently with
// other users of the same agent.
type Trainer struct {
	agent       *Agent
	log         logrus.FieldLogger
	runID       uuid.UUID
	gamesPlayed int64
}

// NewTrainer creates a trainer. gamesPlayed carries the counter of a
// resumed snapshot.
func NewTrainer(agent *Agent, gamesPlayed int64, log logrus.FieldLogger) *Trainer {
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		log = l
	}
	id := uuid.New()
	return &Trainer{
		agent:       agent,
		log:         log.WithField("run_id", id.String()),
		runID:       id,
		gamesPlayed: gamesPlayed,
	}
}

// RunID identifies this trainer's run in logs.
func (t *Trainer) RunID() uuid.UUID { return t.runID }

// GamesPlayed returns the total number of training games, including those
// of the snapshot the trainer resumed from.
func (t *Trainer) GamesPlayed() int64 { return t.gamesPlayed }

// Agent returns the agent being trained.
func (t *Trainer) Agent() *Agent { return t.agent }

// Run trains until opts.Sessions complete or ctx is done. Cancellation is
// checked between episodes; on cancellation the stats gathered so far are
// returned together with ctx.Err(), and the network keeps every completed
// episode's updates.
func (t *Trainer) Run(ctx context.Context, opts TrainOptions, callback SessionCallback) ([]SessionStats, error) {
	if opts.EpisodesPerSession <= 0 {
		opts.EpisodesPerSession = 100
	}
	if opts.Alpha <= 0 {
		opts.Alpha = 0.1
	}
	if opts.Seed == 0 {
		opts.Seed = rand.Int63()
	}
	rng := rand.New(rand.NewSource(opts.Seed))

	t.log.WithFields(logrus.Fields{
		"sessions":     opts.Sessions,
		"episodes":     opts.EpisodesPerSession,
		"alpha":        opts.Alpha,
		"seed":         opts.Seed,
		"games_played": t.gamesPlayed,
	}).Info("training started")

	var all []SessionStats
	for s := 1; opts.Sessions <= 0 || s <= opts.Sessions; s++ {
		start := time.Now()
		episodes := make([]*Episode, 0, opts.EpisodesPerSession)
		var runErr error
		for i := 0; i < opts.EpisodesPerSession; i++ {
			if err := ctx.Err(); err != nil {
				runErr = err
				break
			}
			ep, err := t.agent.TrainEpisode(nil, rng, opts.Alpha)
			if err != nil {
				t.log.WithError(err).WithField("games_played", t.gamesPlayed).Error("training episode failed")
				return all, err
			}
			episodes = append(episodes, ep)
			t.gamesPlayed++
		}

		if len(episodes) > 0 {
			st := summarize(s, episodes, t.gamesPlayed, time.Since(start))
			all = append(all, st)
			t.log.WithFields(logrus.Fields{
				"session":       st.Session,
				"games_played":  st.GamesPlayed,
				"mean_reward":   st.MeanReward,
				"mean_max_tile": st.MeanMaxTile,
				"rate_2048":     st.Rate2048,
				"best_tile":     st.BestTile,
			}).Info("session complete")
			if callback != nil {
				callback(st)
			}
		}
		if runErr != nil {
			t.log.WithField("games_played", t.gamesPlayed).Warn("training interrupted")
			return all, runErr
		}
	}
	return all, nil
}

func summarize(session int, episodes []*Episode, gamesPlayed int64, d time.Duration) SessionStats {
	rewards := make([]float64, len(episodes))
	tiles := make([]float64, len(episodes))
	moves := make([]float64, len(episodes))
	reached := 0
	for i, ep := range episodes {
		rewards[i] = float64(ep.Reward)
		tiles[i] = float64(ep.MaxTile)
		moves[i] = float64(ep.Moves)
		if ep.MaxTile >= Tile2048 {
			reached++
		}
	}

	st := SessionStats{
		Session:     session,
		Episodes:    len(episodes),
		GamesPlayed: gamesPlayed,
		MeanMaxTile: stat.Mean(tiles, nil),
		BestTile:    int(floats.Max(tiles)),
		Rate2048:    float64(reached) / float64(len(episodes)),
		MeanMoves:   stat.Mean(moves, nil),
		Duration:    d,
	}
	if len(rewards) > 1 {
		st.MeanReward, st.StdReward = stat.MeanStdDev(rewards, nil)
	} else {
		st.MeanReward = rewards[0]
	}
	return st
}
