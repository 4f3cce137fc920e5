// td2048 - train, play and inspect a TD(0) n-tuple agent for 2048
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/td2048/internal/board"
	"github.com/yourusername/td2048/internal/boardid"
	"github.com/yourusername/td2048/internal/config"
	"github.com/yourusername/td2048/internal/render"
	"github.com/yourusername/td2048/pkg/engine"
	"github.com/yourusername/td2048/pkg/report"
	"github.com/yourusername/td2048/pkg/store"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	cfg, err := config.Load()
	if err != nil {
		fatalf("%v", err)
	}

	switch command {
	case "train":
		cmdTrain(cfg, args)
	case "play":
		cmdPlay(cfg, args)
	case "eval":
		cmdEval(cfg, args)
	case "analyze":
		cmdAnalyze(cfg, args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`td2048 - 2048 agent trained by TD(0) afterstate learning

Usage: td2048 <command> [options]

Commands:
  train     Train the agent, resuming from the saved snapshot
  play      Watch the agent play
  eval      Benchmark the agent over many games
  analyze   Show the agent's view of every action on a board

Use "td2048 <command> -h" for command-specific help.

Settings are read from .env and TD2048_* environment variables
(TD2048_MODEL, TD2048_REDIS_ADDR, TD2048_ALPHA, ...); flags override them.

Board ID Format:
  16 hex digits, one rank per cell in row-major order (0 = empty,
  k = tile 2^k). Example: "1100000000000000" is two 2-tiles top left.`)
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

// storeFlags registers the persistence flags shared by every command.
func storeFlags(fs *flag.FlagSet, cfg *config.Config) {
	fs.StringVar(&cfg.ModelPath, "model", cfg.ModelPath, "Snapshot file")
	fs.StringVar(&cfg.RedisAddr, "redis", cfg.RedisAddr, "Redis address (overrides -model)")
	fs.StringVar(&cfg.RedisKey, "redis-key", cfg.RedisKey, "Redis key holding the snapshot")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level")
}

func newLogger(cfg config.Config) *logrus.Logger {
	log, err := cfg.Logger()
	if err != nil {
		fatalf("%v", err)
	}
	return log
}

// loadAgent restores the agent from the configured store. With allowNew a
// missing snapshot yields a fresh agent.
func loadAgent(ctx context.Context, cfg config.Config, allowNew bool) (*engine.Agent, int64, store.Store) {
	st, err := cfg.OpenStore(ctx)
	if err != nil {
		fatalf("%v", err)
	}
	snap, err := st.Load(ctx)
	switch {
	case err == nil:
		return engine.NewAgentWithNetwork(snap.Network), snap.GamesPlayed, st
	case errors.Is(err, store.ErrNotFound) && allowNew:
		return engine.NewDefaultAgent(), 0, st
	default:
		fatalf("loading agent: %v", err)
	}
	return nil, 0, nil
}

func cmdTrain(cfg config.Config, args []string) {
	fs := flag.NewFlagSet("train", flag.ExitOnError)
	storeFlags(fs, &cfg)
	fs.IntVar(&cfg.Sessions, "sessions", cfg.Sessions, "Sessions to run (0 = until interrupted)")
	fs.IntVar(&cfg.EpisodesPerSession, "episodes", cfg.EpisodesPerSession, "Episodes per session")
	fs.Float64Var(&cfg.Alpha, "alpha", cfg.Alpha, "Learning rate")
	fs.Int64Var(&cfg.Seed, "seed", cfg.Seed, "Random seed (0 = random)")
	fresh := fs.Bool("fresh", false, "Ignore any saved snapshot")
	checkpoint := fs.Int("checkpoint", 10, "Save every N sessions (0 = only at the end)")
	reportPath := fs.String("report", "", "Write an HTML training chart to this file")
	fs.Parse(args)

	if err := cfg.Validate(); err != nil {
		fatalf("%v", err)
	}
	log := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		agent       *engine.Agent
		gamesPlayed int64
		st          store.Store
	)
	if *fresh {
		var err error
		if st, err = cfg.OpenStore(ctx); err != nil {
			fatalf("%v", err)
		}
		agent = engine.NewDefaultAgent()
	} else {
		agent, gamesPlayed, st = loadAgent(ctx, cfg, true)
	}

	trainer := engine.NewTrainer(agent, gamesPlayed, log)
	log.WithFields(logrus.Fields{
		"run_id":       trainer.RunID().String(),
		"store":        cfg.StoreName(),
		"games_played": gamesPlayed,
		"network":      agent.Network().String(),
	}).Info("agent ready")

	save := func(ctx context.Context) error {
		return st.Save(ctx, &store.Snapshot{GamesPlayed: trainer.GamesPlayed(), Network: agent.Network()})
	}

	onSession := func(s engine.SessionStats) {
		fmt.Printf("session %4d  games %8d  reward %8.0f  max tile %7.1f  best %5d  2048 %5.1f%%  (%.1fs)\n",
			s.Session, s.GamesPlayed, s.MeanReward, s.MeanMaxTile, s.BestTile, s.Rate2048*100, s.Duration.Seconds())
		if *checkpoint > 0 && s.Session%*checkpoint == 0 {
			if err := save(context.Background()); err != nil {
				log.WithError(err).Error("checkpoint failed")
			}
		}
	}

	opts := engine.TrainOptions{
		Sessions:           cfg.Sessions,
		EpisodesPerSession: cfg.EpisodesPerSession,
		Alpha:              cfg.Alpha,
		Seed:               cfg.Seed,
	}
	stats, runErr := trainer.Run(ctx, opts, onSession)

	// Completed episodes are kept even if the run was interrupted or failed.
	if trainer.GamesPlayed() > gamesPlayed {
		if err := save(context.Background()); err != nil {
			fatalf("saving agent: %v", err)
		}
		log.WithFields(logrus.Fields{
			"store":        cfg.StoreName(),
			"games_played": trainer.GamesPlayed(),
		}).Info("agent saved")
	}

	if *reportPath != "" && len(stats) > 0 {
		if err := writeFile(*reportPath, func(f *os.File) error {
			return report.WriteTraining(f, "td2048 run "+trainer.RunID().String()[:8], stats)
		}); err != nil {
			log.WithError(err).Error("writing report failed")
		}
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		fatalf("training: %v", runErr)
	}
}

func cmdPlay(cfg config.Config, args []string) {
	fs := flag.NewFlagSet("play", flag.ExitOnError)
	storeFlags(fs, &cfg)
	games := fs.Int("games", 1, "Games to play")
	delay := fs.Duration("delay", 100*time.Millisecond, "Pause between moves (0 = only show the final board)")
	seed := fs.Int64("seed", 0, "Random seed (0 = random)")
	color := fs.Bool("color", true, "Colour the board")
	boardFlag := fs.String("board", "", "Start from this board ID instead of a fresh board")
	fs.Parse(args)

	agent, gamesPlayed, _ := loadAgent(context.Background(), cfg, false)
	r := render.New(*color)

	var start *board.Board
	if *boardFlag != "" {
		b, err := boardid.BoardFromID(*boardFlag)
		if err != nil {
			fatalf("%v", err)
		}
		start = &b
	}
	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(*seed))

	fmt.Printf("Agent trained on %d games, seed %d\n\n", gamesPlayed, *seed)
	totalScore, best := 0, 0
	for g := 1; g <= *games; g++ {
		game := engine.NewGame(agent, start, rng)
		if *delay > 0 {
			r.Frame(os.Stdout, game.Board(), 0, 0, "")
		}
		for game.State() == engine.Running {
			tr, err := game.Step()
			if err != nil {
				fatalf("%v", err)
			}
			if *delay > 0 && tr.HasAction {
				fmt.Println()
				r.Frame(os.Stdout, game.Board(), game.Episode().Moves, game.Score(), tr.Action.String())
				time.Sleep(*delay)
			}
		}

		ep := game.Episode()
		if *delay == 0 {
			r.Frame(os.Stdout, ep.Final, ep.Moves, ep.Reward, "")
		}
		fmt.Printf("Game %d: score %d, %d moves, max tile %d (%s)\n\n", g, ep.Reward, ep.Moves, ep.MaxTile, ep.Reason)
		totalScore += ep.Reward
		if ep.MaxTile > best {
			best = ep.MaxTile
		}
	}
	if *games > 1 {
		fmt.Printf("Mean score %.0f over %d games, best tile %d\n", float64(totalScore)/float64(*games), *games, best)
	}
}

func cmdEval(cfg config.Config, args []string) {
	fs := flag.NewFlagSet("eval", flag.ExitOnError)
	storeFlags(fs, &cfg)
	games := fs.Int("games", 1000, "Games to play")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "Number of worker goroutines (0 = auto)")
	fs.Int64Var(&cfg.Seed, "seed", cfg.Seed, "Random seed (0 = random)")
	progress := fs.Bool("progress", true, "Show progress")
	reportPath := fs.String("report", "", "Write an HTML tile histogram to this file")
	fs.Parse(args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	agent, gamesPlayed, _ := loadAgent(ctx, cfg, false)
	opts := engine.EvalOptions{Games: *games, Workers: cfg.Workers, Seed: cfg.Seed}

	var callback engine.EvalProgressCallback
	if *progress {
		callback = func(p engine.EvalProgress) {
			fmt.Fprintf(os.Stderr, "\r%5.1f%%  %d/%d games  mean score %.0f", p.Percent, p.GamesCompleted, p.GamesTotal, p.MeanScore)
		}
	}

	start := time.Now()
	result, err := agent.EvaluateWithProgress(ctx, opts, callback)
	elapsed := time.Since(start)
	if *progress {
		fmt.Fprintln(os.Stderr)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		fatalf("evaluating: %v", err)
	}
	if result == nil || result.Games == 0 {
		fatalf("no games completed")
	}

	fmt.Printf("Evaluation (%d games, agent trained on %d games, %.1fs):\n", result.Games, gamesPlayed, elapsed.Seconds())
	fmt.Printf("  Score:    %.0f ± %.0f (95%% CI: ±%.0f), best %d\n", result.MeanScore, result.ScoreStdDev, result.ScoreCI, result.BestScore)
	fmt.Printf("  Max tile: mean %.1f, best %d\n", result.MeanMaxTile, result.BestTile)
	fmt.Printf("  Moves:    %.1f per game\n", result.MeanMoves)
	fmt.Printf("  2048:     %.1f%%\n", result.Rate2048*100)
	fmt.Println("  Tiles:")
	for _, tc := range result.Tiles {
		fmt.Printf("    %6d  %5d  %5.1f%%\n", tc.Tile, tc.Games, tc.Share*100)
	}

	if *reportPath != "" {
		if err := writeFile(*reportPath, func(f *os.File) error {
			return report.WriteEvaluation(f, "td2048 evaluation", result)
		}); err != nil {
			fatalf("%v", err)
		}
	}
}

func cmdAnalyze(cfg config.Config, args []string) {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	storeFlags(fs, &cfg)
	boardFlag := fs.String("board", "", "Board ID")
	boardShort := fs.String("b", "", "Board ID (short form)")
	color := fs.Bool("color", true, "Colour the board")
	fs.Parse(args)

	id := *boardFlag
	if id == "" {
		id = *boardShort
	}
	if id == "" {
		fmt.Fprintln(os.Stderr, "Error: board required")
		fmt.Fprintln(os.Stderr, "Usage: td2048 analyze -board <boardID>")
		os.Exit(1)
	}
	b, err := boardid.BoardFromID(id)
	if err != nil {
		fatalf("%v", err)
	}

	agent, _, _ := loadAgent(context.Background(), cfg, false)
	if err := b.Validate(agent.Network().MaxRank()); err != nil {
		fatalf("%v", err)
	}
	res, err := agent.Analyze(b)
	if err != nil {
		fatalf("analyzing: %v", err)
	}

	fmt.Print(render.New(*color).Board(b))
	fmt.Println()
	if !res.HasBest {
		fmt.Println("Game over: no legal action")
		return
	}
	fmt.Printf("Best action: %s\n", res.Best)
	for i, ev := range res.Actions {
		if !ev.Legal {
			fmt.Printf("  %d. %-6s illegal\n", i+1, ev.Action)
			continue
		}
		fmt.Printf("  %d. %-6s score %10.2f = reward %5d + value %10.2f\n", i+1, ev.Action, ev.Score, ev.Reward, ev.Value)
	}
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
