// Command td2048server serves a trained 2048 agent over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/td2048/internal/config"
	"github.com/yourusername/td2048/pkg/api"
	"github.com/yourusername/td2048/pkg/engine"
	"github.com/yourusername/td2048/pkg/store"
)

const version = "0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	flag.StringVar(&cfg.Host, "host", cfg.Host, "Host to bind to (use 0.0.0.0 for all interfaces)")
	flag.IntVar(&cfg.Port, "port", cfg.Port, "Port to listen on")
	flag.StringVar(&cfg.ModelPath, "model", cfg.ModelPath, "Snapshot file")
	flag.StringVar(&cfg.RedisAddr, "redis", cfg.RedisAddr, "Redis address (overrides -model)")
	flag.StringVar(&cfg.RedisKey, "redis-key", cfg.RedisKey, "Redis key holding the snapshot")
	flag.DurationVar(&cfg.ReadTimeout, "read-timeout", cfg.ReadTimeout, "HTTP read timeout")
	flag.DurationVar(&cfg.WriteTimeout, "write-timeout", cfg.WriteTimeout, "HTTP write timeout")
	flag.IntVar(&cfg.MaxSlowWorkers, "max-evals", cfg.MaxSlowWorkers, "Concurrent evaluations")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level")
	flag.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format (text or json)")
	untrained := flag.Bool("allow-untrained", false, "Serve a fresh agent when no snapshot exists")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("td2048 API server v%s\n", version)
		os.Exit(0)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	log, err := cfg.Logger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	log.WithField("version", version).Info("td2048 API server")
	log.WithField("store", cfg.StoreName()).Info("loading agent")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	agent, gamesPlayed, err := loadAgent(ctx, cfg, *untrained)
	cancel()
	if err != nil {
		log.WithError(err).Fatal("failed to load agent")
	}
	log.WithFields(logrus.Fields{
		"games_played": gamesPlayed,
		"network":      agent.Network().String(),
	}).Info("agent loaded")

	server := api.NewServer(agent, api.ServerConfig{
		Host:           cfg.Host,
		Port:           cfg.Port,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxFastWorkers: cfg.MaxFastWorkers,
		MaxSlowWorkers: cfg.MaxSlowWorkers,
	}, version, log)
	server.Handlers().SetGamesPlayed(gamesPlayed)

	if err := server.ListenAndServeWithGracefulShutdown(); err != nil {
		log.WithError(err).Fatal("server error")
	}
}

func loadAgent(ctx context.Context, cfg config.Config, allowNew bool) (*engine.Agent, int64, error) {
	st, err := cfg.OpenStore(ctx)
	if err != nil {
		return nil, 0, err
	}
	if c, ok := st.(interface{ Close() error }); ok {
		defer c.Close()
	}

	snap, err := st.Load(ctx)
	if errors.Is(err, store.ErrNotFound) && allowNew {
		return engine.NewDefaultAgent(), 0, nil
	}
	if err != nil {
		return nil, 0, err
	}
	return engine.NewAgentWithNetwork(snap.Network), snap.GamesPlayed, nil
}
