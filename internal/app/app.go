// Package app wires the server process: configuration, persistence,
// the shared run hub, and the HTTP/websocket front door.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"deepfall/server/internal/net/ws"
	"deepfall/server/internal/saves"
	"deepfall/server/logging"
)

// Run executes the CLI.
func Run(ctx context.Context) error {
	root := &cobra.Command{
		Use:           "deepfall-server",
		Short:         "Authoritative dungeon-run server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCommand())
	return root.ExecuteContext(ctx)
}

func newServeCommand() *cobra.Command {
	var (
		addr       string
		seed       int64
		floors     int
		tickRate   int
		maxPlayers int
		redisAddr  string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the game server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), serveConfig{
				addr:       addr,
				seed:       seed,
				floors:     floors,
				tickRate:   tickRate,
				maxPlayers: maxPlayers,
				redisAddr:  redisAddr,
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().Int64Var(&seed, "seed", 0, "world seed (0 picks a random seed per run)")
	cmd.Flags().IntVar(&floors, "floors", 8, "floors per run")
	cmd.Flags().IntVar(&tickRate, "tick-rate", 20, "simulation ticks per second")
	cmd.Flags().IntVar(&maxPlayers, "max-players", 8, "maximum players per run")
	cmd.Flags().StringVar(&redisAddr, "redis-addr", "", "redis address for saves (empty keeps saves in memory)")
	return cmd
}

type serveConfig struct {
	addr       string
	seed       int64
	floors     int
	tickRate   int
	maxPlayers int
	redisAddr  string
}

func serve(ctx context.Context, cfg serveConfig) error {
	logger := logging.NewLogger()

	var repo saves.Repository
	if cfg.redisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.redisAddr})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		defer client.Close()
		repo = saves.NewRedisRepository(client)
		logger.WithField("addr", cfg.redisAddr).Info("saves backed by redis")
	} else {
		repo = saves.NewMemoryRepository()
		logger.Warn("saves kept in memory, progress is lost on restart")
	}

	hub := NewHub(HubConfig{
		Seed:       cfg.seed,
		FinalFloor: cfg.floors,
		TickRate:   cfg.tickRate,
		MaxPlayers: cfg.maxPlayers,
	}, repo, logger)

	mux := http.NewServeMux()
	mux.Handle("/ws", ws.NewHandler(hub, logger))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	server := &http.Server{
		Addr:              cfg.addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loopStop := make(chan struct{})
	go hub.Run(loopStop)

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", cfg.addr).Info("listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		close(loopStop)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	close(loopStop)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
