package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	router "github.com/dkeye/Lobbyhub/internal/adapters/http"
	"github.com/dkeye/Lobbyhub/internal/adapters/reactor"
	"github.com/dkeye/Lobbyhub/internal/adapters/rtc"
	"github.com/dkeye/Lobbyhub/internal/app/orch"
	"github.com/dkeye/Lobbyhub/internal/config"
	"github.com/dkeye/Lobbyhub/internal/metrics"
)

const shutdownTimeout = 5 * time.Second

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cmd := &cli.Command{
		Name:  "lobbyhub",
		Usage: "lobby matchmaking and WebRTC signaling relay",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a YAML config file",
				Sources: cli.EnvVars("NOHUB_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "dotenv file loaded before the environment is read",
				Value: ".env",
			},
		},
		Action: run,
	}
	if err := cmd.Run(ctx, os.Args); err != nil {
		log.Error().Err(err).Msg("server failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	if err := godotenv.Load(cmd.String("env-file")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load env file: %w", err)
	}

	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	level, err := cfg.Log.ZerologLevel()
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(level)
	if level > zerolog.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	ice, err := rtc.NewICE(cfg.WebRTC.ICEServers)
	if err != nil {
		return fmt.Errorf("webrtc config: %w", err)
	}

	hub := orch.New(cfg)
	reporter := metrics.NewReporter()
	reporter.Attach(hub.Bus)
	hub.Attach()

	tcp := reactor.NewServer(hub, reactor.NewController(hub, ice, reporter), cfg.TCP)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return tcp.ListenAndServe(ctx) })

	if cfg.WebSocket.Enabled {
		addr := config.ListenAddr(cfg.WebSocket.Host, cfg.WebSocket.Port)
		serveHTTP(ctx, g, "websocket", addr, router.SetupBridgeRouter(cfg))
	}
	if cfg.Metrics.Enabled {
		addr := config.ListenAddr(cfg.Metrics.Host, cfg.Metrics.Port)
		serveHTTP(ctx, g, "metrics", addr, router.SetupMetricsRouter(hub, reporter))
	}

	log.Info().Int("games", len(cfg.Games)).Int("tcp_port", cfg.TCP.Port).Msg("Lobbyhub started")
	err = g.Wait()
	log.Info().Msg("Server exited gracefully")
	return err
}

// serveHTTP runs an HTTP server in g and shuts it down once ctx ends.
func serveHTTP(ctx context.Context, g *errgroup.Group, name, addr string, h http.Handler) {
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 10 * time.Second}

	g.Go(func() error {
		log.Info().Str("server", name).Str("addr", addr).Msg("http server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s server: %w", name, err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info().Str("server", name).Msg("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Str("server", name).Msg("Server forced to shutdown")
		}
		return nil
	})
}
