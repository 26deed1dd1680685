package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lanestream/broadcastcore/internal/clock"
	"github.com/lanestream/broadcastcore/internal/config"
	"github.com/lanestream/broadcastcore/internal/db"
	"github.com/lanestream/broadcastcore/internal/ffmpeg"
	internalhttp "github.com/lanestream/broadcastcore/internal/http"
	"github.com/lanestream/broadcastcore/internal/http/handlers"
	"github.com/lanestream/broadcastcore/internal/janitor"
	"github.com/lanestream/broadcastcore/internal/playback"
	"github.com/lanestream/broadcastcore/internal/store"
	"github.com/lanestream/broadcastcore/internal/streamcontroller"
	"github.com/lanestream/broadcastcore/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the channel streaming server",
	Long: `Run broadcastd's HTTP server.

The server plays out a fixed schedule of programs per channel against
the wall clock and serves the result over HTTP:
- /setup, /video, /radio, /stream, /playlist, /m3u8 stream channel output
- /media-player/:number.m3u and /media-player/radio/:number.m3u hand a
  media player a pointer to tune to
- /capabilities reports what the configured ffmpeg binary can do`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// runServe loads configuration through config.Load (file at cfgFile, or
// config.yaml in config.Load's own search paths, overridden by
// BROADCASTCORE_* environment variables), then wires the Channel
// Streaming Core's components together and serves HTTP until a
// shutdown signal arrives.
func runServe(cmd *cobra.Command, args []string) error {
	logger := slog.Default()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	conn, err := db.Open(cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer conn.Close()

	if err := store.Migrate(conn); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	st := store.New(conn, cfg.FFmpeg)
	cache := playback.New()
	controller := streamcontroller.New(st, cache, clock.RealClock{})

	if cfg.Janitor.Enabled {
		j := janitor.New(cache, cfg.Janitor.StaleEntryAge.Duration(), logger)
		if err := j.Start(cfg.Janitor.Cron); err != nil {
			return fmt.Errorf("starting janitor: %w", err)
		}
		defer j.Stop()
	}

	serverConfig := internalhttp.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}
	server := internalhttp.NewServer(serverConfig, logger, version.Version)

	streamHandler := handlers.NewStreamHandler(controller, st, clock.RealClock{}, logger)
	streamHandler.Register(server.API())
	streamHandler.RegisterChiRoutes(server.Router())

	capabilitiesHandler := handlers.NewCapabilitiesHandler(ffmpeg.NewBinaryDetector())
	capabilitiesHandler.Register(server.API())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
		cancel()
	}()

	logger.Info("starting broadcastd server",
		slog.String("host", serverConfig.Host),
		slog.Int("port", serverConfig.Port),
		slog.String("version", version.Version),
	)

	return server.ListenAndServe(ctx)
}
