package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/friendsincode/muninn_player/internal/backend"
	"github.com/friendsincode/muninn_player/internal/backend/spotify"
	"github.com/friendsincode/muninn_player/internal/backend/ytchannel"
	"github.com/friendsincode/muninn_player/internal/backend/ytplaylist"
	"github.com/friendsincode/muninn_player/internal/buttons"
	"github.com/friendsincode/muninn_player/internal/config"
	"github.com/friendsincode/muninn_player/internal/db"
	"github.com/friendsincode/muninn_player/internal/eventbus"
	"github.com/friendsincode/muninn_player/internal/events"
	"github.com/friendsincode/muninn_player/internal/feedcache"
	"github.com/friendsincode/muninn_player/internal/history"
	"github.com/friendsincode/muninn_player/internal/logbuffer"
	"github.com/friendsincode/muninn_player/internal/logging"
	"github.com/friendsincode/muninn_player/internal/models"
	"github.com/friendsincode/muninn_player/internal/player"
	"github.com/friendsincode/muninn_player/internal/server"
	"github.com/friendsincode/muninn_player/internal/sources"
	"github.com/friendsincode/muninn_player/internal/state"
	"github.com/friendsincode/muninn_player/internal/telemetry"
	"github.com/friendsincode/muninn_player/internal/version"
)

var (
	logger zerolog.Logger
	cfg    *config.Settings
	logBuf *logbuffer.Buffer
)

var rootCmd = &cobra.Command{
	Use:   "muninnplayer",
	Short: "Muninn Player - Button-driven media playback daemon",
	Long:  "Muninn Player is a headless playback daemon for single-board computers: it plays service playlists, channels, and video playlists selected with four physical buttons, resumes on boot, and recovers from per-source failures automatically.",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the playback daemon",
	Long:  "Start the player controller, button input, and the status API",
	RunE:  runDaemon,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print recent playback history",
	RunE:  runHistory,
}

var historyLimit int

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Version)
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of entries to print")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads configuration (called by commands that need it)
func loadConfig() error {
	var err error
	cfg, err = config.LoadSettings()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logBuf = logbuffer.New(0)
	logger = logging.SetupWithWriter(cfg.Environment, logbuffer.NewWriter(logBuf, nil))
	return nil
}

func runDaemon(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	logger.Info().Str("version", version.Version).Msg("Muninn Player starting")

	tracerProvider, err := telemetry.InitTracer(context.Background(), telemetry.TracerConfig{
		ServiceName:    "muninn-player",
		ServiceVersion: version.Version,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.TracingEnabled,
		SampleRate:     cfg.TracingSampleRate,
	}, logger)
	if err != nil {
		return fmt.Errorf("initialize tracer: %w", err)
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown tracer provider")
		}
	}()

	// Sources are fatal when malformed or empty; everything downstream
	// assumes a validated, non-empty registry.
	specs, err := sources.LoadFile(cfg.SourcesFile)
	if err != nil {
		return fmt.Errorf("load sources: %w", err)
	}
	registry, err := sources.NewRegistry(specs)
	if err != nil {
		return fmt.Errorf("build source registry: %w", err)
	}
	logger.Info().Int("sources", registry.Len()).Msg("source registry loaded")

	database, err := db.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close(database)
	if err := models.Migrate(database); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	store := state.NewStore(database, logger)
	recorder := history.NewRecorder(database, logger)

	cache := feedcache.New(feedcache.Config{
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
		TTL:           cfg.FeedRefresh,
	}, logger)
	defer cache.Close()

	backends := map[sources.Kind]backend.Backend{
		sources.KindChannel: ytchannel.New(ytchannel.Options{
			PlayerBin:   cfg.PlayerBin,
			AudioDevice: cfg.AudioDevice,
			StopTimeout: cfg.StopTimeout,
		}, cache, logger),
		sources.KindPlaylistVideo: ytplaylist.New(ytplaylist.Options{
			PlayerBin:   cfg.PlayerBin,
			AudioDevice: cfg.AudioDevice,
			StopTimeout: cfg.StopTimeout,
		}, logger),
		sources.KindPlaylistService: spotify.New(
			spotify.NewClient(cfg.SpotifyCtlURL, 10*time.Second),
			logger,
		),
	}

	bus := events.NewBus()
	shipper, err := eventbus.NewShipper(eventbus.DefaultConfig(cfg.NATSURL), bus, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("remote event shipping unavailable")
	} else {
		shipper.Forward(
			events.EventNowPlaying,
			events.EventPlaybackFailed,
			events.EventSourceSwitched,
			events.EventLiveDetected,
			events.EventPhaseChange,
			events.EventUpdateAvailable,
		)
		defer shipper.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	buttonCh := make(chan buttons.Event, 16)
	gpio := buttons.NewGPIOReader(cfg.GPIOChip, map[buttons.ButtonID]int{
		buttons.ButtonPlayPause:   cfg.ButtonLines.PlayPause,
		buttons.ButtonPrevious:    cfg.ButtonLines.Previous,
		buttons.ButtonNext:        cfg.ButtonLines.Next,
		buttons.ButtonCycleSource: cfg.ButtonLines.CycleSource,
	}, cfg.DebounceTime, buttonCh, logger)
	if err := gpio.Start(); err != nil {
		logger.Warn().Err(err).Msg("GPIO input unavailable")
		if cfg.InputFIFO == "" {
			return fmt.Errorf("no button input: GPIO failed and no input FIFO configured: %w", err)
		}
	} else {
		defer gpio.Close()
	}
	if cfg.InputFIFO != "" {
		fifo, err := buttons.NewFIFOReader(cfg.InputFIFO, cfg.DebounceTime, buttonCh, logger)
		if err != nil {
			return fmt.Errorf("open input FIFO: %w", err)
		}
		go fifo.Run(ctx)
	}

	controller := player.New(registry, backends, store, recorder, bus, buttonCh, player.Options{
		MaxRetry:         cfg.MaxRetry,
		RetryDelay:       cfg.RetryDelay,
		HealthInterval:   cfg.HealthInterval,
		LiveInterval:     cfg.LiveInterval,
		StartupGrace:     cfg.StartupGrace,
		NetworkWait:      cfg.NetworkWait,
		NetworkProbeHost: "www.youtube.com",
	}, logger)

	srv := server.New(cfg.HTTPBind, cfg.HTTPPort, controller, registry, recorder, logBuf, logger)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Error().Err(err).Msg("status API failed")
		}
	}()

	updates := version.NewWatcher(bus, logger)
	go updates.Run(ctx)

	runErr := controller.Run(ctx)

	logger.Info().Msg("shutting down gracefully...")
	timeoutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(timeoutCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("Muninn Player stopped")
	return runErr
}

func runHistory(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	database, err := db.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close(database)

	recorder := history.NewRecorder(database, logger)
	entries, err := recorder.Recent(historyLimit)
	if err != nil {
		return fmt.Errorf("read history: %w", err)
	}

	for _, entry := range entries {
		detail := ""
		if entry.Detail != "" {
			detail = " (" + entry.Detail + ")"
		}
		fmt.Printf("%s  %-8s  %-20s  %s%s\n",
			entry.Timestamp.Local().Format("2006-01-02 15:04:05"),
			entry.Event,
			entry.SourceLabel,
			entry.ItemTitle,
			detail,
		)
	}
	return nil
}
