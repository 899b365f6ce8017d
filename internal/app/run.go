package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/radiocast/radio"
	"github.com/radiocast/radio/internal/build"
	"github.com/radiocast/radio/internal/config"
	"github.com/radiocast/radio/internal/logging"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"
	"golang.org/x/sync/errgroup"
)

// Env is what commands need to run: loaded configuration and a logger.
type Env struct {
	Config config.Config
	Logger zerolog.Logger
	// Options are appended to connector options.
	Options []radio.Option

	closeFns []func()
}

func (e *Env) close() {
	for _, fn := range e.closeFns {
		fn()
	}
}

func setup(cmd *cobra.Command, configFile string) (*Env, error) {
	cfg, cfgMeta, err := config.Load(cmd, configFile)
	if err != nil {
		return nil, fmt.Errorf("error getting config: %w", err)
	}
	logCloseFn, err := logging.Setup(cfg.Log)
	if err != nil {
		return nil, err
	}
	env := &Env{Config: cfg, Logger: log.Logger, closeFns: []func(){logCloseFn}}

	if cfgMeta.FileNotFound {
		log.Warn().Msg("config file not found, continue using environment and flag options")
	} else {
		absConfPath, _ := filepath.Abs(configFile)
		log.Info().Str("path", absConfPath).Msg("using config file")
	}
	if cfgMeta.DotEnvUsed {
		log.Info().Msg("environment variables have been loaded from .env file")
	}
	_, _ = maxprocs.Set(maxprocs.Logger(func(s string, i ...any) {
		log.Debug().Msgf(strings.ToLower(s), i...)
	}))

	log.Info().
		Str("version", build.Version).
		Str("runtime", runtime.Version()).
		Int("pid", os.Getpid()).
		Str("host", cfg.Host).
		Msg("starting radio")

	logStartWarnings(cfg, cfgMeta)

	if err := cfg.Validate(); err != nil {
		env.close()
		return nil, fmt.Errorf("error validating config: %w", err)
	}
	return env, nil
}

func (e *Env) connector() (*radio.Connector, error) {
	opts := append([]radio.Option{
		radio.WithLogger(e.Logger),
		radio.WithErrorHandler(func(err error) {
			e.Logger.Warn().Err(err).Msg("protocol error")
		}),
	}, e.Options...)
	return radio.New(e.Config.Config, opts...)
}

// ListenOptions of the listen command.
type ListenOptions struct {
	Channels []string
	Private  []string
	Presence []string
	Events   []string
}

// Listen joins channels and logs events received on them until ctx is done.
func Listen(ctx context.Context, env *Env, opts ListenOptions) error {
	if len(opts.Channels)+len(opts.Private)+len(opts.Presence) == 0 {
		return errors.New("no channels to join")
	}
	c, err := env.connector()
	if err != nil {
		return err
	}
	defer func() { _ = c.Disconnect() }()

	group, groupCtx := errgroup.WithContext(ctx)
	if env.Config.Metrics.Address != "" {
		group.Go(func() error {
			return serveMetrics(groupCtx, env.Config.Metrics.Address, env.Logger)
		})
	}
	group.Go(func() error {
		if err := c.Connect(groupCtx); err != nil {
			return err
		}
		if err := join(groupCtx, c, env.Logger, opts); err != nil {
			return err
		}
		env.Logger.Info().Strs("channels", c.Channels()).Msg("listening")
		<-groupCtx.Done()
		return nil
	})
	return group.Wait()
}

func join(ctx context.Context, c *radio.Connector, logger zerolog.Logger, opts ListenOptions) error {
	joins, joinCtx := errgroup.WithContext(ctx)
	for _, name := range opts.Channels {
		joins.Go(func() error {
			ch, err := c.Channel(name).Wait(joinCtx)
			if err != nil {
				return fmt.Errorf("error joining %s: %w", name, err)
			}
			for _, event := range opts.Events {
				ch.Listen(event, logEvent(logger, ch.Name(), event))
			}
			return nil
		})
	}
	for _, name := range opts.Private {
		joins.Go(func() error {
			ch, err := c.PrivateChannel(name).Wait(joinCtx)
			if err != nil {
				return fmt.Errorf("error joining private %s: %w", name, err)
			}
			for _, event := range opts.Events {
				ch.Listen(event, logEvent(logger, ch.Name(), event))
				ch.ListenForWhisper(event, logEvent(logger, ch.Name(), "client-"+event))
			}
			return nil
		})
	}
	for _, name := range opts.Presence {
		joins.Go(func() error {
			ch, err := c.PresenceChannel(name).Wait(joinCtx)
			if err != nil {
				return fmt.Errorf("error joining presence %s: %w", name, err)
			}
			for _, event := range opts.Events {
				ch.Listen(event, logEvent(logger, ch.Name(), event))
			}
			channelLog := logger.With().Str("channel", ch.Name()).Logger()
			ch.Here(func(members []json.RawMessage) {
				channelLog.Info().Int("members", len(members)).Msg("presence here")
			}).Joining(func(member json.RawMessage) {
				channelLog.Info().RawJSON("user", member).Msg("presence joining")
			}).Leaving(func(member json.RawMessage) {
				channelLog.Info().RawJSON("user", member).Msg("presence leaving")
			})
			return nil
		})
	}
	return joins.Wait()
}

func logEvent(logger zerolog.Logger, channel, event string) radio.Callback {
	return func(data json.RawMessage) {
		logger.Info().Str("channel", channel).Str("event", event).RawJSON("data", data).Msg("event received")
	}
}

// WhisperOptions of the whisper command.
type WhisperOptions struct {
	Channel string
	Event   string
	Data    string
}

// Whisper joins a private channel and sends one client event to it.
func Whisper(ctx context.Context, env *Env, opts WhisperOptions) error {
	if !json.Valid([]byte(opts.Data)) {
		return errors.New("data is not valid JSON")
	}
	c, err := env.connector()
	if err != nil {
		return err
	}
	defer func() { _ = c.Disconnect() }()

	if err := c.Connect(ctx); err != nil {
		return err
	}
	ch, err := c.PrivateChannel(opts.Channel).Wait(ctx)
	if err != nil {
		return fmt.Errorf("error joining private %s: %w", opts.Channel, err)
	}
	if err := ch.Whisper(opts.Event, json.RawMessage(opts.Data)); err != nil {
		return fmt.Errorf("error sending whisper: %w", err)
	}
	env.Logger.Info().Str("channel", ch.Name()).Str("event", opts.Event).Msg("whisper sent")
	return nil
}

func serveMetrics(ctx context.Context, address string, logger zerolog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              address,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ErrorLog:          newHTTPErrorLog(logger),
	}
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()
	logger.Info().Str("address", address).Msg("serving metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("error serving metrics: %w", err)
	}
	return nil
}
