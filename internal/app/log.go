package app

import (
	stdlog "log"
	"strings"

	"github.com/radiocast/radio/internal/config"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func logStartWarnings(cfg config.Config, cfgMeta config.Meta) {
	if cfg.AuthEndpoint == "" {
		log.Warn().Msg("no auth endpoint configured, channel authorization is skipped")
	}
	if !cfg.Reconnect {
		log.Warn().Msg("reconnect disabled, radio stops receiving events after connection loss")
	}
	for _, key := range cfgMeta.UnknownKeys {
		log.Warn().Str("key", key).Msg("unknown key in configuration file")
	}
	for _, key := range cfgMeta.UnknownEnvs {
		log.Warn().Str("var", key).Msg("unknown var in environment")
	}
}

type httpErrorLogWriter struct {
	zerolog.Logger
}

func (w *httpErrorLogWriter) Write(data []byte) (int, error) {
	w.Logger.Warn().Msg(strings.TrimSpace(string(data)))
	return len(data), nil
}

func newHTTPErrorLog(logger zerolog.Logger) *stdlog.Logger {
	return stdlog.New(&httpErrorLogWriter{logger}, "", 0)
}
