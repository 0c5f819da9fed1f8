package natsserver

import "github.com/rs/zerolog"

// logAdapter routes nats-server log lines into zerolog. Debug and trace are
// only forwarded when the server was configured to emit them.
type logAdapter struct {
	logger zerolog.Logger
}

func newLogAdapter(l zerolog.Logger) *logAdapter {
	return &logAdapter{logger: l.With().Str("component", "nats").Logger()}
}

func (a *logAdapter) Noticef(format string, v ...any) { a.logger.Info().Msgf(format, v...) }
func (a *logAdapter) Warnf(format string, v ...any)   { a.logger.Warn().Msgf(format, v...) }
func (a *logAdapter) Errorf(format string, v ...any)  { a.logger.Error().Msgf(format, v...) }
func (a *logAdapter) Debugf(format string, v ...any)  { a.logger.Debug().Msgf(format, v...) }
func (a *logAdapter) Tracef(format string, v ...any)  { a.logger.Trace().Msgf(format, v...) }

// Fatalf logs at error level. The embedded server must not exit the daemon.
func (a *logAdapter) Fatalf(format string, v ...any) {
	a.logger.Error().Bool("fatal", true).Msgf(format, v...)
}
