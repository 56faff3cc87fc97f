// Package logging owns process-wide log configuration and the printf-style
// helpers used across paramwire packages.
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

type Level = zerolog.Level

const (
	TraceLevel = zerolog.TraceLevel
	DebugLevel = zerolog.DebugLevel
	InfoLevel  = zerolog.InfoLevel
	WarnLevel  = zerolog.WarnLevel
	ErrorLevel = zerolog.ErrorLevel
	Disabled   = zerolog.Disabled
)

// Config controls the shared logger.
// Bypass skips the console formatter and writes raw JSON lines.
type Config struct {
	Level     Level
	Timestamp bool
	NoColor   bool
	Bypass    bool
	Out       io.Writer
}

func DefaultConfig() Config {
	return Config{
		Level:     InfoLevel,
		Timestamp: true,
		NoColor:   !isatty.IsTerminal(os.Stderr.Fd()) && !isatty.IsCygwinTerminal(os.Stderr.Fd()),
	}
}

// Profile selects the defaults Configure starts from.
type Profile int

const (
	ProfileRuntime Profile = iota
	ProfileTest
)

// Config returns the profile defaults. Tests log at debug without timestamps.
func (p Profile) Config() Config {
	cfg := DefaultConfig()
	if p == ProfileTest {
		cfg.Level = DebugLevel
		cfg.Timestamp = false
	}
	return cfg
}

var (
	current       atomic.Pointer[zerolog.Logger]
	configureOnce sync.Once
)

func init() {
	Apply(DefaultConfig())
}

// Configure installs the profile defaults with env overrides. Only the first
// call in a process has any effect.
func Configure(p Profile) {
	configureOnce.Do(func() { Apply(FromEnv(p.Config())) })
}

func ConfigureRuntime() { Configure(ProfileRuntime) }
func ConfigureTests()   { Configure(ProfileTest) }

// Apply replaces the shared logger. Configure should be preferred; Apply is
// for callers that need an explicit writer.
func Apply(cfg Config) {
	out := cfg.Out
	if out == nil {
		out = colorable.NewColorableStderr()
	}
	if !cfg.Bypass {
		cw := zerolog.ConsoleWriter{
			Out:        out,
			NoColor:    cfg.NoColor,
			TimeFormat: time.RFC3339,
		}
		if !cfg.Timestamp {
			cw.PartsExclude = []string{zerolog.TimestampFieldName}
		}
		out = cw
	}
	ctx := zerolog.New(out).Level(cfg.Level).With()
	if cfg.Timestamp {
		ctx = ctx.Timestamp()
	}
	l := ctx.Logger()
	current.Store(&l)
}

// Logger returns the shared zerolog logger.
func Logger() *zerolog.Logger {
	return current.Load()
}

func Tracef(format string, args ...any) { Logger().Trace().Msg(fmt.Sprintf(format, args...)) }
func Debugf(format string, args ...any) { Logger().Debug().Msg(fmt.Sprintf(format, args...)) }
func Infof(format string, args ...any)  { Logger().Info().Msg(fmt.Sprintf(format, args...)) }
func Warnf(format string, args ...any)  { Logger().Warn().Msg(fmt.Sprintf(format, args...)) }
func Errf(format string, args ...any)   { Logger().Error().Msg(fmt.Sprintf(format, args...)) }

// Logf writes a message with no level attached.
func Logf(format string, args ...any) { Logger().Log().Msg(fmt.Sprintf(format, args...)) }
