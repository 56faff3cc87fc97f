package logging

import (
	"os"
	"strconv"
	"strings"
)

const (
	EnvLogLevel     = "PARAMWIRE_LOG_LEVEL"
	EnvLogTimestamp = "PARAMWIRE_LOG_TIMESTAMP"
	EnvLogNoColor   = "PARAMWIRE_LOG_NOCOLOR"
	EnvLogBypass    = "PARAMWIRE_LOG_BYPASS"
)

var levelNames = map[string]Level{
	"trace":       TraceLevel,
	"diagnostics": TraceLevel,
	"debug":       DebugLevel,
	"info":        InfoLevel,
	"warn":        WarnLevel,
	"warning":     WarnLevel,
	"error":       ErrorLevel,
	"off":         Disabled,
	"none":        Disabled,
	"disabled":    Disabled,
}

// FromEnv returns cfg with any PARAMWIRE_LOG_* overrides applied. Unset or
// unparsable variables leave the field alone.
func FromEnv(cfg Config) Config {
	if lvl, ok := parseLevel(os.Getenv(EnvLogLevel)); ok {
		cfg.Level = lvl
	}
	flags := []struct {
		env string
		dst *bool
	}{
		{EnvLogTimestamp, &cfg.Timestamp},
		{EnvLogNoColor, &cfg.NoColor},
		{EnvLogBypass, &cfg.Bypass},
	}
	for _, f := range flags {
		if v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(f.env))); err == nil {
			*f.dst = v
		}
	}
	return cfg
}

func parseLevel(raw string) (Level, bool) {
	lvl, ok := levelNames[strings.ToLower(strings.TrimSpace(raw))]
	return lvl, ok
}
