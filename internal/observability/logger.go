package observability

import (
	logs "github.com/danmuck/paramwire/internal/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger applies the runtime logging profile and returns the shared
// logger tagged with app. The zerolog global logger is replaced as well.
func InitLogger(app string) zerolog.Logger {
	logs.ConfigureRuntime()
	logger := logs.Logger().With().Str("app", app).Logger()
	log.Logger = logger
	return logger
}
