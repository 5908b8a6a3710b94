// Package logger builds the process logger. There is no package-level
// instance: main constructs one and every component receives it as an
// injected dependency.
package logger

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the service logger. Production emits sampled JSON on stdout
// with ISO-8601 timestamps; every other environment emits colorized console
// output on stderr at debug level. level, when non-empty, overrides the
// environment default ("debug", "info", "warn", "error").
func New(env, level string) (*zap.Logger, error) {
	prod := env == "production"

	lvl := zapcore.DebugLevel
	if prod {
		lvl = zapcore.InfoLevel
	}
	if level != "" {
		parsed, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("logger: unknown level %q: %w", level, err)
		}
		lvl = parsed
	}

	if prod {
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.TimeKey = "timestamp"
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.Lock(os.Stdout), lvl)
		// After 100 identical messages in a second, keep every 10th.
		core = zapcore.NewSamplerWithOptions(core, time.Second, 100, 10)
		return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stderr), lvl)
	return zap.New(core, zap.AddCaller(), zap.Development()), nil
}
