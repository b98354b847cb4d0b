package app

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the command logger: console output in development mode,
// JSON otherwise, both on stderr so resolved output can go to stdout.
func NewLogger(conf *Config) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(conf.LogLevel)); err != nil {
		return nil, errors.Wrapf(err, "log level %q", conf.LogLevel)
	}
	var zconf zap.Config
	if conf.Development {
		zconf = zap.NewDevelopmentConfig()
		zconf.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zconf = zap.NewProductionConfig()
		zconf.Sampling = nil
	}
	zconf.Level = zap.NewAtomicLevelAt(level)
	zconf.OutputPaths = []string{"stderr"}
	zconf.ErrorOutputPaths = []string{"stderr"}
	return zconf.Build()
}
