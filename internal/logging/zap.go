package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
)

// Options selects the encoder, level and optional rotating file output.
type Options struct {
	Level string
	Dev   bool
	File  string
}

// LevelFromString maps a level name to a zap level. Unknown names mean info.
func LevelFromString(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// New builds a slog logger backed by a zap core. The returned closer flushes
// zap and releases the log file, if any.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	return newLogger(opts, os.Stdout)
}

func newLogger(opts Options, stdout io.Writer) (*slog.Logger, io.Closer, error) {
	level := LevelFromString(opts.Level)

	var encoder zapcore.Encoder
	if opts.Dev {
		encoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	} else {
		encoderCfg := zap.NewProductionEncoderConfig()
		encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	sink := zapcore.AddSync(stdout)
	var rotated *rotatelogs.RotateLogs
	if path := strings.TrimSpace(opts.File); path != "" {
		var err error
		rotated, err = rotatelogs.New(
			path+".%Y%m%d",
			rotatelogs.WithLinkName(path),
			rotatelogs.WithRotationTime(24*time.Hour),
			rotatelogs.WithMaxAge(7*24*time.Hour),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		sink = zapcore.NewMultiWriteSyncer(sink, zapcore.AddSync(rotated))
	}

	core := zapcore.NewCore(encoder, sink, level)
	base := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	logger := slog.New(zapslog.NewHandler(base.Core()))
	return logger, closer{zap: base, file: rotated}, nil
}

type closer struct {
	zap  *zap.Logger
	file *rotatelogs.RotateLogs
}

func (c closer) Close() error {
	// Sync fails on terminals; there is nothing useful to do about it.
	_ = c.zap.Sync()
	if c.file != nil {
		return c.file.Close()
	}
	return nil
}
