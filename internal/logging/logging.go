package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// FileSink is the JSON log file written next to the console output. A nil
// sink is valid and writes nothing.
type FileSink struct {
	path string
	file *os.File
}

func OpenFileSink(path string) (*FileSink, error) {
	if path == "" {
		return nil, nil
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	return &FileSink{path: path, file: file}, nil
}

func (s *FileSink) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

func (s *FileSink) Close() error {
	if s == nil || s.file == nil {
		return nil
	}
	if err := s.file.Sync(); err != nil {
		_ = s.file.Close()
		return fmt.Errorf("sync log file: %w", err)
	}
	return s.file.Close()
}

// Attach tees base into the file. Checkout and payment events are kept at
// info; debug adds every tag scan and api call.
func (s *FileSink) Attach(base *zap.Logger, debug bool) *zap.Logger {
	if s == nil || s.file == nil {
		return base
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(s.file), Level(debug))
	return base.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, fileCore)
	}))
}

func Level(debug bool) zapcore.Level {
	if debug {
		return zapcore.DebugLevel
	}
	return zapcore.InfoLevel
}
