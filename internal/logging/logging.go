// Package logging builds the process logger.
package logging

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a console logger at level writing to stderr and every extra sink.
// The returned AtomicLevel changes the level of the running logger. The stdlib
// log package is left alone; main redirects it with zap.RedirectStdLog.
func New(level string, sinks ...io.Writer) (*zap.SugaredLogger, zap.AtomicLevel, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, zap.AtomicLevel{}, err
	}
	return newLogger(lvl, zapcore.Lock(os.Stderr), sinks...), lvl, nil
}

func newLogger(lvl zap.AtomicLevel, primary zapcore.WriteSyncer, sinks ...io.Writer) *zap.SugaredLogger {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	writers := []zapcore.WriteSyncer{primary}
	for _, s := range sinks {
		if s != nil {
			writers = append(writers, zapcore.AddSync(s))
		}
	}

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.NewMultiWriteSyncer(writers...), lvl)
	return zap.New(core).Sugar()
}
