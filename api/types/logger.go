/*
 * Copyright 2023 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package types

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger 日志接口
type Logger interface {
	Printf(format string, v ...interface{})
	Debugf(format string, v ...interface{})
	Infof(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
}

// ZapLogger adapts a zap sugared logger to Logger.
type ZapLogger struct {
	*zap.SugaredLogger
}

var _ Logger = (*ZapLogger)(nil)

// Printf logs at info level.
func (l *ZapLogger) Printf(format string, v ...interface{}) {
	l.Infof(format, v...)
}

// Zap returns the underlying structured logger.
func (l *ZapLogger) Zap() *zap.Logger {
	return l.Desugar()
}

// WrapZap wraps an existing zap logger.
func WrapZap(logger *zap.Logger) *ZapLogger {
	return &ZapLogger{SugaredLogger: logger.Sugar()}
}

// NewZapLogger builds a production zap logger at the given level ("debug", "info", ...).
// An unknown level falls back to info.
func NewZapLogger(level string) (*ZapLogger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return WrapZap(logger), nil
}

// DefaultLogger returns a `Logger` implementation
func DefaultLogger() Logger {
	if logger, err := NewZapLogger("info"); err == nil {
		return logger
	}
	return NopLogger()
}

// NopLogger discards everything.
func NopLogger() Logger {
	return WrapZap(zap.NewNop())
}

func NewLogger(custom Logger) Logger {
	if custom != nil {
		return custom
	}

	return DefaultLogger()
}
