package config

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

// LoggerConfig configures one log destination.
type LoggerConfig struct {
	Level       string `yaml:"level" koanf:"level"`
	Destination string `yaml:"destination,omitempty" koanf:"destination"`
	Mode        string `yaml:"mode,omitempty" koanf:"mode"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Console LoggerConfig `yaml:"console" koanf:"console"`
	File    LoggerConfig `yaml:"file" koanf:"file"`
}

func levelEnabler(level string) (zapcore.LevelEnabler, bool) {
	switch level {
	case "normal":
		return zapcore.InfoLevel, true
	case "debug":
		return zapcore.DebugLevel, true
	}
	return nil, false
}

// Prepare returns the configured zap logger. Console output always goes to
// stderr; stdout is reserved for command output and the MCP protocol.
func (conf *LoggingConfig) Prepare() (*zap.Logger, error) {
	cores := []zapcore.Core{}

	if enabler, ok := levelEnabler(conf.Console.Level); ok {
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeCaller = nil
		ec.EncodeLevel = zapcore.CapitalLevelEncoder
		cores = append(cores, zapcore.NewCore(newEncoder(ec), zapcore.Lock(os.Stderr), enabler))
	}

	if enabler, ok := levelEnabler(conf.File.Level); ok {
		flags := os.O_CREATE | os.O_WRONLY
		if conf.File.Mode == "overwrite" {
			flags |= os.O_TRUNC
		} else {
			flags |= os.O_APPEND
		}
		f, err := os.OpenFile(conf.File.Destination, flags, 0644)
		if err != nil {
			return nil, fmt.Errorf("unable to access file log destination (%s): %w", conf.File.Destination, err)
		}
		fileEncoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		cores = append(cores, zapcore.NewCore(fileEncoder, zapcore.Lock(f), enabler))
	}

	if len(cores) == 0 {
		return zap.NewNop(), nil
	}
	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()).Named("pagedit"), nil
}

// When logging error to console - do not output verbose message.

type consoleEnc struct {
	zapcore.Encoder
}

func newEncoder(cfg zapcore.EncoderConfig) zapcore.Encoder {
	return consoleEnc{zapcore.NewConsoleEncoder(cfg)}
}

func (c consoleEnc) Clone() zapcore.Encoder {
	return consoleEnc{c.Encoder.Clone()}
}

func (c consoleEnc) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	newFields := make([]zapcore.Field, 0, len(fields))
	for _, f := range fields {
		if f.Type == zapcore.ErrorType {
			e := f.Interface.(error)
			f.Interface = errors.New(e.Error())
		}
		newFields = append(newFields, f)
	}
	return c.Encoder.EncodeEntry(ent, newFields)
}
