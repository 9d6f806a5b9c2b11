package main

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type logConfig struct {
	Level  string `default:"info"    enum:"debug,info,warn,error" help:"Уровень логирования."`
	Format string `default:"console" enum:"console,json"          help:"Формат логов."`
}

// build создаёт логгер; вывод в stderr, чтобы stdout оставался для данных (vars).
func (c logConfig) build() (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	if c.Format == "console" {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}
