// Package handlers implements the HTTP surface over the engine facade. Every
// handler is a thin decode/dispatch/encode wrapper; the engine owns the
// semantics and the transaction boundaries.
package handlers

import (
	"errors"
	"log/slog"

	"github.com/halcyonlabs/gatehouse/engine/pkg/engine"
)

type Config struct {
	Logger *slog.Logger
	Engine *engine.Engine
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Engine == nil {
		return errors.New("engine is required")
	}
	return nil
}

type Handler struct {
	log *slog.Logger
	eng *engine.Engine
}

func New(cfg Config) (*Handler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Handler{log: cfg.Logger, eng: cfg.Engine}, nil
}
