// Package config loads symshell's settings through
// github.com/rakunlabs/chu layered with
// github.com/rakunlabs/chu/loader/loaderenv.
package config

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rakunlabs/chu"
	"github.com/rakunlabs/chu/loader/loaderenv"
	"github.com/rakunlabs/logi"

	"github.com/rakunlabs/symshell/internal/shell/core"
)

// EnvPrefix is the environment-variable override prefix for symshell
// config values (SYMSHELL_EXPAND_MAX_PASSES, ...). Fields tagged
// no_prefix, such as log_level, are read without it.
const EnvPrefix = "SYMSHELL_"

// Core is the config/core.json shape: expand_max_passes, plus log_level
// for the process logger.
type Core struct {
	LogLevel string `cfg:"log_level,no_prefix" default:"info"`

	// ExpandMaxPasses bounds the expansion loop. Negative values are
	// rejected and fall back to the default; a malformed/missing file
	// is caught upstream by chu.Load tolerating a missing path and
	// leaving the default.
	ExpandMaxPasses int `cfg:"expand_max_passes" default:"10"`
}

// LLM is the config/llm/default.json shape.
type LLM struct {
	BaseURL        string `cfg:"base_url"`
	TimeoutMs      int    `cfg:"timeout_ms" default:"30000"`
	PollIntervalMs int    `cfg:"poll_interval_ms" default:"500"`
	Model          string `cfg:"model"`
}

// LoadCore loads config/core.json, applying it to a fresh Engine via
// SetMaxPasses. A missing or malformed file is silently ignored; the
// engine keeps core.DefaultMaxPasses.
func LoadCore(ctx context.Context, e *core.Engine) Core {
	var cfg Core
	if err := chu.Load(ctx, "core", &cfg, chu.WithLoaderOption(loaderenv.New(loaderenv.WithPrefix(EnvPrefix)))); err != nil {
		slog.Warn("config: core.json not loaded, using defaults", "error", err)
		cfg = Core{ExpandMaxPasses: core.DefaultMaxPasses}
	}

	if err := logi.SetLogLevel(cfg.LogLevel); err != nil {
		slog.Warn("config: invalid log_level, leaving default", "log_level", cfg.LogLevel, "error", err)
	}

	passes := cfg.ExpandMaxPasses
	switch {
	case passes < 0:
		slog.Warn("config: expand_max_passes is negative, rejecting and keeping default",
			"value", passes, "default", core.DefaultMaxPasses)
		passes = core.DefaultMaxPasses
	case passes == 0:
		passes = core.DefaultMaxPasses
	}
	e.SetMaxPasses(passes)
	cfg.ExpandMaxPasses = passes

	slog.Info("config: loaded core settings", "expand_max_passes", passes)
	return cfg
}

// LoadLLM loads config/llm/default.json for the LLM bridge.
func LoadLLM(ctx context.Context) (LLM, error) {
	var cfg LLM
	if err := chu.Load(ctx, "llm/default", &cfg, chu.WithLoaderOption(loaderenv.New(loaderenv.WithPrefix(EnvPrefix)))); err != nil {
		return LLM{}, fmt.Errorf("load llm config: %w", err)
	}
	if cfg.BaseURL == "" {
		return LLM{}, fmt.Errorf("llm config: base_url is required")
	}
	return cfg, nil
}
