package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"chronicle/internal/config"
	"chronicle/internal/logging"
	"chronicle/internal/services"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

// ensureConfig loads the configuration once per invocation. A dry run
// does not require analyzer credentials.
func (c *commandContext) ensureConfig(dryRun bool) (*config.Config, error) {
	c.configOnce.Do(func() {
		load := config.Load
		if dryRun {
			load = config.LoadForDryRun
		}
		cfg, _, _, err := load(c.configPath())
		if err != nil {
			c.configErr = services.Wrap(services.ErrConfiguration, "cli", "load config", c.configPath(), err)
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = fmt.Errorf("ensure directories: %w", err)
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// newLogger builds the configured logger and prunes expired log files.
func newLogger(cfg *config.Config) (*slog.Logger, error) {
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	logging.PruneRotatedLogs(logger, cfg.Paths.LogDir, cfg.Logging.RetentionDays)
	return logger, nil
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
