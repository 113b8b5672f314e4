package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"subtitler/internal/api"
	"subtitler/internal/config"
	"subtitler/internal/logging"
)

// statusTimeout bounds the quick daemon queries (status, models, jobs).
const statusTimeout = 5 * time.Second

type commandContext struct {
	configFlag   *string
	bindFlag     *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configSeen bool
	configErr  error
}

func newCommandContext(configFlag, bindFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		bindFlag:     bindFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if bind := c.bindOverride(); bind != "" {
			cfg.Server.Bind = bind
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configSeen = exists
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

func (c *commandContext) bindOverride() string {
	if c.bindFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.bindFlag)
}

func (c *commandContext) logLevel(cfg *config.Config) string {
	if c.logLevelFlag != nil {
		if level := strings.TrimSpace(*c.logLevelFlag); level != "" {
			return level
		}
	}
	if cfg == nil {
		return "info"
	}
	return cfg.Logging.Level
}

// commandLogger writes to the command's stderr so stdout stays clean for
// subtitle content.
func (c *commandContext) commandLogger(cfg *config.Config) (*slog.Logger, error) {
	format := "console"
	if cfg != nil {
		format = cfg.Logging.Format
	}
	return logging.New(logging.Options{
		Level:       c.logLevel(cfg),
		Format:      format,
		OutputPaths: []string{"stderr"},
	})
}

func (c *commandContext) apiClient(timeout time.Duration) (*api.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return api.NewClient(cfg.Server.Bind, cfg.Server.Token, timeout)
}

func wrapAPIError(err error, bind string) error {
	if errors.Is(err, api.ErrUnavailable) {
		return fmt.Errorf("connect to daemon: nothing answered at %s; start it with `subtitler serve`", bind)
	}
	return err
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
