package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ayusman/fretwise/internal/app"
	"github.com/ayusman/fretwise/internal/config"
	"github.com/ayusman/fretwise/internal/logging"
	"github.com/ayusman/fretwise/internal/store"
)

type commandContext struct {
	configFlag *string
	envFlag    *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(configFlag, envFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		envFlag:    envFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var envFiles []string
		if c.envFlag != nil && strings.TrimSpace(*c.envFlag) != "" {
			envFiles = append(envFiles, strings.TrimSpace(*c.envFlag))
		}
		if err := config.LoadDotEnv(envFiles...); err != nil {
			c.configErr = err
			return
		}

		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = fmt.Errorf("load config: %w", err)
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

// logger builds the process logger. Console output goes to stderr so stdout
// stays free for results.
func (c *commandContext) logger(cmd *cobra.Command) (*logrus.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return logging.NewWithOutput(cfg.Logging, cmd.ErrOrStderr())
}

// openService opens the session log, if enabled, and the tracking service.
// The returned function releases both.
func (c *commandContext) openService(log *logrus.Logger) (*app.Service, func(), error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}

	var st *store.Store
	if cfg.Store.Enabled {
		if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create data directory: %w", err)
		}
		st, err = store.New(cfg.Store.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open session log: %w", err)
		}
		log.WithField("path", st.Path()).Info("session log opened")
	}

	closeStore := func() {
		if st != nil {
			st.Close()
		}
	}

	svc, err := app.New(app.Options{Config: cfg, Logger: log, Store: st})
	if err != nil {
		closeStore()
		return nil, nil, err
	}

	release := func() {
		if err := svc.Close(); err != nil {
			log.WithError(err).Warn("failed to stop providers")
		}
		closeStore()
	}
	return svc, release, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
