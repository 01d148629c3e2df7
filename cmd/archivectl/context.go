package main

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/community-archive/internal/archive"
	"github.com/noah-isme/community-archive/internal/client"
	"github.com/noah-isme/community-archive/pkg/config"
	"github.com/noah-isme/community-archive/pkg/identity"
	"github.com/noah-isme/community-archive/pkg/logger"
)

type globalFlags struct {
	server    string
	apiPrefix string
	tokenFile string
	timeout   time.Duration
	logLevel  string
	noColor   bool
}

type commandContext struct {
	flags *globalFlags
	// intn overrides the challenge operand source; nil uses math/rand.
	intn func(int) int

	configOnce sync.Once
	config     *config.ClientConfig
	logger     *zap.Logger
	configErr  error
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags}
}

// ensureConfig loads the client section once and applies flag overrides.
func (c *commandContext) ensureConfig() (*config.ClientConfig, error) {
	c.configOnce.Do(func() {
		cfg, err := config.Load()
		if err != nil {
			c.configErr = err
			return
		}
		cc := cfg.Client
		if v := strings.TrimSpace(c.flags.server); v != "" {
			cc.ServerURL = strings.TrimRight(v, "/")
		}
		if v := strings.TrimSpace(c.flags.apiPrefix); v != "" {
			cc.APIPrefix = v
		}
		if v := strings.TrimSpace(c.flags.tokenFile); v != "" {
			cc.TokenFile = v
		}
		if c.flags.timeout > 0 {
			cc.HTTPTimeout = c.flags.timeout
		}
		c.config = &cc

		logr, err := logger.NewCLI(c.flags.logLevel)
		if err != nil {
			c.configErr = err
			return
		}
		c.logger = logr
	})
	return c.config, c.configErr
}

func (c *commandContext) clientConfig() (client.Config, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return client.Config{}, err
	}
	return client.Config{
		BaseURL:   cfg.ServerURL,
		APIPrefix: cfg.APIPrefix,
		Timeout:   cfg.HTTPTimeout,
		Logger:    c.logger,
	}, nil
}

func (c *commandContext) tokenStore() (*identity.FileTokenStore, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return identity.NewFileTokenStore(cfg.TokenFile)
}

func (c *commandContext) newSink(cmd *cobra.Command) *terminalSink {
	return newTerminalSink(cmd.OutOrStdout(), cmd.ErrOrStderr(), !c.flags.noColor && shouldColorize(cmd.OutOrStdout()))
}

// session is one command's controller bound to a terminal sink.
type session struct {
	controller *archive.Controller
	sink       *terminalSink
}

func (c *commandContext) newSession(cmd *cobra.Command) (*session, error) {
	cc, err := c.clientConfig()
	if err != nil {
		return nil, err
	}
	tokens, err := c.tokenStore()
	if err != nil {
		return nil, err
	}
	sink := c.newSink(cmd)
	controller := archive.NewController(
		client.NewBlobClient(cc),
		client.NewRecordClient(cc),
		tokens,
		sink,
		archive.WithLogger(c.logger),
		archive.WithRandom(c.intn),
	)
	return &session{controller: controller, sink: sink}, nil
}

// load fetches the listing. A failed fetch leaves an empty snapshot, which
// the caller renders like any other view.
func (s *session) load(ctx context.Context) {
	_ = s.controller.Refresh(ctx)
}
