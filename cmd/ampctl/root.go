package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/taoyao-code/amp-gateway/internal/amplifier"
	"github.com/taoyao-code/amp-gateway/internal/logging"
	"github.com/taoyao-code/amp-gateway/internal/udpclient"
)

// cli 单次命令执行期间共享的状态
type cli struct {
	host    string
	port    int
	timeout time.Duration
	output  string
	verbose bool
	sess    *udpclient.Session
	client  *amplifier.Client
	format  formatter
	logger  *zap.Logger
	root    *cobra.Command
}

func newCLI() *cli {
	c := &cli{}
	root := &cobra.Command{
		Use:           "ampctl",
		Short:         "Control a Powersoft amplifier over UDP",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.open(cmd.Context())
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	flags := root.PersistentFlags()
	flags.StringVar(&c.host, "host", "", "amplifier host or IP (required)")
	flags.IntVar(&c.port, "port", udpclient.DefaultPort, "amplifier UDP port")
	flags.DurationVar(&c.timeout, "timeout", 2*time.Second, "per-request timeout")
	flags.StringVarP(&c.output, "output", "o", "table", "output format: table, json, yaml")
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "log protocol traffic to stderr")

	root.AddCommand(
		newPingCmd(c),
		newInfoCmd(c),
		newChannelsCmd(c),
		newPowerCmd(c),
		newMuteCmd(c),
	)
	c.root = root
	return c
}

// Execute RunE 出错时 cobra 不执行 PostRun，这里统一关闭会话
func (c *cli) Execute() error {
	err := c.root.Execute()
	if cerr := c.close(); err == nil {
		err = cerr
	}
	return err
}

func (c *cli) open(ctx context.Context) error {
	if c.host == "" {
		return fmt.Errorf("--host is required")
	}
	f, err := newFormatter(c.output)
	if err != nil {
		return err
	}
	c.format = f

	c.logger = zap.NewNop()
	if c.verbose {
		// 日志写 stderr，stdout 只输出结果
		zcfg := zap.NewDevelopmentConfig()
		zcfg.Level = zap.NewAtomicLevelAt(logging.ParseLevel("debug"))
		if c.logger, err = zcfg.Build(); err != nil {
			return err
		}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	c.sess = udpclient.New(udpclient.Config{
		Host:           c.host,
		Port:           c.port,
		DefaultTimeout: c.timeout,
	}, udpclient.WithLogger(c.logger))
	if err := c.sess.Open(ctx); err != nil {
		return err
	}
	c.client = amplifier.NewClient(c.sess, c.timeout, c.logger)
	return nil
}

func (c *cli) close() error {
	if c.sess == nil {
		return nil
	}
	err := c.sess.Close()
	c.sess, c.client = nil, nil
	return err
}
