// amp-sim 本地运行的 Powersoft 功放模拟器，用于联调网关与 ampctl
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/amp-gateway/internal/config"
	"github.com/taoyao-code/amp-gateway/internal/logging"
	"github.com/taoyao-code/amp-gateway/internal/simulator"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		cfg      simulator.Config
		faults   simulator.Faults
		logLevel string
	)
	cmd := &cobra.Command{
		Use:           "amp-sim",
		Short:         "Run a simulated Powersoft amplifier on UDP",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logging.InitLogger(cfgpkg.LoggingConfig{Level: logLevel, Format: "console"})
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			sim := simulator.New(cfg, logger)
			sim.SetFaults(faults)
			if err := sim.Start(cmd.Context()); err != nil {
				return err
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			<-sigCh

			logger.Info("simulator stopping",
				zap.Int64("received", sim.Received()),
				zap.Int64("answered", sim.Answered()))
			return sim.Stop()
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.Addr, "addr", "127.0.0.1:1234", "UDP listen address")
	flags.IntVar(&cfg.Channels, "channels", 4, "number of output channels")
	flags.BoolVar(&cfg.Standby, "standby", false, "start in standby")
	flags.StringVar(&cfg.Info.Manufacturer, "manufacturer", "Powersoft", "reported manufacturer")
	flags.StringVar(&cfg.Info.Family, "family", "X Series", "reported family")
	flags.StringVar(&cfg.Info.Model, "model", "X4", "reported model")
	flags.StringVar(&cfg.Info.Serial, "serial", "SIM0001", "reported serial")
	flags.BoolVar(&faults.Drop, "drop", false, "never answer")
	flags.DurationVar(&faults.Delay, "delay", 0, "delay every answer")
	flags.BoolVar(&faults.CorruptCRC, "corrupt-crc", false, "answer with a bad CRC")
	flags.BoolVar(&faults.FailOK, "fail", false, "answer commands with ok=0")
	flags.StringVar(&logLevel, "log-level", "info", "debug, info, warn, error")
	return cmd
}
