package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var errNoReply = errors.New("amplifier did not answer or rejected the command")

type pingResult struct {
	Host string `json:"host" yaml:"host"`
	OK   bool   `json:"ok" yaml:"ok"`
}

func newPingCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the amplifier answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !c.client.Ping(cmd.Context()) {
				return fmt.Errorf("ping %s: %w", c.host, errNoReply)
			}
			res := pingResult{Host: c.host, OK: true}
			return c.format.Write(cmd.OutOrStdout(), res, []field{{"host", res.Host}, {"ok", res.OK}})
		},
	}
}

func newInfoCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show manufacturer, family, model and serial",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info, ok := c.client.GetInfo(cmd.Context())
			if !ok {
				return fmt.Errorf("info: %w", errNoReply)
			}
			return c.format.Write(cmd.OutOrStdout(), info, []field{
				{"manufacturer", info.Manufacturer},
				{"family", info.Family},
				{"model", info.Model},
				{"serial", info.Serial},
			})
		},
	}
}

type channelsResult struct {
	Count int `json:"count" yaml:"count"`
}

func newChannelsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "channels",
		Short: "Show the number of output channels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, ok := c.client.GetChannelCount(cmd.Context())
			if !ok {
				return fmt.Errorf("channels: %w", errNoReply)
			}
			return c.format.Write(cmd.OutOrStdout(), channelsResult{Count: n}, []field{{"channels", n}})
		},
	}
}

type powerResult struct {
	Power string `json:"power" yaml:"power"`
}

func newPowerCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:       "power [on|off|toggle]",
		Short:     "Show or change the standby state",
		Long:      "Without an argument prints the power state. \"on\" leaves standby, \"off\" enters standby.",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"on", "off", "toggle"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if len(args) == 1 {
				var ok bool
				switch args[0] {
				case "on":
					ok = c.client.SetStandbyStatus(ctx, true)
				case "off":
					ok = c.client.SetStandbyStatus(ctx, false)
				case "toggle":
					_, ok = c.client.TogglePower(ctx)
				}
				if !ok {
					return fmt.Errorf("power %s: %w", args[0], errNoReply)
				}
			}
			st, ok := c.client.GetStandbyStatus(ctx)
			if !ok {
				return fmt.Errorf("power status: %w", errNoReply)
			}
			res := powerResult{Power: st.State().String()}
			return c.format.Write(cmd.OutOrStdout(), res, []field{{"power", res.Power}})
		},
	}
}

type muteResult struct {
	Channel int  `json:"channel" yaml:"channel"`
	Muted   bool `json:"muted" yaml:"muted"`
}

func newMuteCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "mute <channel> <on|off>",
		Short: "Mute or unmute an output channel (channels start at 1)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ch, err := strconv.Atoi(args[0])
			if err != nil || ch < 1 || ch > 255 {
				return fmt.Errorf("invalid channel %q", args[0])
			}
			var mute bool
			switch args[1] {
			case "on":
				mute = true
			case "off":
			default:
				return fmt.Errorf("invalid mute state %q (on, off)", args[1])
			}
			if !c.client.SetOutputMute(cmd.Context(), uint8(ch-1), mute) {
				return fmt.Errorf("mute channel %d: %w", ch, errNoReply)
			}
			res := muteResult{Channel: ch, Muted: mute}
			return c.format.Write(cmd.OutOrStdout(), res, []field{{"channel", ch}, {"muted", mute}})
		},
	}
}
