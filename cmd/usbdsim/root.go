package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ardnew/usbdpower/config"
	"github.com/ardnew/usbdpower/device/hal"
	"github.com/ardnew/usbdpower/device/hal/sim"
	"github.com/ardnew/usbdpower/pkg"
	"github.com/ardnew/usbdpower/pkg/prof"
)

// neverBound caps simulated waits that would otherwise spin forever.
const neverBound = 1 << 20

type options struct {
	profilePath string
	logLevel    string
	logFormat   string
	cpuprofile  string

	profile config.Profile
	cpu     *prof.Session
}

func newRootCmd(opts *options) *cobra.Command {
	root := &cobra.Command{
		Use:          "usbdsim",
		Short:        "Simulate nRF52840 USBD power bring-up",
		Long:         "Drive the USBD power controller through power events on a simulated nRF52840 and inspect every register access it makes.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.profilePath, "profile", "p", "", "board profile YAML (default: built-in nrf52840-dk)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", "", "log format override (text, json)")
	flags.StringVar(&opts.cpuprofile, "cpuprofile", "", "write a CPU profile to file")

	root.AddCommand(
		newRunCmd(opts),
		newShellCmd(opts),
		newTraceCmd(),
		newProfileCmd(opts),
	)
	return root
}

func (o *options) setup(cmd *cobra.Command) error {
	p, err := config.Load(o.profilePath)
	if err != nil {
		return err
	}
	if o.logLevel != "" {
		p.Log.Level = o.logLevel
	}
	if o.logFormat != "" {
		p.Log.Format = o.logFormat
	}
	if err := p.ApplyLogging(cmd.ErrOrStderr()); err != nil {
		return err
	}

	never := p.Sim.ReadyDelay == sim.Never || p.Sim.ClockDelay == sim.Never
	if _, spin := p.Poller().(hal.Spin); spin && never {
		pkg.LogWarn(pkg.ComponentConfig, "simulated wait never completes; bounding polls",
			"max_polls", neverBound)
		p.Wait.MaxPolls = neverBound
	}
	o.profile = p

	if o.cpuprofile != "" {
		s, err := prof.StartCPU(o.cpuprofile)
		if err != nil {
			return fmt.Errorf("cpuprofile: %w", err)
		}
		o.cpu = s
	}
	return nil
}

func (o *options) finish() error {
	err := o.cpu.Stop()
	o.cpu = nil
	return err
}

func newProfileCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Print the effective board profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := opts.profile.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
