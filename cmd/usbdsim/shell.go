package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/ardnew/usbdpower/config"
	"github.com/ardnew/usbdpower/device/hal/trace"
	"github.com/ardnew/usbdpower/device/nrf5x"
	"github.com/ardnew/usbdpower/device/nrf5x/power"
	"github.com/ardnew/usbdpower/device/nrf5x/regs"
)

var errQuit = errors.New("quit")

func newShellCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Deliver power events interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rl, err := readline.NewEx(&readline.Config{
				Prompt:          "usbd> ",
				InterruptPrompt: "^C",
				EOFPrompt:       "exit",
				AutoComplete:    completer(),
			})
			if err != nil {
				return fmt.Errorf("failed to create readline: %w", err)
			}
			defer rl.Close()

			sh := newShell(opts.profile, rl.Stdout())
			sh.help()
			for {
				line, err := rl.Readline()
				if err != nil {
					if errors.Is(err, readline.ErrInterrupt) {
						continue
					}
					return nil
				}
				if err := sh.exec(cmd.Context(), line); err != nil {
					if errors.Is(err, errQuit) {
						return nil
					}
					fmt.Fprintln(rl.Stderr(), "error:", err)
				}
			}
		},
	}
}

func completer() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("detected"),
		readline.PcItem("ready"),
		readline.PcItem("removed"),
		readline.PcItem("cable", readline.PcItem("on"), readline.PcItem("off")),
		readline.PcItem("init"),
		readline.PcItem("state"),
		readline.PcItem("dump"),
		readline.PcItem("trace", readline.PcItem("all")),
		readline.PcItem("reset"),
		readline.PcItem("help"),
		readline.PcItem("exit"),
	)
}

// shell is the command interpreter behind the interactive prompt.
type shell struct {
	profile config.Profile
	out     io.Writer
	rec     *trace.Recorder
	sim     *nrf5x.Simulation
	mark    int // recorder length at the last trace command
}

func newShell(p config.Profile, out io.Writer) *shell {
	sh := &shell{profile: p, out: out}
	sh.reset()
	return sh
}

func (sh *shell) reset() {
	sh.rec = trace.NewRecorder()
	sh.sim = nrf5x.NewSimulation(sh.profile, sh.rec)
	sh.mark = 0
}

func (sh *shell) exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "help", "?":
		sh.help()
	case "exit", "quit", "q":
		return errQuit
	case "detected", "detect", "ready", "removed", "remove":
		ev, err := power.ParseEvent(cmd)
		if err != nil {
			return err
		}
		err = sh.sim.Power.HandlePowerEventContext(ctx, ev)
		sh.state()
		return err
	case "cable":
		if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
			return fmt.Errorf("usage: cable on|off")
		}
		err := sh.sim.Cable(ctx, args[0] == "on")
		sh.state()
		return err
	case "init":
		err := sh.sim.Power.InitContext(ctx)
		sh.state()
		return err
	case "state":
		sh.state()
	case "dump":
		return sh.dump()
	case "trace":
		events := sh.rec.Events()
		from := sh.mark
		if len(args) > 0 && args[0] == "all" {
			from = 0
		}
		sh.mark = len(events)
		return trace.WriteText(sh.out, events[from:], regs.Name)
	case "reset":
		sh.reset()
		fmt.Fprintln(sh.out, "simulation reset")
	default:
		return fmt.Errorf("unknown command %q (try help)", cmd)
	}
	return nil
}

func (sh *shell) state() {
	chip := sh.sim.Chip
	clk := "stopped"
	if chip.ClockRunning() {
		clk = "running"
	}
	fmt.Fprintf(sh.out, "state %s  enable=%d pullup=%d inten=0x%08X hfclk=%s\n",
		sh.sim.Power.State(),
		chip.Peek(regs.USBDEnable),
		chip.Peek(regs.USBDPullup),
		chip.Peek(regs.USBDIntEn),
		clk)
}

func (sh *shell) dump() error {
	tw := tabwriter.NewWriter(sh.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ADDRESS\tREGISTER\tVALUE")
	for _, r := range sh.sim.Chip.Dump() {
		fmt.Fprintf(tw, "%s\t%s\t0x%08X\n", trace.Hex(r.Addr), r.Name, r.Value)
	}
	return tw.Flush()
}

func (sh *shell) help() {
	fmt.Fprintf(sh.out, `profile %s
commands:
  detected | ready | removed   deliver a power event
  cable on|off                 latch regulator status and deliver its events
  init                         run controller init
  state                        show controller and peripheral state
  dump                         list every register holding a value
  trace [all]                  show accesses since the last trace (or all)
  reset                        power-cycle the simulated chip
  help                         show this text
  exit                         leave the shell
`, sh.profile.Name)
}
