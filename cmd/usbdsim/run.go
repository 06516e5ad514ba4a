package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/ardnew/usbdpower/device/hal/trace"
	"github.com/ardnew/usbdpower/device/nrf5x"
	"github.com/ardnew/usbdpower/device/nrf5x/power"
)

func newRunCmd(opts *options) *cobra.Command {
	var (
		events    []string
		tracePath string
		output    string
		loads     bool
		runInit   bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Deliver a scripted sequence of power events",
		Example: `  usbdsim run
  usbdsim run --events detected,removed --format json
  usbdsim run -p board.yaml --init --trace session.cbor`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := parseFormat(output)
			if err != nil {
				return err
			}
			seq := make([]power.Event, 0, len(events))
			for _, name := range events {
				ev, err := power.ParseEvent(name)
				if err != nil {
					return err
				}
				seq = append(seq, ev)
			}

			rec := trace.NewRecorder()
			rec.RecordLoads(loads)
			s := nrf5x.NewSimulation(opts.profile, rec)

			rep := report{Header: trace.NewHeader(opts.profile.Name)}
			var runErr error
			deliver := func(name string, fn func() error) bool {
				mark := rec.Len()
				err := fn()
				st := step{Event: name, State: s.Power.State().String(), Events: rec.Events()[mark:]}
				if err != nil {
					st.Error = err.Error()
					runErr = err
				}
				rep.Steps = append(rep.Steps, st)
				return err == nil
			}

			ok := true
			if runInit {
				ok = deliver("init", func() error { return s.Power.InitContext(cmd.Context()) })
			}
			for _, ev := range seq {
				if !ok {
					break
				}
				ev := ev
				ok = deliver(ev.String(), func() error { return s.Power.HandlePowerEventContext(cmd.Context(), ev) })
			}

			out := cmd.OutOrStdout()
			if f == formatJSON {
				err = writeJSON(out, rep)
			} else {
				err = writeSteps(out, rep.Steps)
			}
			if tracePath != "" {
				err = errors.Join(err, writeTraceFile(tracePath, trace.File{Header: rep.Header, Events: rec.Events()}))
			}
			return errors.Join(runErr, err)
		},
	}

	flags := cmd.Flags()
	flags.StringSliceVarP(&events, "events", "e", []string{"detected", "ready", "removed"}, "power events to deliver in order")
	flags.StringVarP(&tracePath, "trace", "t", "", "write the recorded trace to a CBOR file")
	flags.StringVarP(&output, "format", "f", string(formatText), "output format (text, json)")
	flags.BoolVar(&loads, "loads", false, "record register loads as well as stores")
	flags.BoolVar(&runInit, "init", false, "run controller init before the events")
	return cmd
}
