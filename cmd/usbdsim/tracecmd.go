package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ardnew/usbdpower/device/hal/trace"
	"github.com/ardnew/usbdpower/device/nrf5x/regs"
)

func newTraceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect recorded trace files",
	}
	cmd.AddCommand(newTraceDecodeCmd())
	return cmd
}

func newTraceDecodeCmd() *cobra.Command {
	var (
		output string
		raw    bool
	)

	cmd := &cobra.Command{
		Use:   "decode FILE",
		Short: "Print a CBOR trace file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := parseFormat(output)
			if err != nil {
				return err
			}
			file, err := readTraceFile(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if f == formatJSON {
				return writeJSON(out, file)
			}
			name := regs.Name
			if raw {
				name = trace.Hex
			}
			h := file.Header
			fmt.Fprintf(out, "session %s  profile %s  created %s  events %d\n",
				h.Session, h.Profile, h.Created.Format("2006-01-02T15:04:05Z07:00"), len(file.Events))
			return trace.WriteText(out, file.Events, name)
		},
	}

	cmd.Flags().StringVarP(&output, "format", "f", string(formatText), "output format (text, json)")
	cmd.Flags().BoolVar(&raw, "raw", false, "print addresses instead of register names")
	return cmd
}
