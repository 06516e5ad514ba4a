package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ardnew/usbdpower/device/hal/trace"
	"github.com/ardnew/usbdpower/device/nrf5x/regs"
)

type format string

const (
	formatText format = "text"
	formatJSON format = "json"
)

func parseFormat(s string) (format, error) {
	switch f := format(strings.ToLower(s)); f {
	case formatText, formatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text or json)", s)
	}
}

// step is the outcome of one delivered event.
type step struct {
	Event  string        `json:"event"`
	State  string        `json:"state"`
	Error  string        `json:"error,omitempty"`
	Events []trace.Event `json:"trace"`
}

type report struct {
	Header trace.Header `json:"header"`
	Steps  []step       `json:"steps"`
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeSteps(w io.Writer, steps []step) error {
	for _, s := range steps {
		fmt.Fprintf(w, "== %s -> %s\n", s.Event, s.State)
		if err := trace.WriteText(w, s.Events, regs.Name); err != nil {
			return err
		}
		if s.Error != "" {
			fmt.Fprintf(w, "!! %s\n", s.Error)
		}
	}
	return nil
}

func writeTraceFile(path string, f trace.File) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := trace.Encode(out, f); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func readTraceFile(path string) (trace.File, error) {
	in, err := os.Open(path)
	if err != nil {
		return trace.File{}, err
	}
	defer in.Close()
	return trace.Decode(in)
}
