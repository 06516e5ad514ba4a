package trace

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/ardnew/usbdpower/pkg"
)

// FormatVersion is the trace file format version written by Encode.
const FormatVersion = 1

// Header describes a recorded session.
type Header struct {
	Version uint8     `cbor:"1,keyasint" json:"version"`
	Session string    `cbor:"2,keyasint" json:"session"`
	Profile string    `cbor:"3,keyasint,omitempty" json:"profile,omitempty"`
	Created time.Time `cbor:"4,keyasint" json:"created"`
}

// NewHeader returns a header for a new session on the named profile.
func NewHeader(profile string) Header {
	return Header{
		Version: FormatVersion,
		Session: uuid.NewString(),
		Profile: profile,
		Created: time.Now().UTC(),
	}
}

// File is a decoded trace: one header followed by events.
type File struct {
	Header Header  `json:"header"`
	Events []Event `json:"events"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create trace CBOR encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create trace CBOR decoder mode: %v", err))
	}
}

// Encode writes f to w as a sequence of CBOR data items: the header, then
// one item per event.
func Encode(w io.Writer, f File) error {
	enc := encMode.NewEncoder(w)
	if err := enc.Encode(f.Header); err != nil {
		return fmt.Errorf("encode trace header: %w", err)
	}
	for _, e := range f.Events {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("encode trace event %d: %w", e.Seq, err)
		}
	}
	pkg.LogDebug(pkg.ComponentTrace, "trace encoded",
		"session", f.Header.Session, "events", len(f.Events))
	return nil
}

// Decode reads a trace written by Encode.
func Decode(r io.Reader) (File, error) {
	dec := decMode.NewDecoder(r)

	var f File
	if err := dec.Decode(&f.Header); err != nil {
		return File{}, fmt.Errorf("%w: header: %v", pkg.ErrTraceFormat, err)
	}
	if f.Header.Version != FormatVersion {
		return File{}, fmt.Errorf("%w: unsupported version %d",
			pkg.ErrTraceFormat, f.Header.Version)
	}
	for {
		var e Event
		err := dec.Decode(&e)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return File{}, fmt.Errorf("%w: event %d: %v",
				pkg.ErrTraceFormat, len(f.Events), err)
		}
		f.Events = append(f.Events, e)
	}
	return f, nil
}
