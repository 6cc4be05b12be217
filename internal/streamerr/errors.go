// Package streamerr defines the tagged error codes shared across the
// streaming core (WorkerState.Error, Context failures, engine passthrough
// errors) per the specification's non-overlapping bit regions so multiple
// causes can be OR-combined in a single field.
package streamerr

import "fmt"

// Code is a bitmask of error kinds. Zero (None) means no error.
type Code uint32

const (
	None Code = 0

	// NetConnectFail marks a TCP RAM-file connect/accept failure.
	NetConnectFail Code = 1 << iota
	// NetTxFail marks a TCP RAM-file send/recv failure.
	NetTxFail
	// PcmFormatInvalid marks a Context operation attempted with no valid
	// demuxer.
	PcmFormatInvalid
	// PcmCodecInvalid marks a Context operation attempted with no valid
	// decoder.
	PcmCodecInvalid
	// passthroughBit distinguishes an opaque engine-library code (stored
	// in the bits from passthroughShift upward) from the named kinds above.
	passthroughBit
)

// Has reports whether c includes the given bit.
func (c Code) Has(bit Code) bool {
	return c&bit != 0
}

// String renders the set bits as a "|"-joined name list.
func (c Code) String() string {
	if c == None {
		return "none"
	}
	names := []struct {
		bit  Code
		name string
	}{
		{NetConnectFail, "net_connect_fail"},
		{NetTxFail, "net_tx_fail"},
		{PcmFormatInvalid, "pcm_format_invalid"},
		{PcmCodecInvalid, "pcm_codec_invalid"},
	}
	out := ""
	for _, n := range names {
		if c.Has(n.bit) {
			if out != "" {
				out += "|"
			}
			out += n.name
		}
	}
	if c.Has(passthroughBit) {
		if out != "" {
			out += "|"
		}
		out += fmt.Sprintf("passthrough(%d)", int32(c>>passthroughShift))
	}
	if out == "" {
		return fmt.Sprintf("code(%#x)", uint32(c))
	}
	return out
}

// passthroughShift is where an opaque engine error code is packed once
// passthroughBit is set. Passthrough codes are assumed to fit in 24 bits,
// which comfortably covers GStreamer's GError code space.
const passthroughShift = 8

// Passthrough wraps an opaque error code from the demuxer/decoder/device
// library into a Code, preserving the original integer for the formatter.
func Passthrough(nativeCode int32) Code {
	return passthroughBit | (Code(uint32(nativeCode)) << passthroughShift)
}

// NativeCode extracts the integer packed by Passthrough, or 0 if c does not
// carry a passthrough code.
func (c Code) NativeCode() int32 {
	if !c.Has(passthroughBit) {
		return 0
	}
	return int32(c >> passthroughShift)
}

// Error pairs a Code with the underlying cause, satisfying the standard
// error interface and errors.Is/As/Unwrap via Unwrap.
type Error struct {
	Code  Code
	Cause error
}

// New builds an Error. cause may be nil.
func New(code Code, cause error) *Error {
	return &Error{Code: code, Cause: cause}
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause != nil {
		// The code name is followed by the underlying library's own
		// message (its "strerror"); with no cause, only the code name.
		return fmt.Sprintf("%s: %s", e.Code, e.Cause.Error())
	}
	return e.Code.String()
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}
