package streamctx

import "errors"

// ErrAgain is returned by Decoder.ReceiveFrame when the decoder has
// consumed the submitted packet but needs more input before it can produce
// another frame. Callers exit the inner decode loop without treating this
// as an error.
var ErrAgain = errors.New("streamctx: decoder needs more input")
