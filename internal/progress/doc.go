// Package progress logs periodic playback position and queue backlog for
// the optional -progress CLI flag, an ambient observability nicety with no
// effect on the pipeline it observes.
package progress
