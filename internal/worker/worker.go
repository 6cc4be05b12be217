package worker

import (
	"sync"

	"github.com/zsiec/audiostream/internal/streamerr"
)

// State is a snapshot of a Runtime's run/error/progress state, per the
// WorkerState record shared by every component in this module.
type State struct {
	Running bool
	// Err is 0 (streamerr.None) when there is no recorded error.
	Err   streamerr.Code
	Cause error
	// Timestamp is the last successfully processed pts, timebase units.
	// Zeroed on Start and Stop, preserved across Pause.
	Timestamp int64
}

// Handler is notified synchronously, under the Runtime's own state mutex,
// on every state transition (Start, Stop, Pause, and body-internal
// pause/stop). It must not call back into the same Runtime's Start/Stop/
// Pause/Close — doing so deadlocks against the mutex the notification is
// delivered under.
type Handler func(State)

// Body is one iteration of a worker's execute-body step. It runs with the
// Runtime's state mutex held, so external Stop/Pause cannot interleave
// inside an iteration. A Body that needs to block on an external event
// (queue pop/push, device write) relies on that primitive's own flush/close
// to become unblockable — never on the state mutex — per the runtime's
// cancellation model.
//
// A Body reports its own outcome by calling AdvanceTimestamp, PauseBody, or
// StopBody on the *Runtime it was given; calling none of them is equivalent
// to "processed nothing, keep running".
type Body func(rt *Runtime)

// Runtime is the generic pausable/stoppable/terminable background
// goroutine. The zero value is not usable; construct with New.
type Runtime struct {
	mu   sync.Mutex
	cond *sync.Cond

	running   bool
	terminate bool
	errCode   streamerr.Code
	cause     error
	timestamp int64

	handler Handler
	body    Body

	done chan struct{}
}

// New creates a Runtime bound to body and immediately starts its background
// goroutine in the not-running state; call Start to make it runnable.
func New(body Body) *Runtime {
	rt := &Runtime{
		body:    body,
		handler: func(State) {},
		done:    make(chan struct{}),
	}
	rt.cond = sync.NewCond(&rt.mu)
	go rt.loop()
	return rt
}

// loop re-acquires the mutex once per iteration rather than holding it for
// the goroutine's whole lifetime: the body runs under the lock (so an
// external Stop/Pause cannot interleave inside one iteration), but the lock
// is released between iterations so Start/Stop/Pause/Close made from other
// goroutines are never starved by a busy running worker.
func (rt *Runtime) loop() {
	defer close(rt.done)
	for {
		rt.mu.Lock()
		for !rt.running && !rt.terminate {
			rt.cond.Wait()
		}
		if rt.terminate {
			rt.mu.Unlock()
			return
		}
		rt.body(rt)
		rt.mu.Unlock()
	}
}

// Start sets running=true, clears any recorded error, resets the
// timestamp, and invokes handler with the new state.
func (rt *Runtime) Start(handler Handler) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if handler != nil {
		rt.handler = handler
	}
	rt.running = true
	rt.errCode = streamerr.None
	rt.cause = nil
	rt.timestamp = 0
	rt.cond.Broadcast()
	rt.notifyLocked()
}

// Stop sets running=false, resets the timestamp to 0, and invokes handler.
func (rt *Runtime) Stop() {
	rt.StopWithError(streamerr.None, nil)
}

// StopWithError behaves like Stop but records the given error in the
// reported state.
func (rt *Runtime) StopWithError(code streamerr.Code, cause error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.stopLocked(code, cause)
}

// Pause sets running=false, preserves the timestamp, and invokes handler.
func (rt *Runtime) Pause() {
	rt.PauseWithError(streamerr.None, nil)
}

// PauseWithError behaves like Pause but records the given error.
func (rt *Runtime) PauseWithError(code streamerr.Code, cause error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.pauseLocked(code, cause)
}

// Close sets the internal terminate flag, wakes the loop, and blocks until
// the background goroutine has exited. Equivalent to the original runtime's
// destructor. Safe to call once; a second call blocks on the already-closed
// done channel and returns immediately.
func (rt *Runtime) Close() {
	rt.mu.Lock()
	rt.terminate = true
	rt.cond.Broadcast()
	rt.mu.Unlock()
	<-rt.done
}

// Exclusive runs fn while holding the Runtime's state mutex, serialising it
// against body iterations and against Start/Stop/Pause running
// concurrently. Used by workers whose external API (e.g. the Reader's seek)
// must not interleave with an in-flight body iteration. fn receives the
// same *Runtime and may call AdvanceTimestamp/PauseBody/StopBody exactly as
// a Body would, but must not call Start/Stop/Pause/Close.
func (rt *Runtime) Exclusive(fn func(rt *Runtime)) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	fn(rt)
}

// State returns a snapshot of the current run/error/progress state.
func (rt *Runtime) State() State {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return State{
		Running:   rt.running,
		Err:       rt.errCode,
		Cause:     rt.cause,
		Timestamp: rt.timestamp,
	}
}

// AdvanceTimestamp records the pts of the unit a Body just finished
// processing. Callable only from within the bound Body (the state mutex is
// already held by the caller in that context).
func (rt *Runtime) AdvanceTimestamp(pts int64) {
	rt.timestamp = pts
}

// CurrentTimestamp returns the timestamp field directly, without acquiring
// the state mutex. Callable only from within the bound Body or an Exclusive
// closure, where the mutex is already held by the caller — State() would
// self-deadlock in that context since sync.Mutex is not reentrant.
func (rt *Runtime) CurrentTimestamp() int64 {
	return rt.timestamp
}

// PauseBody transitions to paused from within the bound Body: preserves the
// timestamp, records the given error, and invokes handler. Equivalent to
// PauseWithError but without re-acquiring the mutex the Body already holds.
func (rt *Runtime) PauseBody(code streamerr.Code, cause error) {
	rt.pauseLocked(code, cause)
}

// StopBody transitions to stopped from within the bound Body: resets the
// timestamp, records the given error, and invokes handler.
func (rt *Runtime) StopBody(code streamerr.Code, cause error) {
	rt.stopLocked(code, cause)
}

func (rt *Runtime) pauseLocked(code streamerr.Code, cause error) {
	rt.running = false
	rt.errCode = code
	rt.cause = cause
	rt.notifyLocked()
}

func (rt *Runtime) stopLocked(code streamerr.Code, cause error) {
	rt.running = false
	rt.timestamp = 0
	rt.errCode = code
	rt.cause = cause
	rt.notifyLocked()
}

func (rt *Runtime) notifyLocked() {
	rt.handler(State{
		Running:   rt.running,
		Err:       rt.errCode,
		Cause:     rt.cause,
		Timestamp: rt.timestamp,
	})
}
