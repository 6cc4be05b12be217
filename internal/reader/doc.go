// Package reader implements the Reader worker: it pulls packets belonging
// to the selected audio stream out of a Context's demuxer and pushes them
// onto the Context's packet queue, and implements the seek protocol that
// atomically invalidates in-flight packets and frames.
package reader
