// Package media defines the value types passed between the streaming
// workers: sample format tags, the immutable StreamSpec negotiated at open,
// and the owning Packet/Frame handles that travel through the dual-buffer
// queues.
package media
