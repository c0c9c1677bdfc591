// Package session implements the context registry: one Session per context
// key (a guild's voice lane), each owning an acquired voice connection and a
// strictly FIFO queue of tracks.
//
// Every operation on a key (enqueue, drain, stop, idle release, disconnect)
// runs under that session's mutex, so they are serialized per key while
// different keys proceed independently. A single consumer goroutine per
// session plays tracks one at a time; track N+1 is never started before
// track N's Play call has returned.
package session
