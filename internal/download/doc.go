// Package download implements the task admission and lifecycle controller:
// the task record store, the FIFO admission queue, the bounded slot
// scheduler, and the executor shim that runs one engine fetch per task and
// turns its result into exactly one state transition.
package download
