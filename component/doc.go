// Package component defines lifecycle management for the long-lived parts
// of an execkit service: the backing store, the executor and the recovery
// sweep.
//
// Components are started in registration order and stopped in reverse, so
// the store comes up before anything that writes to it and goes down last.
// Health is reported per component for an external health endpoint to
// aggregate.
package component
