// Package wal implements a write-ahead log for side-effecting operations.
//
// Before an operation executes, a pending entry is made durable; after the
// attempt the entry is marked completed or failed. Entries still pending
// belong to operations interrupted mid-flight (the process died between the
// pending write and the terminal update) and are the input to the recovery
// sweep in the executor package.
//
// Entries expire from the log independent of recovery to bound storage
// growth.
package wal
