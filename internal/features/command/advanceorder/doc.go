// Package advanceorder implements the staff-facing use case of moving an
// order through its lifecycle. Most transitions only append history; READY
// additionally applies per-item decisions, and DONE reconciles the order
// against the reader's live loans before completing it.
package advanceorder
