// Package updateorder implements the reader-facing use case of editing an
// order that has not been picked up by staff yet: the composition is
// validated like on creation and replaced wholesale, the history stays as
// it is. Orders with more than their initial history entry are immutable.
package updateorder
