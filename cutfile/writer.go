package cutfile

import (
	"fmt"
	"io"
)

// Writer appends cut records to a stream, maintaining the backward chain as it
// goes. Each appended record's previous pointer names the record appended
// before it, so the index returned by the final Append is a valid chain entry
// point for the whole sequence.
//
// The solver side of the toolchain owns the authoritative writers; this one
// exists to produce structurally identical files for replication and tests.
type Writer struct {
	w                io.Writer
	coefficientCount int
	count            int32
}

// NewWriter creates a writer producing records with the given coefficient
// count. All records appended through one writer share the same record length.
func NewWriter(w io.Writer, coefficientCount int) *Writer {
	return &Writer{w: w, coefficientCount: coefficientCount}
}

// RecordLength returns the fixed length of the records the writer emits.
func (w *Writer) RecordLength() int {
	return RecordLength(w.coefficientCount)
}

// LastIndex returns the 1 based index of the most recently appended record, 0
// when nothing has been written. This is the value the mapping file records as
// the scenario's chain entry point.
func (w *Writer) LastIndex() int32 {
	return w.count
}

// Append writes one record and returns its 1 based index. The record's
// Previous field is overwritten to chain onto the previously appended record.
func (w *Writer) Append(c CutRecord) (int32, error) {
	if len(c.Coefficients) != w.coefficientCount {
		return 0, fmt.Errorf("%w: got %d coefficients, writer fixed at %d",
			ErrCoefficientCount, len(c.Coefficients), w.coefficientCount)
	}

	c.Previous = w.count
	if _, err := w.w.Write(EncodeCutRecord(c)); err != nil {
		return 0, err
	}
	w.count++
	return w.count, nil
}
