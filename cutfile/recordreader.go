package cutfile

import (
	"errors"
	"fmt"
	"io"
)

var (
	ErrRecordOutOfRange = errors.New("requested record index not available")
	ErrRecordIndexZero  = errors.New("record indices are 1 based, 0 is the chain terminator")
)

// RecordReader provides fixed stride access to the records of a cut
// coefficient file. Record k (1 based) is read by seeking to (k-1)*R and
// reading exactly R bytes.
//
// The reader performs no caching and no retries; I/O failures surface
// immediately. It assumes single threaded access, it is not go routine safe.
type RecordReader struct {
	r            io.ReadSeeker
	name         string
	recordLength int
}

// NewRecordReader creates a reader over r with the given fixed record length.
// The record length must satisfy the cut record layout formula, anything else
// is a configuration error detected here rather than per record. name is used
// only to identify the source in errors, it may be empty.
func NewRecordReader(r io.ReadSeeker, name string, recordLength int) (*RecordReader, error) {
	if _, err := CoefficientCount(recordLength); err != nil {
		return nil, err
	}
	return &RecordReader{r: r, name: name, recordLength: recordLength}, nil
}

// RecordLength returns the fixed record stride the reader was created with.
func (rr *RecordReader) RecordLength() int {
	return rr.recordLength
}

// ReadRecord returns the raw bytes of record k (1 based).
//
// A position at or past end of stream returns ErrRecordOutOfRange; a position
// where only part of a record is available returns ErrTruncatedRecord. Both
// carry the source name and byte offset.
func (rr *RecordReader) ReadRecord(k int64) ([]byte, error) {
	if k == 0 {
		return nil, ErrRecordIndexZero
	}
	offset := (k - 1) * int64(rr.recordLength)
	if _, err := rr.r.Seek(offset, io.SeekStart); err != nil {
		return nil, err
	}

	b := make([]byte, rr.recordLength)
	n, err := io.ReadFull(rr.r, b)
	switch {
	case err == nil:
		return b, nil
	case errors.Is(err, io.EOF):
		return nil, fmt.Errorf("%w: %s: record %d at offset %d", ErrRecordOutOfRange, rr.name, k, offset)
	case errors.Is(err, io.ErrUnexpectedEOF):
		return nil, fmt.Errorf("%w: %s: record %d at offset %d, got %d of %d bytes",
			ErrTruncatedRecord, rr.name, k, offset, n, rr.recordLength)
	default:
		return nil, err
	}
}

// Records returns a sequential iterator over the whole stream starting at
// record 1. The iterator is lazy, finite and non restartable; it shares the
// reader's seek position and must not be interleaved with ReadRecord calls.
func (rr *RecordReader) Records() *RecordIterator {
	return &RecordIterator{rr: rr, next: 1}
}

// RecordIterator yields successive raw record buffers until end of stream.
type RecordIterator struct {
	rr   *RecordReader
	next int64
	done bool
}

// Next returns the next raw record. It returns io.EOF once the stream is
// cleanly exhausted and ErrTruncatedRecord if the stream ends mid record.
func (it *RecordIterator) Next() ([]byte, error) {
	if it.done {
		return nil, io.EOF
	}
	b, err := it.rr.ReadRecord(it.next)
	if err != nil {
		it.done = true
		if errors.Is(err, ErrRecordOutOfRange) {
			return nil, io.EOF
		}
		return nil, err
	}
	it.next++
	return b, nil
}
