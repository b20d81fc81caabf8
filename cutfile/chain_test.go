package cutfile

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeChain appends n single coefficient records through a Writer and
// returns the encoded file plus the chain entry point. Iteration is set to
// the 1 based append position so tests can check chronological order.
func writeChain(t *testing.T, n int) ([]byte, int32) {
	t.Helper()

	var buf bytes.Buffer
	w := NewWriter(&buf, 1)
	for i := 1; i <= n; i++ {
		_, err := w.Append(CutRecord{
			Iteration:    int32(i),
			RHS:          float64(i) * 100,
			Coefficients: []float64{-float64(i)},
		})
		require.NoError(t, err)
	}
	return buf.Bytes(), w.LastIndex()
}

func newTestReader(t *testing.T, b []byte, coefficientCount int) *RecordReader {
	t.Helper()
	rr, err := NewRecordReader(bytes.NewReader(b), "cuts.bin", RecordLength(coefficientCount))
	require.NoError(t, err)
	return rr
}

func TestDecodeChainChronologicalOrder(t *testing.T) {
	const n = 5

	b, last := writeChain(t, n)
	require.Equal(t, int32(n), last)

	records, err := DecodeChain(newTestReader(t, b, 1), last)
	require.NoError(t, err)
	require.Len(t, records, n)

	for i, c := range records {
		assert.Equal(t, int32(i+1), c.Iteration, "record %d out of chronological order", i)
		assert.Equal(t, int32(i), c.Previous)
	}
}

func TestDecodeChainEmptyFile(t *testing.T) {
	rr := newTestReader(t, nil, 1)

	records, err := DecodeChain(rr, 0)
	require.NoError(t, err)
	assert.Empty(t, records)

	// template mapping files can name an entry point into a cut file that was
	// never written; that is an empty model, not an error
	records, err = DecodeChain(rr, 3)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestDecodeChainStartPastEnd(t *testing.T) {
	b, _ := writeChain(t, 2)

	records, err := DecodeChain(newTestReader(t, b, 1), 9)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestDecodeChainCycleBounded(t *testing.T) {
	tests := []struct {
		name     string
		previous [2]int32 // previous pointer of records 1 and 2
		start    int32
	}{
		{name: "self cycle", previous: [2]int32{0, 2}, start: 2},
		{name: "two cycle", previous: [2]int32{2, 1}, start: 2},
		{name: "forward pointer", previous: [2]int32{2, 1}, start: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			for _, prev := range tt.previous {
				buf.Write(EncodeCutRecord(CutRecord{Previous: prev, Coefficients: []float64{0}}))
			}

			_, err := DecodeChain(newTestReader(t, buf.Bytes(), 1), tt.start, WithMaxCuts(16))
			assert.ErrorIs(t, err, ErrChainUnbounded)
		})
	}
}

func TestDecodeChainTruncatedMidChain(t *testing.T) {
	b, last := writeChain(t, 3)

	// chop the tail of the final record so the entry point lands mid record
	records, err := DecodeChain(newTestReader(t, b[:len(b)-4], 1), last)
	assert.ErrorIs(t, err, ErrTruncatedRecord)
	assert.Nil(t, records)
}

func TestDecodeChainHonorsMaxCuts(t *testing.T) {
	b, last := writeChain(t, 8)

	_, err := DecodeChain(newTestReader(t, b, 1), last, WithMaxCuts(4))
	assert.ErrorIs(t, err, ErrChainUnbounded)

	records, err := DecodeChain(newTestReader(t, b, 1), last, WithMaxCuts(8))
	require.NoError(t, err)
	assert.Len(t, records, 8)
}

func TestRecordReaderRandomAccess(t *testing.T) {
	b, _ := writeChain(t, 3)
	rr := newTestReader(t, b, 1)

	raw, err := rr.ReadRecord(2)
	require.NoError(t, err)

	var c CutRecord
	require.NoError(t, DecodeCutRecord(&c, raw))
	assert.Equal(t, int32(2), c.Iteration)

	_, err = rr.ReadRecord(0)
	assert.ErrorIs(t, err, ErrRecordIndexZero)

	_, err = rr.ReadRecord(4)
	assert.ErrorIs(t, err, ErrRecordOutOfRange)
}

func TestRecordIteratorSequential(t *testing.T) {
	b, _ := writeChain(t, 4)

	it := newTestReader(t, b, 1).Records()

	var count int
	for {
		raw, err := it.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		require.Len(t, raw, RecordLength(1))
		count++
	}
	assert.Equal(t, 4, count)

	// exhausted iterators stay exhausted
	_, err := it.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestRecordIteratorTruncatedTail(t *testing.T) {
	b, _ := writeChain(t, 2)
	it := newTestReader(t, b[:len(b)-10], 1).Records()

	_, err := it.Next()
	require.NoError(t, err)

	_, err = it.Next()
	assert.ErrorIs(t, err, ErrTruncatedRecord)
}

func TestWriterRejectsWrongSlotCount(t *testing.T) {
	w := NewWriter(&bytes.Buffer{}, 2)
	_, err := w.Append(CutRecord{Coefficients: []float64{1}})
	assert.ErrorIs(t, err, ErrCoefficientCount)
}
