package cutfile

// Cut coefficient files are a flat concatenation of fixed length records with
// no separators or file header. Record k (1 based) occupies the byte range
// [(k-1)*R, k*R). Every record in a file shares the same length
//
//	R = HeaderBytes + ValueBytes*(1+C)
//
// where C is the number of coefficient slots. C is fixed by the producing
// study configuration and is not recorded in the cut file itself; it is
// recovered from the record length declared in the companion mapping file, or
// supplied directly by the caller.
//
// The records form a backward linked list. Each record names the index of the
// chronologically preceding cut, with 0 terminating the chain. Superseded
// cuts are never physically deleted, slots are reused through the chain.

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

const (
	// CutRecord layout
	//
	// .     | previous | iteration | forward | deactivated |  rhs  | coefficients |
	// .     | 0      3 | 4       7 | 8    11 | 12       15 | 16 23 | 24  24+8C-1  |
	// bytes |    4     |     4     |    4    |      4      |   8   |     8*C      |
	//
	// All fields are little endian regardless of host platform. The files are
	// produced by a fixed upstream toolchain and are not host portable formats.

	PreviousFirstByte = 0
	PreviousSize      = 4
	PreviousEnd       = PreviousFirstByte + PreviousSize

	IterationFirstByte = PreviousEnd
	IterationSize      = 4
	IterationEnd       = IterationFirstByte + IterationSize

	ForwardFirstByte = IterationEnd
	ForwardSize      = 4
	ForwardEnd       = ForwardFirstByte + ForwardSize

	DeactivatedFirstByte = ForwardEnd
	DeactivatedSize      = 4
	DeactivatedEnd       = DeactivatedFirstByte + DeactivatedSize

	// HeaderBytes covers the four bookkeeping integers that lead every record.
	HeaderBytes = DeactivatedEnd

	// ValueBytes is the width of the rhs and of each coefficient slot.
	ValueBytes = 8

	RHSFirstByte          = HeaderBytes
	RHSEnd                = RHSFirstByte + ValueBytes
	CoefficientsFirstByte = RHSEnd
)

var (
	ErrRecordLengthInvalid = errors.New("record length does not satisfy the fixed cut record layout")
	ErrCoefficientCount    = errors.New("coefficient count does not match the record length")
	ErrTruncatedRecord     = errors.New("fewer bytes available than the fixed record length")
)

// CutRecord is the decoded form of a single on disk cut register. The header
// integers are solver bookkeeping and are opaque to evaluation.
type CutRecord struct {
	// Previous is the 1 based index of the chronologically preceding cut, 0
	// when this record terminates the chain.
	Previous int32
	// Iteration is the decomposition iteration that constructed the cut.
	Iteration int32
	// ForwardIndex identifies the forward pass scenario the cut was built on.
	ForwardIndex int32
	// DeactivatedAt is 0 while the cut is active, otherwise the iteration at
	// which the cut was superseded. Superseded records remain on disk.
	DeactivatedAt int32

	RHS          float64
	Coefficients []float64
}

// Active returns true while the record has not been superseded by the solver.
func (c CutRecord) Active() bool {
	return c.DeactivatedAt == 0
}

// RecordLength returns the record length R implied by a coefficient count.
func RecordLength(coefficientCount int) int {
	return HeaderBytes + ValueBytes*(1+coefficientCount)
}

// CoefficientCount recovers C from a declared record length. Lengths that do
// not satisfy R = HeaderBytes + ValueBytes*(1+C) for some C >= 0 are a
// configuration error, not a per record one.
func CoefficientCount(recordLength int) (int, error) {
	payload := recordLength - HeaderBytes - ValueBytes
	if payload < 0 || payload%ValueBytes != 0 {
		return 0, fmt.Errorf("%w: %d", ErrRecordLengthInvalid, recordLength)
	}
	return payload / ValueBytes, nil
}

// EncodeCutRecord encodes the record in the prescribed on disk layout. The
// record length follows from the coefficient count.
func EncodeCutRecord(c CutRecord) []byte {
	b := make([]byte, RecordLength(len(c.Coefficients)))
	binary.LittleEndian.PutUint32(b[PreviousFirstByte:PreviousEnd], uint32(c.Previous))
	binary.LittleEndian.PutUint32(b[IterationFirstByte:IterationEnd], uint32(c.Iteration))
	binary.LittleEndian.PutUint32(b[ForwardFirstByte:ForwardEnd], uint32(c.ForwardIndex))
	binary.LittleEndian.PutUint32(b[DeactivatedFirstByte:DeactivatedEnd], uint32(c.DeactivatedAt))
	binary.LittleEndian.PutUint64(b[RHSFirstByte:RHSEnd], math.Float64bits(c.RHS))
	for i, v := range c.Coefficients {
		off := CoefficientsFirstByte + i*ValueBytes
		binary.LittleEndian.PutUint64(b[off:off+ValueBytes], math.Float64bits(v))
	}
	return b
}

// DecodeCutRecord decodes a full record buffer. The coefficient count is
// derived from len(b), so b must be sliced to exactly one record.
func DecodeCutRecord(c *CutRecord, b []byte) error {
	coefficientCount, err := CoefficientCount(len(b))
	if err != nil {
		return err
	}

	c.Previous = int32(binary.LittleEndian.Uint32(b[PreviousFirstByte:PreviousEnd]))
	c.Iteration = int32(binary.LittleEndian.Uint32(b[IterationFirstByte:IterationEnd]))
	c.ForwardIndex = int32(binary.LittleEndian.Uint32(b[ForwardFirstByte:ForwardEnd]))
	c.DeactivatedAt = int32(binary.LittleEndian.Uint32(b[DeactivatedFirstByte:DeactivatedEnd]))
	c.RHS = math.Float64frombits(binary.LittleEndian.Uint64(b[RHSFirstByte:RHSEnd]))

	c.Coefficients = make([]float64, coefficientCount)
	for i := range c.Coefficients {
		off := CoefficientsFirstByte + i*ValueBytes
		c.Coefficients[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[off : off+ValueBytes]))
	}
	return nil
}

func (c CutRecord) MarshalBinary() ([]byte, error) {
	return EncodeCutRecord(c), nil
}

func (c *CutRecord) UnmarshalBinary(b []byte) error {
	return DecodeCutRecord(c, b)
}

// FilterActive returns the records whose deactivation iteration is zero,
// preserving chronological order. Decoding never drops superseded records, so
// callers that only want the live envelope apply this afterwards.
func FilterActive(records []CutRecord) []CutRecord {
	var active []CutRecord
	for _, c := range records {
		if c.Active() {
			active = append(active, c)
		}
	}
	return active
}
