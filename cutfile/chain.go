package cutfile

import (
	"errors"
	"fmt"
)

// MaxChainLength bounds a single backward chain traversal. The previous
// pointers in a healthy file always reach 0 well before this, the bound exists
// so that a corrupted or cyclic pointer chain terminates with an error instead
// of looping forever.
const MaxChainLength = 1 << 20

var ErrChainUnbounded = errors.New("cut chain traversal exceeded the bound without reaching the terminator")

type chainOptions struct {
	maxCuts int64
}

type ChainOption func(*chainOptions)

// WithMaxCuts overrides the chain traversal safety bound. It is typically set
// from the mapping file's total cut count, which is the tightest bound a well
// formed chain can have.
func WithMaxCuts(n int64) ChainOption {
	return func(o *chainOptions) {
		o.maxCuts = n
	}
}

// DecodeChain walks the backward linked list starting at record index start
// and returns the decoded records in chronological order, oldest first.
//
// start is the "last cut" entry point recorded per scenario in the mapping
// file. A start of 0, an empty stream, or a start immediately past end of
// stream all yield an empty result: placeholder studies ship zero cut
// template files and those must decode cleanly. Pointers that run past end of
// stream mid chain are structural corruption and fail with the underlying
// read error.
func DecodeChain(rr *RecordReader, start int32, opts ...ChainOption) ([]CutRecord, error) {
	options := chainOptions{maxCuts: MaxChainLength}
	for _, o := range opts {
		o(&options)
	}

	var records []CutRecord

	next := start
	for next != 0 {
		if int64(len(records)) >= options.maxCuts {
			return nil, fmt.Errorf("%w: started at %d, still chained after %d records",
				ErrChainUnbounded, start, options.maxCuts)
		}

		b, err := rr.ReadRecord(int64(next))
		if err != nil {
			// Template files are written with the header pointers already in
			// place but no cut records behind them.
			if next == start && errors.Is(err, ErrRecordOutOfRange) {
				return nil, nil
			}
			return nil, err
		}

		var c CutRecord
		if err := DecodeCutRecord(&c, b); err != nil {
			return nil, err
		}
		records = append(records, c)
		next = c.Previous
	}

	reverse(records)
	return records, nil
}

func reverse(records []CutRecord) {
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
}
