package fcf

import (
	"errors"
	"fmt"

	"github.com/hydrosim/go-fcf/cutfile"
)

var ErrInconsistentLayout = errors.New("cut coefficient slots disagree with the reservoir identifier list")

type builderOptions struct {
	source         SourceModel
	stageCount     int
	stageFirstCuts []int32
}

type BuilderOption func(*builderOptions)

// WithSource tags the model with the producing solver.
func WithSource(source SourceModel) BuilderOption {
	return func(o *builderOptions) {
		o.source = source
	}
}

// WithStageBoundaries supplies the per stage first cut positions from the
// mapping file's stage data, enabling stage assignment. firstCuts[s] is the 1
// based chronological position of the first cut belonging to stage s+1.
func WithStageBoundaries(firstCuts []int32) BuilderOption {
	return func(o *builderOptions) {
		o.stageFirstCuts = firstCuts
		o.stageCount = len(firstCuts)
	}
}

// NewFCFData builds the future cost function from chronologically ordered
// decoded records and the ordered reservoir identifier list.
//
// Coefficient slot i of every record corresponds to reservoirIDs[i]. A record
// whose slot count disagrees with the identifier list fails the whole build
// with ErrInconsistentLayout: the two inputs come from companion files and a
// mismatch means the files do not belong together.
//
// Slots that decode as exactly zero are left out of the sparse coefficient
// maps. Template files carry all zero cuts, and dropping the zeros makes
// those models weightless without changing any evaluation result.
func NewFCFData(records []cutfile.CutRecord, reservoirIDs []int32, opts ...BuilderOption) (*FCFData, error) {
	options := builderOptions{}
	for _, o := range opts {
		o(&options)
	}

	f := &FCFData{
		cuts:         make([]BendersCut, 0, len(records)),
		reservoirIDs: reservoirIDs,
		stageCount:   options.stageCount,
		recordLength: cutfile.RecordLength(len(reservoirIDs)),
		source:       options.source,
	}

	for i, rec := range records {
		if len(rec.Coefficients) != len(reservoirIDs) {
			return nil, fmt.Errorf("%w: record %d has %d slots, %d reservoir ids",
				ErrInconsistentLayout, i+1, len(rec.Coefficients), len(reservoirIDs))
		}

		cut := BendersCut{
			ID:           i + 1,
			Stage:        stageForPosition(i+1, options.stageFirstCuts),
			RHS:          rec.RHS,
			Coefficients: make(map[int32]float64, len(rec.Coefficients)),
		}
		for slot, v := range rec.Coefficients {
			if v == 0 {
				continue
			}
			cut.Coefficients[reservoirIDs[slot]] = v
		}
		f.cuts = append(f.cuts, cut)
	}

	return f, nil
}

// stageForPosition maps a 1 based chronological cut position onto the stage
// whose first cut range contains it. Positions before the first boundary, and
// all positions when no boundaries were supplied, belong to no stage.
func stageForPosition(position int, firstCuts []int32) int {
	stage := 0
	for s, first := range firstCuts {
		if first == 0 || int32(position) < first {
			break
		}
		stage = s + 1
	}
	return stage
}
