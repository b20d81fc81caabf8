// Package fcf assembles decoded cut and mapping data into an immutable future
// cost function and evaluates it.
//
// The future cost function of a hydrothermal study is the piecewise linear
// envelope of the Benders cuts accumulated by the decomposition solver: each
// cut is an affine lower bound on the expected cost of future operation given
// the current reservoir storage, and the function value at a state is the
// maximum over all cuts. The marginal value of stored water in a reservoir is
// the active cut's coefficient for that reservoir.
package fcf

// SourceModel tags which upstream solver produced a cut set. The tag changes
// what the coefficient slots mean economically (weekly vs monthly stages,
// inflow lag terms), never how the envelope is evaluated.
type SourceModel uint8

const (
	SourceUnspecified SourceModel = iota
	// SourceMediumTerm marks cuts from the monthly/medium term planning model.
	SourceMediumTerm
	// SourceShortTerm marks cuts from the weekly/short term scheduling model.
	SourceShortTerm
)

func (s SourceModel) String() string {
	switch s {
	case SourceMediumTerm:
		return "medium-term"
	case SourceShortTerm:
		return "short-term"
	default:
		return "unspecified"
	}
}

// BendersCut is one affine piece of the future cost function.
//
// Coefficients is sparse: slots that decoded as exactly zero are omitted, and
// absent entries evaluate as zero. The two are indistinguishable to Evaluate;
// only a consumer asking "does this cut reference reservoir r" could tell the
// difference, and no such consumer exists here.
type BendersCut struct {
	// ID is the cut's 1 based chronological position, oldest first.
	ID int
	// Stage is the 1 based stage owning the cut, 0 when no stage boundary
	// information was available at build time.
	Stage int
	// RHS is the affine constant term.
	RHS float64
	// Coefficients maps reservoir identifier to the cut's slope in that
	// reservoir's storage.
	Coefficients map[int32]float64
}

// Coefficient returns the cut's slope for a reservoir, zero when the
// reservoir is absent from the sparse map.
func (c *BendersCut) Coefficient(reservoirID int32) float64 {
	return c.Coefficients[reservoirID]
}

// FCFData is a complete, queryable future cost function.
//
// It is built once from decoded inputs and never mutated afterwards, so a
// single instance may be shared read only across goroutines without
// synchronization. Callers must not modify the slices and maps reachable from
// the accessors.
type FCFData struct {
	cuts         []BendersCut
	reservoirIDs []int32
	stageCount   int
	recordLength int
	source       SourceModel
}

// CutCount returns the number of cuts, superseded ones included.
func (f *FCFData) CutCount() int {
	return len(f.cuts)
}

// Cuts returns the cuts in chronological order, oldest first.
func (f *FCFData) Cuts() []BendersCut {
	return f.cuts
}

// Cut returns the cut with the given 1 based chronological id.
func (f *FCFData) Cut(id int) (BendersCut, bool) {
	if id < 1 || id > len(f.cuts) {
		return BendersCut{}, false
	}
	return f.cuts[id-1], true
}

// ReservoirIDs returns the ordered identifier list that defined the
// coefficient slot mapping.
func (f *FCFData) ReservoirIDs() []int32 {
	return f.reservoirIDs
}

// StageCount returns the stage count the model was built with, 0 when
// unknown.
func (f *FCFData) StageCount() int {
	return f.stageCount
}

// RecordLength returns the byte stride of the cut file the model was decoded
// from.
func (f *FCFData) RecordLength() int {
	return f.recordLength
}

// Source returns the producing solver tag.
func (f *FCFData) Source() SourceModel {
	return f.source
}
