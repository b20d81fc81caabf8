package mapcut

// The mapping file is the companion header store for a cut coefficient file.
// It is laid out as a sequence of fixed size registers. Each register holds
// one logical record in its leading bytes and is zero padded to the full
// register stride; the padding carries no information and is never validated.
//
// Register 0  general data: run totals and the per scenario chain entry points
// Register 1  case data: the cut file record length and the study start date
// Register 2  the ordered reservoir identifier list
// Register 3  stage data: discretization and per stage node/load level tables
//
// All words are little endian int32. A register is located by seeking to
// registerIndex*registerSize, so the stride is the only offset arithmetic in
// the format.

const (
	// RegisterSize is the stride the upstream toolchain writes. It is a
	// property of the producing deployment, not of the algorithm, so readers
	// accept an override.
	RegisterSize = 48020

	// WordBytes is the width of every field in the mapping file.
	WordBytes = 4

	RegisterGeneral    = 0
	RegisterCase       = 1
	RegisterReservoirs = 2
	RegisterStages     = 3
)

// GeneralData is the logical record of register 0.
type GeneralData struct {
	// Iterations is the number of decomposition iterations the solver ran.
	Iterations int32
	// TotalCuts is the number of cut records written to the companion file,
	// counting superseded ones. It bounds every chain in the file.
	TotalCuts int32
	// Submarkets is the number of interconnected submarkets in the study.
	Submarkets int32
	// ReservoirCount is the number of coefficient slots per cut and must
	// match the length of the reservoir identifier list in register 2.
	ReservoirCount int32
	// ScenarioCount is the number of per scenario chain entry points.
	ScenarioCount int32
	// LastCut holds one chain entry point per scenario: the 1 based index of
	// the scenario's most recent cut in the companion file, 0 when the
	// scenario has no cuts.
	LastCut []int32
}

// CaseData is the logical record of register 1.
type CaseData struct {
	// RecordLength is the byte stride of the companion cut file. It must
	// equal the length implied by the reservoir count, which is the cross
	// file invariant the model builder checks.
	RecordLength int32

	StartDay   int32
	StartMonth int32
	StartYear  int32
}

// StageData is the logical record of register 3. It is absent in single stage
// and template files, in which case every field decodes as zero.
type StageData struct {
	StageCount int32
	WeekCount  int32
	// DelayedReservoirs counts reservoirs whose inflow is subject to water
	// travel time.
	DelayedReservoirs int32
	MaxInflowLag      int32
	// FirstNode maps each stage to the 1 based chronological position of its
	// first cut, one entry per stage.
	FirstNode []int32
	// LoadLevels is the patamar count per stage.
	LoadLevels []int32
}

// Mapcut is the fully decoded mapping file.
type Mapcut struct {
	General      GeneralData
	Case         CaseData
	ReservoirIDs []int32
	Stages       StageData
}

// LastCut returns the chain entry point for a 1 based scenario number, 0 when
// the scenario is beyond the recorded table. Templates record no scenarios at
// all and every scenario of a template resolves to the empty chain.
func (m *Mapcut) LastCut(scenario int) int32 {
	if scenario < 1 || scenario > len(m.General.LastCut) {
		return 0
	}
	return m.General.LastCut[scenario-1]
}
