package fcf

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/hydrosim/go-fcf/cutfile"
	"github.com/hydrosim/go-fcf/mapcut"
)

// writeCase encodes a mapping file and a cut file into dir and returns their
// paths. records are written verbatim, so callers control the chain pointers.
func writeCase(t *testing.T, dir string, m *mapcut.Mapcut, records []cutfile.CutRecord) (string, string) {
	t.Helper()

	mapcutPath := filepath.Join(dir, "mapcut.bin")
	require.NoError(t, mapcut.WriteFile(mapcutPath, m))

	var encoded []byte
	for _, c := range records {
		encoded = append(encoded, cutfile.EncodeCutRecord(c)...)
	}
	cutsPath := filepath.Join(dir, "cortes.bin")
	require.NoError(t, os.WriteFile(cutsPath, encoded, 0o644))

	return mapcutPath, cutsPath
}

func newTestCaseReader(t *testing.T, opts ...ReaderOption) CaseReader {
	t.Helper()
	r, err := NewCaseReader(zaptest.NewLogger(t), nil, opts...)
	require.NoError(t, err)
	return r
}

func referenceMapcut() *mapcut.Mapcut {
	return &mapcut.Mapcut{
		General: mapcut.GeneralData{
			Iterations:     2,
			TotalCuts:      2,
			Submarkets:     1,
			ReservoirCount: 3,
			ScenarioCount:  1,
			LastCut:        []int32{2},
		},
		Case: mapcut.CaseData{
			RecordLength: 48,
			StartDay:     1,
			StartMonth:   1,
			StartYear:    2024,
		},
		ReservoirIDs: []int32{1, 6, 14},
	}
}

func referenceRecords() []cutfile.CutRecord {
	return []cutfile.CutRecord{
		{Previous: 0, Iteration: 1, RHS: 5000, Coefficients: []float64{-10, -20, -30}},
		{Previous: 1, Iteration: 2, RHS: 3000, Coefficients: []float64{-5, -15, -25}},
	}
}

func TestReadFCFReferenceCase(t *testing.T) {
	mapcutPath, cutsPath := writeCase(t, t.TempDir(), referenceMapcut(), referenceRecords())

	r := newTestCaseReader(t)
	f, err := r.ReadFCF(context.Background(), mapcutPath, cutsPath)
	require.NoError(t, err)
	require.Equal(t, 2, f.CutCount())
	assert.Equal(t, []int32{1, 6, 14}, f.ReservoirIDs())
	assert.Equal(t, 48, f.RecordLength())

	state := map[int32]float64{1: 50, 6: 30, 14: 40}
	value, activeID := f.Evaluate(state)
	assert.Equal(t, 2700.0, value)
	assert.Equal(t, 1, activeID)
	assert.Equal(t, -10.0, f.WaterValue(state, 1))
}

func TestReadFCFIdempotent(t *testing.T) {
	mapcutPath, cutsPath := writeCase(t, t.TempDir(), referenceMapcut(), referenceRecords())
	r := newTestCaseReader(t)

	first, err := r.ReadFCF(context.Background(), mapcutPath, cutsPath)
	require.NoError(t, err)
	second, err := r.ReadFCF(context.Background(), mapcutPath, cutsPath)
	require.NoError(t, err)

	states := []map[int32]float64{
		nil,
		{1: 50, 6: 30, 14: 40},
		{1: 0.25, 14: 1e6},
	}
	for _, state := range states {
		v1, id1 := first.Evaluate(state)
		v2, id2 := second.Evaluate(state)
		assert.Equal(t, v1, v2)
		assert.Equal(t, id1, id2)
	}
}

func TestReadFCFScenarioSelection(t *testing.T) {
	// two interleaved chains: scenario 1 owns records 1 and 3, scenario 2
	// owns records 2 and 4
	records := []cutfile.CutRecord{
		{Previous: 0, Iteration: 1, RHS: 100, Coefficients: []float64{-1, -1, -1}},
		{Previous: 0, Iteration: 1, RHS: 200, Coefficients: []float64{-2, -2, -2}},
		{Previous: 1, Iteration: 2, RHS: 110, Coefficients: []float64{-1, -1, -1}},
		{Previous: 2, Iteration: 2, RHS: 220, Coefficients: []float64{-2, -2, -2}},
	}
	m := referenceMapcut()
	m.General.TotalCuts = 4
	m.General.ScenarioCount = 2
	m.General.LastCut = []int32{3, 4}

	mapcutPath, cutsPath := writeCase(t, t.TempDir(), m, records)
	r := newTestCaseReader(t)

	f1, err := r.ReadFCF(context.Background(), mapcutPath, cutsPath, WithScenario(1))
	require.NoError(t, err)
	require.Equal(t, 2, f1.CutCount())
	value, _ := f1.Evaluate(nil)
	assert.Equal(t, 110.0, value)

	f2, err := r.ReadFCF(context.Background(), mapcutPath, cutsPath, WithScenario(2))
	require.NoError(t, err)
	require.Equal(t, 2, f2.CutCount())
	value, _ = f2.Evaluate(nil)
	assert.Equal(t, 220.0, value)

	// a scenario beyond the table has no chain and no cuts
	f9, err := r.ReadFCF(context.Background(), mapcutPath, cutsPath, WithScenario(9))
	require.NoError(t, err)
	assert.Equal(t, 0, f9.CutCount())
}

func TestReadFCFEmptyTemplateCase(t *testing.T) {
	dir := t.TempDir()
	mapcutPath := filepath.Join(dir, "mapcut.bin")
	cutsPath := filepath.Join(dir, "cortes.bin")
	require.NoError(t, os.WriteFile(mapcutPath, nil, 0o644))
	require.NoError(t, os.WriteFile(cutsPath, nil, 0o644))

	r := newTestCaseReader(t)
	f, err := r.ReadFCF(context.Background(), mapcutPath, cutsPath)
	require.NoError(t, err)

	assert.Equal(t, 0, f.CutCount())
	value, activeID := f.Evaluate(map[int32]float64{1: 100})
	assert.Equal(t, 0.0, value)
	assert.Equal(t, NoActiveCut, activeID)
}

func TestReadFCFInconsistentRecordLength(t *testing.T) {
	m := referenceMapcut()
	m.Case.RecordLength = 56 // four slots declared, three reservoirs listed

	mapcutPath, cutsPath := writeCase(t, t.TempDir(), m, referenceRecords())
	r := newTestCaseReader(t)

	_, err := r.ReadFCF(context.Background(), mapcutPath, cutsPath)
	assert.ErrorIs(t, err, ErrInconsistentLayout)
}

func TestReadFCFInvalidRecordLength(t *testing.T) {
	m := referenceMapcut()
	m.Case.RecordLength = 50 // not a valid layout for any slot count

	mapcutPath, cutsPath := writeCase(t, t.TempDir(), m, referenceRecords())
	r := newTestCaseReader(t)

	_, err := r.ReadFCF(context.Background(), mapcutPath, cutsPath)
	assert.ErrorIs(t, err, cutfile.ErrRecordLengthInvalid)
}

func TestReadFCFReservoirIDOverride(t *testing.T) {
	// the external registry disagrees with the mapping file list; the
	// override wins and the coefficients re key onto the supplied ids
	mapcutPath, cutsPath := writeCase(t, t.TempDir(), referenceMapcut(), referenceRecords())
	r := newTestCaseReader(t)

	f, err := r.ReadFCF(context.Background(), mapcutPath, cutsPath, WithReservoirIDs([]int32{2, 7, 15}))
	require.NoError(t, err)
	assert.Equal(t, []int32{2, 7, 15}, f.ReservoirIDs())
	assert.Equal(t, -10.0, f.WaterValue(nil, 2))
	assert.Equal(t, 0.0, f.WaterValue(nil, 1))
}

func TestReadFCFReservoirCountMismatchWithOverride(t *testing.T) {
	mapcutPath, cutsPath := writeCase(t, t.TempDir(), referenceMapcut(), referenceRecords())
	r := newTestCaseReader(t)

	_, err := r.ReadFCF(context.Background(), mapcutPath, cutsPath,
		WithReservoirIDs([]int32{2, 7}), WithRecordLength(cutfile.RecordLength(2)))
	assert.ErrorIs(t, err, ErrInconsistentLayout)
}

func TestReadFCFStageFirstCutsOverride(t *testing.T) {
	mapcutPath, cutsPath := writeCase(t, t.TempDir(), referenceMapcut(), referenceRecords())
	r := newTestCaseReader(t)

	f, err := r.ReadFCF(context.Background(), mapcutPath, cutsPath, WithStageFirstCuts([]int32{1, 2}))
	require.NoError(t, err)
	require.Equal(t, 2, f.StageCount())

	cut, _ := f.Cut(1)
	assert.Equal(t, 1, cut.Stage)
	cut, _ = f.Cut(2)
	assert.Equal(t, 2, cut.Stage)
}

func TestReadFCFActiveCutsOnly(t *testing.T) {
	records := referenceRecords()
	records[0].DeactivatedAt = 2 // the steep cut was superseded

	mapcutPath, cutsPath := writeCase(t, t.TempDir(), referenceMapcut(), records)
	r := newTestCaseReader(t)

	f, err := r.ReadFCF(context.Background(), mapcutPath, cutsPath, WithActiveCutsOnly())
	require.NoError(t, err)
	require.Equal(t, 1, f.CutCount())

	value, activeID := f.Evaluate(nil)
	assert.Equal(t, 3000.0, value)
	assert.Equal(t, 1, activeID)
}

func TestReadFCFCorruptChain(t *testing.T) {
	records := referenceRecords()
	records[1].Previous = 2 // self referencing entry point

	m := referenceMapcut()
	mapcutPath, cutsPath := writeCase(t, t.TempDir(), m, records)
	r := newTestCaseReader(t)

	_, err := r.ReadFCF(context.Background(), mapcutPath, cutsPath)
	assert.ErrorIs(t, err, cutfile.ErrChainUnbounded)
}

func TestReadMapcut(t *testing.T) {
	m := referenceMapcut()
	mapcutPath, _ := writeCase(t, t.TempDir(), m, nil)

	r := newTestCaseReader(t)
	got, err := r.ReadMapcut(context.Background(), mapcutPath)
	require.NoError(t, err)
	assert.Equal(t, m.General, got.General)
	assert.Equal(t, m.ReservoirIDs, got.ReservoirIDs)
}
