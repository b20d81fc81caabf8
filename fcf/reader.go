package fcf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hydrosim/go-fcf/cutfile"
	"github.com/hydrosim/go-fcf/mapcut"
)

// Opener abstracts where case files are read from so that studies archived in
// object storage decode exactly like local ones. Implementations return the
// complete byte stream of one file; decoding happens over an in memory copy.
type Opener interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// FileOpener reads case files from the local filesystem.
type FileOpener struct{}

func (FileOpener) Open(_ context.Context, name string) (io.ReadCloser, error) {
	return os.Open(name)
}

// ReaderOptions configures a CaseReader. Option values apply to every read
// unless overridden per call.
type ReaderOptions struct {
	registerSize int
	recordLength int
	maxCuts      int64
	scenario     int
	reservoirIDs []int32
	stageFirst   []int32
	source       SourceModel
	activeOnly   bool
}

type ReaderOption func(*ReaderOptions)

// NewReaderOptions applies opts over a copy of baseOpts.
func NewReaderOptions(baseOpts ReaderOptions, opts ...ReaderOption) ReaderOptions {
	options := baseOpts
	options.reservoirIDs = append([]int32(nil), baseOpts.reservoirIDs...)
	options.stageFirst = append([]int32(nil), baseOpts.stageFirst...)
	for _, o := range opts {
		o(&options)
	}
	return options
}

// WithRegisterSize overrides the mapping file register stride.
func WithRegisterSize(n int) ReaderOption {
	return func(o *ReaderOptions) {
		o.registerSize = n
	}
}

// WithRecordLength overrides the cut file record length instead of taking it
// from the mapping file's case data.
func WithRecordLength(n int) ReaderOption {
	return func(o *ReaderOptions) {
		o.recordLength = n
	}
}

// WithMaxCuts overrides the chain traversal bound instead of taking it from
// the mapping file's total cut count.
func WithMaxCuts(n int64) ReaderOption {
	return func(o *ReaderOptions) {
		o.maxCuts = n
	}
}

// WithScenario selects which scenario's chain entry point to traverse.
// Scenarios are numbered from 1, matching the solver's forward pass indexing.
func WithScenario(scenario int) ReaderOption {
	return func(o *ReaderOptions) {
		o.scenario = scenario
	}
}

// WithReservoirIDs supplies the ordered reservoir identifier list from an
// external source, typically the study's text format registries, instead of
// the mapping file's register 2. This is the cross validation path: the list
// still has to agree with the cut file record length.
func WithReservoirIDs(ids []int32) ReaderOption {
	return func(o *ReaderOptions) {
		o.reservoirIDs = ids
	}
}

// WithStageFirstCuts supplies the per stage first cut positions from an
// external source instead of the mapping file's stage data register.
func WithStageFirstCuts(firstCuts []int32) ReaderOption {
	return func(o *ReaderOptions) {
		o.stageFirst = firstCuts
	}
}

// WithSourceModel tags the resulting models with the producing solver.
func WithSourceModel(source SourceModel) ReaderOption {
	return func(o *ReaderOptions) {
		o.source = source
	}
}

// WithActiveCutsOnly drops superseded cuts before the model is built.
func WithActiveCutsOnly() ReaderOption {
	return func(o *ReaderOptions) {
		o.activeOnly = true
	}
}

// CaseReader reads the mapping and cut coefficient files of one study case
// and assembles them into future cost functions.
//
// The reader holds no file handles between calls; each read opens, drains and
// closes its sources through the configured Opener.
type CaseReader struct {
	log    *zap.Logger
	opener Opener
	opts   ReaderOptions
}

// NewCaseReader creates a reader using the provided opener, or local files
// when opener is nil. log may be nil for silent operation.
func NewCaseReader(log *zap.Logger, opener Opener, opts ...ReaderOption) (CaseReader, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if opener == nil {
		opener = FileOpener{}
	}
	r := CaseReader{
		log:    log,
		opener: opener,
		opts:   NewReaderOptions(ReaderOptions{}, opts...),
	}
	return r, nil
}

// ReadMapcut decodes only the mapping file.
func (r *CaseReader) ReadMapcut(ctx context.Context, mapcutName string, opts ...ReaderOption) (*mapcut.Mapcut, error) {
	options := NewReaderOptions(r.opts, opts...)
	return r.readMapcut(ctx, mapcutName, options)
}

// ReadFCF decodes the mapping and cut files and builds the future cost
// function for one scenario (scenario 1 unless WithScenario says otherwise).
//
// The two files carry redundant layout information and ReadFCF validates it
// before touching any cut payload: the mapping file's declared record length
// must match the length implied by the reservoir identifier list. All
// violations are reported together.
func (r *CaseReader) ReadFCF(ctx context.Context, mapcutName, cutsName string, opts ...ReaderOption) (*FCFData, error) {
	options := NewReaderOptions(r.opts, opts...)
	if options.scenario == 0 {
		options.scenario = 1
	}

	m, err := r.readMapcut(ctx, mapcutName, options)
	if err != nil {
		return nil, err
	}

	reservoirIDs := options.reservoirIDs
	if reservoirIDs == nil {
		reservoirIDs = m.ReservoirIDs
	}

	recordLength, err := resolveRecordLength(options, m, reservoirIDs)
	if err != nil {
		return nil, fmt.Errorf("%s, %s: %w", mapcutName, cutsName, err)
	}

	records, err := r.readChain(ctx, cutsName, m, recordLength, options)
	if err != nil {
		return nil, err
	}
	if options.activeOnly {
		records = cutfile.FilterActive(records)
	}

	stageFirst := options.stageFirst
	if stageFirst == nil {
		stageFirst = m.Stages.FirstNode
	}

	f, err := NewFCFData(records, reservoirIDs,
		WithSource(options.source),
		WithStageBoundaries(stageFirst),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cutsName, err)
	}

	r.log.Debug("future cost function assembled",
		zap.String("mapcut", mapcutName),
		zap.String("cuts", cutsName),
		zap.Int("scenario", options.scenario),
		zap.Int("cutCount", f.CutCount()),
		zap.Int("reservoirs", len(reservoirIDs)),
	)
	return f, nil
}

func (r *CaseReader) readMapcut(ctx context.Context, name string, options ReaderOptions) (*mapcut.Mapcut, error) {
	b, err := r.readAll(ctx, name)
	if err != nil {
		return nil, err
	}

	var mapcutOpts []mapcut.DecoderOption
	if options.registerSize != 0 {
		mapcutOpts = append(mapcutOpts, mapcut.WithRegisterSize(options.registerSize))
	}

	m, err := mapcut.Decode(bytes.NewReader(b), mapcutOpts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return m, nil
}

func (r *CaseReader) readChain(ctx context.Context, cutsName string, m *mapcut.Mapcut, recordLength int, options ReaderOptions) ([]cutfile.CutRecord, error) {
	b, err := r.readAll(ctx, cutsName)
	if err != nil {
		return nil, err
	}

	rr, err := cutfile.NewRecordReader(bytes.NewReader(b), cutsName, recordLength)
	if err != nil {
		return nil, err
	}

	maxCuts := options.maxCuts
	if maxCuts == 0 && m.General.TotalCuts > 0 {
		maxCuts = int64(m.General.TotalCuts)
	}
	if maxCuts == 0 {
		maxCuts = cutfile.MaxChainLength
	}

	start := m.LastCut(options.scenario)
	records, err := cutfile.DecodeChain(rr, start, cutfile.WithMaxCuts(maxCuts))
	if err != nil {
		return nil, err
	}

	r.log.Debug("cut chain decoded",
		zap.String("cuts", cutsName),
		zap.Int("scenario", options.scenario),
		zap.Int32("start", start),
		zap.Int("records", len(records)),
	)
	return records, nil
}

// resolveRecordLength settles the cut file stride from, in priority order,
// the caller override, the mapping file's case data, and the reservoir list
// itself, and checks that whatever sources are present agree.
func resolveRecordLength(options ReaderOptions, m *mapcut.Mapcut, reservoirIDs []int32) (int, error) {
	derived := cutfile.RecordLength(len(reservoirIDs))

	recordLength := options.recordLength
	if recordLength == 0 {
		recordLength = int(m.Case.RecordLength)
	}
	if recordLength == 0 {
		// Template mapping files declare no record length at all; the
		// reservoir list is then the only source.
		recordLength = derived
	}

	var err error
	if _, lengthErr := cutfile.CoefficientCount(recordLength); lengthErr != nil {
		err = multierr.Append(err, lengthErr)
	} else if recordLength != derived {
		err = multierr.Append(err, fmt.Errorf("%w: record length %d implies %d slots, reservoir list has %d",
			ErrInconsistentLayout, recordLength, (recordLength-cutfile.HeaderBytes)/cutfile.ValueBytes-1, len(reservoirIDs)))
	}
	if m.General.ReservoirCount != 0 && int(m.General.ReservoirCount) != len(reservoirIDs) {
		err = multierr.Append(err, fmt.Errorf("%w: general data counts %d reservoirs, identifier list has %d",
			ErrInconsistentLayout, m.General.ReservoirCount, len(reservoirIDs)))
	}
	if err != nil {
		return 0, err
	}
	return recordLength, nil
}

func (r *CaseReader) readAll(ctx context.Context, name string) ([]byte, error) {
	f, err := r.opener.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	b, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return b, nil
}
