package mapcut

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

var (
	ErrTruncatedRecord  = errors.New("the file ends part way through a field word")
	ErrFieldCountBounds = errors.New("a count field exceeds the capacity of its register")
)

type decoderOptions struct {
	registerSize int64
}

type DecoderOption func(*decoderOptions)

// WithRegisterSize overrides the register stride. Deployments of the upstream
// toolchain are free to build with a different stride; everything else in the
// format is unchanged by it.
func WithRegisterSize(n int) DecoderOption {
	return func(o *decoderOptions) {
		o.registerSize = int64(n)
	}
}

// Decode reads the four registers of a mapping file from r.
//
// Files shorter than the full register sequence decode with the missing
// trailing fields as zero values. Real studies ship zero length and partially
// written template mapping files and those must decode to an empty Mapcut, so
// a short file is tolerated everywhere a whole word is simply absent. A file
// that ends part way through a word is corrupt and fails with
// ErrTruncatedRecord.
func Decode(r io.ReadSeeker, opts ...DecoderOption) (*Mapcut, error) {
	options := decoderOptions{registerSize: RegisterSize}
	for _, o := range opts {
		o(&options)
	}

	rr := registerReader{r: r, registerSize: options.registerSize}

	m := &Mapcut{}
	var err error

	b, err := rr.read(RegisterGeneral)
	if err != nil {
		return nil, err
	}
	if m.General, err = DecodeGeneral(b); err != nil {
		return nil, err
	}

	if b, err = rr.read(RegisterCase); err != nil {
		return nil, err
	}
	if m.Case, err = DecodeCase(b); err != nil {
		return nil, err
	}

	if b, err = rr.read(RegisterReservoirs); err != nil {
		return nil, err
	}
	if m.ReservoirIDs, err = DecodeReservoirIDs(b, m.General.ReservoirCount); err != nil {
		return nil, err
	}

	if b, err = rr.read(RegisterStages); err != nil {
		return nil, err
	}
	if m.Stages, err = DecodeStages(b); err != nil {
		return nil, err
	}

	return m, nil
}

// ReadFile opens, decodes and closes a mapping file.
func ReadFile(path string, opts ...DecoderOption) (*Mapcut, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := Decode(f, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// DecodeGeneral decodes the logical record of register 0 from its leading
// bytes. b may be shorter than a register, absent fields are zero.
func DecodeGeneral(b []byte) (GeneralData, error) {
	w := words{b: b}
	g := GeneralData{}

	var err error
	if g.Iterations, err = w.int32(); err != nil {
		return GeneralData{}, err
	}
	if g.TotalCuts, err = w.int32(); err != nil {
		return GeneralData{}, err
	}
	if g.Submarkets, err = w.int32(); err != nil {
		return GeneralData{}, err
	}
	if g.ReservoirCount, err = w.int32(); err != nil {
		return GeneralData{}, err
	}
	if g.ScenarioCount, err = w.int32(); err != nil {
		return GeneralData{}, err
	}
	if g.LastCut, err = w.int32s(g.ScenarioCount); err != nil {
		return GeneralData{}, err
	}
	return g, nil
}

// DecodeCase decodes the logical record of register 1.
func DecodeCase(b []byte) (CaseData, error) {
	w := words{b: b}
	c := CaseData{}

	var err error
	if c.RecordLength, err = w.int32(); err != nil {
		return CaseData{}, err
	}
	if c.StartDay, err = w.int32(); err != nil {
		return CaseData{}, err
	}
	if c.StartMonth, err = w.int32(); err != nil {
		return CaseData{}, err
	}
	if c.StartYear, err = w.int32(); err != nil {
		return CaseData{}, err
	}
	return c, nil
}

// DecodeReservoirIDs decodes register 2. The list length is not recorded in
// the register itself, it comes from the general data's reservoir count.
func DecodeReservoirIDs(b []byte, count int32) ([]int32, error) {
	w := words{b: b}
	return w.int32s(count)
}

// DecodeStages decodes the logical record of register 3.
func DecodeStages(b []byte) (StageData, error) {
	w := words{b: b}
	s := StageData{}

	var err error
	if s.StageCount, err = w.int32(); err != nil {
		return StageData{}, err
	}
	if s.WeekCount, err = w.int32(); err != nil {
		return StageData{}, err
	}
	if s.DelayedReservoirs, err = w.int32(); err != nil {
		return StageData{}, err
	}
	if s.MaxInflowLag, err = w.int32(); err != nil {
		return StageData{}, err
	}
	if s.FirstNode, err = w.int32s(s.StageCount); err != nil {
		return StageData{}, err
	}
	if s.LoadLevels, err = w.int32s(s.StageCount); err != nil {
		return StageData{}, err
	}
	return s, nil
}

// registerReader centralizes the stride arithmetic and the short file
// tolerance so register kinds can be added without duplicating either.
type registerReader struct {
	r            io.ReadSeeker
	registerSize int64
}

// read returns the bytes present for the given register index. A register
// wholly or partially beyond end of stream returns however many bytes exist,
// possibly none; the word cursor deals with what that means per field.
func (rr *registerReader) read(index int) ([]byte, error) {
	if _, err := rr.r.Seek(int64(index)*rr.registerSize, io.SeekStart); err != nil {
		return nil, err
	}

	b := make([]byte, rr.registerSize)
	n, err := io.ReadFull(rr.r, b)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, err
	}
	return b[:n], nil
}

// words is a cursor over the leading fields of a register. Reads past the
// available bytes yield zero values, matching how a fully padded register
// reads, so template and short files decode identically. A read that lands
// part way through a word is a hard error.
type words struct {
	b   []byte
	off int
}

func (w *words) int32() (int32, error) {
	if w.off >= len(w.b) {
		return 0, nil
	}
	if len(w.b)-w.off < WordBytes {
		return 0, fmt.Errorf("%w: %d bytes remain at offset %d", ErrTruncatedRecord, len(w.b)-w.off, w.off)
	}
	v := int32(binary.LittleEndian.Uint32(w.b[w.off : w.off+WordBytes]))
	w.off += WordBytes
	return v, nil
}

func (w *words) int32s(count int32) ([]int32, error) {
	if count <= 0 {
		return nil, nil
	}
	// A count field naming more words than its register can carry is corrupt
	// header data, not a short file. Short files still bound against the
	// default stride so a truncated register cannot smuggle a huge count.
	capWords := len(w.b) / WordBytes
	if capWords < RegisterSize/WordBytes {
		capWords = RegisterSize / WordBytes
	}
	if int(count) > capWords {
		return nil, fmt.Errorf("%w: %d words requested", ErrFieldCountBounds, count)
	}
	vs := make([]int32, count)
	for i := range vs {
		v, err := w.int32()
		if err != nil {
			return nil, err
		}
		vs[i] = v
	}
	return vs, nil
}
