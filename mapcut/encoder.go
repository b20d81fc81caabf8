package mapcut

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

type encoderOptions struct {
	registerSize int
}

type EncoderOption func(*encoderOptions)

// WithEncodedRegisterSize overrides the register stride on the encode side.
func WithEncodedRegisterSize(n int) EncoderOption {
	return func(o *encoderOptions) {
		o.registerSize = n
	}
}

// Encode writes the four registers of m, each zero padded to the register
// stride, and returns the encoded file image.
func Encode(m *Mapcut, opts ...EncoderOption) ([]byte, error) {
	options := encoderOptions{registerSize: RegisterSize}
	for _, o := range opts {
		o(&options)
	}

	registers := [][]int32{
		encodeGeneralWords(m.General),
		encodeCaseWords(m.Case),
		m.ReservoirIDs,
		encodeStageWords(m.Stages),
	}

	b := make([]byte, 0, options.registerSize*len(registers))
	for index, fields := range registers {
		if len(fields)*WordBytes > options.registerSize {
			return nil, fmt.Errorf("%w: register %d needs %d words", ErrFieldCountBounds, index, len(fields))
		}
		register := make([]byte, options.registerSize)
		for i, v := range fields {
			binary.LittleEndian.PutUint32(register[i*WordBytes:(i+1)*WordBytes], uint32(v))
		}
		b = append(b, register...)
	}
	return b, nil
}

// Write encodes m to w.
func Write(w io.Writer, m *Mapcut, opts ...EncoderOption) error {
	b, err := Encode(m, opts...)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// WriteFile encodes m to a new file at path.
func WriteFile(path string, m *Mapcut, opts ...EncoderOption) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, m, opts...); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func encodeGeneralWords(g GeneralData) []int32 {
	fields := []int32{g.Iterations, g.TotalCuts, g.Submarkets, g.ReservoirCount, g.ScenarioCount}
	return append(fields, g.LastCut...)
}

func encodeCaseWords(c CaseData) []int32 {
	return []int32{c.RecordLength, c.StartDay, c.StartMonth, c.StartYear}
}

func encodeStageWords(s StageData) []int32 {
	fields := []int32{s.StageCount, s.WeekCount, s.DelayedReservoirs, s.MaxInflowLag}
	fields = append(fields, s.FirstNode...)
	return append(fields, s.LoadLevels...)
}
