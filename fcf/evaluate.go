package fcf

// NoActiveCut is the active cut id Evaluate reports for a model with no cuts.
// Real cut ids are 1 based so 0 is never a valid id.
const NoActiveCut = 0

// Evaluate returns the future cost at the given storage state and the id of
// the cut achieving it.
//
// state maps reservoir identifier to a storage level. Reservoirs a cut prices
// but the state omits contribute zero, as do reservoirs the state prices but
// the model never saw; neither is an error. When several cuts achieve the
// identical maximum the chronologically first one wins, so the result is
// deterministic for any state. A model with zero cuts evaluates to
// (0, NoActiveCut).
func (f *FCFData) Evaluate(state map[int32]float64) (float64, int) {
	best, bestID := 0.0, NoActiveCut

	for i := range f.cuts {
		v := f.cutValue(&f.cuts[i], state)
		if bestID == NoActiveCut || v > best {
			best, bestID = v, f.cuts[i].ID
		}
	}
	return best, bestID
}

// cutValue computes rhs + sum(coefficient*storage). The sum runs over the
// ordered reservoir identifier list rather than the sparse map so that the
// floating point accumulation order, and with it the exact result, is the
// same on every call.
func (f *FCFData) cutValue(cut *BendersCut, state map[int32]float64) float64 {
	v := cut.RHS
	for _, id := range f.reservoirIDs {
		coefficient, ok := cut.Coefficients[id]
		if !ok {
			continue
		}
		v += coefficient * state[id]
	}
	return v
}

// WaterValue returns the marginal value of stored volume in one reservoir at
// the given state: the active cut's coefficient for that reservoir, zero when
// the active cut does not price it or the model has no cuts.
func (f *FCFData) WaterValue(state map[int32]float64, reservoirID int32) float64 {
	_, activeID := f.Evaluate(state)
	if activeID == NoActiveCut {
		return 0
	}
	return f.cuts[activeID-1].Coefficient(reservoirID)
}

// WaterValues returns the marginal value for every reservoir identifier known
// to the model. The active cut is resolved once, so all returned values are
// consistent with a single evaluation even under exact ties.
func (f *FCFData) WaterValues(state map[int32]float64) map[int32]float64 {
	values := make(map[int32]float64, len(f.reservoirIDs))

	_, activeID := f.Evaluate(state)
	if activeID == NoActiveCut {
		for _, id := range f.reservoirIDs {
			values[id] = 0
		}
		return values
	}

	cut := &f.cuts[activeID-1]
	for _, id := range f.reservoirIDs {
		values[id] = cut.Coefficient(id)
	}
	return values
}
