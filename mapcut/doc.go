// Package mapcut decodes and encodes the mapping file that accompanies a cut
// coefficient store.
//
// The mapping file carries the bookkeeping the cut file itself omits: run
// totals, the per scenario chain entry points, the cut record length, the
// ordered reservoir identifier list that gives the coefficient slots their
// meaning, and the stage discretization. It is laid out as fixed size, zero
// padded registers, and short or empty template files decode to zero values
// rather than errors.
package mapcut
