// Package cutfile decodes and encodes the binary cut coefficient store
// written by hydrothermal dispatch decomposition solvers.
//
// The file is an append only arena of fixed length records, each holding one
// Benders cut: four bookkeeping integers, the affine constant term, and one
// slope per tracked reservoir. Records are threaded into per scenario
// backward chains through their previous pointers; DecodeChain recovers a
// chain in chronological order with a hard traversal bound so corrupt
// pointer loops terminate instead of spinning.
//
// The package knows nothing about reservoir identities. Mapping coefficient
// slots onto reservoirs is the fcf package's job, using the companion mapping
// file decoded by package mapcut.
package cutfile
