// Package query turns a kernel description into ir.Kernel.
//
// Two front ends exist. Builder constructs the body programmatically from typed
// handles:
//
//	b := query.New("scale", ir.Dims1)
//	in := b.Buffer("input", ir.Float)
//	out := b.Buffer("output", ir.Float)
//	r := b.Range()
//	b.Assign(out.At(r.Current()), query.Mul(in.At(r.Current()), query.F32(2)))
//	k, err := b.Build()
//
// Parse lowers Go statement text such as "output[r] = input[r] * 2.0" through
// go/parser. Only the range identifier yields coordinates (r, r.Current,
// r.CurrentX, r.CurrentY, r.CurrentZ); only declared parameters may be indexed.
package query
