// Package ir provides the backend-independent kernel intermediate representation.
//
// A Kernel is a range dimensionality, an ordered list of buffer parameters and a
// body: an ordered sequence of Store statements (the result aggregate). Every
// expression is one of a small sealed set of node kinds:
//
//	Coord    - the invocation coordinate (linear index) or one of its X/Y/Z components
//	Load     - buffer[index] in read position
//	Binary   - arithmetic or comparison over two sub-expressions
//	Negate   - arithmetic negation
//	Member   - vector component access (.X/.Y/.Z/.W) on a value
//	Literal  - a typed constant
//
// Parameters are referenced by index, never by pointer identity or name. This keeps
// the structural program key (see Key) independent of how a kernel was built, so two
// independently constructed kernels with the same shape share one compiled program.
//
// This package imports nothing internal. Front ends (internal/query) produce IR,
// backends (internal/backend/...) consume it, and the host driver interprets it.
//
// Key design constraints:
//   - Translation-time failures are *TranslationError values with a Code
//   - TypeOf is the single source of truth for expression typing; every backend
//     and the host interpreter use it
//   - Canonical encoding never contains floats; float literals are encoded by bit pattern
package ir
