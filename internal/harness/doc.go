// Package harness runs kernel scenarios on the host reference driver.
//
// A scenario names a kernels directory, declares buffers, and lists the
// flow of write, run and read steps to submit as one command group. Every
// scenario runs on a fresh host driver and provider with deterministic ids,
// so its trace and results are stable enough for golden comparison.
//
// # Scenario Format
//
//	name: copy
//	description: "Copies a float buffer through a kernel"
//	kernels: kernels
//	backend: opencl
//	buffers:
//	  - { name: input, type: float, mode: read_only, length: 4 }
//	  - { name: output, type: float, mode: write_only, length: 4 }
//	flow:
//	  - write: input
//	    data: [1, 2, 3, 4]
//	  - run: copy
//	    range: [4]
//	    args: [input, output]
//	  - read: output
//	assertions:
//	  - type: buffer_equals
//	    buffer: output
//	    values: [1, 2, 3, 4]
//
// Vector buffers take one list per element: [[1, 2], [3, 4]] for float2.
//
// # Assertion Types
//
//   - buffer_equals: the last read of a buffer matches values (within tolerance)
//   - trace_order: commands such as "run copy" completed in the given order
//   - error_code: the flow failed with the given error code, optionally at step
//   - compiles: the provider performed exactly count native compilations
package harness
