// Package compute is the execution runtime: providers, typed buffers,
// kernels and command queues over a native driver.
//
// A Provider owns one native context and an in-memory cache of compiled
// programs keyed by the structural key of the kernel IR and the backend.
// Buffers and queues are created from a Provider and belong to it for their
// whole life. Commands describe transfers and launches; a Queue executes a
// group of them in order and blocks until the device is done.
//
//	p, _ := compute.NewProvider(drv, devices)
//	prog, _ := p.Compile(kernel, backend.OpenCL)
//	k, _ := compute.NewKernel2[float32, float32](prog, ir.Dims1)
//	in, _ := compute.NewBuffer[float32](p, ir.ReadOnly, n)
//	out, _ := compute.NewBuffer[float32](p, ir.WriteOnly, n)
//	q, _ := p.NewQueue()
//	w, _ := in.Write(0, n, data)
//	run, _ := k.Run(compute.Range1D{SizeX: n}, in, out)
//	rd, _ := out.Read(0, n, result)
//	err := q.Add(ctx, w, run, rd)
//
// Nothing here is safe for concurrent use. Native handles are released only
// by Close; there are no finalizers.
package compute
