// Package job implements a bounded, cancellable runner for blocking units of
// work. Each submitted job gets an exclusively-owned scratch workspace, a
// wall-clock deadline, and an output size ceiling; the runner guarantees that
// every workspace is reclaimed exactly once regardless of how the job ends.
package job
