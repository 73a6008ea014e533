// Package memory keeps the heap inside a container memory limit.
//
// Go does not derive GOMEMLIMIT from cgroups the way it derives
// GOMAXPROCS, so [ConfigureFromEnv] computes a soft limit from
// MEMORY_LIMIT (the container limit, usually injected via the
// Kubernetes Downward API) scaled by MEMORY_SHARE, and applies it with
// debug.SetMemoryLimit. An explicit GOMEMLIMIT wins.
//
// [Monitor] then samples heap usage against that budget and pauses
// scan post-processing while usage sits above the hard ratio, which
// keeps a burst of scanner uploads from pushing the process into an
// OOM kill while libvips holds large decode buffers off-heap.
package memory
