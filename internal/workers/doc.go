/*
Package workers sizes the worker pools of the image pipelines.

In a container the usable CPU count comes from cgroup limits, which Go
1.19+ reflects in GOMAXPROCS while runtime.NumCPU() still reports the
host. Sizing from GOMAXPROCS keeps thumbnail and preview generation
inside the container's allowance.

	// decode-resize-encode is CPU-bound
	n := workers.ForDecoding(8)

	// header and metadata probes are I/O-bound
	n := workers.ForProbing(16)

Set IMAGE_WORKERS to force an exact count.
*/
package workers
