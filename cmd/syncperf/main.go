// Command syncperf benchmarks the module's concurrent maps against sync.Map
// and xsync.MapOf under a configurable read-mostly workload.
//
//	syncperf run --targets safemap,syncmap --threads 8 --write-ratio 0.01
//
// Every flag can also be set through a SYNCPERF_-prefixed environment
// variable or a .env / .env.local file in the working directory.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
