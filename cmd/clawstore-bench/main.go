// Command clawstore-bench drives the engine API directly (no network
// client, no server) to measure put and get throughput against a
// scratch store directory.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/clawstore/clawstore/internal/config"
	"github.com/clawstore/clawstore/internal/engine"
	flag "github.com/spf13/pflag"
)

func main() {
	var (
		dir        = flag.StringP("dir", "d", "", "store directory (default: a temp dir, removed after the run)")
		ops        = flag.IntP("ops", "n", 100_000, "number of put operations")
		valueSize  = flag.IntP("value-size", "v", 128, "value size in bytes")
		durable    = flag.Bool("durable", true, "use durable Put instead of PutFast+SyncWAL batches")
		batchSize  = flag.Int("batch-size", 1000, "PutFast batch size before a SyncWAL (ignored when --durable)")
		readBack   = flag.Bool("read-back", true, "measure Get throughput after the write phase")
	)
	flag.Parse()

	storeDir := *dir
	if storeDir == "" {
		tmp, err := os.MkdirTemp("", "clawstore-bench-*")
		if err != nil {
			fmt.Fprintln(os.Stderr, "clawstore-bench:", err)
			os.Exit(1)
		}
		defer os.RemoveAll(tmp)
		storeDir = tmp
	}

	e, err := engine.Open(storeDir, config.Default())
	if err != nil {
		fmt.Fprintln(os.Stderr, "clawstore-bench:", err)
		os.Exit(1)
	}
	defer e.Close()

	value := make([]byte, *valueSize)
	for i := range value {
		value[i] = byte(i)
	}

	start := time.Now()
	for i := 0; i < *ops; i++ {
		key := []byte(fmt.Sprintf("key-%08d", i))
		var putErr error
		if *durable {
			putErr = e.Put(key, value)
		} else {
			putErr = e.PutFast(key, value)
			if putErr == nil && (i+1)%*batchSize == 0 {
				putErr = e.SyncWAL()
			}
		}
		if putErr != nil {
			fmt.Fprintln(os.Stderr, "clawstore-bench: put failed:", putErr)
			os.Exit(1)
		}
	}
	if !*durable {
		if err := e.SyncWAL(); err != nil {
			fmt.Fprintln(os.Stderr, "clawstore-bench: final sync failed:", err)
			os.Exit(1)
		}
	}
	writeElapsed := time.Since(start)

	fmt.Printf("put: %d ops in %s (%.0f ops/sec)\n", *ops, writeElapsed, float64(*ops)/writeElapsed.Seconds())

	if *readBack {
		start = time.Now()
		for i := 0; i < *ops; i++ {
			key := []byte(fmt.Sprintf("key-%08d", i))
			if _, ok := e.Get(key); !ok {
				fmt.Fprintln(os.Stderr, "clawstore-bench: missing key after write phase:", string(key))
				os.Exit(1)
			}
		}
		readElapsed := time.Since(start)
		fmt.Printf("get: %d ops in %s (%.0f ops/sec)\n", *ops, readElapsed, float64(*ops)/readElapsed.Seconds())
	}
}
