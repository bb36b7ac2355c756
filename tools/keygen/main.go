package main

// keygen generates deterministic opaque-key datasets bounded by KEY_MAX
// for standalone benchmarking of the tmem request plane outside `go test`.
// It emits hex-encoded byte keys, one per line, drawn from a uniform or
// Zipf length/content distribution.
//
// Usage:
//   go run ./tools/keygen -n 1000000 -dist=zipf -seed=42 -out keys.txt
//
// Flags:
//   -n       number of keys to generate (default 1e6)
//   -dist    distribution: "uniform" or "zipf" (default uniform)
//   -keymax  upper bound on generated key length, 1..KEY_MAX (default 256)
//   -zipfs   Zipf s parameter (>1)
//   -zipfv   Zipf v parameter (>=1, default 1)
//   -seed    PRNG seed (default current time)
//   -out     output file (default stdout)
//
// © 2025 arena-cache authors. MIT License.

import (
	"bufio"
	"encoding/hex"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/Voskan/tmem/pkg/tmem"
)

func main() {
	var (
		n       = flag.Int("n", 1_000_000, "number of keys to generate")
		dist    = flag.String("dist", "uniform", "distribution: uniform or zipf")
		keyMax  = flag.Int("keymax", tmem.DefaultKeyMax, "upper bound on key length")
		zipfS   = flag.Float64("zipfs", 1.2, "zipf s parameter (>1)")
		zipfV   = flag.Float64("zipfv", 1.0, "zipf v parameter (>=1)")
		seedVal = flag.Int64("seed", time.Now().UnixNano(), "PRNG seed")
		outPath = flag.String("out", "", "output file (default stdout)")
	)
	flag.Parse()

	if *keyMax <= 0 || *keyMax > tmem.DefaultKeyMax {
		fmt.Fprintf(os.Stderr, "keymax must be in 1..%d\n", tmem.DefaultKeyMax)
		os.Exit(1)
	}

	rnd := rand.New(rand.NewSource(*seedVal))

	var lenGen func() int
	switch *dist {
	case "uniform":
		lenGen = func() int { return 1 + rnd.Intn(*keyMax) }
	case "zipf":
		if *zipfS <= 1.0 || *zipfV < 1.0 {
			fmt.Fprintln(os.Stderr, "zipfs must be >1 and zipfv >=1")
			os.Exit(1)
		}
		z := rand.NewZipf(rnd, *zipfS, *zipfV, uint64(*keyMax-1))
		lenGen = func() int { return 1 + int(z.Uint64()) }
	default:
		fmt.Fprintln(os.Stderr, "unknown dist:", *dist)
		os.Exit(1)
	}

	var out *os.File
	var err error
	if *outPath == "" {
		out = os.Stdout
	} else {
		out, err = os.Create(*outPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "cannot create file:", err)
			os.Exit(1)
		}
		defer out.Close()
	}

	w := bufio.NewWriterSize(out, 1<<20)
	defer w.Flush()

	buf := make([]byte, *keyMax)
	for i := 0; i < *n; i++ {
		l := lenGen()
		rnd.Read(buf[:l])
		fmt.Fprintln(w, hex.EncodeToString(buf[:l]))
	}
}
