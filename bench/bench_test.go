// Package bench provides reproducible micro-benchmarks for the tmem request
// plane. Run via:  go test ./bench -bench=. -benchmem -cpu 1,4,16
//
// Keys and values are fixed-shape byte slices so results are comparable
// across versions:
//   Key   — 8-byte big-endian encoded uint64
//   Value — 64-byte payload
//
// We measure:
//   1. Put          — write-only workload through Handle.Put
//   2. Get          — read-only workload (after warm-up) through Handle.Get
//   3. GetParallel  — highly concurrent reads (b.RunParallel)
//   4. Invalidate   — invalidate each key, then re-put it to keep occupancy steady
//
// © 2025 arena-cache authors. MIT License.
package bench

import (
	"encoding/binary"
	"math/rand"
	"runtime"
	"testing"

	"github.com/Voskan/tmem/pkg/tmem"
)

const (
	poolBytes = 256 << 20
	keyCount  = 1 << 14 // keyCount*PageBytes must stay under poolBytes for warm-up puts to all succeed
)

var value64 = make([]byte, 64)

func newBenchHandle(b *testing.B) (*tmem.System, *tmem.Handle) {
	b.Helper()
	sys, err := tmem.New(tmem.WithPoolBytes(poolBytes))
	if err != nil {
		b.Fatal(err)
	}
	h := sys.NewHandle()
	if err := h.Open(); err != nil {
		b.Fatal(err)
	}
	b.Cleanup(h.Close)
	return sys, h
}

var ds = func() [][]byte {
	rnd := rand.New(rand.NewSource(42))
	arr := make([][]byte, keyCount)
	for i := range arr {
		k := make([]byte, 8)
		binary.BigEndian.PutUint64(k, rnd.Uint64())
		arr[i] = k
	}
	return arr
}()

func BenchmarkPut(b *testing.B) {
	_, h := newBenchHandle(b)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := ds[i&(keyCount-1)]
		_ = h.Put(tmem.PutRequest{Key: key, Value: value64})
	}
}

func BenchmarkGet(b *testing.B) {
	_, h := newBenchHandle(b)
	for _, k := range ds {
		_ = h.Put(tmem.PutRequest{Key: k, Value: value64})
	}
	out := make([]byte, tmem.PageBytes)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		k := ds[i&(keyCount-1)]
		_, _ = h.Get(tmem.GetRequest{Key: k, Out: out})
	}
}

func BenchmarkGetParallel(b *testing.B) {
	sys, _ := newBenchHandle(b)
	h0 := sys.NewHandle()
	if err := h0.Open(); err != nil {
		b.Fatal(err)
	}
	for _, k := range ds {
		_ = h0.Put(tmem.PutRequest{Key: k, Value: value64})
	}
	h0.Close()

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		h := sys.NewHandle()
		if err := h.Open(); err != nil {
			b.Fatal(err)
		}
		defer h.Close()
		out := make([]byte, tmem.PageBytes)
		idx := rand.Intn(keyCount)
		for pb.Next() {
			idx = (idx + 1) & (keyCount - 1)
			_, _ = h.Get(tmem.GetRequest{Key: ds[idx], Out: out})
		}
	})
}

func BenchmarkInvalidate(b *testing.B) {
	_, h := newBenchHandle(b)
	for _, k := range ds {
		_ = h.Put(tmem.PutRequest{Key: k, Value: value64})
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		k := ds[i&(keyCount-1)]
		_ = h.Invalidate(tmem.InvalRequest{Key: k})
		_ = h.Put(tmem.PutRequest{Key: k, Value: value64}) // keep pool occupancy steady
	}
}

func init() {
	runtime.GOMAXPROCS(runtime.NumCPU())
}
