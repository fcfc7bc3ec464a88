package benchmark

import (
	"context"
	"fmt"
	"testing"

	"github.com/vnykmshr/reactflow/pkg/streaming/stream"
)

func ints(size int) []int {
	data := make([]int, size)
	for i := range data {
		data[i] = i
	}
	return data
}

// BenchmarkFromSlice measures subscribing to an in-memory source.
func BenchmarkFromSlice(b *testing.B) {
	for _, size := range []int{10, 100, 1000, 10000} {
		data := ints(size)
		b.Run(sizeLabel(size), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_, _ = stream.FromSlice(data).ToSlice(context.Background())
			}
		})
	}
}

// BenchmarkFilter measures filter operation performance.
func BenchmarkFilter(b *testing.B) {
	for _, size := range []int{100, 1000, 10000} {
		data := ints(size)
		b.Run(sizeLabel(size), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_, _ = stream.FromSlice(data).
					Filter(func(n int) bool { return n%2 == 0 }).
					ToSlice(context.Background())
			}
		})
	}
}

// BenchmarkMap measures map operation performance.
func BenchmarkMap(b *testing.B) {
	for _, size := range []int{100, 1000, 10000} {
		data := ints(size)
		b.Run(sizeLabel(size), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_, _ = stream.Map[int, int](stream.FromSlice(data), stream.Lift(func(n int) int { return n * 2 })).
					ToSlice(context.Background())
			}
		})
	}
}

// BenchmarkFlatMap measures fan-out with one inner stream per element.
func BenchmarkFlatMap(b *testing.B) {
	for _, size := range []int{100, 1000} {
		data := ints(size)
		b.Run(sizeLabel(size), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_, _ = stream.FlatMap[int, int](stream.FromSlice(data), func(n int) (stream.Stream[int], error) {
					return stream.Of(n, n), nil
				}).ToSlice(context.Background())
			}
		})
	}
}

// BenchmarkMerge measures merging several synchronous sources.
func BenchmarkMerge(b *testing.B) {
	for _, sources := range []int{2, 8, 32} {
		b.Run(fmt.Sprintf("sources=%d", sources), func(b *testing.B) {
			streams := make([]stream.Stream[int], sources)
			for i := range streams {
				streams[i] = stream.Range(0, 100)
			}
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_, _ = stream.Merge(streams...).ToSlice(context.Background())
			}
		})
	}
}

// BenchmarkZip measures pairing two sources.
func BenchmarkZip(b *testing.B) {
	for _, size := range []int{100, 1000} {
		b.Run(sizeLabel(size), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_, _ = stream.Zip2[int, int](stream.Range(0, size), stream.Range(0, size)).
					ToSlice(context.Background())
			}
		})
	}
}

// BenchmarkReduce measures folding into a Single.
func BenchmarkReduce(b *testing.B) {
	for _, size := range []int{100, 1000, 10000} {
		data := ints(size)
		b.Run(sizeLabel(size), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_, _, _ = stream.Reduce[int, int](stream.FromSlice(data), 0, func(acc, n int) int { return acc + n }).
					Block(context.Background())
			}
		})
	}
}

// BenchmarkChainedOperations measures a typical operator chain.
func BenchmarkChainedOperations(b *testing.B) {
	data := ints(1000)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		evens := stream.FromSlice(data).Filter(func(n int) bool { return n%2 == 0 })
		doubled := stream.Map[int, int](evens, stream.Lift(func(n int) int { return n * 2 }))
		_, _ = stream.BufferCount[int](doubled.SkipFirst(10).Take(200), 10).ToSlice(context.Background())
	}
}

// BenchmarkErrorPolicy measures per-element continue resolution.
func BenchmarkErrorPolicy(b *testing.B) {
	data := ints(1000)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = stream.Map[int, int](stream.FromSlice(data), func(n int) (int, error) {
			if n%10 == 0 {
				return 0, errSkip
			}
			return n, nil
		}).OnErrorContinue(stream.MatchAny()).ToSlice(context.Background())
	}
}

func sizeLabel(size int) string {
	switch {
	case size >= 10000:
		return "10k"
	case size >= 1000:
		return "1k"
	case size >= 100:
		return "100"
	default:
		return "10"
	}
}
