package stream

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnykmshr/reactflow/internal/testutil"
	rferrors "github.com/vnykmshr/reactflow/pkg/common/errors"
	"github.com/vnykmshr/reactflow/pkg/scheduling/timer"
)

func TestMap_FunctorLaw(t *testing.T) {
	inputs := [][]int{
		nil,
		{1},
		{1, 2, 3, 4, 5},
		{-3, 0, 42, 7, 7},
	}
	f := func(v int) string { return strconv.Itoa(v * 10) }

	for _, in := range inputs {
		t.Run(fmt.Sprint(in), func(t *testing.T) {
			want := make([]string, 0, len(in))
			for _, v := range in {
				want = append(want, f(v))
			}

			got, ok, err := CollectSlice[string](Map(FromSlice(in), Lift(f))).Block(context.Background())
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, want, got)
		})
	}
}

func TestMap_ErrorTerminates(t *testing.T) {
	rec := testutil.NewRecorder[int]()
	Map(Range(1, 10), failAt5).Subscribe(context.Background(), rec)

	assert.Equal(t, []int{1, 2, 3, 4}, rec.Values())
	require.Error(t, rec.Err())
	assert.ErrorIs(t, rec.Err(), errBoom)
	assert.True(t, rferrors.IsProcessing(rec.Err()))
}

func TestMap_PanicBecomesProcessingFailure(t *testing.T) {
	s := Map(Of(1, 2), func(v int) (int, error) {
		if v == 2 {
			panic("bad element")
		}
		return v, nil
	})

	values, err := s.ToSlice(context.Background())
	assert.Equal(t, []int{1}, values)
	assert.True(t, rferrors.IsProcessing(err))
	assert.ErrorContains(t, err, "bad element")
}

func TestFlatMap(t *testing.T) {
	s := FlatMap(Of(1, 2, 3), func(v int) (Stream[string], error) {
		return Of(fmt.Sprintf("%d-a", v), fmt.Sprintf("%d-b", v)), nil
	})

	got := collect(t, s)
	assert.ElementsMatch(t, []string{"1-a", "1-b", "2-a", "2-b", "3-a", "3-b"}, got)
}

func TestFlatMap_CompletesAfterAllInnerStreams(t *testing.T) {
	v := timer.NewVirtual(time.Time{})
	rec := testutil.NewRecorder[int]()

	FlatMap(Of(1, 2, 3), func(i int) (Stream[int], error) {
		return DelayedSequence([]int{i * 10, i*10 + 1}, time.Duration(i)*time.Second, v), nil
	}).Subscribe(context.Background(), rec)

	v.Advance(5 * time.Second)
	assert.False(t, rec.Terminated(), "inner stream of 3 is still running")

	v.Advance(time.Second)
	assert.True(t, rec.Completed())
	assert.ElementsMatch(t, []int{10, 11, 20, 21, 30, 31}, rec.Values())

	// values of one inner stream keep their order
	pos := map[int]int{}
	for i, val := range rec.Values() {
		pos[val] = i
	}
	for _, base := range []int{10, 20, 30} {
		assert.Less(t, pos[base], pos[base+1])
	}
}

func TestFlatMap_CancelCancelsInnerStreams(t *testing.T) {
	v := timer.NewVirtual(time.Time{})
	rec := testutil.NewRecorder[int]()

	sub := FlatMap(Of(1, 2, 3), func(i int) (Stream[int], error) {
		return DelayedSequence([]int{i}, time.Second, v), nil
	}).Subscribe(context.Background(), rec)

	assert.Equal(t, 3, v.Pending())
	sub.Cancel()
	assert.Equal(t, 0, v.Pending())
}

func TestFlatMap_DropsFinishedInnerLinks(t *testing.T) {
	v := timer.NewVirtual(time.Time{})
	rec := testutil.NewRecorder[int]()
	ctx := withScope(context.Background(), func(error) (bool, bool) { return true, true })

	s := FlatMap(DelayedSequence([]int{1, 2, 3, 4, 5, 6}, time.Second, v), func(i int) (Stream[int], error) {
		switch i % 3 {
		case 0:
			return Just(i), nil
		case 1:
			return DelayedSequence([]int{i}, 500*time.Millisecond, v), nil
		default:
			return Fail[int](errBoom), nil
		}
	}, ResumeInner())
	sub := s.Subscribe(ctx, rec)
	defer sub.Cancel()
	out := sub.(*emitter[int])

	v.Advance(1500 * time.Millisecond)
	assert.Equal(t, 1, out.linkCount(), "only the upstream stays linked")

	v.Advance(1600 * time.Millisecond)
	assert.Equal(t, 1, out.linkCount(), "resumed and synchronous inner streams are released")

	v.Advance(time.Second)
	assert.Equal(t, 2, out.linkCount(), "the inner stream of 4 is still pending")

	v.Advance(3 * time.Second)
	assert.True(t, rec.Completed())
	assert.ElementsMatch(t, []int{1, 3, 4, 6}, rec.Values())
}

func TestFlatMap_InnerFailureIsUpstreamFailure(t *testing.T) {
	s := FlatMap(Range(1, 5), func(i int) (Stream[int], error) {
		if i == 3 {
			return Fail[int](errBoom), nil
		}
		return Just(i), nil
	})

	values, err := s.ToSlice(context.Background())
	assert.Equal(t, []int{1, 2}, values)
	assert.True(t, rferrors.IsUpstream(err))
	assert.ErrorIs(t, err, errBoom)
}

func TestConcat(t *testing.T) {
	cases := []struct {
		a, b []int
	}{
		{nil, nil},
		{[]int{1}, nil},
		{nil, []int{2}},
		{[]int{1, 2, 3}, []int{4, 5}},
	}

	for _, c := range cases {
		got := collect(t, Concat[int](FromSlice(c.a), FromSlice(c.b)))
		var want []int
		want = append(want, c.a...)
		want = append(want, c.b...)
		assert.Equal(t, want, got)
	}
}

func TestConcat_WaitsForCompletion(t *testing.T) {
	v := timer.NewVirtual(time.Time{})
	rec := testutil.NewRecorder[int]()

	first := DelayedSequence([]int{1, 2}, 500*time.Millisecond, v)
	second := Range(101, 2)
	Concat[int](first, second).Subscribe(context.Background(), rec)

	assert.Empty(t, rec.Values(), "second source must not start before the first completes")
	v.Advance(time.Second)
	assert.Equal(t, []int{1, 2, 101, 102}, rec.Values())
	assert.True(t, rec.Completed())
}

func TestMerge_AsSet(t *testing.T) {
	a := []int{1, 2, 3}
	b := []int{101, 102}

	got := collect(t, Merge[int](FromSlice(a), FromSlice(b)))
	assert.ElementsMatch(t, append(append([]int{}, a...), b...), got)
	assert.Empty(t, collect(t, Merge[int]()))
}

func TestMerge_Interleaves(t *testing.T) {
	v := timer.NewVirtual(time.Time{})
	rec := testutil.NewRecorder[int]()

	Merge[int](
		DelayedSequence([]int{1, 2, 3}, 2*time.Second, v),
		DelayedSequence([]int{101, 102, 103}, 2500*time.Millisecond, v),
	).Subscribe(context.Background(), rec)

	v.Advance(10 * time.Second)
	assert.Equal(t, []int{1, 101, 2, 102, 3, 103}, rec.Values())
	assert.True(t, rec.Completed())
}

func TestMerge_FirstErrorWins(t *testing.T) {
	v := timer.NewVirtual(time.Time{})
	rec := testutil.NewRecorder[int64]()

	Merge[int64](Interval(time.Second, v), Fail[int64](errBoom)).
		Subscribe(context.Background(), rec)

	assert.ErrorIs(t, rec.Err(), errBoom)
	assert.Equal(t, 0, v.Pending(), "remaining sources must be cancelled")

	v.Advance(5 * time.Second)
	assert.Empty(t, rec.Values())
}

func TestMerge_ConcurrentSources(t *testing.T) {
	const sources, perSource = 4, 100

	var streams []Stream[int]
	for i := 0; i < sources; i++ {
		streams = append(streams, Create(func(ctx context.Context, sink Sink[int]) error {
			for j := 0; j < perSource; j++ {
				if !sink.Next(j) {
					return nil
				}
			}
			return nil
		}))
	}

	// unsynchronised on purpose: deliveries must be serialised
	count := 0
	err := Merge(streams...).ForEach(context.Background(), func(int) bool {
		count++
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, sources*perSource, count)
}

func TestZip2(t *testing.T) {
	for _, c := range []struct{ m, n int }{{0, 3}, {3, 0}, {2, 5}, {5, 2}, {4, 4}} {
		t.Run(fmt.Sprintf("%dx%d", c.m, c.n), func(t *testing.T) {
			got := collect(t, Zip2[int, string](Range(0, c.m), Map(Range(0, c.n), Lift(strconv.Itoa))))

			want := min(c.m, c.n)
			require.Len(t, got, want)
			for i, p := range got {
				assert.Equal(t, i, p.First)
				assert.Equal(t, strconv.Itoa(i), p.Second)
			}
		})
	}
}

func TestZip2_Async(t *testing.T) {
	v := timer.NewVirtual(time.Time{})
	rec := testutil.NewRecorder[Pair[int, int]]()

	Zip2[int, int](
		DelayedSequence([]int{1, 2, 3}, time.Second, v),
		DelayedSequence([]int{10, 20}, 3*time.Second, v),
	).Subscribe(context.Background(), rec)

	v.Advance(3 * time.Second)
	assert.Equal(t, []Pair[int, int]{{1, 10}}, rec.Values())

	v.Advance(3 * time.Second)
	assert.Equal(t, []Pair[int, int]{{1, 10}, {2, 20}}, rec.Values())
	assert.True(t, rec.Completed())
	assert.Equal(t, 0, v.Pending())
}

func TestZip3AndZipAll(t *testing.T) {
	triples := collect(t, Zip3[int, string, bool](Range(1, 3), Of("a", "b"), Of(true, false, true)))
	assert.Equal(t, []Triple[int, string, bool]{{1, "a", true}, {2, "b", false}}, triples)

	rows := collect(t, ZipAll[int](Range(0, 3), Range(10, 3), Range(20, 4)))
	assert.Equal(t, [][]int{{0, 10, 20}, {1, 11, 21}, {2, 12, 22}}, rows)

	assert.Empty(t, collect(t, ZipAll[int]()))
}

func TestZip_ErrorTerminates(t *testing.T) {
	_, err := Zip2[int, int](Range(0, 3), Fail[int](errBoom)).ToSlice(context.Background())
	assert.ErrorIs(t, err, errBoom)
}

func TestSkipFirst(t *testing.T) {
	assert.Equal(t, []int{4, 5}, collect(t, Range(1, 5).SkipFirst(3)))
	assert.Empty(t, collect(t, Range(1, 5).SkipFirst(10)))
	assert.Equal(t, []int{1, 2}, collect(t, Range(1, 2).SkipFirst(0)))
}

func TestSkipLast(t *testing.T) {
	for _, length := range []int{0, 1, 3, 10} {
		for _, n := range []int{0, 1, 3, 12} {
			got := collect(t, Range(0, length).SkipLast(n))
			keep := max(length-n, 0)

			require.Len(t, got, keep, "L=%d n=%d", length, n)
			for i, v := range got {
				assert.Equal(t, i, v)
			}
		}
	}
}

func TestSkipUntilAndWhile(t *testing.T) {
	assert.Equal(t, []int{10, 11, 12}, collect(t, Range(1, 12).SkipUntil(func(v int) bool { return v == 10 })))
	assert.Equal(t, []int{10, 11, 12}, collect(t, Range(1, 12).SkipWhile(func(v int) bool { return v < 10 })))
	assert.Empty(t, collect(t, Range(1, 5).SkipUntil(func(v int) bool { return v > 100 })))
	assert.Equal(t, []int{3, 1}, collect(t, Of(1, 2, 3, 1).SkipWhile(func(v int) bool { return v < 3 })))
}

func TestSkipFor(t *testing.T) {
	v := timer.NewVirtual(time.Time{})
	rec := testutil.NewRecorder[int]()

	DelayedSequence([]int{1, 2, 3, 4, 5}, time.Second, v).
		SkipFor(2500*time.Millisecond, v).
		Subscribe(context.Background(), rec)

	v.Advance(5 * time.Second)
	assert.Equal(t, []int{3, 4, 5}, rec.Values())
	assert.True(t, rec.Completed())
}

func TestFilterTakeFirst(t *testing.T) {
	even := Range(1, 10).Filter(func(v int) bool { return v%2 == 0 })
	assert.Equal(t, []int{2, 4, 6, 8, 10}, collect(t, even))
	assert.Equal(t, []int{2, 4}, collect(t, even.Take(2)))
	assert.Empty(t, collect(t, even.Take(0)))

	v, ok, err := even.First().Block(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, v)

	_, ok, err = Empty[int]().First().Block(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTake_CancelsUpstream(t *testing.T) {
	v := timer.NewVirtual(time.Time{})
	rec := testutil.NewRecorder[int64]()

	Interval(time.Second, v).Take(3).Subscribe(context.Background(), rec)
	v.Advance(10 * time.Second)

	assert.Equal(t, []int64{0, 1, 2}, rec.Values())
	assert.True(t, rec.Completed())
	assert.Equal(t, 0, v.Pending())
}

func TestBufferCount(t *testing.T) {
	got := collect(t, BufferCount[int](Range(1, 10), 3))
	assert.Equal(t, [][]int{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}, {10}}, got)

	assert.Equal(t, [][]int{{1, 2}}, collect(t, BufferCount[int](Range(1, 2), 2)))
	assert.Empty(t, collect(t, BufferCount[int](Empty[int](), 2)))
}

func TestBufferTime(t *testing.T) {
	v := timer.NewVirtual(time.Time{})
	rec := testutil.NewRecorder[[]int]()

	source := DelayedSequence([]int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, time.Second, v)
	BufferTime[int](source, 3100*time.Millisecond, v).Subscribe(context.Background(), rec)

	v.Advance(10 * time.Second)
	assert.Equal(t, [][]int{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}, {10}}, rec.Values())
	assert.True(t, rec.Completed())
	assert.Equal(t, 0, v.Pending())
}

func TestBufferTime_SkipsEmptyWindows(t *testing.T) {
	v := timer.NewVirtual(time.Time{})
	rec := testutil.NewRecorder[[]int]()

	source := DelayedSequence([]int{1, 2}, 5*time.Second, v)
	BufferTime[int](source, time.Second, v).Subscribe(context.Background(), rec)

	v.Advance(10 * time.Second)
	assert.Equal(t, [][]int{{1}, {2}}, rec.Values())
}

func TestDelayElements(t *testing.T) {
	v := timer.NewVirtual(time.Time{})
	rec := testutil.NewRecorder[int]()

	Of(1, 2, 3).DelayElements(time.Second, v).Subscribe(context.Background(), rec)

	v.Advance(2 * time.Second)
	assert.Equal(t, []int{1, 2}, rec.Values())
	assert.False(t, rec.Terminated())

	v.Advance(time.Second)
	assert.Equal(t, []int{1, 2, 3}, rec.Values())
	assert.True(t, rec.Completed())
}

func TestReduce(t *testing.T) {
	sum, ok, err := Reduce(Range(1, 4), 0.0, func(acc float64, v int) float64 {
		return acc + float64(v)
	}).Block(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 10.0, sum)

	seed, ok, err := Reduce(Empty[int](), 0.0, func(acc float64, v int) float64 {
		return acc + float64(v)
	}).Block(context.Background())
	require.NoError(t, err)
	assert.True(t, ok, "an empty upstream still yields the seed")
	assert.Equal(t, 0.0, seed)

	_, _, err = Reduce(Fail[int](errBoom), 0, func(acc, v int) int { return acc + v }).Block(context.Background())
	assert.ErrorIs(t, err, errBoom)
}

func TestCollectSlice(t *testing.T) {
	got, ok, err := CollectSlice[int](Range(1, 3)).Block(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []int{1, 2, 3}, got)

	empty, _, err := CollectSlice[int](Empty[int]()).Block(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestCollectMap(t *testing.T) {
	squares, _, err := CollectMap(Range(1, 4),
		func(v int) int { return v },
		func(v int) int { return v * v },
	).Block(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[int]int{1: 1, 2: 4, 3: 9, 4: 16}, squares)

	type entry struct {
		key string
		val int
	}
	lastWins, _, err := CollectMap(Of(entry{"a", 1}, entry{"b", 2}, entry{"a", 3}),
		func(e entry) string { return e.key },
		func(e entry) int { return e.val },
	).Block(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"a": 3, "b": 2}, lastWins)
}

func TestDoOnHooks(t *testing.T) {
	var (
		mu     sync.Mutex
		events []string
	)
	record := func(e string) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, e)
	}

	s := Of(1, 2).
		DoOnSubscribe(func() { record("subscribe") }).
		DoOnNext(func(v int) { record("next " + strconv.Itoa(v)) }).
		DoOnComplete(func() { record("complete") }).
		DoOnCancel(func() { record("cancel") }).
		DoOnEach(func(sig Signal[int]) { record("each " + sig.Kind.String()) })

	collect(t, s)
	assert.Equal(t, []string{
		"subscribe",
		"next 1", "each value",
		"next 2", "each value",
		"complete", "each complete",
	}, events)
}

func TestDoOnErrorAndCancel(t *testing.T) {
	var seen error
	_, err := Fail[int](errBoom).DoOnError(func(err error) { seen = err }).ToSlice(context.Background())
	assert.ErrorIs(t, err, errBoom)
	assert.ErrorIs(t, seen, errBoom)

	v := timer.NewVirtual(time.Time{})
	cancelled := 0
	sub := Interval(time.Second, v).
		DoOnCancel(func() { cancelled++ }).
		Subscribe(context.Background(), nil)

	v.Advance(time.Second)
	sub.Cancel()
	sub.Cancel()
	assert.Equal(t, 1, cancelled)
}

func TestSingleHooks(t *testing.T) {
	subscribed, cancelled := 0, 0
	var next int
	var failed error

	s := Just(3).
		DoOnSubscribe(func() { subscribed++ }).
		DoOnNext(func(v int) { next = v }).
		DoOnCancel(func() { cancelled++ })

	_, _, err := s.Block(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, subscribed)
	assert.Equal(t, 3, next)
	assert.Equal(t, 0, cancelled, "a completed Single is not cancelled")

	_, _, err = FailSingle[int](errBoom).DoOnError(func(err error) { failed = err }).Block(context.Background())
	assert.ErrorIs(t, err, errBoom)
	assert.ErrorIs(t, failed, errBoom)
}

func TestSignalsAreSerialisedPerSubscription(t *testing.T) {
	var (
		mu       sync.Mutex
		inFlight int
		maxSeen  int
	)
	streams := make([]Stream[int], 0, 8)
	for i := 0; i < 8; i++ {
		streams = append(streams, FromCallable(func(context.Context) (int, error) { return i, nil }))
	}

	got := collect(t, Merge(streams...).DoOnNext(func(int) {
		mu.Lock()
		inFlight++
		maxSeen = max(maxSeen, inFlight)
		mu.Unlock()

		time.Sleep(time.Millisecond)

		mu.Lock()
		inFlight--
		mu.Unlock()
	}))

	sort.Ints(got)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7}, got)
	assert.Equal(t, 1, maxSeen)
}

func TestErrorsAreNotDeliveredTwice(t *testing.T) {
	rec := testutil.NewRecorder[int]()
	Merge[int](Fail[int](errBoom), Fail[int](errors.New("second"))).Subscribe(context.Background(), rec)

	assert.ErrorIs(t, rec.Err(), errBoom)
	assert.Equal(t, 1, rec.Signals())
}
