package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDo_RunsOnce(t *testing.T) {
	c := New()
	var calls atomic.Int32

	probe := func() (string, error) {
		calls.Add(1)
		return "js", nil
	}

	first, err := Do(c, Key("runtime", "/src/hello.js"), probe)
	require.NoError(t, err)
	second, err := Do(c, Key("runtime", "/src/hello.js"), probe)
	require.NoError(t, err)

	require.Equal(t, "js", first)
	require.Equal(t, "js", second)
	require.EqualValues(t, 1, calls.Load())

	stats := c.Stats()
	require.EqualValues(t, 1, stats.Misses)
	require.EqualValues(t, 1, stats.Hits)
}

func TestDo_DistinctKeys(t *testing.T) {
	c := New()
	var calls atomic.Int32

	probe := func() (int, error) {
		return int(calls.Add(1)), nil
	}

	a, err := Do(c, Key("stat", "/a"), probe)
	require.NoError(t, err)
	b, err := Do(c, Key("stat", "/b"), probe)
	require.NoError(t, err)

	require.NotEqual(t, a, b)
	require.EqualValues(t, 2, calls.Load())
}

func TestDo_MemoizesErrors(t *testing.T) {
	c := New()
	var calls atomic.Int32
	errBoom := errors.New("boom")

	probe := func() (*struct{}, error) {
		calls.Add(1)
		return nil, errBoom
	}

	_, err := Do(c, Key("binary", "/bin/app"), probe)
	require.ErrorIs(t, err, errBoom)
	_, err = Do(c, Key("binary", "/bin/app"), probe)
	require.ErrorIs(t, err, errBoom)
	require.EqualValues(t, 1, calls.Load())

	_, ok := c.Get(Key("binary", "/bin/app"))
	require.False(t, ok, "failed probes are not exposed through Get")
}

func TestDo_JoinsInFlight(t *testing.T) {
	c := New()
	var calls atomic.Int32
	release := make(chan struct{})
	started := make(chan struct{})

	probe := func() (string, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		return "manifest", nil
	}

	const callers = 8
	results := make([]string, callers)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		v, _ := Do(c, Key("packagejson", "/project/package.json"), probe)
		results[0] = v
	}()
	<-started

	for i := 1; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, _ := Do(c, Key("packagejson", "/project/package.json"), probe)
			results[i] = v
		}(i)
	}

	close(release)
	wg.Wait()

	require.EqualValues(t, 1, calls.Load())
	for i, v := range results {
		require.Equal(t, "manifest", v, "caller %d", i)
	}

	stats := c.Stats()
	require.EqualValues(t, 1, stats.Misses)
	require.EqualValues(t, callers-1, stats.Hits+stats.Joins)
}

func TestGetSet(t *testing.T) {
	c := New()

	_, ok := c.Get("missing")
	require.False(t, ok)

	c.Set(Key("stat", "/a"), 42)
	v, ok := c.Get(Key("stat", "/a"))
	require.True(t, ok)
	require.Equal(t, 42, v)

	n, err := Do(c, Key("stat", "/a"), func() (int, error) {
		t.Fatal("probe must not run for a value stored with Set")
		return 0, nil
	})
	require.NoError(t, err)
	require.Equal(t, 42, n)
}

func TestNilCache(t *testing.T) {
	var c *RuntimeCache
	var calls int

	for n := 0; n < 2; n++ {
		v, err := Do(c, "stat:/a", func() (int, error) {
			calls++
			return 7, nil
		})
		require.NoError(t, err)
		require.Equal(t, 7, v)
	}

	require.Equal(t, 2, calls)
	require.Equal(t, Stats{}, c.Stats())

	c.Set("stat:/a", 1)
	_, ok := c.Get("stat:/a")
	require.False(t, ok)
}

func TestKindOf(t *testing.T) {
	require.Equal(t, "stat", kindOf(Key("stat", "/a:b")))
	require.Equal(t, "unknown", kindOf("nokind"))
}
