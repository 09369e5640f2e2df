package rpc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// checked builds an endpoint a probe has already looked at.
func checked(url string, latency time.Duration, block uint64, healthy bool) Endpoint {
	return Endpoint{URL: url, Latency: latency, BlockNumber: block, Healthy: healthy, Checked: true}
}

func unchecked(url string, latency time.Duration, block uint64) Endpoint {
	return Endpoint{URL: url, Latency: latency, BlockNumber: block}
}

func TestParseAlgorithm(t *testing.T) {
	for in, want := range map[string]Algorithm{
		"":            AlgorithmFastest,
		"fastest":     AlgorithmFastest,
		"round-robin": AlgorithmRoundRobin,
		"failover":    AlgorithmFailover,
	} {
		got, err := ParseAlgorithm(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseAlgorithm("random")
	assert.Error(t, err)
}

func TestPickerSelectsFastest(t *testing.T) {
	endpoints := []Endpoint{
		unchecked("http://slow.rpc", 200*time.Millisecond, 100),
		unchecked("http://fast.rpc", 30*time.Millisecond, 100),
		unchecked("http://medium.rpc", 80*time.Millisecond, 100),
	}
	winner, err := NewPicker(AlgorithmFastest).Pick(endpoints)
	require.NoError(t, err)
	assert.Equal(t, "http://fast.rpc", winner.URL)
}

func TestPickerDiscardsStaleNodes(t *testing.T) {
	endpoints := []Endpoint{
		checked("http://fresh.rpc", 50*time.Millisecond, 1000, true),
		checked("http://stale.rpc", 10*time.Millisecond, 990, true),
	}
	winner, err := NewPicker(AlgorithmFastest).Pick(endpoints)
	require.NoError(t, err)
	assert.Equal(t, "http://fresh.rpc", winner.URL, "stale node loses even when faster")
}

func TestPickerIgnoresUnhealthyTip(t *testing.T) {
	// A broken node claiming a far-ahead block must not make the others stale.
	endpoints := []Endpoint{
		checked("http://liar.rpc", 0, 5000, false),
		checked("http://ok.rpc", 40*time.Millisecond, 1000, true),
	}
	winner, err := NewPicker(AlgorithmFastest).Pick(endpoints)
	require.NoError(t, err)
	assert.Equal(t, "http://ok.rpc", winner.URL)
}

func TestPickerRoundRobinCycles(t *testing.T) {
	endpoints := []Endpoint{
		checked("http://rpc1", 0, 100, true),
		checked("http://down", 0, 100, false),
		checked("http://rpc2", 0, 100, true),
	}
	p := NewPicker(AlgorithmRoundRobin)

	var got []string
	for range 4 {
		e, err := p.Pick(endpoints)
		require.NoError(t, err)
		got = append(got, e.URL)
	}
	assert.Equal(t, []string{"http://rpc1", "http://rpc2", "http://rpc1", "http://rpc2"}, got)
}

func TestPickerFailover(t *testing.T) {
	endpoints := []Endpoint{
		checked("http://primary", 0, 100, false),
		checked("http://secondary", 0, 100, true),
		checked("http://tertiary", 0, 100, true),
	}
	winner, err := NewPicker(AlgorithmFailover).Pick(endpoints)
	require.NoError(t, err)
	assert.Equal(t, "http://secondary", winner.URL)
}

func TestPickerErrorsWhenAllUnhealthy(t *testing.T) {
	endpoints := []Endpoint{
		checked("http://a", 0, 0, false),
		checked("http://b", 0, 0, false),
	}
	for _, algo := range []Algorithm{AlgorithmFastest, AlgorithmRoundRobin, AlgorithmFailover} {
		_, err := NewPicker(algo).Pick(endpoints)
		assert.ErrorIs(t, err, ErrNoHealthyRPC, algo)
	}
}

func TestPickerEmptyEndpoints(t *testing.T) {
	_, err := NewPicker(AlgorithmFastest).Pick(nil)
	assert.ErrorIs(t, err, ErrNoHealthyRPC)
}

func TestPickerCachesWinner(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p := NewPicker(AlgorithmFastest)
	p.now = func() time.Time { return now }

	first := []Endpoint{
		unchecked("http://a", 10*time.Millisecond, 100),
		unchecked("http://b", 50*time.Millisecond, 100),
	}
	w, err := p.Pick(first)
	require.NoError(t, err)
	require.Equal(t, "http://a", w.URL)

	// b is now faster, but a is cached.
	second := []Endpoint{
		unchecked("http://a", 90*time.Millisecond, 100),
		unchecked("http://b", 5*time.Millisecond, 100),
	}
	w, err = p.Pick(second)
	require.NoError(t, err)
	assert.Equal(t, "http://a", w.URL)

	now = now.Add(cacheTTL + time.Second)
	w, err = p.Pick(second)
	require.NoError(t, err)
	assert.Equal(t, "http://b", w.URL, "cache expired")
}

func TestPickerDropsCachedWinnerThatWentDown(t *testing.T) {
	p := NewPicker(AlgorithmFastest)
	_, err := p.Pick([]Endpoint{checked("http://a", 10*time.Millisecond, 100, true), checked("http://b", 50*time.Millisecond, 100, true)})
	require.NoError(t, err)

	w, err := p.Pick([]Endpoint{checked("http://a", 0, 0, false), checked("http://b", 50*time.Millisecond, 100, true)})
	require.NoError(t, err)
	assert.Equal(t, "http://b", w.URL)
}

func TestScoreSubMillisecondLatency(t *testing.T) {
	fast := &Endpoint{Latency: 300 * time.Microsecond, BlockNumber: 10}
	slow := &Endpoint{Latency: 20 * time.Millisecond, BlockNumber: 10}
	assert.Greater(t, score(fast, 10), score(slow, 10))
}
