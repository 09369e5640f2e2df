package rpc

import (
	"context"
	"fmt"
)

// Select probes urls and returns the one algo prefers. Duplicate URLs are
// probed once. A single URL is returned without probing.
func Select(ctx context.Context, urls []string, algo Algorithm, wantChainID int64) (string, error) {
	urls = dedupe(urls)
	switch len(urls) {
	case 0:
		return "", ErrNoHealthyRPC
	case 1:
		return urls[0], nil
	}

	endpoints := ProbeAll(ctx, urls, wantChainID)
	winner, err := NewPicker(algo).Pick(endpoints)
	if err != nil {
		return "", fmt.Errorf("%w (%d probed)", err, len(endpoints))
	}
	return winner.URL, nil
}

// Candidates orders custom URLs before the built-in list.
func Candidates(custom, builtin []string) []string {
	return dedupe(append(append([]string(nil), custom...), builtin...))
}

func dedupe(urls []string) []string {
	seen := make(map[string]bool, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}
