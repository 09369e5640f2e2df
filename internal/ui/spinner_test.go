package ui

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSpinnerWritesMessageAndStops(t *testing.T) {
	out := &syncBuffer{}
	s := newSpinner(out, "approving", time.Millisecond)
	s.Start()
	assert.Eventually(t, func() bool { return bytes.Contains([]byte(out.String()), []byte("approving")) },
		time.Second, time.Millisecond)

	s.Update("depositing")
	assert.Eventually(t, func() bool { return bytes.Contains([]byte(out.String()), []byte("depositing")) },
		time.Second, time.Millisecond)

	s.Stop()
	s.Stop()
}

func TestSpinnerStopWithoutStart(t *testing.T) {
	out := &syncBuffer{}
	s := newSpinner(out, "idle", time.Millisecond)
	s.Stop()
	s.Start()
	assert.Empty(t, out.String())
}
