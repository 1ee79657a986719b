package ats

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/applypilot/applypilot/internal/models"
)

// scriptedReader returns pending for a fixed number of reads, then a
// terminal record.
type scriptedReader struct {
	mu           sync.Mutex
	pendingReads int
	terminal     *models.AtsAnalysisRecord
	err          error
	reads        int
}

func (r *scriptedReader) GetScore(_ context.Context, id uuid.UUID) (*models.AtsAnalysisRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reads++
	if r.err != nil {
		return nil, r.err
	}
	if r.reads <= r.pendingReads {
		return &models.AtsAnalysisRecord{ID: id}, nil
	}
	return r.terminal, nil
}

func (r *scriptedReader) readCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reads
}

func terminalRecord(id uuid.UUID) *models.AtsAnalysisRecord {
	score := 80.0
	now := time.Now()
	return &models.AtsAnalysisRecord{ID: id, Score: &score, CachedAt: &now}
}

func TestPollerResolvesOnTerminalRecord(t *testing.T) {
	id := uuid.New()
	reader := &scriptedReader{pendingReads: 2, terminal: terminalRecord(id)}

	p := NewPoller(reader, id).WithTiming(5*time.Millisecond, time.Second)
	p.Start(context.Background())

	select {
	case res := <-p.Done():
		require.NoError(t, res.Err)
		require.NotNil(t, res.Record)
		assert.Equal(t, 80.0, *res.Record.Score)
		assert.GreaterOrEqual(t, reader.readCount(), 3)
	case <-time.After(time.Second):
		t.Fatal("poller never resolved")
	}
}

func TestPollerResolvesOnErrorRecord(t *testing.T) {
	id := uuid.New()
	msg := "llm unavailable: timeout"
	reader := &scriptedReader{terminal: &models.AtsAnalysisRecord{ID: id, ErrorMessage: &msg}}

	p := NewPoller(reader, id).WithTiming(5*time.Millisecond, time.Second)
	p.Start(context.Background())

	res := <-p.Done()
	require.NoError(t, res.Err)
	require.NotNil(t, res.Record.ErrorMessage)
	assert.Equal(t, msg, *res.Record.ErrorMessage)
}

func TestPollerTimesOut(t *testing.T) {
	id := uuid.New()
	reader := &scriptedReader{pendingReads: 1 << 30}

	p := NewPoller(reader, id).WithTiming(5*time.Millisecond, 30*time.Millisecond)
	p.Start(context.Background())

	select {
	case res := <-p.Done():
		assert.ErrorIs(t, res.Err, ErrPollTimeout)
		assert.Nil(t, res.Record)
	case <-time.After(time.Second):
		t.Fatal("poller never timed out")
	}
}

func TestPollerStop(t *testing.T) {
	id := uuid.New()
	reader := &scriptedReader{pendingReads: 1 << 30}

	p := NewPoller(reader, id).WithTiming(5*time.Millisecond, time.Minute)
	p.Start(context.Background())

	time.Sleep(20 * time.Millisecond)
	p.Stop()

	res := <-p.Done()
	assert.ErrorIs(t, res.Err, ErrPollStopped)

	// no further polling after stop
	n := reader.readCount()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, n, reader.readCount())
}

func TestPollerStopIdempotent(t *testing.T) {
	id := uuid.New()
	reader := &scriptedReader{pendingReads: 1 << 30}

	p := NewPoller(reader, id).WithTiming(5*time.Millisecond, time.Minute)
	p.Start(context.Background())

	p.Stop()
	p.Stop()

	res := <-p.Done()
	assert.ErrorIs(t, res.Err, ErrPollStopped)
}

func TestPollerUnknownAnalysisAborts(t *testing.T) {
	id := uuid.New()
	reader := &scriptedReader{err: ErrAnalysisNotFound}

	p := NewPoller(reader, id).WithTiming(5*time.Millisecond, time.Second)
	p.Start(context.Background())

	res := <-p.Done()
	assert.ErrorIs(t, res.Err, ErrAnalysisNotFound)
}

func TestPollerKeepsGoingOnTransientErrors(t *testing.T) {
	id := uuid.New()
	reader := &flakyReader{failures: 2, terminal: terminalRecord(id)}

	p := NewPoller(reader, id).WithTiming(5*time.Millisecond, time.Second)
	p.Start(context.Background())

	res := <-p.Done()
	require.NoError(t, res.Err)
	require.NotNil(t, res.Record.Score)
}

type flakyReader struct {
	mu       sync.Mutex
	failures int
	terminal *models.AtsAnalysisRecord
}

func (r *flakyReader) GetScore(_ context.Context, _ uuid.UUID) (*models.AtsAnalysisRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failures > 0 {
		r.failures--
		return nil, errors.New("connection reset")
	}
	return r.terminal, nil
}
