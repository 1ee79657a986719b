package ats

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/applypilot/applypilot/internal/logger"
	"github.com/applypilot/applypilot/internal/models"
)

// Polling defaults. A scan normally lands well inside the window; the
// timeout is the client-side guard against a scan that never terminates.
const (
	DefaultPollInterval = 3 * time.Second
	DefaultPollTimeout  = 120 * time.Second
)

var (
	ErrPollTimeout = errors.New("analysis did not finish within the polling window")
	ErrPollStopped = errors.New("polling stopped")
)

// ScoreReader is the read side the poller needs.
type ScoreReader interface {
	GetScore(ctx context.Context, analysisID uuid.UUID) (*models.AtsAnalysisRecord, error)
}

// PollResult is the single outcome of a polling run.
type PollResult struct {
	Record *models.AtsAnalysisRecord
	Err    error
}

// Poller watches one analysis id until the record turns terminal, the
// timeout elapses, or Stop is called. Each Poller serves exactly one
// run; results arrive on Done exactly once.
//
// The record itself never times out server-side: a poller giving up
// leaves the analysis running, and a later read may still find the
// finished score.
type Poller struct {
	reader     ScoreReader
	analysisID uuid.UUID
	interval   time.Duration
	timeout    time.Duration

	cancel   context.CancelFunc
	done     chan PollResult
	stopOnce sync.Once
	started  bool
}

// NewPoller creates a poller with default interval and timeout.
func NewPoller(reader ScoreReader, analysisID uuid.UUID) *Poller {
	return &Poller{
		reader:     reader,
		analysisID: analysisID,
		interval:   DefaultPollInterval,
		timeout:    DefaultPollTimeout,
		done:       make(chan PollResult, 1),
	}
}

// WithTiming overrides interval and timeout. Must be called before Start.
func (p *Poller) WithTiming(interval, timeout time.Duration) *Poller {
	p.interval = interval
	p.timeout = timeout
	return p
}

// Done delivers the run's single result.
func (p *Poller) Done() <-chan PollResult {
	return p.done
}

// Start begins polling in a background goroutine. Calling Start twice
// is a no-op.
func (p *Poller) Start(ctx context.Context) {
	if p.started {
		return
	}
	p.started = true

	ctx, p.cancel = context.WithCancel(ctx)
	go p.run(ctx)
}

// Stop cancels an in-flight run. The run resolves with ErrPollStopped
// unless a terminal result already landed. Safe to call repeatedly and
// safe to call from a different goroutine than Start.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		if p.cancel != nil {
			p.cancel()
		}
	})
}

func (p *Poller) run(ctx context.Context) {
	log := logger.Get()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	deadline := time.NewTimer(p.timeout)
	defer deadline.Stop()

	var lastErr error

	for {
		select {
		case <-ctx.Done():
			p.resolve(PollResult{Err: ErrPollStopped})
			return

		case <-deadline.C:
			log.Debug().Str("analysis_id", p.analysisID.String()).Msg("polling window elapsed")
			err := ErrPollTimeout
			if lastErr != nil {
				err = errors.Join(ErrPollTimeout, lastErr)
			}
			p.resolve(PollResult{Err: err})
			return

		case <-ticker.C:
			rec, err := p.reader.GetScore(ctx, p.analysisID)
			if err != nil {
				if errors.Is(err, ErrAnalysisNotFound) {
					p.resolve(PollResult{Err: err})
					return
				}
				// transient read failure, keep polling until the window closes
				lastErr = err
				continue
			}
			if rec.Terminal() {
				p.resolve(PollResult{Record: rec})
				return
			}
		}
	}
}

func (p *Poller) resolve(res PollResult) {
	select {
	case p.done <- res:
	default:
	}
}
