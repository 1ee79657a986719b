package generator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/applypilot/applypilot/internal/logger"
)

// DefaultAutosaveDelay is how long the debouncer waits after the last
// edit before persisting a draft.
const DefaultAutosaveDelay = 2 * time.Second

type pendingDraft struct {
	timer       *time.Timer
	cvJSON      *string
	coverLetter *string
}

// Autosaver debounces draft writes per application: rapid successive
// edits collapse into one save that fires after a quiet period. Later
// edits within the window replace earlier ones wholesale.
type Autosaver struct {
	service *Service
	delay   time.Duration

	mu      sync.Mutex
	pending map[uuid.UUID]*pendingDraft
}

// NewAutosaver creates an autosaver over the generation service.
func NewAutosaver(service *Service) *Autosaver {
	return &Autosaver{
		service: service,
		delay:   DefaultAutosaveDelay,
		pending: make(map[uuid.UUID]*pendingDraft),
	}
}

// WithDelay overrides the debounce window.
func (a *Autosaver) WithDelay(d time.Duration) *Autosaver {
	a.delay = d
	return a
}

// Queue schedules a draft save. Each call resets the quiet-period timer
// for that application and replaces any content queued before it.
func (a *Autosaver) Queue(jobID uuid.UUID, cvJSON, coverLetter *string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if p, ok := a.pending[jobID]; ok {
		p.timer.Stop()
		p.cvJSON = cvJSON
		p.coverLetter = coverLetter
		p.timer.Reset(a.delay)
		return
	}

	p := &pendingDraft{cvJSON: cvJSON, coverLetter: coverLetter}
	p.timer = time.AfterFunc(a.delay, func() { a.flush(jobID) })
	a.pending[jobID] = p
}

// Flush persists every queued draft immediately. Used on shutdown so a
// closing server does not drop the last edits.
func (a *Autosaver) Flush() {
	a.mu.Lock()
	ids := make([]uuid.UUID, 0, len(a.pending))
	for id, p := range a.pending {
		p.timer.Stop()
		ids = append(ids, id)
	}
	a.mu.Unlock()

	for _, id := range ids {
		a.flush(id)
	}
}

func (a *Autosaver) flush(jobID uuid.UUID) {
	a.mu.Lock()
	p, ok := a.pending[jobID]
	if ok {
		delete(a.pending, jobID)
	}
	a.mu.Unlock()
	if !ok {
		return
	}

	if _, err := a.service.SaveDraft(context.Background(), jobID, p.cvJSON, p.coverLetter); err != nil {
		logger.Get().Error().Err(err).Str("job_id", jobID.String()).Msg("draft autosave failed")
	}
}
