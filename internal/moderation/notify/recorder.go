package notify

import (
	"context"
	"sync"

	"chatguard/internal/moderation/ports"
)

// Recorder keeps dispatched notices in memory. Set Err to make every dispatch
// fail after recording the attempt.
type Recorder struct {
	mu      sync.Mutex
	notices []ports.Notice
	Err     error
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Dispatch(_ context.Context, notice ports.Notice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, notice)
	return r.Err
}

// Notices returns a copy of every recorded notice.
func (r *Recorder) Notices() []ports.Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ports.Notice(nil), r.notices...)
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = nil
}
