package progress

import (
	"sync"

	"tubescribe/models"
)

// Tracker holds the live state of one running pipeline task and
// publishes a snapshot on every change.
type Tracker struct {
	videoID int64
	hub     *Hub

	mu          sync.Mutex
	status      models.Status
	currentStep string
	progress    int
}

// SetStatus updates the tracked fields and broadcasts the result.
// An empty status or step leaves that field unchanged; a negative
// progress value leaves progress unchanged.
func (t *Tracker) SetStatus(status models.Status, step string, progress int) {
	t.mu.Lock()
	if status != "" {
		t.status = status
	}
	if step != "" {
		t.currentStep = step
	}
	if progress >= 0 {
		t.progress = progress
	}
	snap := t.snapshotLocked()
	t.mu.Unlock()

	t.hub.Publish(snap)
}

// Snapshot returns the current state without publishing.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Tracker) snapshotLocked() Snapshot {
	return Snapshot{
		VideoID:     t.videoID,
		Status:      string(t.status),
		CurrentStep: t.currentStep,
		Progress:    t.progress,
	}
}

// Registry tracks every in-flight pipeline task by video id. A task is
// registered before its goroutine starts and removed only when it
// reaches a terminal state.
type Registry struct {
	hub *Hub

	mu    sync.RWMutex
	tasks map[int64]*Tracker
}

func NewRegistry(hub *Hub) *Registry {
	return &Registry{hub: hub, tasks: make(map[int64]*Tracker)}
}

// Register creates a tracker for a video. Registering an id that is
// already tracked returns the existing tracker and false.
func (r *Registry) Register(videoID int64) (*Tracker, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.tasks[videoID]; ok {
		return existing, false
	}
	t := &Tracker{
		videoID:     videoID,
		hub:         r.hub,
		status:      models.StatusQueued,
		currentStep: models.StepWaiting,
	}
	r.tasks[videoID] = t
	return t, true
}

// Remove drops a tracker. Called from a deferred finalizer so the
// registry is cleaned up even when the pipeline panics.
func (r *Registry) Remove(videoID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tasks, videoID)
}

// Get returns the tracker for an in-flight video, if any.
func (r *Registry) Get(videoID int64) (*Tracker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[videoID]
	return t, ok
}

// Active returns the ids of all in-flight tasks.
func (r *Registry) Active() []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]int64, 0, len(r.tasks))
	for id := range r.tasks {
		ids = append(ids, id)
	}
	return ids
}
