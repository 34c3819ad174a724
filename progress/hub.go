package progress

import "sync"

// Topics published by the hub. "all_updates" carries every video event
// wrapped with its id, "video_progress" carries flat snapshots for
// clients that joined a specific video.
const (
	TopicAll      = "all_updates"
	TopicProgress = "video_progress"
)

// Snapshot is the wire form of a single progress update.
type Snapshot struct {
	VideoID     int64  `json:"video_id"`
	Status      string `json:"status"`
	CurrentStep string `json:"current_step"`
	Progress    int    `json:"progress"`
}

// Event pairs a topic with its payload, ready for serialization.
type Event struct {
	Topic   string      `json:"topic"`
	Payload interface{} `json:"payload"`
}

type allPayload struct {
	VideoID int64    `json:"video_id"`
	Data    Snapshot `json:"data"`
}

// Subscription receives events from the hub. Events drop when the
// channel is full so a slow client never stalls the pipeline.
type Subscription struct {
	C chan Event

	mu     sync.Mutex
	joined map[int64]struct{}
}

// Join subscribes this client to flat progress events for one video.
// The "all_updates" topic is always delivered regardless of joins.
func (s *Subscription) Join(videoID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.joined[videoID] = struct{}{}
}

// Leave stops flat progress events for one video.
func (s *Subscription) Leave(videoID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.joined, videoID)
}

func (s *Subscription) wants(videoID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.joined[videoID]
	return ok
}

// Hub fans progress events out to websocket subscribers.
type Hub struct {
	mu   sync.RWMutex
	subs map[*Subscription]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[*Subscription]struct{})}
}

// Subscribe registers a new client. The caller must call Unsubscribe
// when the client disconnects.
func (h *Hub) Subscribe() *Subscription {
	sub := &Subscription{
		C:      make(chan Event, 32),
		joined: make(map[int64]struct{}),
	}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	delete(h.subs, sub)
	h.mu.Unlock()
	close(sub.C)
}

// Publish delivers a snapshot on both topics. Delivery is best effort:
// events are dropped for subscribers whose buffers are full.
func (h *Hub) Publish(snap Snapshot) {
	all := Event{Topic: TopicAll, Payload: allPayload{VideoID: snap.VideoID, Data: snap}}
	flat := Event{Topic: TopicProgress, Payload: snap}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs {
		send(sub, all)
		if sub.wants(snap.VideoID) {
			send(sub, flat)
		}
	}
}

func send(sub *Subscription, ev Event) {
	select {
	case sub.C <- ev:
	default:
	}
}
