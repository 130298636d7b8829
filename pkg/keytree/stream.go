package keytree

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/ecoforge/ecoforge-backend/pkg/logger"
)

// EventKind names the write that produced a change event.
type EventKind string

const (
	EventSet      EventKind = "set"
	EventUpdate   EventKind = "update"
	EventPush     EventKind = "push"
	EventDelete   EventKind = "delete"
	EventTransact EventKind = "transact"
)

// Event announces that the node at Path changed. Consumers re-read the path;
// the event intentionally carries no data so a slow subscriber can never
// observe stale state.
type Event struct {
	Path string    `json:"path"`
	Kind EventKind `json:"kind"`
	Key  string    `json:"key,omitempty"`
	At   time.Time `json:"at"`
}

// Publisher sends change events to the shared fan-out channel.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload any) error
}

// WithEvents decorates a Store so every successful write publishes a change
// event. Publish failures are logged and swallowed: the write already
// happened and event delivery is best-effort.
func WithEvents(store Store, pub Publisher, channel string, logg *logger.Logger) Store {
	return &eventedStore{store: store, pub: pub, channel: channel, logg: logg}
}

type eventedStore struct {
	store   Store
	pub     Publisher
	channel string
	logg    *logger.Logger
}

func (s *eventedStore) Get(ctx context.Context, path string, dest any) error {
	return s.store.Get(ctx, path, dest)
}

func (s *eventedStore) Set(ctx context.Context, path string, value any) error {
	if err := s.store.Set(ctx, path, value); err != nil {
		return err
	}
	s.emit(ctx, Event{Path: path, Kind: EventSet})
	return nil
}

func (s *eventedStore) Update(ctx context.Context, path string, fields map[string]any) error {
	if err := s.store.Update(ctx, path, fields); err != nil {
		return err
	}
	s.emit(ctx, Event{Path: path, Kind: EventUpdate})
	return nil
}

func (s *eventedStore) Push(ctx context.Context, path string, value any) (string, error) {
	key, err := s.store.Push(ctx, path, value)
	if err != nil {
		return "", err
	}
	s.emit(ctx, Event{Path: path, Kind: EventPush, Key: key})
	return key, nil
}

func (s *eventedStore) Delete(ctx context.Context, path string) error {
	if err := s.store.Delete(ctx, path); err != nil {
		return err
	}
	s.emit(ctx, Event{Path: path, Kind: EventDelete})
	return nil
}

func (s *eventedStore) Transact(ctx context.Context, path string, fn TxnFunc) error {
	if err := s.store.Transact(ctx, path, fn); err != nil {
		return err
	}
	s.emit(ctx, Event{Path: path, Kind: EventTransact})
	return nil
}

func (s *eventedStore) emit(ctx context.Context, evt Event) {
	if s.pub == nil {
		return
	}
	evt.At = time.Now().UTC()
	payload, err := json.Marshal(evt)
	if err != nil {
		s.logg.Error(ctx, "stream.event.encode", err)
		return
	}
	if err := s.pub.Publish(ctx, s.channel, payload); err != nil {
		s.logg.Warn(s.logg.WithPath(ctx, evt.Path), "stream.event.publish failed")
	}
}

// Hub is the single shared subscription layer: one pub/sub consumer fans
// change events out to any number of per-prefix subscribers, instead of every
// client holding its own store subscription.
type Hub struct {
	mu     sync.Mutex
	subs   map[int]*subscriber
	nextID int
	buffer int
	logg   *logger.Logger
}

type subscriber struct {
	prefix string
	ch     chan Event
}

// Subscription delivers matching events on C until closed.
type Subscription struct {
	C   <-chan Event
	hub *Hub
	id  int
}

// NewHub builds a fan-out hub with the given per-subscriber buffer.
func NewHub(logg *logger.Logger, buffer int) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	return &Hub{subs: map[int]*subscriber{}, buffer: buffer, logg: logg}
}

// Subscribe registers interest in all events under the given path prefix.
// An empty prefix matches every event.
func (h *Hub) Subscribe(prefix string) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	sub := &subscriber{prefix: strings.Trim(prefix, "/"), ch: make(chan Event, h.buffer)}
	h.subs[id] = sub
	return &Subscription{C: sub.ch, hub: h, id: id}
}

// Close unregisters the subscription and closes its channel.
func (s *Subscription) Close() {
	if s == nil || s.hub == nil {
		return
	}
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	if sub, ok := s.hub.subs[s.id]; ok {
		delete(s.hub.subs, s.id)
		close(sub.ch)
	}
	s.hub = nil
}

// Broadcast fans an event out to every matching subscriber. Slow subscribers
// lose events rather than block the hub.
func (h *Hub) Broadcast(evt Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subs {
		if !matchesPrefix(evt.Path, sub.prefix) {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
		}
	}
}

// Run consumes events from the shared pub/sub channel until ctx is done or
// the channel closes.
func (h *Hub) Run(ctx context.Context, messages <-chan *redislib.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			var evt Event
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				h.logg.Error(ctx, "stream.event.decode", err)
				continue
			}
			h.Broadcast(evt)
		}
	}
}

func matchesPrefix(path, prefix string) bool {
	if prefix == "" {
		return true
	}
	path = strings.Trim(path, "/")
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}
