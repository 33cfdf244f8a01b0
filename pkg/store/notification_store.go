package store

import (
	"slices"
	"sync"
	"time"

	"nemsutalks/internal/metrics"
	"nemsutalks/internal/util"
	"nemsutalks/pkg/domain"
)

// NotificationStore holds admin-facing notifications, most recent first.
type NotificationStore struct {
	mu        sync.RWMutex
	items     []domain.Notification
	now       func() time.Time
	observers []func(domain.Notification)
}

func NewNotificationStore(opts ...Option) *NotificationStore {
	o := buildOptions(opts)
	return &NotificationStore{
		items: []domain.Notification{},
		now:   o.now,
	}
}

// Subscribe registers an observer called synchronously after every Add.
// Observers must not call back into the store that triggered the Add.
func (s *NotificationStore) Subscribe(fn func(domain.Notification)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// Add assigns id and timestamp, marks the notification unread and prepends it.
func (s *NotificationStore) Add(n domain.NewNotification) domain.Notification {
	s.mu.Lock()
	created := domain.Notification{
		ID:        util.NewPrefixedID("notif"),
		Title:     n.Title,
		Message:   n.Message,
		Type:      n.Type,
		IsRead:    false,
		CreatedAt: s.now(),
		Link:      n.Link,
	}
	s.items = append([]domain.Notification{created}, s.items...)
	observers := slices.Clone(s.observers)
	s.mu.Unlock()

	metrics.NotificationsEmitted.WithLabelValues(string(created.Type)).Inc()
	for _, fn := range observers {
		fn(created)
	}
	return created
}

// Seed prepends pre-built notifications, keeping their ids and read state.
func (s *NotificationStore) Seed(items []domain.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(append([]domain.Notification{}, items...), s.items...)
}

func (s *NotificationStore) MarkRead(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].IsRead = true
		}
	}
}

func (s *NotificationStore) MarkAllRead() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		s.items[i].IsRead = true
	}
}

func (s *NotificationStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	filtered := s.items[:0]
	for _, n := range s.items {
		if n.ID != id {
			filtered = append(filtered, n)
		}
	}
	s.items = filtered
}

func (s *NotificationStore) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = []domain.Notification{}
}

// UnreadCount is derived on every call.
func (s *NotificationStore) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, item := range s.items {
		if !item.IsRead {
			n++
		}
	}
	return n
}

func (s *NotificationStore) List() []domain.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Notification, len(s.items))
	copy(out, s.items)
	return out
}
