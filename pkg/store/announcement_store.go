package store

import (
	"sync"
	"time"

	"nemsutalks/internal/util"
	"nemsutalks/pkg/domain"
)

// AnnouncementStore holds announcements, most recent first. The isNew flag
// is global per item and is only ever true for published announcements.
type AnnouncementStore struct {
	mu    sync.RWMutex
	items []domain.Announcement
	now   func() time.Time
}

func NewAnnouncementStore(opts ...Option) *AnnouncementStore {
	o := buildOptions(opts)
	return &AnnouncementStore{
		items: []domain.Announcement{},
		now:   o.now,
	}
}

// Add stamps id and today's date; published announcements start as new.
func (s *AnnouncementStore) Add(a domain.NewAnnouncement) domain.Announcement {
	status := a.Status
	if status != domain.AnnouncementPublished {
		status = domain.AnnouncementDraft
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	created := domain.Announcement{
		ID:          util.NewID(),
		Title:       a.Title,
		Description: a.Description,
		Category:    a.Category,
		Date:        today(s.now()),
		Status:      status,
		IsNew:       status == domain.AnnouncementPublished,
	}
	s.items = append([]domain.Announcement{created}, s.items...)
	return created
}

// Seed prepends pre-built announcements as-is.
func (s *AnnouncementStore) Seed(items []domain.Announcement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(append([]domain.Announcement{}, items...), s.items...)
}

func (s *AnnouncementStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	filtered := s.items[:0]
	for _, a := range s.items {
		if a.ID != id {
			filtered = append(filtered, a)
		}
	}
	s.items = filtered
}

// Publish marks the announcement published and new. Publishing an already
// published item sets isNew again.
func (s *AnnouncementStore) Publish(id string) (domain.Announcement, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].Status = domain.AnnouncementPublished
			s.items[i].IsNew = true
			return s.items[i], true
		}
	}
	return domain.Announcement{}, false
}

func (s *AnnouncementStore) MarkRead(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].IsNew = false
		}
	}
}

func (s *AnnouncementStore) Get(id string) (domain.Announcement, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.items {
		if a.ID == id {
			return a, true
		}
	}
	return domain.Announcement{}, false
}

func (s *AnnouncementStore) List() []domain.Announcement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Announcement, len(s.items))
	copy(out, s.items)
	return out
}

// Published filters to published announcements, preserving order.
func (s *AnnouncementStore) Published() []domain.Announcement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Announcement, 0, len(s.items))
	for _, a := range s.items {
		if a.Status == domain.AnnouncementPublished {
			out = append(out, a)
		}
	}
	return out
}

func (s *AnnouncementStore) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, a := range s.items {
		if a.Status == domain.AnnouncementPublished && a.IsNew {
			n++
		}
	}
	return n
}
