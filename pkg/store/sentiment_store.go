package store

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"nemsutalks/pkg/domain"
)

// StatsPadding holds cosmetic offsets added to the admin dashboard numbers.
// They carry no meaning; a zero value reports raw counts.
type StatsPadding struct {
	Total     int
	OnProcess int
	Resolved  int
	ThisMonth int
	Monthly   [12]int
}

// DisplayPadding reproduces the dashboard numbers the portal has always shown.
var DisplayPadding = StatsPadding{
	Total:     1226,
	OnProcess: 85,
	Resolved:  1141,
	ThisMonth: 148,
	Monthly:   [12]int{10, 15, 20, 25, 30, 35, 40, 45, 50, 55, 60, 65},
}

const adminLink = "/admin"

// SentimentStore holds the admin-canonical sentiment records, most recent
// first. Every insertion and every status change emits exactly one
// notification through the Notifier.
//
// Display ids are STU-<count+1>. That is only safe because records are
// never deleted and inserts are serialised by the store mutex.
type SentimentStore struct {
	mu       sync.RWMutex
	items    []domain.Sentiment
	notifier Notifier
	now      func() time.Time
	intn     func(n int) int
	padding  StatsPadding
}

func NewSentimentStore(notifier Notifier, opts ...Option) *SentimentStore {
	o := buildOptions(opts)
	return &SentimentStore{
		items:    []domain.Sentiment{},
		notifier: notifier,
		now:      o.now,
		intn:     o.intn,
		padding:  o.padding,
	}
}

// Add creates a record with the next display id, a pseudo student id and
// status On Process, then emits a new_sentiment notification.
func (s *SentimentStore) Add(content string, category domain.Category, polarity *domain.Polarity) domain.Sentiment {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := domain.Sentiment{
		ID:       fmt.Sprintf("STU-%03d", len(s.items)+1),
		StudID:   fmt.Sprintf("2024-%d", s.intn(9000)+1000),
		Content:  content,
		Category: category,
		Status:   domain.StatusOnProcess,
		Date:     today(s.now()),
	}
	if polarity != nil {
		p := *polarity
		created.SentimentType = &p
	}
	s.items = append([]domain.Sentiment{created}, s.items...)

	label := "neutral"
	if polarity != nil && *polarity != "" {
		label = strings.ToLower(string(*polarity))
	}
	s.notify(domain.NewNotification{
		Title:   "New Sentiment Submitted",
		Message: fmt.Sprintf("A new %s sentiment about %s has been submitted.", label, category),
		Type:    domain.NotificationNewSentiment,
		Link:    adminLink,
	})
	return created
}

// Seed prepends pre-built records without emitting notifications.
func (s *SentimentStore) Seed(items []domain.Sentiment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(append([]domain.Sentiment{}, items...), s.items...)
}

// UpdateStatus sets the status of id and emits a status_update notification.
// Unknown ids are a silent no-op reported as false.
func (s *SentimentStore) UpdateStatus(id string, status domain.SentimentStatus) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID != id {
			continue
		}
		s.items[i].Status = status
		s.notify(domain.NewNotification{
			Title:   "Status Updated",
			Message: fmt.Sprintf("Sentiment %s has been marked as %s.", id, status),
			Type:    domain.NotificationStatusUpdate,
			Link:    adminLink,
		})
		return true
	}
	return false
}

func (s *SentimentStore) notify(n domain.NewNotification) {
	if s.notifier != nil {
		s.notifier.Add(n)
	}
}

func (s *SentimentStore) Get(id string) (domain.Sentiment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return domain.Sentiment{}, false
}

func (s *SentimentStore) List() []domain.Sentiment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Sentiment, len(s.items))
	copy(out, s.items)
	return out
}

// Stats counts records by status and those dated in now's month.
func (s *SentimentStore) Stats(now time.Time) domain.SentimentStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := domain.SentimentStats{Total: len(s.items)}
	for _, item := range s.items {
		switch item.Status {
		case domain.StatusOnProcess:
			stats.OnProcess++
		case domain.StatusResolved:
			stats.Resolved++
		}
		if d, err := time.Parse("2006-01-02", item.Date); err == nil &&
			d.Year() == now.Year() && d.Month() == now.Month() {
			stats.ThisMonth++
		}
	}
	stats.Total += s.padding.Total
	stats.OnProcess += s.padding.OnProcess
	stats.Resolved += s.padding.Resolved
	stats.ThisMonth += s.padding.ThisMonth
	return stats
}

// Trend returns per-month record counts for now's year, January first.
func (s *SentimentStore) Trend(now time.Time) []domain.TrendPoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var counts [12]int
	for _, item := range s.items {
		d, err := time.Parse("2006-01-02", item.Date)
		if err != nil || d.Year() != now.Year() {
			continue
		}
		counts[d.Month()-1]++
	}
	out := make([]domain.TrendPoint, 12)
	for i := range out {
		out[i] = domain.TrendPoint{
			Month:      time.Month(i + 1).String()[:3],
			Sentiments: counts[i] + s.padding.Monthly[i],
		}
	}
	return out
}
