// Package store holds the portal's state owners. Each store guards its own
// state with a mutex and exposes its operations as the only mutation
// surface. Stores are constructed once by the composition layer and passed
// explicitly to whatever needs them.
package store

import (
	"math/rand/v2"
	"time"

	"nemsutalks/pkg/domain"
	"nemsutalks/pkg/storage"
)

// Fixed snapshot names of the persisted stores.
const (
	AuthSnapshot     = "nemsu-user-auth"
	FeedSnapshot     = "user-sentiment-storage"
	SettingsSnapshot = "nemsu-settings"
)

// Notifier receives notifications emitted as side effects of other stores.
// NotificationStore implements it.
type Notifier interface {
	Add(n domain.NewNotification) domain.Notification
}

// Option configures a store.
type Option func(*options)

type options struct {
	now     func() time.Time
	backend storage.Backend
	padding StatsPadding
	intn    func(n int) int
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithBackend enables snapshot persistence for persisted stores. Other
// stores ignore it.
func WithBackend(b storage.Backend) Option {
	return func(o *options) { o.backend = b }
}

// WithStatsPadding sets the cosmetic offsets added to admin stats and trend.
func WithStatsPadding(p StatsPadding) Option {
	return func(o *options) { o.padding = p }
}

// WithRandom overrides the source used for pseudo student ids.
func WithRandom(intn func(n int) int) Option {
	return func(o *options) { o.intn = intn }
}

func buildOptions(opts []Option) options {
	o := options{
		now:  func() time.Time { return time.Now().UTC() },
		intn: rand.IntN,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func today(now time.Time) string {
	return now.Format("2006-01-02")
}
