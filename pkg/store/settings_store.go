package store

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"nemsutalks/pkg/domain"
)

const (
	maxBackups    = 10
	backupSize    = "~2 KB"
	exportVersion = "1.0"
)

// DefaultSettings returns the factory settings.
func DefaultSettings() domain.SettingsData {
	return domain.SettingsData{
		General: domain.GeneralSettings{
			SiteName:          "NEMSUTalks",
			SiteDescription:   "A platform for NEMSU students to share their sentiments and connect with peers.",
			MaintenanceMode:   false,
			AllowRegistration: true,
			AdminEmail:        AdminEmail,
		},
		Moderation: domain.ModerationSettings{
			AutoModeration:  true,
			RequireApproval: false,
			ProfanityFilter: true,
			SpamDetection:   true,
			MaxPostsPerDay:  "10",
		},
		Notification: domain.NotificationSettings{
			EmailNotifications:  true,
			NewUserAlert:        true,
			FlaggedContentAlert: true,
			DailyDigest:         false,
		},
		Appearance: domain.AppearanceSettings{
			PrimaryColor:  "#1e40af",
			AllowDarkMode: true,
			DefaultTheme:  "light",
		},
	}
}

// SettingsStore holds the admin settings and their backups.
type SettingsStore struct {
	mu       sync.RWMutex
	state    domain.Settings
	now      func() time.Time
	snapshot *snapshotter
}

func NewSettingsStore(opts ...Option) *SettingsStore {
	o := buildOptions(opts)
	return &SettingsStore{
		state:    domain.Settings{SettingsData: DefaultSettings(), Backups: []domain.SettingsBackup{}},
		now:      o.now,
		snapshot: newSnapshotter(SettingsSnapshot, o.backend),
	}
}

func (s *SettingsStore) Restore(ctx context.Context) error {
	st := domain.Settings{SettingsData: DefaultSettings()}
	ok, err := s.snapshot.load(ctx, &st)
	if err != nil || !ok {
		return err
	}
	if st.Backups == nil {
		st.Backups = []domain.SettingsBackup{}
	}
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
	return nil
}

func (s *SettingsStore) Flush(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.write(ctx, s.state)
}

func (s *SettingsStore) Get() domain.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.state
	out.Backups = slices.Clone(s.state.Backups)
	if s.state.LastBackup != nil {
		v := *s.state.LastBackup
		out.LastBackup = &v
	}
	return out
}

// AllowRegistration reports whether new accounts may be created.
func (s *SettingsStore) AllowRegistration() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.General.AllowRegistration
}

func (s *SettingsStore) UpdateGeneral(u domain.GeneralUpdate) {
	s.mutate(func(st *domain.Settings) {
		g := &st.General
		setIf(&g.SiteName, u.SiteName)
		setIf(&g.SiteDescription, u.SiteDescription)
		setIf(&g.MaintenanceMode, u.MaintenanceMode)
		setIf(&g.AllowRegistration, u.AllowRegistration)
		setIf(&g.AdminEmail, u.AdminEmail)
		st.IsDirty = true
	})
}

func (s *SettingsStore) UpdateModeration(u domain.ModerationUpdate) {
	s.mutate(func(st *domain.Settings) {
		m := &st.Moderation
		setIf(&m.AutoModeration, u.AutoModeration)
		setIf(&m.RequireApproval, u.RequireApproval)
		setIf(&m.ProfanityFilter, u.ProfanityFilter)
		setIf(&m.SpamDetection, u.SpamDetection)
		setIf(&m.MaxPostsPerDay, u.MaxPostsPerDay)
		st.IsDirty = true
	})
}

func (s *SettingsStore) UpdateNotification(u domain.NotificationUpdate) {
	s.mutate(func(st *domain.Settings) {
		n := &st.Notification
		setIf(&n.EmailNotifications, u.EmailNotifications)
		setIf(&n.NewUserAlert, u.NewUserAlert)
		setIf(&n.FlaggedContentAlert, u.FlaggedContentAlert)
		setIf(&n.DailyDigest, u.DailyDigest)
		st.IsDirty = true
	})
}

func (s *SettingsStore) UpdateAppearance(u domain.AppearanceUpdate) {
	s.mutate(func(st *domain.Settings) {
		a := &st.Appearance
		setIf(&a.PrimaryColor, u.PrimaryColor)
		setIf(&a.AllowDarkMode, u.AllowDarkMode)
		setIf(&a.DefaultTheme, u.DefaultTheme)
		st.IsDirty = true
	})
}

// Apply merges every section present in u.
func (s *SettingsStore) Apply(u domain.SettingsUpdate) {
	if u.General != nil {
		s.UpdateGeneral(*u.General)
	}
	if u.Moderation != nil {
		s.UpdateModeration(*u.Moderation)
	}
	if u.Notification != nil {
		s.UpdateNotification(*u.Notification)
	}
	if u.Appearance != nil {
		s.UpdateAppearance(*u.Appearance)
	}
}

// Save marks the current settings as committed.
func (s *SettingsStore) Save() {
	s.mutate(func(st *domain.Settings) { st.IsDirty = false })
}

// ResetToDefaults restores the factory settings and keeps backups.
func (s *SettingsStore) ResetToDefaults() {
	s.mutate(func(st *domain.Settings) {
		st.SettingsData = DefaultSettings()
		st.IsDirty = false
	})
}

// CreateBackup captures the current settings. Only the ten most recent
// backups are kept.
func (s *SettingsStore) CreateBackup(name string) domain.SettingsBackup {
	var backup domain.SettingsBackup
	s.mutate(func(st *domain.Settings) {
		now := s.now()
		if name == "" {
			name = "Backup " + now.Format("1/2/2006")
		}
		backup = domain.SettingsBackup{
			ID:        fmt.Sprintf("backup-%d", now.UnixMilli()),
			Name:      name,
			CreatedAt: now.Format(time.RFC3339Nano),
			Size:      backupSize,
			Data:      st.SettingsData,
		}
		backups := append([]domain.SettingsBackup{backup}, st.Backups...)
		if len(backups) > maxBackups {
			backups = backups[:maxBackups]
		}
		st.Backups = backups
		created := backup.CreatedAt
		st.LastBackup = &created
	})
	return backup
}

// RestoreBackup replaces the settings with those of backup id.
func (s *SettingsStore) RestoreBackup(id string) bool {
	found := false
	s.mutate(func(st *domain.Settings) {
		for _, b := range st.Backups {
			if b.ID == id {
				st.SettingsData = b.Data
				st.IsDirty = false
				found = true
				return
			}
		}
	})
	return found
}

func (s *SettingsStore) DeleteBackup(id string) {
	s.mutate(func(st *domain.Settings) {
		st.Backups = slices.DeleteFunc(st.Backups, func(b domain.SettingsBackup) bool { return b.ID == id })
	})
}

type settingsExport struct {
	domain.SettingsData
	ExportedAt string `json:"exportedAt"`
	Version    string `json:"version"`
}

// Export renders the current settings as indented JSON.
func (s *SettingsStore) Export() ([]byte, error) {
	s.mu.RLock()
	data := s.state.SettingsData
	s.mu.RUnlock()
	return json.MarshalIndent(settingsExport{
		SettingsData: data,
		ExportedAt:   s.now().Format(time.RFC3339Nano),
		Version:      exportVersion,
	}, "", "  ")
}

// Import loads settings previously produced by Export. All four sections
// must be present; fields missing inside a section take their defaults.
func (s *SettingsStore) Import(raw []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	for _, key := range []string{"general", "moderation", "notification", "appearance"} {
		v, ok := probe[key]
		if !ok || string(v) == "null" {
			return fmt.Errorf("%w: missing %s", ErrInvalidSettings, key)
		}
	}
	data := DefaultSettings()
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	s.mutate(func(st *domain.Settings) {
		st.SettingsData = data
		st.IsDirty = false
	})
	return nil
}

// ClearAll resets settings and drops every backup.
func (s *SettingsStore) ClearAll() {
	s.mutate(func(st *domain.Settings) {
		*st = domain.Settings{SettingsData: DefaultSettings(), Backups: []domain.SettingsBackup{}}
	})
}

func (s *SettingsStore) mutate(fn func(st *domain.Settings)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state)
	s.snapshot.save(s.state)
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
