package app

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"nemsutalks/pkg/domain"
)

// Feed

func (a *App) Feed() []domain.UserSentiment { return a.feed.List() }

func (a *App) Post(postID int64) (domain.UserSentiment, bool) { return a.feed.Get(postID) }

func (a *App) ToggleLike(postID int64, userID string) (domain.UserSentiment, bool) {
	return a.feed.ToggleLike(postID, userID)
}

func (a *App) IsLiked(postID int64, userID string) bool { return a.feed.IsLiked(postID, userID) }

// AddComment attaches a comment signed with the user's name and avatar.
func (a *App) AddComment(postID int64, user domain.User, content string) (domain.Comment, bool, error) {
	content, err := validateContent(content)
	if err != nil {
		return domain.Comment{}, false, err
	}
	comment, ok := a.feed.AddComment(postID, commentAuthor(user), content)
	return comment, ok, nil
}

// DeleteComment removes a comment. Students may delete only their own
// comments; the administrator may delete any.
func (a *App) DeleteComment(postID int64, commentID string, p Principal) error {
	actorID := p.User.ID
	if p.Admin {
		actorID = ""
	} else if actorID == "" {
		return ErrUnauthorized
	}
	return a.feed.DeleteComment(postID, commentID, actorID)
}

func commentAuthor(u domain.User) domain.Author {
	name := strings.TrimSpace(u.FullName)
	if name == "" {
		name = "Student"
	}
	avatar := strings.TrimSpace(u.Avatar)
	if avatar == "" {
		avatar = initials(name)
	}
	return domain.Author{ID: u.ID, Name: name, Avatar: avatar}
}

// initials returns up to two upper-case initials of name.
func initials(name string) string {
	var out []rune
	for _, word := range strings.Fields(name) {
		r := []rune(word)[0]
		out = append(out, unicode.ToUpper(r))
		if len(out) == 2 {
			break
		}
	}
	return string(out)
}

// Announcements

// Announcements returns published announcements, or every announcement
// for the administrator.
func (a *App) Announcements(admin bool) []domain.Announcement {
	if admin {
		return a.announcements.List()
	}
	return a.announcements.Published()
}

func (a *App) UnreadAnnouncements() int { return a.announcements.UnreadCount() }

func (a *App) MarkAnnouncementRead(id string) { a.announcements.MarkRead(id) }

func (a *App) CreateAnnouncement(in domain.NewAnnouncement) (domain.Announcement, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)
	if in.Title == "" || in.Description == "" {
		return domain.Announcement{}, ErrInvalidAnnouncement
	}
	if in.Status != "" && !in.Status.Valid() {
		return domain.Announcement{}, ErrInvalidStatus
	}
	return a.announcements.Add(in), nil
}

func (a *App) DeleteAnnouncement(id string) { a.announcements.Delete(id) }

func (a *App) PublishAnnouncement(id string) (domain.Announcement, bool) {
	return a.announcements.Publish(id)
}

// Admin sentiments

func (a *App) Sentiments() []domain.Sentiment { return a.sentiments.List() }

func (a *App) Sentiment(id string) (domain.Sentiment, bool) { return a.sentiments.Get(id) }

// UpdateSentimentStatus reports false for an unknown id.
func (a *App) UpdateSentimentStatus(id string, status domain.SentimentStatus) (bool, error) {
	if !status.Valid() {
		return false, ErrInvalidStatus
	}
	return a.sentiments.UpdateStatus(id, status), nil
}

func (a *App) Stats() domain.SentimentStats { return a.sentiments.Stats(a.now()) }

func (a *App) Trend() []domain.TrendPoint { return a.sentiments.Trend(a.now()) }

// Admin notifications

func (a *App) Notifications() []domain.Notification { return a.notifications.List() }

func (a *App) UnreadNotifications() int { return a.notifications.UnreadCount() }

func (a *App) MarkNotificationRead(id string) { a.notifications.MarkRead(id) }

func (a *App) MarkAllNotificationsRead() { a.notifications.MarkAllRead() }

func (a *App) DeleteNotification(id string) { a.notifications.Delete(id) }

func (a *App) ClearNotifications() { a.notifications.ClearAll() }

// RaiseSecurityAlert tells the administrator about a burst of failed or
// rate limited security events from one client.
func (a *App) RaiseSecurityAlert(event, outcome, ip string, count int64, window time.Duration) domain.Notification {
	what := strings.TrimPrefix(event, "portal.")
	verb := "failed"
	if outcome == "rate_limited" {
		verb = "rate limited"
	}
	return a.notifications.Add(domain.NewNotification{
		Title:   "Security Alert",
		Message: fmt.Sprintf("%d %s %s attempts from %s within %s.", count, verb, what, ip, window),
		Type:    domain.NotificationSystem,
		Link:    "/admin",
	})
}

// Settings

func (a *App) Settings() domain.Settings { return a.settings.Get() }

func (a *App) UpdateSettings(u domain.SettingsUpdate) domain.Settings {
	a.settings.Apply(u)
	return a.settings.Get()
}

func (a *App) SaveSettings() domain.Settings {
	a.settings.Save()
	return a.settings.Get()
}

func (a *App) ResetSettings() domain.Settings {
	a.settings.ResetToDefaults()
	return a.settings.Get()
}

func (a *App) CreateSettingsBackup(name string) domain.SettingsBackup {
	return a.settings.CreateBackup(strings.TrimSpace(name))
}

func (a *App) RestoreSettingsBackup(id string) bool { return a.settings.RestoreBackup(id) }

func (a *App) DeleteSettingsBackup(id string) { a.settings.DeleteBackup(id) }

func (a *App) ExportSettings() ([]byte, error) { return a.settings.Export() }

func (a *App) ImportSettings(raw []byte) error { return a.settings.Import(raw) }

func (a *App) ClearSettings() domain.Settings {
	a.settings.ClearAll()
	return a.settings.Get()
}
