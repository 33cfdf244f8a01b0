package domain

import "time"

// Category is the closed topic set shared by the feed, the admin store and
// the external analyzer.
type Category string

const (
	CategoryAdministration Category = "Administration"
	CategoryInstruction    Category = "Instruction"
	CategoryFacilities     Category = "Physical Facilities & Equipment"
	CategoryStudentService Category = "Student Services"
	CategoryCampusSafety   Category = "Campus Safety"
	CategoryOther          Category = "Other"
)

// Categories lists every valid category in display order.
var Categories = []Category{
	CategoryAdministration,
	CategoryInstruction,
	CategoryFacilities,
	CategoryStudentService,
	CategoryCampusSafety,
	CategoryOther,
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Polarity is the emotional label of a sentiment.
type Polarity string

const (
	PolarityPositive Polarity = "Positive"
	PolarityNegative Polarity = "Negative"
	PolarityNeutral  Polarity = "Neutral"
)

func (p Polarity) Valid() bool {
	return p == PolarityPositive || p == PolarityNegative || p == PolarityNeutral
}

// SentimentStatus is the admin workflow state.
type SentimentStatus string

const (
	StatusOnProcess SentimentStatus = "On Process"
	StatusResolved  SentimentStatus = "Resolved"
)

func (s SentimentStatus) Valid() bool {
	return s == StatusOnProcess || s == StatusResolved
}

type NotificationType string

const (
	NotificationNewSentiment NotificationType = "new_sentiment"
	NotificationStatusUpdate NotificationType = "status_update"
	NotificationSystem       NotificationType = "system"
	NotificationAnnouncement NotificationType = "announcement"
)

type AnnouncementStatus string

const (
	AnnouncementPublished AnnouncementStatus = "Published"
	AnnouncementDraft     AnnouncementStatus = "Draft"
)

func (s AnnouncementStatus) Valid() bool {
	return s == AnnouncementPublished || s == AnnouncementDraft
}

type User struct {
	ID        string    `json:"id"`
	FullName  string    `json:"fullName"`
	Email     string    `json:"email"`
	StudentID string    `json:"studentId"`
	Password  string    `json:"password"`
	Avatar    string    `json:"avatar,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewUser is the registration candidate; id and createdAt are assigned by the store.
type NewUser struct {
	FullName  string `json:"fullName"`
	Email     string `json:"email"`
	StudentID string `json:"studentId"`
	Password  string `json:"password"`
	Avatar    string `json:"avatar,omitempty"`
}

// UserUpdate carries a partial profile update; nil fields are left untouched.
type UserUpdate struct {
	FullName  *string `json:"fullName,omitempty"`
	Email     *string `json:"email,omitempty"`
	StudentID *string `json:"studentId,omitempty"`
	Password  *string `json:"password,omitempty"`
	Avatar    *string `json:"avatar,omitempty"`
}

// LoginResult describes a successful login. Admin logins carry no User.
type LoginResult struct {
	Message string `json:"message"`
	IsAdmin bool   `json:"isAdmin"`
	User    *User  `json:"user,omitempty"`
}

// Sentiment is the admin-canonical feedback record.
type Sentiment struct {
	ID            string          `json:"id"`
	StudID        string          `json:"studId"`
	Content       string          `json:"sentiment"`
	Category      Category        `json:"category"`
	Status        SentimentStatus `json:"status"`
	Date          string          `json:"date"`
	SentimentType *Polarity       `json:"sentimentType,omitempty"`
}

// SentimentStats is the admin dashboard summary.
type SentimentStats struct {
	Total     int `json:"total"`
	OnProcess int `json:"onProcess"`
	Resolved  int `json:"resolved"`
	ThisMonth int `json:"thisMonth"`
}

type TrendPoint struct {
	Month      string `json:"month"`
	Sentiments int    `json:"sentiments"`
}

// Author holds the display fields of whoever wrote a post or comment.
type Author struct {
	ID     string `json:"-"`
	Name   string `json:"author"`
	Avatar string `json:"avatar"`
}

// UserSentiment is a social feed post.
type UserSentiment struct {
	ID        int64     `json:"id"`
	Avatar    string    `json:"avatar"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	Timestamp string    `json:"timestamp"`
	Sentiment Polarity  `json:"sentiment"`
	Category  Category  `json:"category"`
	Likes     int       `json:"likes"`
	LikedBy   []string  `json:"likedBy"`
	Comments  []Comment `json:"comments"`
	CreatedAt int64     `json:"createdAt"`
}

type Comment struct {
	ID        string `json:"id"`
	AuthorID  string `json:"authorId,omitempty"`
	Author    string `json:"author"`
	Avatar    string `json:"avatar"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
	CreatedAt int64  `json:"createdAt"`
}

type Notification struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Type      NotificationType `json:"type"`
	IsRead    bool             `json:"isRead"`
	CreatedAt time.Time        `json:"createdAt"`
	Link      string           `json:"link,omitempty"`
}

// NewNotification is a notification before the store assigns id, timestamp and read state.
type NewNotification struct {
	Title   string           `json:"title"`
	Message string           `json:"message"`
	Type    NotificationType `json:"type"`
	Link    string           `json:"link,omitempty"`
}

type Announcement struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Category    string             `json:"category"`
	Date        string             `json:"date"`
	Status      AnnouncementStatus `json:"status"`
	IsNew       bool               `json:"isNew"`
}

type NewAnnouncement struct {
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Category    string             `json:"category"`
	Status      AnnouncementStatus `json:"status"`
}

// Analysis is the structured output of the external sentiment analyzer.
type Analysis struct {
	Category         Category `json:"category"`
	SentimentType    Polarity `json:"sentimentType"`
	IsAppropriate    bool     `json:"isAppropriate"`
	RewrittenContent string   `json:"rewrittenContent"`
	Reason           string   `json:"reason,omitempty"`
}

// ChatMessage is one turn of an assistant conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
