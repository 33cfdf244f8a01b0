package domain

type GeneralSettings struct {
	SiteName          string `json:"siteName"`
	SiteDescription   string `json:"siteDescription"`
	MaintenanceMode   bool   `json:"maintenanceMode"`
	AllowRegistration bool   `json:"allowRegistration"`
	AdminEmail        string `json:"adminEmail"`
}

type ModerationSettings struct {
	AutoModeration  bool   `json:"autoModeration"`
	RequireApproval bool   `json:"requireApproval"`
	ProfanityFilter bool   `json:"profanityFilter"`
	SpamDetection   bool   `json:"spamDetection"`
	MaxPostsPerDay  string `json:"maxPostsPerDay"`
}

type NotificationSettings struct {
	EmailNotifications  bool `json:"emailNotifications"`
	NewUserAlert        bool `json:"newUserAlert"`
	FlaggedContentAlert bool `json:"flaggedContentAlert"`
	DailyDigest         bool `json:"dailyDigest"`
}

type AppearanceSettings struct {
	PrimaryColor  string `json:"primaryColor"`
	AllowDarkMode bool   `json:"allowDarkMode"`
	DefaultTheme  string `json:"defaultTheme"`
}

// SettingsData groups the four editable settings sections.
type SettingsData struct {
	General      GeneralSettings      `json:"general"`
	Moderation   ModerationSettings   `json:"moderation"`
	Notification NotificationSettings `json:"notification"`
	Appearance   AppearanceSettings   `json:"appearance"`
}

type SettingsBackup struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	CreatedAt string       `json:"createdAt"`
	Size      string       `json:"size"`
	Data      SettingsData `json:"data"`
}

// Settings is the full admin settings state.
type Settings struct {
	SettingsData
	Backups    []SettingsBackup `json:"backups"`
	LastBackup *string          `json:"lastBackup"`
	IsDirty    bool             `json:"isDirty"`
}

// Partial updates; nil fields are left untouched.

type GeneralUpdate struct {
	SiteName          *string `json:"siteName,omitempty"`
	SiteDescription   *string `json:"siteDescription,omitempty"`
	MaintenanceMode   *bool   `json:"maintenanceMode,omitempty"`
	AllowRegistration *bool   `json:"allowRegistration,omitempty"`
	AdminEmail        *string `json:"adminEmail,omitempty"`
}

type ModerationUpdate struct {
	AutoModeration  *bool   `json:"autoModeration,omitempty"`
	RequireApproval *bool   `json:"requireApproval,omitempty"`
	ProfanityFilter *bool   `json:"profanityFilter,omitempty"`
	SpamDetection   *bool   `json:"spamDetection,omitempty"`
	MaxPostsPerDay  *string `json:"maxPostsPerDay,omitempty"`
}

type NotificationUpdate struct {
	EmailNotifications  *bool `json:"emailNotifications,omitempty"`
	NewUserAlert        *bool `json:"newUserAlert,omitempty"`
	FlaggedContentAlert *bool `json:"flaggedContentAlert,omitempty"`
	DailyDigest         *bool `json:"dailyDigest,omitempty"`
}

type AppearanceUpdate struct {
	PrimaryColor  *string `json:"primaryColor,omitempty"`
	AllowDarkMode *bool   `json:"allowDarkMode,omitempty"`
	DefaultTheme  *string `json:"defaultTheme,omitempty"`
}

// SettingsUpdate is the PATCH body for the settings endpoint.
type SettingsUpdate struct {
	General      *GeneralUpdate      `json:"general,omitempty"`
	Moderation   *ModerationUpdate   `json:"moderation,omitempty"`
	Notification *NotificationUpdate `json:"notification,omitempty"`
	Appearance   *AppearanceUpdate   `json:"appearance,omitempty"`
}
