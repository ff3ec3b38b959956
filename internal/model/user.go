package model

import (
	"time"
)

// UserPreferences 用户偏好
type UserPreferences struct {
	EmailNotifications     bool   `json:"email"`
	PushNotifications      bool   `json:"push"`
	MarketingNotifications bool   `json:"marketing"`
	DisplayCurrency        string `json:"display_currency" gorm:"size:16"`
	Timezone               string `json:"timezone" gorm:"size:64"`
	Language               string `json:"language" gorm:"size:16"`
}

// DefaultPreferences 新用户的默认偏好
func DefaultPreferences() UserPreferences {
	return UserPreferences{
		EmailNotifications: true,
		PushNotifications:  true,
		DisplayCurrency:    "USDC",
		Timezone:           "UTC",
		Language:           "en",
	}
}

type UserModel struct {
	Id        string    `json:"id" gorm:"primaryKey;size:64"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Email     string `json:"email"`
	Username  string `json:"username" gorm:"size:64"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`

	WalletAddress  *string    `json:"wallet_address" gorm:"size:128;uniqueIndex"`
	WalletLinkedAt *time.Time `json:"wallet_linked_at"`

	Preferences UserPreferences `json:"preferences" gorm:"embedded;embeddedPrefix:pref_"`
}

func (UserModel) TableName() string {
	return "app_user"
}
