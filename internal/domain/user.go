package domain

import (
	"strconv"
	"time"
)

// User represents a Telegram user known to the shop. Users are created on
// first interaction and never deleted.
type User struct {
	UserID         int64     `bson:"user_id" json:"user_id"`
	Username       string    `bson:"username,omitempty" json:"username,omitempty"`
	FirstName      string    `bson:"first_name,omitempty" json:"first_name,omitempty"`
	LastName       string    `bson:"last_name,omitempty" json:"last_name,omitempty"`
	LanguageCode   string    `bson:"language_code,omitempty" json:"language_code,omitempty"`
	AllowBroadcast bool      `bson:"allow_broadcast" json:"allow_broadcast"`
	Blocked        bool      `bson:"blocked" json:"blocked"`
	CreatedAt      time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time `bson:"updated_at" json:"updated_at"`
	LastSeenAt     time.Time `bson:"last_seen_at" json:"last_seen_at"`
}

// Profile carries the mutable identity fields refreshed on every interaction.
type Profile struct {
	UserID       int64
	Username     string
	FirstName    string
	LastName     string
	LanguageCode string
}

// DisplayTag renders a short human-readable label for admin-facing messages.
func (u User) DisplayTag() string {
	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}
	handle := "id:" + strconv.FormatInt(u.UserID, 10)
	if u.Username != "" {
		handle = "@" + u.Username
	}
	if name == "" {
		name = handle
	}
	return name + " (" + handle + ")"
}
