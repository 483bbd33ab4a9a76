package model

import (
	"strings"
	"time"
)

// Platform is the closed set of social networks a SocialLink can point at.
type Platform string

const (
	PlatformInstagram Platform = "instagram"
	PlatformYouTube   Platform = "youtube"
	PlatformEmail     Platform = "email"
	PlatformGitHub    Platform = "github"
	PlatformLinkedIn  Platform = "linkedin"
	PlatformTwitter   Platform = "twitter"
)

// Platforms lists every valid platform in display order.
var Platforms = []Platform{
	PlatformInstagram,
	PlatformYouTube,
	PlatformEmail,
	PlatformGitHub,
	PlatformLinkedIn,
	PlatformTwitter,
}

// Valid reports whether p is one of Platforms.
func (p Platform) Valid() bool {
	for _, known := range Platforms {
		if p == known {
			return true
		}
	}
	return false
}

// ParsePlatform normalises s ("  GitHub " → "github") and checks it.
func ParsePlatform(s string) (Platform, bool) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	return p, p.Valid()
}

// SocialLink is a platform-tagged link shown as an icon on the profile.
type SocialLink struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Platform  Platform  `json:"platform"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"createdAt"`
}
