package entity

import (
	"strings"
	"time"
)

// Recipient holds the contact details channels need to reach a user.
type Recipient struct {
	UserID            int64
	FullName          string
	Email             string
	Phone             string
	DeviceTokens      []string
	DesktopPermission DesktopPermission
	Timezone          string
}

// Location resolves the recipient timezone, falling back to UTC.
func (r Recipient) Location() *time.Location {
	tz := strings.TrimSpace(r.Timezone)
	if tz == "" {
		return time.UTC
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DisplayName is the name used in greetings.
func (r Recipient) DisplayName() string {
	if name := strings.TrimSpace(r.FullName); name != "" {
		return name
	}
	return "Investor"
}
