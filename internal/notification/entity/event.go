package entity

import (
	"strings"
	"time"
)

// Event is a scheduled investor-relations happening. It is read-only here.
type Event struct {
	ID          int64
	Name        string
	Category    EventCategory
	CompanyName string
	CompanyID   *int64
	Sector      string
	SubSector   string
	StartAt     time.Time
	EndAt       *time.Time
	Location    string
	Description string
}

// Company is a directory entry referenced by preference scoping.
type Company struct {
	ID   int64
	Name string
}

// Preference is the single row a user holds for one channel.
type Preference struct {
	UserID        int64
	Channel       Channel
	Enabled       bool
	LookaheadDays int
	Companies     []Company
	Sectors       []string
	UpdatedAt     time.Time
}

// Unscoped reports whether the preference matches every event. Blank sector
// tags and company entries with neither id nor name do not scope it.
func (p Preference) Unscoped() bool {
	for _, c := range p.Companies {
		if c.ID > 0 || strings.TrimSpace(c.Name) != "" {
			return false
		}
	}
	for _, s := range p.Sectors {
		if strings.TrimSpace(s) != "" {
			return false
		}
	}
	return true
}

// CompanyIDs returns the ids of the scoped companies.
func (p Preference) CompanyIDs() []int64 {
	ids := make([]int64, 0, len(p.Companies))
	for _, c := range p.Companies {
		ids = append(ids, c.ID)
	}
	return ids
}

// UpsertPreference replaces the user's row for Channel.
type UpsertPreference struct {
	UserID        int64
	Channel       Channel
	Enabled       bool
	LookaheadDays int
	CompanyIDs    []int64
	Sectors       []string
}
