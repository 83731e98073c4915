package entity

import (
	"strings"
)

type Channel int16

const (
	ChannelUnknown Channel = 0
	ChannelEmail   Channel = 1
	ChannelSMS     Channel = 2
	ChannelDesktop Channel = 3
	ChannelMobile  Channel = 4
)

// Channels lists every deliverable channel.
func Channels() []Channel {
	return []Channel{ChannelEmail, ChannelSMS, ChannelDesktop, ChannelMobile}
}

func ChannelFromString(raw string) Channel {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "email":
		return ChannelEmail
	case "sms":
		return ChannelSMS
	case "desktop":
		return ChannelDesktop
	case "mobile":
		return ChannelMobile
	default:
		return ChannelUnknown
	}
}

func (c Channel) String() string {
	switch c {
	case ChannelEmail:
		return "email"
	case ChannelSMS:
		return "sms"
	case ChannelDesktop:
		return "desktop"
	case ChannelMobile:
		return "mobile"
	default:
		return "unknown"
	}
}

type AttemptStatus int16

const (
	AttemptStatusUnknown AttemptStatus = 0
	AttemptStatusPending AttemptStatus = 1
	AttemptStatusSent    AttemptStatus = 2
	AttemptStatusFailed  AttemptStatus = 3
)

func AttemptStatusFromString(raw string) AttemptStatus {
	switch strings.TrimSpace(raw) {
	case "pending":
		return AttemptStatusPending
	case "sent":
		return AttemptStatusSent
	case "failed":
		return AttemptStatusFailed
	default:
		return AttemptStatusUnknown
	}
}

func (s AttemptStatus) String() string {
	switch s {
	case AttemptStatusPending:
		return "pending"
	case AttemptStatusSent:
		return "sent"
	case AttemptStatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

type EventCategory string

const (
	EventCategoryEarningsCall    EventCategory = "earnings_call"
	EventCategoryInvestorMeeting EventCategory = "investor_meeting"
	EventCategoryConference      EventCategory = "conference"
	EventCategoryRoadshow        EventCategory = "roadshow"
	EventCategoryAnalystDay      EventCategory = "analyst_day"
	EventCategoryProductLaunch   EventCategory = "product_launch"
	EventCategoryOther           EventCategory = "other"
)

// Label is the human readable name used in rendered messages.
func (c EventCategory) Label() string {
	switch c {
	case EventCategoryEarningsCall:
		return "Earnings Call"
	case EventCategoryInvestorMeeting:
		return "Investor Meeting"
	case EventCategoryConference:
		return "Conference"
	case EventCategoryRoadshow:
		return "Roadshow"
	case EventCategoryAnalystDay:
		return "Analyst Day"
	case EventCategoryProductLaunch:
		return "Product Launch"
	default:
		return "Other"
	}
}

func (c EventCategory) String() string {
	return string(c)
}

type DesktopPermission string

const (
	DesktopPermissionDefault DesktopPermission = "default"
	DesktopPermissionGranted DesktopPermission = "granted"
	DesktopPermissionDenied  DesktopPermission = "denied"
)

func DesktopPermissionFromString(raw string) DesktopPermission {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "granted":
		return DesktopPermissionGranted
	case "denied":
		return DesktopPermissionDenied
	default:
		return DesktopPermissionDefault
	}
}

func (p DesktopPermission) String() string {
	return string(p)
}

// Trigger names what started a dispatch cycle.
type Trigger string

const (
	TriggerSchedule Trigger = "schedule"
	TriggerManual   Trigger = "manual"
	TriggerQueue    Trigger = "queue"
)

func (t Trigger) String() string {
	return string(t)
}
