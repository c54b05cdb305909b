package model

import "time"

// ConnectionState is the lifecycle state of the single peer socket.
type ConnectionState string

const (
	ConnDisconnected ConnectionState = "disconnected"
	ConnConnecting   ConnectionState = "connecting"
	ConnOpen         ConnectionState = "open"
	ConnClosing      ConnectionState = "closing"
)

// IdleState mirrors the platform idle query states. Locked screens count as
// idle for accounting.
type IdleState string

const (
	IdleActive IdleState = "active"
	IdleIdle   IdleState = "idle"
	IdleLocked IdleState = "locked"
)

func (s IdleState) IsIdle() bool {
	return s == IdleIdle || s == IdleLocked
}

func CanonicalIdleState(raw string) IdleState {
	switch IdleState(raw) {
	case IdleActive, IdleIdle, IdleLocked:
		return IdleState(raw)
	default:
		return IdleActive
	}
}

// Session is the persisted pairing identity of this client.
type Session struct {
	ClientID  string
	AuthToken string
	Enabled   bool
}

func (s Session) Paired() bool {
	return s.AuthToken != ""
}

// InputDelta carries input counters reported by the event source since the
// previous input event.
type InputDelta struct {
	Keys            int64
	Clicks          int64
	Scrolls         int64
	MouseDistanceIn float64
}

func (d InputDelta) IsZero() bool {
	return d.Keys == 0 && d.Clicks == 0 && d.Scrolls == 0 && d.MouseDistanceIn == 0
}

// UsageEntry is the per-domain accumulator bucket since the last confirmed
// flush. Counters only grow; the clear-on-flush operation is the only
// decrement.
type UsageEntry struct {
	Seconds         int64
	Keys            int64
	Clicks          int64
	Scrolls         int64
	MouseDistanceIn float64
}

func (e UsageEntry) HasInput() bool {
	return e.Keys != 0 || e.Clicks != 0 || e.Scrolls != 0 || e.MouseDistanceIn != 0
}

// EventKind tags browser activity events entering the dispatch loop.
type EventKind string

const (
	EventTabActivated EventKind = "tab_activated"
	EventURLChanged   EventKind = "url_changed"
	EventFocusChanged EventKind = "focus_changed"
	EventIdleChanged  EventKind = "idle_changed"
	EventInput        EventKind = "input"
)

// BrowserEvent is a single browser activity event. Only the fields relevant
// to its Kind are populated.
type BrowserEvent struct {
	Kind       EventKind
	URL        string
	FaviconURL string
	Focused    bool
	Idle       IdleState
	Input      InputDelta
}

// StatusSnapshot is the read-only view served to display surfaces.
type StatusSnapshot struct {
	Connected     bool       `json:"connected"`
	Connecting    bool       `json:"connecting"`
	Enabled       bool       `json:"enabled"`
	Paired        bool       `json:"paired"`
	CurrentDomain string     `json:"current_domain,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	LastReportAt  *time.Time `json:"last_report_at,omitempty"`
}

// Error codes defined by the peer protocol contract.
const (
	ErrCodeAuthFailed      = "AUTH_FAILED"
	ErrCodeInvalidMessage  = "INVALID_MESSAGE"
	ErrCodeRateLimited     = "RATE_LIMITED"
	ErrCodePairingRejected = "PAIRING_REJECTED"
)
