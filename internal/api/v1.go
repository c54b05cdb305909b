// Package api defines the JSON payloads served over the local control
// socket, shared by the daemon and the CLI client.
package api

import (
	"time"

	"github.com/nv4818/webtrack/internal/model"
)

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	SchemaVersion string    `json:"schema_version"`
	GeneratedAt   time.Time `json:"generated_at"`
	Error         APIError  `json:"error"`
}

type StatusEnvelope struct {
	SchemaVersion string               `json:"schema_version"`
	GeneratedAt   time.Time            `json:"generated_at"`
	Status        model.StatusSnapshot `json:"status"`
}

type TestConnectionResponse struct {
	SchemaVersion string    `json:"schema_version"`
	GeneratedAt   time.Time `json:"generated_at"`
	Reachable     bool      `json:"reachable"`
	Error         string    `json:"error,omitempty"`
}

type EnabledRequest struct {
	Enabled bool `json:"enabled"`
}

// EventRequest is one browser activity event posted by the extension bridge.
type EventRequest struct {
	Kind            string  `json:"kind"`
	URL             string  `json:"url,omitempty"`
	FaviconURL      string  `json:"favicon_url,omitempty"`
	Focused         bool    `json:"focused,omitempty"`
	Idle            string  `json:"idle,omitempty"`
	Keys            int64   `json:"keys,omitempty"`
	Clicks          int64   `json:"clicks,omitempty"`
	Scrolls         int64   `json:"scrolls,omitempty"`
	MouseDistanceIn float64 `json:"mouse_distance_in,omitempty"`
}

type EventResponse struct {
	SchemaVersion string    `json:"schema_version"`
	GeneratedAt   time.Time `json:"generated_at"`
	Accepted      bool      `json:"accepted"`
}

type EnabledResponse struct {
	SchemaVersion string    `json:"schema_version"`
	GeneratedAt   time.Time `json:"generated_at"`
	Enabled       bool      `json:"enabled"`
}
