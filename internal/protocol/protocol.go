// Package protocol implements the peer wire contract: one flat JSON object
// per message over a local stream, each stamped with schema_version, type,
// ts (epoch milliseconds) and client_id.
package protocol

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

const (
	SchemaVersion     = 1
	DefaultMaxMessage = 256 * 1024
)

const (
	TypeHello           = "hello"
	TypeHelloAck        = "hello_ack"
	TypePairingApproved = "pairing_approved"
	TypeUsageReport     = "usage_report"
	TypeMetadataUpdate  = "metadata_update"
	TypeGoodbye         = "goodbye"
	TypeError           = "error"
)

var (
	ErrInvalidMessage     = errors.New("protocol: invalid message")
	ErrMessageTooLarge    = errors.New("protocol: message too large")
	ErrUnsupportedVersion = errors.New("protocol: unsupported schema version")
)

// Envelope holds the fields every message carries. Outbound messages embed it
// and are stamped immediately before send.
type Envelope struct {
	SchemaVersion int    `json:"schema_version"`
	Type          string `json:"type"`
	TS            int64  `json:"ts"`
	ClientID      string `json:"client_id"`
}

func (e *Envelope) Stamp(msgType, clientID string, now time.Time) {
	e.SchemaVersion = SchemaVersion
	e.Type = msgType
	e.TS = now.UnixMilli()
	e.ClientID = clientID
}

// Stampable is satisfied by every outbound message through its embedded
// *Envelope.
type Stampable interface {
	Stamp(msgType, clientID string, now time.Time)
}

func (e Envelope) Validate() error {
	if e.SchemaVersion != SchemaVersion {
		return ErrUnsupportedVersion
	}
	if strings.TrimSpace(e.Type) == "" {
		return fmt.Errorf("%w: type is required", ErrInvalidMessage)
	}
	return nil
}

type BrowserInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type Hello struct {
	Envelope
	AuthToken    string      `json:"auth_token,omitempty"`
	Browser      BrowserInfo `json:"browser"`
	Capabilities []string    `json:"capabilities"`
	ExtVersion   string      `json:"ext_version"`
}

type ReportEntry struct {
	Domain          string  `json:"domain"`
	Seconds         int64   `json:"seconds"`
	Keys            int64   `json:"keys"`
	Clicks          int64   `json:"clicks"`
	Scrolls         int64   `json:"scrolls"`
	MouseDistanceIn float64 `json:"mouse_distance_in"`
}

type UsageReport struct {
	Envelope
	PeriodStart int64         `json:"period_start"`
	PeriodEnd   int64         `json:"period_end"`
	Report      []ReportEntry `json:"report"`
}

type MetadataUpdate struct {
	Envelope
	Domain      string   `json:"domain"`
	FaviconURLs []string `json:"favicon_urls"`
}

type Goodbye struct {
	Envelope
	Reason string `json:"reason"`
}

// Inbound is the union of peer-originated messages; Type selects which
// fields are meaningful.
type Inbound struct {
	Envelope
	ServerTime   int64  `json:"server_time,omitempty"`
	SessionToken string `json:"session_token,omitempty"`
	AuthToken    string `json:"auth_token,omitempty"`
	ErrorCode    string `json:"error_code,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

// DecodeInbound parses one raw message. Unknown types decode fine and are
// the caller's concern; malformed JSON or a wrong schema version does not.
func DecodeInbound(raw []byte) (Inbound, error) {
	var msg Inbound
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Inbound{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if err := msg.Validate(); err != nil {
		return Inbound{}, err
	}
	return msg, nil
}

// WriteMessage encodes msg as a single newline-free JSON object followed by
// a line separator.
func WriteMessage(w io.Writer, msg any) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if bytes.ContainsRune(body, '\n') {
		return fmt.Errorf("%w: embedded newline", ErrInvalidMessage)
	}
	body = append(body, '\n')
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

// ReadMessage reads one line-delimited message, enforcing maxSize.
func ReadMessage(r *bufio.Reader, maxSize int) ([]byte, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxMessage
	}
	var buf []byte
	for {
		chunk, err := r.ReadSlice('\n')
		buf = append(buf, chunk...)
		if len(buf) > maxSize {
			return nil, ErrMessageTooLarge
		}
		if err == nil {
			break
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		return nil, err
	}
	line := bytes.TrimRight(buf, "\r\n")
	if len(line) == 0 {
		return nil, fmt.Errorf("%w: empty line", ErrInvalidMessage)
	}
	return line, nil
}
