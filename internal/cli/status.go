package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nv4818/webtrack/internal/model"
)

type statusJSON struct {
	Version       string `json:"version"`
	DaemonRunning bool   `json:"daemon_running"`
	Connected     bool   `json:"connected"`
	Connecting    bool   `json:"connecting"`
	Enabled       bool   `json:"enabled"`
	Paired        bool   `json:"paired"`
	CurrentDomain string `json:"current_domain,omitempty"`
	Reason        string `json:"reason,omitempty"`
	LastReportAt  string `json:"last_report_at,omitempty"`
}

func (c *StatusCommand) Execute([]string) error {
	client, err := c.deps.newClient(c.globals)
	if err != nil {
		return err
	}
	snap, err := client.Status(context.Background())
	if err != nil {
		if c.globals.JSON {
			enc := json.NewEncoder(c.deps.out)
			enc.SetIndent("", "  ")
			return enc.Encode(statusJSON{Version: c.version})
		}
		fmt.Fprintf(c.deps.out, "Daemon:    not running (%v)\n", err)
		return nil
	}
	if c.globals.JSON {
		return c.printJSON(snap)
	}
	return c.printHuman(snap)
}

func (c *StatusCommand) printHuman(snap model.StatusSnapshot) error {
	fmt.Fprintf(c.deps.out, "Daemon:    running\n")
	fmt.Fprintf(c.deps.out, "Tracking:  %s\n", onOff(snap.Enabled))
	fmt.Fprintf(c.deps.out, "Peer:      %s\n", connectionLabel(snap))
	fmt.Fprintf(c.deps.out, "Paired:    %s\n", yesNo(snap.Paired))
	if snap.CurrentDomain != "" {
		fmt.Fprintf(c.deps.out, "Domain:    %s\n", snap.CurrentDomain)
	}
	if snap.LastReportAt != nil {
		fmt.Fprintf(c.deps.out, "Last sent: %s\n", snap.LastReportAt.Local().Format("2006-01-02 15:04:05"))
	}
	if snap.Reason != "" {
		fmt.Fprintf(c.deps.out, "Reason:    %s\n", snap.Reason)
	}
	return nil
}

func (c *StatusCommand) printJSON(snap model.StatusSnapshot) error {
	out := statusJSON{
		Version:       c.version,
		DaemonRunning: true,
		Connected:     snap.Connected,
		Connecting:    snap.Connecting,
		Enabled:       snap.Enabled,
		Paired:        snap.Paired,
		CurrentDomain: snap.CurrentDomain,
		Reason:        snap.Reason,
	}
	if snap.LastReportAt != nil {
		out.LastReportAt = snap.LastReportAt.UTC().Format(time.RFC3339)
	}
	enc := json.NewEncoder(c.deps.out)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func connectionLabel(snap model.StatusSnapshot) string {
	switch {
	case snap.Connected:
		return "connected"
	case snap.Connecting:
		return "connecting"
	default:
		return "disconnected"
	}
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
