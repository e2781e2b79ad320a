package domain

import (
	"strings"
	"time"
)

type GateStatus string

const (
	GateOpen    GateStatus = "OPEN"
	GateClosed  GateStatus = "CLOSED"
	GateOpening GateStatus = "OPENING"
	GateClosing GateStatus = "CLOSING"
	GateUnknown GateStatus = "UNKNOWN"
)

// ParseGateStatus maps a controller-reported status string onto the door
// state domain. Controllers report lowercase ("open", "closed"); matching is
// case-insensitive. Non-door announcements such as "online" do not parse.
func ParseGateStatus(s string) (GateStatus, bool) {
	switch st := GateStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case GateOpen, GateClosed, GateOpening, GateClosing, GateUnknown:
		return st, true
	default:
		return "", false
	}
}

type GateType string

const (
	GateEntry GateType = "ENTRADA"
	GateExit  GateType = "SALIDA"
)

type Gate struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      GateType  `json:"type"`
	ColoniaID string    `json:"colonia_id"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
}

type CommandAction string

const (
	ActionOpen  CommandAction = "OPEN"
	ActionClose CommandAction = "CLOSE"
)

type CommandMethod string

const (
	MethodApp       CommandMethod = "APP"
	MethodQR        CommandMethod = "QR"
	MethodManual    CommandMethod = "MANUAL"
	MethodAutomatic CommandMethod = "AUTOMATIC"
)

func ParseCommandMethod(s string) (CommandMethod, bool) {
	switch m := CommandMethod(strings.ToUpper(strings.TrimSpace(s))); m {
	case MethodApp, MethodQR, MethodManual, MethodAutomatic:
		return m, true
	default:
		return "", false
	}
}

// GateCommand is the transient instruction published to a controller. It is
// not persisted beyond the audit trail.
type GateCommand struct {
	GateID    string        `json:"gate_id"`
	Action    CommandAction `json:"action"`
	IssuedBy  string        `json:"issued_by"`
	Method    CommandMethod `json:"method"`
	Timestamp time.Time     `json:"timestamp"`
}

// GateStatusEvent is an inbound door state report originating at a physical
// controller.
type GateStatusEvent struct {
	GateID    string
	Status    GateStatus
	Timestamp time.Time
}

// GateStatusChange notifies watchers that a gate's observed status moved.
type GateStatusChange struct {
	GateID string     `json:"gate_id"`
	Status GateStatus `json:"status"`
	At     time.Time  `json:"at"`
}

// GateView is a configured gate with its live door status attached.
type GateView struct {
	Gate
	Status GateStatus `json:"status"`
}
