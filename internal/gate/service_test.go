package gate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/portones-fc/access/internal/audit"
	"github.com/portones-fc/access/internal/domain"
	"github.com/portones-fc/access/internal/store/memory"
)

type mockPublisher struct {
	mu        sync.Mutex
	published []domain.GateCommand
	err       error
}

func (m *mockPublisher) PublishCommand(ctx context.Context, cmd domain.GateCommand) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, cmd)
	return nil
}

func (m *mockPublisher) commands() []domain.GateCommand {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.GateCommand, len(m.published))
	copy(out, m.published)
	return out
}

func newTestService(t *testing.T, timeout time.Duration) (Service, *memory.Store, *mockPublisher, *StateStore) {
	t.Helper()
	mem := memory.New()
	pub := &mockPublisher{}
	states := NewStateStore()
	svc := NewService(mem, mem, states, pub, audit.Noop{}, timeout)
	return svc, mem, pub, states
}

func seedGate(mem *memory.Store, id, colonia string, enabled bool) {
	mem.AddGate(domain.Gate{
		ID:        id,
		Name:      "Main Entrance",
		Type:      domain.GateEntry,
		ColoniaID: colonia,
		Enabled:   enabled,
		CreatedAt: time.Now(),
	})
}

func seedResident(mem *memory.Store, id, colonia string, revoked bool) {
	mem.AddResident(domain.Resident{
		ID:            id,
		Name:          "Ana Torres",
		HouseID:       "house-12",
		ColoniaID:     colonia,
		AccessRevoked: revoked,
		CreatedAt:     time.Now(),
	})
}

func TestOpenGate_CommandedAndConfirmed(t *testing.T) {
	svc, mem, pub, states := newTestService(t, time.Second)
	seedGate(mem, "gate-north", "col-1", true)
	seedResident(mem, "res-1", "col-1", false)

	svc.HandleStatusReport(domain.GateStatusEvent{GateID: "gate-north", Status: domain.GateClosed, Timestamp: time.Now()})

	if err := svc.OpenGate(context.Background(), "gate-north", "res-1", domain.MethodApp); err != nil {
		t.Fatalf("opening gate: %v", err)
	}

	if got := states.Status("gate-north"); got != domain.GateOpening {
		t.Errorf("status = %q, want OPENING", got)
	}

	cmds := pub.commands()
	if len(cmds) != 1 {
		t.Fatalf("published %d commands, want 1", len(cmds))
	}
	cmd := cmds[0]
	if cmd.GateID != "gate-north" || cmd.Action != domain.ActionOpen || cmd.Method != domain.MethodApp || cmd.IssuedBy != "res-1" {
		t.Errorf("got command %+v", cmd)
	}

	// Controller confirms.
	svc.HandleStatusReport(domain.GateStatusEvent{GateID: "gate-north", Status: domain.GateOpen, Timestamp: time.Now()})
	if got := states.Status("gate-north"); got != domain.GateOpen {
		t.Errorf("status after confirmation = %q, want OPEN", got)
	}
}

func TestOpenGate_NoConfirmationDegradesToUnknown(t *testing.T) {
	svc, mem, _, states := newTestService(t, 25*time.Millisecond)
	seedGate(mem, "gate-north", "col-1", true)
	seedResident(mem, "res-1", "col-1", false)

	if err := svc.OpenGate(context.Background(), "gate-north", "res-1", domain.MethodApp); err != nil {
		t.Fatalf("opening gate: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for states.Status("gate-north") != domain.GateUnknown {
		if time.Now().After(deadline) {
			t.Fatalf("status = %q, never degraded to UNKNOWN", states.Status("gate-north"))
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestOpenGate_TransportFailureRollsBack(t *testing.T) {
	svc, mem, pub, states := newTestService(t, time.Second)
	seedGate(mem, "gate-north", "col-1", true)
	seedResident(mem, "res-1", "col-1", false)
	pub.err = domain.ErrTransportUnavailable

	svc.HandleStatusReport(domain.GateStatusEvent{GateID: "gate-north", Status: domain.GateClosed, Timestamp: time.Now()})

	err := svc.OpenGate(context.Background(), "gate-north", "res-1", domain.MethodApp)
	if !errors.Is(err, domain.ErrTransportUnavailable) {
		t.Fatalf("got %v, want ErrTransportUnavailable", err)
	}

	if got := states.Status("gate-north"); got != domain.GateClosed {
		t.Errorf("status after failed publish = %q, want CLOSED", got)
	}

	// The rollback must also disarm the confirmation timer.
	time.Sleep(50 * time.Millisecond)
	if got := states.Status("gate-north"); got != domain.GateClosed {
		t.Errorf("status later = %q, want CLOSED", got)
	}
}

func TestOpenGate_Validation(t *testing.T) {
	tests := []struct {
		name     string
		gateID   string
		resident string
		seed     func(mem *memory.Store)
		wantErr  error
	}{
		{
			name:     "unknown gate",
			gateID:   "gate-ghost",
			resident: "res-1",
			seed: func(mem *memory.Store) {
				seedResident(mem, "res-1", "col-1", false)
			},
			wantErr: domain.ErrGateNotFound,
		},
		{
			name:     "disabled gate",
			gateID:   "gate-north",
			resident: "res-1",
			seed: func(mem *memory.Store) {
				seedGate(mem, "gate-north", "col-1", false)
				seedResident(mem, "res-1", "col-1", false)
			},
			wantErr: domain.ErrGateDisabled,
		},
		{
			name:     "unknown resident",
			gateID:   "gate-north",
			resident: "res-ghost",
			seed: func(mem *memory.Store) {
				seedGate(mem, "gate-north", "col-1", true)
			},
			wantErr: domain.ErrUnauthorized,
		},
		{
			name:     "revoked resident",
			gateID:   "gate-north",
			resident: "res-1",
			seed: func(mem *memory.Store) {
				seedGate(mem, "gate-north", "col-1", true)
				seedResident(mem, "res-1", "col-1", true)
			},
			wantErr: domain.ErrUnauthorized,
		},
		{
			name:     "resident from another colonia",
			gateID:   "gate-north",
			resident: "res-1",
			seed: func(mem *memory.Store) {
				seedGate(mem, "gate-north", "col-1", true)
				seedResident(mem, "res-1", "col-2", false)
			},
			wantErr: domain.ErrUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, mem, pub, _ := newTestService(t, time.Second)
			tt.seed(mem)

			err := svc.OpenGate(context.Background(), tt.gateID, tt.resident, domain.MethodApp)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
			if got := pub.commands(); len(got) != 0 {
				t.Errorf("published %d commands on rejected request", len(got))
			}
		})
	}
}

func TestCloseGate_DispatchesClose(t *testing.T) {
	svc, mem, pub, states := newTestService(t, time.Second)
	seedGate(mem, "gate-north", "col-1", true)
	seedResident(mem, "res-1", "col-1", false)

	if err := svc.CloseGate(context.Background(), "gate-north", "res-1"); err != nil {
		t.Fatalf("closing gate: %v", err)
	}

	if got := states.Status("gate-north"); got != domain.GateClosing {
		t.Errorf("status = %q, want CLOSING", got)
	}

	cmds := pub.commands()
	if len(cmds) != 1 || cmds[0].Action != domain.ActionClose {
		t.Errorf("got commands %+v", cmds)
	}
}

func TestOpenForPass_NoResidentCheck(t *testing.T) {
	svc, mem, pub, _ := newTestService(t, time.Second)
	seedGate(mem, "gate-north", "col-1", true)

	if err := svc.OpenForPass(context.Background(), "gate-north", "pass-42"); err != nil {
		t.Fatalf("opening for pass: %v", err)
	}

	cmds := pub.commands()
	if len(cmds) != 1 {
		t.Fatalf("published %d commands, want 1", len(cmds))
	}
	if cmds[0].Method != domain.MethodQR || cmds[0].IssuedBy != "pass-42" {
		t.Errorf("got command %+v", cmds[0])
	}
}

func TestListGates_AttachesLiveStatus(t *testing.T) {
	svc, mem, _, _ := newTestService(t, time.Second)
	seedGate(mem, "gate-north", "col-1", true)
	seedGate(mem, "gate-south", "col-1", true)
	seedGate(mem, "gate-other", "col-2", true)

	svc.HandleStatusReport(domain.GateStatusEvent{GateID: "gate-north", Status: domain.GateOpen, Timestamp: time.Now()})

	views, err := svc.ListGates(context.Background(), "col-1")
	if err != nil {
		t.Fatalf("listing gates: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("got %d gates, want 2", len(views))
	}

	byID := map[string]domain.GateStatus{}
	for _, v := range views {
		byID[v.ID] = v.Status
	}
	if byID["gate-north"] != domain.GateOpen {
		t.Errorf("gate-north status = %q, want OPEN", byID["gate-north"])
	}
	if byID["gate-south"] != domain.GateUnknown {
		t.Errorf("gate-south status = %q, want UNKNOWN", byID["gate-south"])
	}
}
