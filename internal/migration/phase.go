// Package migration models the staged rollout of the document-to-relational
// store migration. The phase decides which backend is authoritative for a
// request and whether writes are mirrored to the other backend.
package migration

import (
	"fmt"
	"strings"
	"time"
)

// Phase is the position in the migration lifecycle. Operators advance it
// through configuration; the code only branches on the configured value and
// does not enforce forward-only transitions.
type Phase int

const (
	// PhasePrimaryOnly writes and reads the document store exclusively.
	PhasePrimaryOnly Phase = iota

	// PhaseDualWritePrimaryRead mirrors writes into the relational store
	// while the document store stays authoritative.
	PhaseDualWritePrimaryRead

	// PhaseDualWriteSecondaryRead makes the relational store authoritative
	// while the document store keeps receiving shadow writes so a rollback
	// stays possible.
	PhaseDualWriteSecondaryRead

	// PhaseSecondaryOnly writes and reads the relational store exclusively.
	PhaseSecondaryOnly
)

func (p Phase) String() string {
	switch p {
	case PhasePrimaryOnly:
		return "primary_only"
	case PhaseDualWritePrimaryRead:
		return "dual_write_primary_read"
	case PhaseDualWriteSecondaryRead:
		return "dual_write_secondary_read"
	case PhaseSecondaryOnly:
		return "secondary_only"
	default:
		return fmt.Sprintf("unknown(%d)", int(p))
	}
}

// ParsePhase converts a configuration string into a Phase.
func ParsePhase(s string) (Phase, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "primary_only", "primaryonly":
		return PhasePrimaryOnly, nil
	case "dual_write_primary_read", "dualwriteprimaryread":
		return PhaseDualWritePrimaryRead, nil
	case "dual_write_secondary_read", "dualwritesecondaryread":
		return PhaseDualWriteSecondaryRead, nil
	case "secondary_only", "secondaryonly":
		return PhaseSecondaryOnly, nil
	default:
		return PhasePrimaryOnly, fmt.Errorf("unknown migration phase: %q", s)
	}
}

// DualWrite reports whether writes are mirrored to a second backend.
func (p Phase) DualWrite() bool {
	return p == PhaseDualWritePrimaryRead || p == PhaseDualWriteSecondaryRead
}

// StoreKind identifies one of the two concrete backends independently of the
// migration phase.
type StoreKind int

const (
	KindDocument StoreKind = iota
	KindRelational
)

func (k StoreKind) String() string {
	if k == KindRelational {
		return "relational"
	}
	return "document"
}

// Authoritative returns the store whose outcome is returned to callers in
// this phase. Exactly one store is authoritative at any time.
func (p Phase) Authoritative() StoreKind {
	if p >= PhaseDualWriteSecondaryRead {
		return KindRelational
	}
	return KindDocument
}

// Shadow returns the best-effort secondary store for this phase. The second
// return value is false outside the dual-write phases.
func (p Phase) Shadow() (StoreKind, bool) {
	switch p {
	case PhaseDualWritePrimaryRead:
		return KindRelational, true
	case PhaseDualWriteSecondaryRead:
		return KindDocument, true
	default:
		return KindDocument, false
	}
}

// Active reports whether the given store participates in this phase at all.
func (p Phase) Active(k StoreKind) bool {
	if k == p.Authoritative() {
		return true
	}
	shadow, ok := p.Shadow()
	return ok && k == shadow
}

// BackendType names a backend from the caller's point of view. The logical
// document/relational tags resolve to the primary or secondary slot depending
// on the phase, so migration tooling can keep using stable names while the
// authoritative side moves underneath it.
type BackendType int

const (
	BackendPrimary BackendType = iota
	BackendSecondary
	BackendDocument
	BackendRelational
)

func (b BackendType) String() string {
	switch b {
	case BackendPrimary:
		return "primary"
	case BackendSecondary:
		return "secondary"
	case BackendDocument:
		return "document"
	case BackendRelational:
		return "relational"
	default:
		return fmt.Sprintf("unknown(%d)", int(b))
	}
}

// ParseBackendType converts a request string into a BackendType.
func ParseBackendType(s string) (BackendType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "primary":
		return BackendPrimary, nil
	case "secondary":
		return BackendSecondary, nil
	case "document", "cosmos", "cosmosdb":
		return BackendDocument, nil
	case "relational", "postgres", "postgresql":
		return BackendRelational, nil
	default:
		return BackendPrimary, fmt.Errorf("unknown backend type: %q", s)
	}
}

// Resolve maps a backend name to a concrete store under this phase. The
// second return value is false when the requested backend is not configured
// in this phase, which is an expected degraded case early and late in the
// migration.
func (p Phase) Resolve(b BackendType) (StoreKind, bool) {
	switch b {
	case BackendPrimary:
		return p.Authoritative(), true
	case BackendSecondary:
		return p.Shadow()
	case BackendDocument:
		return KindDocument, p.Active(KindDocument)
	case BackendRelational:
		return KindRelational, p.Active(KindRelational)
	default:
		return KindDocument, false
	}
}

// Options is the migration configuration snapshot. It is built once at
// startup and injected explicitly; changing the phase requires a restart.
type Options struct {
	Phase              Phase
	DualWriteTimeout   time.Duration
	EnableCompensation bool
}

// Operation names a repository write for telemetry and compensation records.
type Operation string

const (
	OperationAdd    Operation = "add"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

// FailedWrite captures a secondary write that was suppressed after the
// resilience pipeline gave up on it. Compensators receive it so the miss can
// be reconciled out of band.
type FailedWrite struct {
	ID         string
	EntityType string
	EntityID   string
	UserID     string
	Operation  Operation
	Phase      Phase
	Payload    []byte
	Reason     string
	OccurredAt time.Time
}
