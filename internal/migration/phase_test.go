package migration_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mystira-backend/internal/migration"
)

func TestParsePhase(t *testing.T) {
	tests := []struct {
		input   string
		want    migration.Phase
		wantErr bool
	}{
		{"primary_only", migration.PhasePrimaryOnly, false},
		{"PrimaryOnly", migration.PhasePrimaryOnly, false},
		{"dual_write_primary_read", migration.PhaseDualWritePrimaryRead, false},
		{"DualWritePrimaryRead", migration.PhaseDualWritePrimaryRead, false},
		{"dual_write_secondary_read", migration.PhaseDualWriteSecondaryRead, false},
		{"secondary_only", migration.PhaseSecondaryOnly, false},
		{"  secondary_only  ", migration.PhaseSecondaryOnly, false},
		{"bogus", migration.PhasePrimaryOnly, true},
		{"", migration.PhasePrimaryOnly, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := migration.ParsePhase(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPhaseRoundTrip(t *testing.T) {
	phases := []migration.Phase{
		migration.PhasePrimaryOnly,
		migration.PhaseDualWritePrimaryRead,
		migration.PhaseDualWriteSecondaryRead,
		migration.PhaseSecondaryOnly,
	}
	for _, p := range phases {
		parsed, err := migration.ParsePhase(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, parsed)
	}
}

func TestPhaseAuthority(t *testing.T) {
	tests := []struct {
		phase         migration.Phase
		authoritative migration.StoreKind
		shadow        migration.StoreKind
		hasShadow     bool
		dualWrite     bool
	}{
		{migration.PhasePrimaryOnly, migration.KindDocument, 0, false, false},
		{migration.PhaseDualWritePrimaryRead, migration.KindDocument, migration.KindRelational, true, true},
		{migration.PhaseDualWriteSecondaryRead, migration.KindRelational, migration.KindDocument, true, true},
		{migration.PhaseSecondaryOnly, migration.KindRelational, 0, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.phase.String(), func(t *testing.T) {
			assert.Equal(t, tt.authoritative, tt.phase.Authoritative())
			assert.Equal(t, tt.dualWrite, tt.phase.DualWrite())

			shadow, ok := tt.phase.Shadow()
			assert.Equal(t, tt.hasShadow, ok)
			if tt.hasShadow {
				assert.Equal(t, tt.shadow, shadow)
				assert.NotEqual(t, tt.phase.Authoritative(), shadow,
					"shadow and authoritative must never be the same store")
			}
		})
	}
}

func TestPhaseActive(t *testing.T) {
	assert.True(t, migration.PhasePrimaryOnly.Active(migration.KindDocument))
	assert.False(t, migration.PhasePrimaryOnly.Active(migration.KindRelational))

	assert.True(t, migration.PhaseDualWritePrimaryRead.Active(migration.KindDocument))
	assert.True(t, migration.PhaseDualWritePrimaryRead.Active(migration.KindRelational))

	assert.False(t, migration.PhaseSecondaryOnly.Active(migration.KindDocument))
	assert.True(t, migration.PhaseSecondaryOnly.Active(migration.KindRelational))
}

func TestResolveBackend(t *testing.T) {
	tests := []struct {
		name    string
		phase   migration.Phase
		backend migration.BackendType
		want    migration.StoreKind
		ok      bool
	}{
		{"primary resolves to document early", migration.PhaseDualWritePrimaryRead, migration.BackendPrimary, migration.KindDocument, true},
		{"primary resolves to relational late", migration.PhaseDualWriteSecondaryRead, migration.BackendPrimary, migration.KindRelational, true},
		{"secondary resolves to relational early", migration.PhaseDualWritePrimaryRead, migration.BackendSecondary, migration.KindRelational, true},
		{"secondary resolves to document late", migration.PhaseDualWriteSecondaryRead, migration.BackendSecondary, migration.KindDocument, true},
		{"no secondary in primary-only", migration.PhasePrimaryOnly, migration.BackendSecondary, 0, false},
		{"no secondary in secondary-only", migration.PhaseSecondaryOnly, migration.BackendSecondary, 0, false},
		{"document tag is stable", migration.PhaseDualWriteSecondaryRead, migration.BackendDocument, migration.KindDocument, true},
		{"relational tag is stable", migration.PhaseDualWritePrimaryRead, migration.BackendRelational, migration.KindRelational, true},
		{"relational unavailable in primary-only", migration.PhasePrimaryOnly, migration.BackendRelational, 0, false},
		{"document unavailable in secondary-only", migration.PhaseSecondaryOnly, migration.BackendDocument, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, ok := tt.phase.Resolve(tt.backend)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, kind)
			}
		})
	}
}

func TestParseBackendType(t *testing.T) {
	for input, want := range map[string]migration.BackendType{
		"primary":    migration.BackendPrimary,
		"secondary":  migration.BackendSecondary,
		"document":   migration.BackendDocument,
		"cosmos":     migration.BackendDocument,
		"relational": migration.BackendRelational,
		"postgres":   migration.BackendRelational,
	} {
		got, err := migration.ParseBackendType(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := migration.ParseBackendType("mysql")
	assert.Error(t, err)
}
