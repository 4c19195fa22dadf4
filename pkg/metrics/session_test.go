package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cypherx/pairgate/pkg/session"
)

func TestNewSessionMetrics_NilWhenDisabled(t *testing.T) {
	if IsEnabled() {
		t.Skip("registry already initialized by another test")
	}
	assert.Nil(t, NewSessionMetrics())
}

func TestSessionMetrics_RecordsCounters(t *testing.T) {
	InitRegistry()
	require.True(t, IsEnabled())

	m := NewSessionMetrics()
	require.NotNil(t, m)

	m.SessionStarted()
	m.PairingCodeIssued()
	m.SessionProvisioned(session.SchemeDirect)
	m.ReconnectAttempted()
	m.ProvisioningFailed("logged_out")

	families, err := GetRegistry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["pairgate_sessions_started_total"])
	assert.True(t, names["pairgate_sessions_provisioned_total"])
	assert.True(t, names["pairgate_provisioning_failures_total"])
}
