package session

// Metrics receives provisioning lifecycle observations. The Prometheus
// implementation lives in pkg/metrics; a nil Metrics on the controller
// config falls back to a no-op.
type Metrics interface {
	SessionStarted()
	PairingCodeIssued()
	SessionProvisioned(scheme Scheme)
	ReconnectAttempted()
	ProvisioningFailed(reason string)
}

type nopMetrics struct{}

func (nopMetrics) SessionStarted()              {}
func (nopMetrics) PairingCodeIssued()           {}
func (nopMetrics) SessionProvisioned(Scheme)    {}
func (nopMetrics) ReconnectAttempted()          {}
func (nopMetrics) ProvisioningFailed(string)    {}
