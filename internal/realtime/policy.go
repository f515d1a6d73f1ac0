package realtime

// DenialMode controls how an authorization failure is surfaced.
type DenialMode int

const (
	// DenySilent turns the operation into a no-op with no error on the
	// wire, so non-participants cannot probe whether a resource exists.
	DenySilent DenialMode = iota
	// DenyExplicit surfaces an "Access denied" ack error; callers of send
	// operations need actionable feedback.
	DenyExplicit
)

// AuthorizationPolicy names the deliberate asymmetry between join and send
// denials. Joins fail silently (no existence leak), sends fail loudly.
type AuthorizationPolicy struct {
	OnJoinDenied DenialMode
	OnSendDenied DenialMode
}

// DefaultPolicy is the production policy.
func DefaultPolicy() AuthorizationPolicy {
	return AuthorizationPolicy{
		OnJoinDenied: DenySilent,
		OnSendDenied: DenyExplicit,
	}
}
