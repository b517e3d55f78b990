package entitlement

// Reason codes for an entitlement verdict.
type Reason string

const (
	ReasonOK                Reason = "ok"
	ReasonFeatureUnlicensed Reason = "feature_unlicensed"
	ReasonFeatureDisabled   Reason = "feature_disabled"
	ReasonQuotaExceeded     Reason = "quota_exceeded"
	ReasonLockedByInstance  Reason = "locked_by_instance"
	ReasonNotFound          Reason = "not_found"
	// ReasonForbidden is the write-denied verdict for callers who do hold
	// read access; it maps to 403 where ReasonNotFound maps to 404.
	ReasonForbidden Reason = "forbidden"
)

// Provenance names the authority layer that decided the verdict.
type Provenance string

const (
	ProvenanceInstance Provenance = "instance"
	ProvenanceGroup    Provenance = "group"
	ProvenanceProject  Provenance = "project"
	ProvenanceLicense  Provenance = "license"
	ProvenanceNone     Provenance = "none"
)

// Verdict is a pure return value, created fresh per evaluation and never
// persisted.
type Verdict struct {
	Allowed    bool       `json:"allowed"`
	Reason     Reason     `json:"reason"`
	Provenance Provenance `json:"provenance"`
}

func allow() Verdict {
	return Verdict{Allowed: true, Reason: ReasonOK, Provenance: ProvenanceNone}
}

func deny(reason Reason, provenance Provenance) Verdict {
	return Verdict{Allowed: false, Reason: reason, Provenance: provenance}
}
