// Package residency evaluates workspace-level data residency policy before
// any call leaves the deployment boundary. The OCR orchestrator consults it
// once per batch: a denial short-circuits the whole batch, not individual
// jobs, so no remote request is ever issued under a forbidding policy.
package residency

// Mode is the workspace residency posture.
type Mode string

const (
	// ModeOpen allows all remote capabilities.
	ModeOpen Mode = "open"
	// ModeRestricted allows only capabilities explicitly listed.
	ModeRestricted Mode = "restricted"
	// ModeLocalOnly forbids every remote capability.
	ModeLocalOnly Mode = "local_only"
)

// Capability names a remote operation gated by policy.
const (
	CapabilityRemoteOCR = "remote_ocr"
	CapabilityRemoteLLM = "remote_llm"
)

// Decision is the outcome of a capability check.
type Decision struct {
	OK     bool
	Reason string
	Policy Mode
}

// Policy is the immutable residency configuration for a workspace.
type Policy struct {
	Mode    Mode     `yaml:"mode"`
	Allowed []string `yaml:"allowed"` // consulted only in restricted mode
}

// DefaultPolicy permits everything.
func DefaultPolicy() Policy {
	return Policy{Mode: ModeOpen}
}

// AssertCapabilityAllowed checks whether the named capability may be used.
func (p Policy) AssertCapabilityAllowed(capability string) Decision {
	switch p.Mode {
	case ModeLocalOnly:
		return Decision{OK: false, Reason: "policy forbids all remote capabilities", Policy: p.Mode}
	case ModeRestricted:
		for _, c := range p.Allowed {
			if c == capability {
				return Decision{OK: true, Policy: p.Mode}
			}
		}
		return Decision{OK: false, Reason: "capability " + capability + " not in allowed list", Policy: p.Mode}
	default:
		return Decision{OK: true, Policy: ModeOpen}
	}
}
