package resolver

import (
	"fmt"
	"strings"
)

// Policy selects which values are written to live definitions.
type Policy int

const (
	Original Policy = iota // values as the engine loaded them
	Custom                 // configured limits
	Disabled               // relaxed limits derived from original and configured
)

func (p Policy) String() string {
	switch p {
	case Original:
		return "original"
	case Custom:
		return "custom"
	case Disabled:
		return "disabled"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy accepts the String form, ignoring case.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "original":
		return Original, nil
	case "custom":
		return Custom, nil
	case "disabled":
		return Disabled, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidPolicy, s)
}

// Phase is the resolver lifecycle stage.
type Phase int

const (
	Uninitialized Phase = iota
	Ready
	Broken
)

func (p Phase) String() string {
	switch p {
	case Uninitialized:
		return "uninitialized"
	case Ready:
		return "ready"
	case Broken:
		return "broken"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// State is the resolver's single source of truth. Policy is the last policy
// successfully applied; once Broken it no longer changes except through Restore.
type State struct {
	Phase  Phase
	Policy Policy
}

// Relaxed is the limit written under the Disabled policy. It never tightens the
// original and never loosens it beyond three times the original.
func Relaxed(original, configured float64) float64 {
	configured = max(configured, 0)
	if configured >= original {
		return original
	}
	return min(original+2*configured, 3*original)
}
