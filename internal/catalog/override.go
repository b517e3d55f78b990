package catalog

import "strings"

type overrideKind int

const (
	overrideNone overrideKind = iota
	overrideForced
)

// Override is the break-glass toggle. The forced variant carries mandatory
// audit metadata; a bare boolean cannot reach the forced path.
type Override struct {
	kind   overrideKind
	actor  string
	reason string
}

// OverrideNone is the absent override.
func OverrideNone() Override { return Override{} }

// ForcedOverride returns a forced override when both actor and reason are
// present; otherwise the override stays absent.
func ForcedOverride(actor, reason string) Override {
	actor = strings.TrimSpace(actor)
	reason = strings.TrimSpace(reason)
	if actor == "" || reason == "" {
		return Override{}
	}
	return Override{kind: overrideForced, actor: actor, reason: reason}
}

func (o Override) Forced() bool { return o.kind == overrideForced }

func (o Override) Actor() string { return o.actor }

func (o Override) Reason() string { return o.reason }
