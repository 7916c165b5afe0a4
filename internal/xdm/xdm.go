// Package xdm builds the experience-event fragments sent when offers are shown or
// interacted with.
package xdm

import (
	"github.com/TimurManjosov/goptimize/internal/proposition"
)

const (
	EventTypeDisplay  = "decisioning.propositionDisplay"
	EventTypeInteract = "decisioning.propositionInteract"

	// EventTypePersonalizationRequest tags outbound personalization queries.
	EventTypePersonalizationRequest = "personalization.request"
)

const (
	KeyEventType    = "eventType"
	KeyExperience   = "_experience"
	KeyDecisioning  = "decisioning"
	KeyPropositions = "propositions"
)

// InteractionXDM returns
//
//	{eventType, _experience: {decisioning: {propositions: [{id, scope, scopeDetails, items: [{id}]}]}}}
//
// with one entry per proposition, listing only the offers each one holds. Callers
// narrow the propositions to the offers being tracked before calling.
func InteractionXDM(eventType string, props ...proposition.Proposition) map[string]any {
	entries := make([]map[string]any, 0, len(props))
	for _, p := range props {
		offers := p.Offers()
		items := make([]map[string]any, 0, len(offers))
		for _, o := range offers {
			items = append(items, map[string]any{"id": o.ID()})
		}
		entries = append(entries, map[string]any{
			"id":           p.ID(),
			"scope":        p.Scope(),
			"scopeDetails": p.ScopeDetails(),
			"items":        items,
		})
	}

	return map[string]any{
		KeyEventType: eventType,
		KeyExperience: map[string]any{
			KeyDecisioning: map[string]any{
				KeyPropositions: entries,
			},
		},
	}
}

// Propositions extracts the proposition entries of a fragment built by
// InteractionXDM, or of an equivalent fragment decoded from JSON.
func Propositions(fragment map[string]any) []any {
	exp, _ := fragment[KeyExperience].(map[string]any)
	dec, _ := exp[KeyDecisioning].(map[string]any)
	switch v := dec[KeyPropositions].(type) {
	case []any:
		return v
	case []map[string]any:
		out := make([]any, len(v))
		for i, m := range v {
			out[i] = m
		}
		return out
	default:
		return nil
	}
}
