package proposition

import (
	"errors"
	"testing"

	"github.com/TimurManjosov/goptimize/internal/eventdata"
)

const targetPayload = `{
	"id": "AT:eyJhY3Rpdml0eUlkIjoiMTI1NTg5IiwiZXhwZXJpZW5jZUlkIjoiMCJ9",
	"scope": "myMbox",
	"scopeDetails": {
		"decisionProvider": "TGT",
		"activity": {"id": "125589"},
		"experience": {"id": "0"},
		"strategies": [{"algorithmID": "0", "trafficType": "0"}]
	},
	"items": [
		{
			"id": "246315",
			"schema": "https://ns.adobe.com/personalization/json-content-item",
			"data": {"id": "246315", "format": "application/json", "content": {"device": "mobile"}}
		},
		{
			"id": "broken",
			"data": {"id": "other", "format": "text/plain", "content": "x"}
		}
	]
}`

func TestFromEventData_TargetPayload(t *testing.T) {
	p, err := FromEventData(decodeJSON(t, targetPayload))
	if err != nil {
		t.Fatalf("FromEventData failed: %v", err)
	}

	if p.ID() != "AT:eyJhY3Rpdml0eUlkIjoiMTI1NTg5IiwiZXhwZXJpZW5jZUlkIjoiMCJ9" {
		t.Errorf("Unexpected id: %s", p.ID())
	}
	if p.Scope() != "myMbox" {
		t.Errorf("Unexpected scope: %s", p.Scope())
	}
	details := p.ScopeDetails()
	if len(details) != 4 || details["decisionProvider"] != "TGT" {
		t.Errorf("Unexpected scopeDetails: %v", details)
	}

	offers := p.Offers()
	if len(offers) != 1 {
		t.Fatalf("Expected malformed item to be skipped, got %d offers", len(offers))
	}
	if offers[0].PropositionID() != p.ID() || offers[0].Scope() != "myMbox" {
		t.Errorf("Expected offer to reference its proposition, got %q/%q", offers[0].PropositionID(), offers[0].Scope())
	}
}

func TestFromEventData_Failures(t *testing.T) {
	tests := []struct {
		name    string
		data    map[string]any
		wantErr error
	}{
		{name: "empty", data: map[string]any{}, wantErr: ErrEmptyData},
		{name: "missing id", data: map[string]any{"scope": "s", "items": []any{}}, wantErr: ErrMissingID},
		{name: "missing scope", data: map[string]any{"id": "p", "items": []any{}}, wantErr: ErrMissingScope},
		{name: "missing items", data: map[string]any{"id": "p", "scope": "s"}, wantErr: ErrMissingItems},
		{name: "items not a list", data: map[string]any{"id": "p", "scope": "s", "items": "x"}, wantErr: eventdata.ErrTypeMismatch},
		{name: "scopeDetails not a map", data: map[string]any{"id": "p", "scope": "s", "scopeDetails": 1, "items": []any{}}, wantErr: eventdata.ErrTypeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := FromEventData(tt.data); !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestFromEventData_AllItemsMalformed(t *testing.T) {
	p, err := FromEventData(map[string]any{
		"id":    "p",
		"scope": "s",
		"items": []any{map[string]any{"id": "a"}},
	})
	if err != nil {
		t.Fatalf("Expected proposition with zero offers, got error %v", err)
	}
	if len(p.Offers()) != 0 {
		t.Errorf("Expected zero offers, got %d", len(p.Offers()))
	}
}

func TestProposition_ToEventDataRoundTrip(t *testing.T) {
	original, err := FromEventData(decodeJSON(t, targetPayload))
	if err != nil {
		t.Fatalf("FromEventData failed: %v", err)
	}

	again, err := FromEventData(original.ToEventData())
	if err != nil {
		t.Fatalf("FromEventData on serialized proposition failed: %v", err)
	}
	if !again.Equal(original) {
		t.Errorf("Round trip mismatch:\n got %+v\nwant %+v", again, original)
	}
}

func TestProposition_Equal(t *testing.T) {
	mk := func(id, scope, content string, details map[string]any) Proposition {
		return New(id, []Offer{NewOffer("o1", OfferTypeText, content)}, scope, details)
	}

	base := mk("p", "s", "x", map[string]any{"k": "v"})
	if !base.Equal(mk("p", "s", "x", map[string]any{"k": "v"})) {
		t.Error("Expected structurally equal propositions to be equal")
	}
	if base.Equal(mk("q", "s", "x", map[string]any{"k": "v"})) {
		t.Error("Expected different ids to differ")
	}
	if base.Equal(mk("p", "t", "x", map[string]any{"k": "v"})) {
		t.Error("Expected different scopes to differ")
	}
	if base.Equal(mk("p", "s", "y", map[string]any{"k": "v"})) {
		t.Error("Expected different offers to differ")
	}
	if base.Equal(mk("p", "s", "x", map[string]any{"k": "w"})) {
		t.Error("Expected different scopeDetails to differ")
	}
}

func TestProposition_NarrowAndOffer(t *testing.T) {
	p := New("p", []Offer{
		NewOffer("o1", OfferTypeText, "1"),
		NewOffer("o2", OfferTypeText, "2"),
		NewOffer("o3", OfferTypeText, "3"),
	}, "s", map[string]any{"k": "v"})

	n := p.Narrow("o3", "o1", "missing")
	offers := n.Offers()
	if len(offers) != 2 || offers[0].ID() != "o1" || offers[1].ID() != "o3" {
		t.Errorf("Unexpected narrowed offers: %v", offers)
	}
	if n.ID() != "p" || n.Scope() != "s" || n.ScopeDetails()["k"] != "v" {
		t.Errorf("Expected narrowed proposition to keep identity, got %+v", n)
	}
	if len(p.Offers()) != 3 {
		t.Error("Expected original proposition to be unchanged")
	}

	if _, ok := p.Offer("o2"); !ok {
		t.Error("Expected o2 to be found")
	}
	if _, ok := p.Offer("nope"); ok {
		t.Error("Expected unknown offer to be absent")
	}
}

func TestSupportedSchemas(t *testing.T) {
	schemas := SupportedSchemas()
	if len(schemas) != 7 {
		t.Fatalf("Expected 7 schemas, got %d", len(schemas))
	}
	schemas[0] = "mutated"
	if SupportedSchemas()[0] != SchemaTargetHTML {
		t.Error("Expected SupportedSchemas to return a fresh slice")
	}
}
