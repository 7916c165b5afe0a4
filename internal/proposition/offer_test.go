package proposition

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/TimurManjosov/goptimize/internal/eventdata"
)

// decodeJSON mirrors how payloads arrive from the network.
func decodeJSON(t *testing.T, s string) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		t.Fatalf("invalid fixture JSON: %v", err)
	}
	return m
}

func TestOfferTypeFrom(t *testing.T) {
	tests := []struct {
		format string
		want   OfferType
	}{
		{"text/html", OfferTypeHTML},
		{"application/json", OfferTypeJSON},
		{"text/plain", OfferTypeText},
		{"image/png", OfferTypeImage},
		{"image/*", OfferTypeImage},
		{"video/mp4", OfferTypeUnknown},
		{"", OfferTypeUnknown},
	}
	for _, tt := range tests {
		if got := OfferTypeFrom(tt.format); got != tt.want {
			t.Errorf("OfferTypeFrom(%q) = %v, want %v", tt.format, got.Name(), tt.want.Name())
		}
	}

	for _, typ := range []OfferType{OfferTypeUnknown, OfferTypeJSON, OfferTypeText, OfferTypeHTML, OfferTypeImage} {
		if OfferTypeFrom(typ.String()) != typ {
			t.Errorf("Expected %s to survive String/OfferTypeFrom", typ.Name())
		}
	}
}

func TestOfferFromEventData_HTML(t *testing.T) {
	data := decodeJSON(t, `{
		"id": "xcore:personalized-offer:1111111111111111",
		"etag": "10",
		"score": 1,
		"schema": "https://ns.adobe.com/experience/offer-management/content-component-html",
		"data": {
			"id": "xcore:personalized-offer:1111111111111111",
			"format": "text/html",
			"content": "<h1>This is a HTML content</h1>",
			"language": ["en-us"],
			"characteristics": {"testing": "true"}
		}
	}`)

	offer, err := OfferFromEventData(data)
	if err != nil {
		t.Fatalf("OfferFromEventData failed: %v", err)
	}
	if offer.ID() != "xcore:personalized-offer:1111111111111111" {
		t.Errorf("Unexpected id: %s", offer.ID())
	}
	if offer.ETag() != "10" || offer.Score() != 1 {
		t.Errorf("Unexpected etag/score: %s/%v", offer.ETag(), offer.Score())
	}
	if offer.Schema() != SchemaOfferHTML {
		t.Errorf("Unexpected schema: %s", offer.Schema())
	}
	if offer.Type() != OfferTypeHTML {
		t.Errorf("Expected HTML, got %s", offer.Type().Name())
	}
	if offer.Content() != "<h1>This is a HTML content</h1>" {
		t.Errorf("Unexpected content: %s", offer.Content())
	}
	if lang := offer.Language(); len(lang) != 1 || lang[0] != "en-us" {
		t.Errorf("Unexpected language: %v", lang)
	}
	if offer.Characteristics()["testing"] != "true" {
		t.Errorf("Unexpected characteristics: %v", offer.Characteristics())
	}
	if offer.Owned() {
		t.Error("Expected parsed offer to be unowned until wrapped in a proposition")
	}
}

func TestOfferFromEventData_StructuredContentIsCanonicalJSON(t *testing.T) {
	data := decodeJSON(t, `{
		"id": "o1",
		"schema": "https://ns.adobe.com/personalization/json-content-item",
		"data": {"id": "o1", "format": "application/json", "content": {"b": 2, "a": {"z": true}}}
	}`)

	offer, err := OfferFromEventData(data)
	if err != nil {
		t.Fatalf("OfferFromEventData failed: %v", err)
	}
	if offer.Type() != OfferTypeJSON {
		t.Errorf("Expected JSON, got %s", offer.Type().Name())
	}
	if offer.Content() != `{"a":{"z":true},"b":2}` {
		t.Errorf("Unexpected content: %s", offer.Content())
	}

	list := decodeJSON(t, `{"id": "o2", "data": {"id": "o2", "format": "application/json", "content": [1, "two"]}}`)
	offer, err = OfferFromEventData(list)
	if err != nil {
		t.Fatalf("OfferFromEventData failed: %v", err)
	}
	if offer.Content() != `[1,"two"]` {
		t.Errorf("Unexpected list content: %s", offer.Content())
	}
}

func TestOfferFromEventData_DeliveryURLAndTypeFallback(t *testing.T) {
	data := decodeJSON(t, `{
		"id": "img",
		"schema": "https://ns.adobe.com/experience/offer-management/content-component-imagelink",
		"data": {"id": "img", "type": "image/png", "deliveryURL": "https://example.com/a.png"}
	}`)

	offer, err := OfferFromEventData(data)
	if err != nil {
		t.Fatalf("OfferFromEventData failed: %v", err)
	}
	if offer.Type() != OfferTypeImage {
		t.Errorf("Expected IMAGE, got %s", offer.Type().Name())
	}
	if offer.Content() != "https://example.com/a.png" {
		t.Errorf("Unexpected content: %s", offer.Content())
	}
}

func TestOfferFromEventData_DefaultContent(t *testing.T) {
	data := map[string]any{
		"id":     "default",
		"schema": SchemaTargetDefault,
		"meta":   map[string]any{"activity.name": "a"},
	}

	offer, err := OfferFromEventData(data)
	if err != nil {
		t.Fatalf("Expected default content to parse, got %v", err)
	}
	if offer.Type() != OfferTypeUnknown || offer.Content() != "" {
		t.Errorf("Expected empty UNKNOWN offer, got %s %q", offer.Type().Name(), offer.Content())
	}
	if offer.Meta()["activity.name"] != "a" {
		t.Errorf("Expected meta to be kept, got %v", offer.Meta())
	}
}

func TestOfferFromEventData_Failures(t *testing.T) {
	tests := []struct {
		name    string
		data    map[string]any
		wantErr error
	}{
		{name: "nil", data: nil, wantErr: ErrEmptyData},
		{name: "empty", data: map[string]any{}, wantErr: ErrEmptyData},
		{
			name:    "id mismatch",
			data:    map[string]any{"id": "a", "data": map[string]any{"id": "b", "format": "text/plain", "content": "x"}},
			wantErr: ErrIDMismatch,
		},
		{
			name:    "empty id",
			data:    map[string]any{"id": "", "data": map[string]any{"id": "", "format": "text/plain", "content": "x"}},
			wantErr: ErrIDMismatch,
		},
		{
			name:    "no content",
			data:    map[string]any{"id": "a", "data": map[string]any{"id": "a", "format": "text/plain"}},
			wantErr: ErrNoContent,
		},
		{
			name:    "no data and not default content",
			data:    map[string]any{"id": "a", "schema": SchemaOfferHTML},
			wantErr: ErrNoItemData,
		},
		{
			name:    "numeric id",
			data:    map[string]any{"id": 5, "data": map[string]any{"id": 5, "content": "x"}},
			wantErr: eventdata.ErrTypeMismatch,
		},
		{
			name:    "numeric content",
			data:    map[string]any{"id": "a", "data": map[string]any{"id": "a", "content": 3}},
			wantErr: eventdata.ErrTypeMismatch,
		},
		{
			name:    "bad language",
			data:    map[string]any{"id": "a", "data": map[string]any{"id": "a", "content": "x", "language": "en"}},
			wantErr: eventdata.ErrTypeMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := OfferFromEventData(tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestOffer_ToEventDataRoundTrip(t *testing.T) {
	original := NewOffer("o1", OfferTypeHTML, "<p>hi</p>",
		WithETag("7"),
		WithScore(0.25),
		WithSchema(SchemaTargetHTML),
		WithMeta(map[string]any{"k": "v"}),
		WithLanguage([]string{"en"}),
		WithCharacteristics(map[string]string{"c": "d"}),
	)

	data := original.ToEventData()
	nested := data["data"].(map[string]any)
	if nested["type"] != "text/html" || nested["id"] != "o1" {
		t.Errorf("Unexpected nested data: %v", nested)
	}

	parsed, err := OfferFromEventData(data)
	if err != nil {
		t.Fatalf("OfferFromEventData failed: %v", err)
	}
	if !parsed.Equal(original) {
		t.Errorf("Round trip mismatch:\n got %+v\nwant %+v", parsed, original)
	}
}

func TestNewOffer_DefensiveCopies(t *testing.T) {
	lang := []string{"en"}
	offer := NewOffer("o1", OfferTypeText, "x", WithLanguage(lang))
	lang[0] = "fr"
	if offer.Language()[0] != "en" {
		t.Error("Expected offer to be unaffected by caller mutation")
	}

	got := offer.Language()
	got[0] = "de"
	if offer.Language()[0] != "en" {
		t.Error("Expected accessor to return a copy")
	}
}

type recordingTracker struct {
	displayed []Offer
	tapped    []Offer
}

func (r *recordingTracker) TrackDisplay(offers ...Offer) { r.displayed = append(r.displayed, offers...) }
func (r *recordingTracker) TrackTap(offers ...Offer)     { r.tapped = append(r.tapped, offers...) }

func TestOffer_DisplayedAndTappedDelegate(t *testing.T) {
	p := New("p1", []Offer{NewOffer("o1", OfferTypeText, "x")}, "scope", nil)
	offer := p.Offers()[0]

	tr := &recordingTracker{}
	offer.Displayed(tr)
	offer.Tapped(tr)

	if len(tr.displayed) != 1 || tr.displayed[0].ID() != "o1" {
		t.Errorf("Unexpected displayed: %v", tr.displayed)
	}
	if len(tr.tapped) != 1 || tr.tapped[0].PropositionID() != "p1" {
		t.Errorf("Unexpected tapped: %v", tr.tapped)
	}
}
