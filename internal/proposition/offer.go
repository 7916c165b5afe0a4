package proposition

import (
	"errors"
	"fmt"
	"maps"
	"reflect"
	"slices"

	"github.com/TimurManjosov/goptimize/internal/eventdata"
)

var (
	ErrEmptyData  = errors.New("event data is empty")
	ErrIDMismatch = errors.New("item id is empty or does not match item data id")
	ErrNoContent  = errors.New("item data has no usable content or deliveryURL")
	ErrNoItemData = errors.New("item has no data and is not default content")
)

// Tracker records user interactions with offers.
type Tracker interface {
	TrackDisplay(offers ...Offer)
	TrackTap(offers ...Offer)
}

// Offer is one content item of a Proposition. Offers are immutable values.
//
// An Offer does not hold its Proposition. It remembers the owning proposition id and
// scope, and interaction tracking re-resolves the Proposition from the cache at call
// time, so an offer whose proposition has been evicted simply tracks nothing.
type Offer struct {
	id              string
	etag            string
	score           float64
	schema          string
	meta            map[string]any
	typ             OfferType
	content         string
	language        []string
	characteristics map[string]string

	propositionID string
	scope         string
}

// OfferOption sets an optional Offer attribute.
type OfferOption func(*Offer)

func WithETag(etag string) OfferOption       { return func(o *Offer) { o.etag = etag } }
func WithScore(score float64) OfferOption    { return func(o *Offer) { o.score = score } }
func WithSchema(schema string) OfferOption   { return func(o *Offer) { o.schema = schema } }
func WithMeta(meta map[string]any) OfferOption {
	return func(o *Offer) {
		if meta != nil {
			o.meta = maps.Clone(meta)
		}
	}
}
func WithLanguage(language []string) OfferOption {
	return func(o *Offer) {
		if language != nil {
			o.language = slices.Clone(language)
		}
	}
}
func WithCharacteristics(characteristics map[string]string) OfferOption {
	return func(o *Offer) {
		if characteristics != nil {
			o.characteristics = maps.Clone(characteristics)
		}
	}
}

// NewOffer creates an Offer. The offer is not owned by any proposition until it is
// passed to New.
func NewOffer(id string, typ OfferType, content string, opts ...OfferOption) Offer {
	o := Offer{
		id:              id,
		typ:             typ,
		content:         content,
		meta:            map[string]any{},
		language:        []string{},
		characteristics: map[string]string{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o Offer) ID() string                         { return o.id }
func (o Offer) ETag() string                       { return o.etag }
func (o Offer) Score() float64                     { return o.score }
func (o Offer) Schema() string                     { return o.schema }
func (o Offer) Type() OfferType                    { return o.typ }
func (o Offer) Content() string                    { return o.content }
func (o Offer) Meta() map[string]any               { return maps.Clone(o.meta) }
func (o Offer) Language() []string                 { return slices.Clone(o.language) }
func (o Offer) Characteristics() map[string]string { return maps.Clone(o.characteristics) }

// PropositionID returns the id of the owning proposition, or "" when unowned.
func (o Offer) PropositionID() string { return o.propositionID }

// Scope returns the scope name of the owning proposition, or "" when unowned.
func (o Offer) Scope() string { return o.scope }

// Owned reports whether the offer belongs to a proposition.
func (o Offer) Owned() bool { return o.propositionID != "" }

// Displayed records that the offer was shown to the user.
func (o Offer) Displayed(t Tracker) { t.TrackDisplay(o) }

// Tapped records that the user interacted with the offer.
func (o Offer) Tapped(t Tracker) { t.TrackTap(o) }

// Equal compares offer attributes. Ownership is not compared.
func (o Offer) Equal(other Offer) bool {
	return o.id == other.id &&
		o.etag == other.etag &&
		o.score == other.score &&
		o.schema == other.schema &&
		o.typ == other.typ &&
		o.content == other.content &&
		reflect.DeepEqual(o.meta, other.meta) &&
		slices.Equal(o.language, other.language) &&
		maps.Equal(o.characteristics, other.characteristics)
}

// OfferFromEventData parses one proposition item.
//
// The content is taken from data.content (structured content is re-serialized to
// canonical JSON) or, failing that, data.deliveryURL. The type comes from
// data.format, or data.type when format is absent. An item without data is
// accepted only for the default-content schema and yields an empty UNKNOWN offer.
func OfferFromEventData(data map[string]any) (Offer, error) {
	if len(data) == 0 {
		return Offer{}, ErrEmptyData
	}

	id, err := eventdata.String(data, keyID)
	if err != nil {
		return Offer{}, err
	}
	etag, err := eventdata.String(data, keyItemETag)
	if err != nil {
		return Offer{}, err
	}
	schema, err := eventdata.String(data, keyItemSchema)
	if err != nil {
		return Offer{}, err
	}
	meta, err := eventdata.Map(data, keyItemMeta)
	if err != nil {
		return Offer{}, err
	}
	score := eventdata.OptFloat64(data, keyItemScore, 0)

	itemData, err := eventdata.Map(data, keyItemData)
	if err != nil {
		return Offer{}, err
	}
	if len(itemData) == 0 {
		if schema != SchemaTargetDefault {
			return Offer{}, ErrNoItemData
		}
		return NewOffer(id, OfferTypeUnknown, "", WithSchema(schema), WithMeta(meta)), nil
	}

	nestedID, err := eventdata.String(itemData, keyID)
	if err != nil {
		return Offer{}, err
	}
	if id == "" || id != nestedID {
		return Offer{}, ErrIDMismatch
	}

	var typ OfferType
	if eventdata.Has(itemData, keyDataFormat) {
		format, err := eventdata.String(itemData, keyDataFormat)
		if err != nil {
			return Offer{}, err
		}
		typ = OfferTypeFrom(format)
	} else {
		t, err := eventdata.String(itemData, keyDataType)
		if err != nil {
			return Offer{}, err
		}
		typ = OfferTypeFrom(t)
	}

	language, err := eventdata.StringSlice(itemData, keyDataLanguage)
	if err != nil {
		return Offer{}, err
	}
	characteristics, err := eventdata.StringMap(itemData, keyDataCharacteristics)
	if err != nil {
		return Offer{}, err
	}

	content, err := contentFromItemData(itemData)
	if err != nil {
		return Offer{}, err
	}

	return NewOffer(id, typ, content,
		WithETag(etag),
		WithScore(score),
		WithSchema(schema),
		WithMeta(meta),
		WithLanguage(language),
		WithCharacteristics(characteristics),
	), nil
}

func contentFromItemData(itemData map[string]any) (string, error) {
	if v, ok := itemData[keyDataContent]; ok && v != nil {
		switch c := v.(type) {
		case string:
			return c, nil
		case map[string]any, []any, []map[string]any, map[string]string, []string:
			s, err := eventdata.CanonicalJSON(c)
			if err != nil {
				return "", fmt.Errorf("%w: content: %v", eventdata.ErrTypeMismatch, err)
			}
			return s, nil
		default:
			return "", fmt.Errorf("%w: content holds %T", eventdata.ErrTypeMismatch, v)
		}
	}
	if eventdata.Has(itemData, keyDataDeliveryURL) {
		url, err := eventdata.String(itemData, keyDataDeliveryURL)
		if err != nil {
			return "", err
		}
		return url, nil
	}
	return "", ErrNoContent
}

// ToEventData serializes the offer to the item wire shape.
func (o Offer) ToEventData() map[string]any {
	return map[string]any{
		keyID:         o.id,
		keyItemETag:   o.etag,
		keyItemScore:  o.score,
		keyItemSchema: o.schema,
		keyItemMeta:   maps.Clone(o.meta),
		keyItemData: map[string]any{
			keyID:                  o.id,
			keyDataType:            o.typ.String(),
			keyDataContent:         o.content,
			keyDataLanguage:        slices.Clone(o.language),
			keyDataCharacteristics: maps.Clone(o.characteristics),
		},
	}
}
