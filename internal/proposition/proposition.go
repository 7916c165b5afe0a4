// Package proposition models the personalization decisions returned for a decision
// scope: a Proposition and the Offers it owns.
package proposition

import (
	"errors"
	"fmt"
	"maps"
	"reflect"
	"slices"

	"github.com/TimurManjosov/goptimize/internal/eventdata"
	"github.com/TimurManjosov/goptimize/internal/logging"
)

var (
	ErrMissingID    = errors.New("proposition id is missing or empty")
	ErrMissingScope = errors.New("proposition scope is missing or empty")
	ErrMissingItems = errors.New("proposition items are missing")
)

var log = logging.Component("proposition")

// Proposition is the server decision for one scope. Propositions are immutable values.
type Proposition struct {
	id           string
	offers       []Offer
	scope        string
	scopeDetails map[string]any
}

// New creates a Proposition and marks every offer as owned by it.
func New(id string, offers []Offer, scope string, scopeDetails map[string]any) Proposition {
	owned := make([]Offer, len(offers))
	for i, o := range offers {
		o.propositionID = id
		o.scope = scope
		owned[i] = o
	}
	details := map[string]any{}
	if scopeDetails != nil {
		details = maps.Clone(scopeDetails)
	}
	return Proposition{id: id, offers: owned, scope: scope, scopeDetails: details}
}

func (p Proposition) ID() string                   { return p.id }
func (p Proposition) Scope() string                { return p.scope }
func (p Proposition) Offers() []Offer              { return slices.Clone(p.offers) }
func (p Proposition) ScopeDetails() map[string]any { return maps.Clone(p.scopeDetails) }

// Offer returns the owned offer with the given id.
func (p Proposition) Offer(id string) (Offer, bool) {
	for _, o := range p.offers {
		if o.id == id {
			return o, true
		}
	}
	return Offer{}, false
}

// Narrow returns a copy of the proposition holding only the offers with the given
// ids, in proposition order.
func (p Proposition) Narrow(offerIDs ...string) Proposition {
	keep := make(map[string]struct{}, len(offerIDs))
	for _, id := range offerIDs {
		keep[id] = struct{}{}
	}
	offers := make([]Offer, 0, len(offerIDs))
	for _, o := range p.offers {
		if _, ok := keep[o.id]; ok {
			offers = append(offers, o)
		}
	}
	return Proposition{id: p.id, offers: offers, scope: p.scope, scopeDetails: p.scopeDetails}
}

// Equal compares all four fields, offers and scope details deeply.
func (p Proposition) Equal(other Proposition) bool {
	if p.id != other.id || p.scope != other.scope || len(p.offers) != len(other.offers) {
		return false
	}
	for i := range p.offers {
		if !p.offers[i].Equal(other.offers[i]) {
			return false
		}
	}
	return reflect.DeepEqual(p.scopeDetails, other.scopeDetails)
}

// FromEventData parses one payload entry. Items that fail to parse are skipped
// and logged; the result may therefore hold zero offers.
func FromEventData(data map[string]any) (Proposition, error) {
	if len(data) == 0 {
		return Proposition{}, ErrEmptyData
	}

	id, err := eventdata.String(data, keyID)
	if err != nil {
		return Proposition{}, err
	}
	if id == "" {
		return Proposition{}, ErrMissingID
	}
	scope, err := eventdata.String(data, keyScope)
	if err != nil {
		return Proposition{}, err
	}
	if scope == "" {
		return Proposition{}, ErrMissingScope
	}
	scopeDetails, err := eventdata.Map(data, keyScopeDetails)
	if err != nil {
		return Proposition{}, err
	}
	if !eventdata.Has(data, keyItems) {
		return Proposition{}, ErrMissingItems
	}
	items, err := eventdata.ListOfMaps(data, keyItems)
	if err != nil {
		return Proposition{}, fmt.Errorf("proposition %s: %w", id, err)
	}

	offers := make([]Offer, 0, len(items))
	for i, item := range items {
		offer, err := OfferFromEventData(item)
		if err != nil {
			log.WithError(err).WithField("proposition", id).WithField("item", i).Debug("skipping proposition item")
			continue
		}
		offers = append(offers, offer)
	}
	return New(id, offers, scope, scopeDetails), nil
}

// ToEventData serializes the proposition to the payload wire shape.
func (p Proposition) ToEventData() map[string]any {
	items := make([]map[string]any, len(p.offers))
	for i, o := range p.offers {
		items[i] = o.ToEventData()
	}
	return map[string]any{
		keyID:           p.id,
		keyScope:        p.scope,
		keyScopeDetails: maps.Clone(p.scopeDetails),
		keyItems:        items,
	}
}
