package optimize

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/TimurManjosov/goptimize/internal/cache"
	"github.com/TimurManjosov/goptimize/internal/decisionscope"
	"github.com/TimurManjosov/goptimize/internal/proposition"
	"github.com/TimurManjosov/goptimize/internal/xdm"
)

var _ proposition.Tracker = (*Extension)(nil)

// UpdatePropositions queues an update request for scopes. xdmData and data are
// merged into the network request. It returns the request event id; the update
// response carries it as ResponseID.
func (e *Extension) UpdatePropositions(scopes []decisionscope.DecisionScope, xdmData, data map[string]any) (string, error) {
	eventData := map[string]any{
		KeyRequestType:    RequestTypeUpdate,
		KeyDecisionScopes: scopesToEventData(scopes),
	}
	if len(xdmData) > 0 {
		eventData[KeyXDM] = xdmData
	}
	if len(data) > 0 {
		eventData[KeyData] = data
	}
	ev := NewEvent(NameUpdateRequest, TypeOptimize, SourceRequestContent, eventData)
	return ev.ID, e.Handle(ev)
}

// GetPropositions returns the cached propositions for the valid scopes among
// scopes. Scopes without content are absent from the result. It does not wait
// for in-flight updates.
func (e *Extension) GetPropositions(ctx context.Context, scopes []decisionscope.DecisionScope) (map[decisionscope.DecisionScope]proposition.Proposition, error) {
	valid := validScopes(scopes)
	if len(valid) == 0 {
		return nil, ErrNoValidScopes
	}

	result := make(chan map[decisionscope.DecisionScope]proposition.Proposition, 1)
	if err := e.submit(func() { result <- e.lookup(valid) }); err != nil {
		return nil, err
	}

	select {
	case found := <-result:
		return found, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// TrackPropositions queues a track request with a pre-built interaction fragment.
func (e *Extension) TrackPropositions(interactions map[string]any) error {
	return e.Handle(NewEvent(NameTrackRequest, TypeOptimize, SourceRequestContent, map[string]any{
		KeyRequestType:             RequestTypeTrack,
		KeyPropositionInteractions: interactions,
	}))
}

// ClearCachedPropositions queues a reset of both caches.
func (e *Extension) ClearCachedPropositions() error {
	return e.Handle(NewEvent(NameClearRequest, TypeOptimize, SourceRequestReset, nil))
}

// TrackDisplay records that offers were shown. Offers whose proposition is no
// longer cached are not tracked.
func (e *Extension) TrackDisplay(offers ...proposition.Offer) {
	e.trackOffers(xdm.EventTypeDisplay, offers)
}

// TrackTap records that the user interacted with offers.
func (e *Extension) TrackTap(offers ...proposition.Offer) {
	e.trackOffers(xdm.EventTypeInteract, offers)
}

func (e *Extension) trackOffers(eventType string, offers []proposition.Offer) {
	offers = append([]proposition.Offer(nil), offers...)
	err := e.submit(func() {
		props := e.resolve(offers)
		if len(props) == 0 {
			e.log.WithFields(logrus.Fields{"event_type": eventType, "offers": len(offers)}).
				Debug("not tracking interaction, no cached proposition owns the offers")
			return
		}
		e.handleTrack(NewEvent(NameTrackRequest, TypeOptimize, SourceRequestContent, map[string]any{
			KeyRequestType:             RequestTypeTrack,
			KeyPropositionInteractions: xdm.InteractionXDM(eventType, props...),
		}))
	})
	if err != nil {
		e.log.WithError(err).WithField("event_type", eventType).Warn("cannot queue interaction")
	}
}

// resolve finds the cached proposition owning each offer and narrows it to the
// offers being tracked. The result keeps the order in which propositions first
// appear among offers.
func (e *Extension) resolve(offers []proposition.Offer) []proposition.Proposition {
	var order []string
	owners := make(map[string]proposition.Proposition)
	ids := make(map[string][]string)

	for _, o := range offers {
		if !o.Owned() {
			continue
		}
		p, ok := e.owner(o)
		if !ok {
			continue
		}
		if _, seen := owners[p.ID()]; !seen {
			order = append(order, p.ID())
			owners[p.ID()] = p
		}
		ids[p.ID()] = append(ids[p.ID()], o.ID())
	}

	props := make([]proposition.Proposition, 0, len(order))
	for _, id := range order {
		props = append(props, owners[id].Narrow(ids[id]...))
	}
	return props
}

func (e *Extension) owner(o proposition.Offer) (proposition.Proposition, bool) {
	scope := decisionscope.New(o.Scope())
	for _, c := range []*cache.Cache{e.cache, e.preview} {
		p, ok := c.Get(scope)
		if !ok || p.ID() != o.PropositionID() {
			continue
		}
		if _, has := p.Offer(o.ID()); has {
			return p, true
		}
	}
	return proposition.Proposition{}, false
}

func scopesToEventData(scopes []decisionscope.DecisionScope) []map[string]any {
	out := make([]map[string]any, len(scopes))
	for i, s := range scopes {
		out[i] = s.ToEventData()
	}
	return out
}
