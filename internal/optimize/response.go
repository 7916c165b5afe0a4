package optimize

import (
	"github.com/sirupsen/logrus"

	"github.com/TimurManjosov/goptimize/internal/decisionscope"
	"github.com/TimurManjosov/goptimize/internal/eventdata"
	"github.com/TimurManjosov/goptimize/internal/proposition"
	"github.com/TimurManjosov/goptimize/internal/telemetry"
)

// pendingUpdate is an update request whose network round trip has not completed.
type pendingUpdate struct {
	request Event
	scopes  []decisionscope.DecisionScope
	seq     uint64
}

func (e *Extension) trackPending(networkRequestID string, request Event, scopes []decisionscope.DecisionScope) {
	if len(e.pending) >= e.maxPending {
		e.evictOldestPending()
	}
	e.pendingSeq++
	e.pending[networkRequestID] = pendingUpdate{request: request, scopes: scopes, seq: e.pendingSeq}
}

func (e *Extension) evictOldestPending() {
	var oldestID string
	var oldest uint64
	for id, p := range e.pending {
		if oldestID == "" || p.seq < oldest {
			oldestID, oldest = id, p.seq
		}
	}
	delete(e.pending, oldestID)
	delete(e.edgeErrors, oldestID)
	e.log.WithField("request_event_id", oldestID).Debug("forgetting oldest pending update request")
}

// handleEdgeResponse caches the propositions of a personalization response and
// notifies listeners. Responses to a known update request are stored against
// the scopes that request asked for.
func (e *Extension) handleEdgeResponse(ev Event) {
	telemetry.EventsHandled.WithLabelValues("edge_response").Inc()

	requestID := eventdata.OptString(ev.Data, KeyRequestEventID, "")
	if requestID == "" {
		e.log.WithField("id", ev.ID).Debug("ignoring personalization response without request event id")
		return
	}

	props, ok := e.parsePayload(ev)
	if !ok {
		return
	}

	if pending, known := e.pending[requestID]; known {
		written := e.cache.PutAll(props, pending.scopes)
		if written < len(props) {
			e.log.WithFields(logrus.Fields{"request_event_id": requestID, "received": len(props), "cached": written}).
				Debug("ignored propositions for scopes that were not requested")
		}
	} else {
		for _, p := range props {
			if err := e.cache.Put(decisionscope.New(p.Scope()), p); err != nil {
				e.log.WithError(err).Warn("cannot cache proposition")
			}
		}
	}
	e.updateGauges()
	e.notify(props)
}

// handleDebug stores preview propositions. They shadow the main cache in get
// responses until the next reset.
func (e *Extension) handleDebug(ev Event) {
	telemetry.EventsHandled.WithLabelValues("debug").Inc()

	props, ok := e.parsePayload(ev)
	if !ok {
		return
	}
	for _, p := range props {
		if err := e.preview.Put(decisionscope.New(p.Scope()), p); err != nil {
			e.log.WithError(err).Warn("cannot cache preview proposition")
		}
	}
	e.updateGauges()
	e.notify(props)
}

// parsePayload returns the propositions of the event payload that hold at least
// one offer. It logs once and returns false when there are none.
func (e *Extension) parsePayload(ev Event) ([]proposition.Proposition, bool) {
	payload, err := eventdata.ListOfMaps(ev.Data, KeyPayload)
	if err != nil {
		e.log.WithField("id", ev.ID).WithError(err).Warn("cannot read proposition payload")
		return nil, false
	}
	if len(payload) == 0 {
		e.log.WithField("id", ev.ID).Debug("proposition payload is empty")
		return nil, false
	}

	props := make([]proposition.Proposition, 0, len(payload))
	for i, entry := range payload {
		p, err := proposition.FromEventData(entry)
		if err != nil {
			e.log.WithFields(logrus.Fields{"id": ev.ID, "entry": i}).WithError(err).Debug("skipping malformed proposition")
			continue
		}
		if len(p.Offers()) == 0 {
			continue
		}
		props = append(props, p)
	}
	if len(props) == 0 {
		e.log.WithField("id", ev.ID).Debug("no propositions with valid offers in payload")
		return nil, false
	}
	return props, true
}

func (e *Extension) notify(props []proposition.Proposition) {
	list := make([]map[string]any, len(props))
	for i, p := range props {
		list[i] = p.ToEventData()
	}
	e.emit(NewEvent(NameNotification, TypeOptimize, SourceNotification,
		map[string]any{KeyPropositions: list}))
}

// handleEdgeError logs a service error. Errors the network layer does not retry
// are remembered so the update completion can report them. The cache is never
// touched.
func (e *Extension) handleEdgeError(ev Event) {
	telemetry.EventsHandled.WithLabelValues("edge_error").Inc()

	requestID := eventdata.OptString(ev.Data, KeyRequestEventID, "")
	if requestID == "" {
		e.log.WithField("id", ev.ID).Debug("ignoring error response without request event id")
		return
	}

	edgeErr := newEdgeError()
	if err := eventdata.Decode(ev.Data, &edgeErr); err != nil {
		e.log.WithField("id", ev.ID).WithError(err).Warn("cannot decode error response")
		return
	}

	e.log.WithFields(logrus.Fields{
		"request_event_id": requestID,
		"type":             edgeErr.Type,
		"status":           edgeErr.Status,
		"title":            edgeErr.Title,
		"detail":           edgeErr.Detail,
		"recoverable":      edgeErr.Recoverable(),
	}).Warn("personalization service error")

	if edgeErr.Recoverable() {
		return
	}
	if _, known := e.pending[requestID]; known {
		e.edgeErrors[requestID] = edgeErr
	}
}

// handleContentComplete answers the update request that caused the completed
// network request with the propositions now cached for its scopes.
func (e *Extension) handleContentComplete(ev Event) {
	telemetry.EventsHandled.WithLabelValues("content_complete").Inc()

	requestID := eventdata.OptString(ev.Data, KeyRequestEventID, "")
	pending, known := e.pending[requestID]
	if !known {
		e.log.WithField("request_event_id", requestID).Trace("ignoring completion for unknown request")
		return
	}
	delete(e.pending, requestID)

	found := e.cache.Lookup(pending.scopes)
	list := make([]map[string]any, 0, len(found))
	for _, s := range pending.scopes {
		if p, ok := found[s]; ok {
			list = append(list, p.ToEventData())
		}
	}
	data := map[string]any{KeyPropositions: list}
	if edgeErr, ok := e.edgeErrors[requestID]; ok {
		data[KeyResponseError] = edgeErr.ToEventData()
		delete(e.edgeErrors, requestID)
	}
	e.emit(NewEvent(NameResponse, TypeOptimize, SourceResponseContent, data).InResponseTo(pending.request))
}
