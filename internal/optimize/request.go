package optimize

import (
	"maps"

	"github.com/sirupsen/logrus"

	"github.com/TimurManjosov/goptimize/internal/decisionscope"
	"github.com/TimurManjosov/goptimize/internal/eventdata"
	"github.com/TimurManjosov/goptimize/internal/proposition"
	"github.com/TimurManjosov/goptimize/internal/telemetry"
	"github.com/TimurManjosov/goptimize/internal/xdm"
)

func (e *Extension) handleRequestContent(ev Event) {
	if len(ev.Data) == 0 {
		e.log.WithField("id", ev.ID).Debug("ignoring request with empty event data")
		return
	}

	requestType := eventdata.OptString(ev.Data, KeyRequestType, "")
	switch requestType {
	case RequestTypeUpdate:
		telemetry.EventsHandled.WithLabelValues("update").Inc()
		e.handleUpdate(ev)
	case RequestTypeGet:
		telemetry.EventsHandled.WithLabelValues("get").Inc()
		e.handleGet(ev)
	case RequestTypeTrack:
		telemetry.EventsHandled.WithLabelValues("track").Inc()
		e.handleTrack(ev)
	default:
		e.log.WithField("requesttype", requestType).Debug("ignoring request with unhandled request type")
	}
}

// handleUpdate emits a personalization network request for the valid scopes of
// the update. The cache is written only when the response arrives.
func (e *Extension) handleUpdate(ev Event) {
	cfg := e.configuration()
	if cfg == nil {
		e.log.WithField("id", ev.ID).Debug("dropping update request, configuration is not available")
		return
	}

	scopes, _ := decodeScopes(ev.Data)
	valid := validScopes(scopes)
	if len(valid) == 0 {
		e.log.WithFields(logrus.Fields{"id": ev.ID, "scopes": len(scopes)}).
			Debug("dropping update request, no valid decision scopes")
		return
	}

	xdmData := map[string]any{}
	if input, err := eventdata.Map(ev.Data, KeyXDM); err == nil {
		maps.Copy(xdmData, input)
	}
	xdmData[xdm.KeyEventType] = xdm.EventTypePersonalizationRequest

	data := map[string]any{
		KeyQuery: map[string]any{
			KeyPersonalization: map[string]any{
				KeySchemas:             proposition.SupportedSchemas(),
				KeyQueryDecisionScopes: decisionscope.Names(valid),
			},
		},
		KeyXDM:     xdmData,
		KeyRequest: map[string]any{KeySendCompletion: true},
	}
	if input, err := eventdata.Map(ev.Data, KeyData); err == nil && len(input) > 0 {
		data[KeyData] = maps.Clone(input)
	}
	if datasetID := eventdata.OptString(cfg, ConfigKeyDatasetID, ""); datasetID != "" {
		data[KeyDatasetID] = datasetID
	}

	out := NewEvent(NamePersonalizationEdge, TypeEdge, SourceRequestContent, data).ChainedTo(ev)
	e.trackPending(out.ID, ev, valid)
	e.emit(out)
}

// handleGet answers from the caches. Malformed scope lists are answered with
// ErrorCodeUnexpected because the requester is waiting for a response.
func (e *Extension) handleGet(ev Event) {
	scopes, malformed := decodeScopes(ev.Data)
	valid := validScopes(scopes)
	if malformed || len(valid) == 0 {
		e.log.WithFields(logrus.Fields{"id": ev.ID, "malformed": malformed, "valid": len(valid)}).
			Debug("cannot process get request, no valid decision scopes")
		e.emit(errorResponse(ev, ErrorCodeUnexpected))
		return
	}

	found := e.lookup(valid)
	list := make([]map[string]any, 0, len(found))
	for _, s := range valid {
		if p, ok := found[s]; ok {
			list = append(list, p.ToEventData())
		}
	}
	e.emit(NewEvent(NameResponse, TypeOptimize, SourceResponseContent,
		map[string]any{KeyPropositions: list}).InResponseTo(ev))
}

// lookup returns the cached propositions for scopes. Preview propositions take
// precedence: when any scope has one, only preview propositions are returned.
func (e *Extension) lookup(scopes []decisionscope.DecisionScope) map[decisionscope.DecisionScope]proposition.Proposition {
	if preview := e.preview.Lookup(scopes); len(preview) > 0 {
		e.log.WithField("scopes", len(preview)).Debug("serving preview propositions")
		return preview
	}
	return e.cache.Lookup(scopes)
}

// handleTrack forwards a pre-built interaction fragment to the network.
func (e *Extension) handleTrack(ev Event) {
	cfg := e.configuration()
	if cfg == nil {
		e.log.WithField("id", ev.ID).Debug("dropping track request, configuration is not available")
		return
	}

	interactions, err := eventdata.Map(ev.Data, KeyPropositionInteractions)
	if err != nil || len(interactions) == 0 {
		e.log.WithField("id", ev.ID).WithError(err).Debug("dropping track request, proposition interactions are empty")
		return
	}

	data := map[string]any{KeyXDM: maps.Clone(interactions)}
	if datasetID := eventdata.OptString(cfg, ConfigKeyDatasetID, ""); datasetID != "" {
		data[KeyDatasetID] = datasetID
	}
	e.emit(NewEvent(NameInteractionEdge, TypeEdge, SourceRequestContent, data).ChainedTo(ev))
}

func (e *Extension) handleReset(ev Event, trigger string) {
	telemetry.EventsHandled.WithLabelValues(trigger).Inc()
	e.cache.Clear()
	e.preview.Clear()
	e.updateGauges()
	e.log.WithFields(logrus.Fields{"id": ev.ID, "trigger": trigger}).Debug("cleared cached propositions")
}

func errorResponse(request Event, code any) Event {
	return NewEvent(NameResponse, TypeOptimize, SourceResponseContent,
		map[string]any{KeyResponseError: code}).InResponseTo(request)
}

// decodeScopes reads the decisionscopes list. Entries that are not {"name": "..."}
// are skipped and reported through malformed, as is a list of the wrong shape.
func decodeScopes(data map[string]any) (scopes []decisionscope.DecisionScope, malformed bool) {
	entries, err := eventdata.ListOfMaps(data, KeyDecisionScopes)
	if err != nil {
		return nil, true
	}
	scopes = make([]decisionscope.DecisionScope, 0, len(entries))
	for _, entry := range entries {
		s, ok := decisionscope.FromEventData(entry)
		if !ok {
			malformed = true
			continue
		}
		scopes = append(scopes, s)
	}
	return scopes, malformed
}

func validScopes(scopes []decisionscope.DecisionScope) []decisionscope.DecisionScope {
	valid := make([]decisionscope.DecisionScope, 0, len(scopes))
	for _, s := range scopes {
		if s.IsValid() {
			valid = append(valid, s)
		}
	}
	return valid
}
