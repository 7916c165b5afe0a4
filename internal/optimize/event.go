package optimize

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	TypeOptimize        = "com.adobe.eventType.optimize"
	TypeEdge            = "com.adobe.eventType.edge"
	TypeGenericIdentity = "com.adobe.eventType.generic.identity"
	TypeSystem          = "com.adobe.eventType.system"
)

// Event sources.
const (
	SourceRequestContent           = "com.adobe.eventSource.requestContent"
	SourceResponseContent          = "com.adobe.eventSource.responseContent"
	SourceRequestReset             = "com.adobe.eventSource.requestReset"
	SourceNotification             = "com.adobe.eventSource.notification"
	SourceErrorResponseContent     = "com.adobe.eventSource.errorResponseContent"
	SourceContentComplete          = "com.adobe.eventSource.contentComplete"
	SourceDebug                    = "com.adobe.eventSource.debug"
	SourcePersonalizationDecisions = "personalization:decisions"
)

// Event names used for events this extension creates.
const (
	NameUpdateRequest       = "Optimize Update Propositions Request"
	NameGetRequest          = "Optimize Get Propositions Request"
	NameTrackRequest        = "Optimize Track Propositions Request"
	NameClearRequest        = "Optimize Clear Propositions Request"
	NameResponse            = "Optimize Response"
	NameNotification        = "Optimize Notification"
	NamePersonalizationEdge = "Edge Optimize Personalization Request"
	NameInteractionEdge     = "Edge Optimize Proposition Interaction Request"
)

// Request types carried under KeyRequestType.
const (
	RequestTypeUpdate = "updatepropositions"
	RequestTypeGet    = "getpropositions"
	RequestTypeTrack  = "trackpropositions"
)

// Event data keys.
const (
	KeyRequestType             = "requesttype"
	KeyDecisionScopes          = "decisionscopes"
	KeyPropositionInteractions = "propositioninteractions"
	KeyPropositions            = "propositions"
	KeyResponseError           = "responseerror"
	KeyRequestEventID          = "requestEventId"
	KeyPayload                 = "payload"
	KeyXDM                     = "xdm"
	KeyData                    = "data"
	KeyQuery                   = "query"
	KeyPersonalization         = "personalization"
	KeySchemas                 = "schemas"
	KeyQueryDecisionScopes     = "decisionScopes"
	KeyRequest                 = "request"
	KeySendCompletion          = "sendCompletion"
	KeyDatasetID               = "datasetId"
)

// Event is the unit exchanged with the host: inbound requests and network
// responses, and outbound network requests, responses and notifications.
// ResponseID is set on responses and names the request event being answered.
type Event struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Type       string         `json:"type"`
	Source     string         `json:"source"`
	Data       map[string]any `json:"data,omitempty"`
	ParentID   string         `json:"parentId,omitempty"`
	ResponseID string         `json:"responseId,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// NewEvent creates an event with a fresh id.
func NewEvent(name, typ, source string, data map[string]any) Event {
	return Event{
		ID:        uuid.NewString(),
		Name:      name,
		Type:      typ,
		Source:    source,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

// ChainedTo marks ev as caused by parent.
func (ev Event) ChainedTo(parent Event) Event {
	ev.ParentID = parent.ID
	return ev
}

// InResponseTo marks ev as the answer to request.
func (ev Event) InResponseTo(request Event) Event {
	ev.ParentID = request.ID
	ev.ResponseID = request.ID
	return ev
}

// Is reports whether the event has the given type and source, ignoring case.
func (ev Event) Is(typ, source string) bool {
	return strings.EqualFold(ev.Type, typ) && strings.EqualFold(ev.Source, source)
}
