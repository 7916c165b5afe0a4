// Package decisionscope encodes, decodes and validates decision scope names.
//
// A scope name is an opaque string. It is either a literal identifier (for example a
// Target mbox name) or the Base64 encoding of a JSON object describing an
// activity/placement pair. Only construction and validation look inside the name;
// everywhere else two scopes are the same scope iff their names are equal.
package decisionscope

import (
	"encoding/base64"
	"errors"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/TimurManjosov/goptimize/internal/eventdata"
	"github.com/TimurManjosov/goptimize/internal/logging"
)

// JSON keys of an encoded scope.
const (
	KeyActivityID     = "activityId"
	KeyPlacementID    = "placementId"
	KeyItemCount      = "itemCount"
	KeyXDMName        = "xdm:name"
	KeyXDMActivityID  = "xdm:activityId"
	KeyXDMPlacementID = "xdm:placementId"
	KeyXDMItemCount   = "xdm:itemCount"

	// KeyName is the event data key carrying a scope name.
	KeyName = "name"
)

// DefaultItemCount is the item count implied when none is encoded.
const DefaultItemCount = 1

// ErrNotEncoded is returned by Decode when the name is not a Base64 encoded activity scope.
var ErrNotEncoded = errors.New("decision scope is not an encoded activity scope")

var log = logging.Component("decisionscope")

// DecisionScope names a placement for which personalized content is requested.
// The zero value has an empty name and is invalid.
type DecisionScope struct {
	name string
}

// New returns a scope with the given name.
func New(name string) DecisionScope {
	return DecisionScope{name: name}
}

// FromActivity returns a scope whose name encodes the activity and placement.
// Invalid input yields a scope with an empty (invalid) name.
func FromActivity(activityID, placementID string, itemCount int) DecisionScope {
	name, _ := Encode(activityID, placementID, itemCount)
	return DecisionScope{name: name}
}

// Name returns the scope name.
func (s DecisionScope) Name() string { return s.name }

// String implements fmt.Stringer.
func (s DecisionScope) String() string { return s.name }

// Encode returns the Base64 encoding of
// {"activityId":..,"placementId":..[,"itemCount":..]}. The itemCount field is
// omitted when it equals DefaultItemCount. ok is false when either identifier is
// empty or itemCount is not positive.
func Encode(activityID, placementID string, itemCount int) (name string, ok bool) {
	if activityID == "" || placementID == "" || itemCount <= 0 {
		log.Debug("cannot encode decision scope: activityId, placementId or itemCount is invalid")
		return "", false
	}

	// sjson appends new keys in call order, which keeps the encoded field order stable.
	doc, err := sjson.Set("{}", KeyActivityID, activityID)
	if err == nil {
		doc, err = sjson.Set(doc, KeyPlacementID, placementID)
	}
	if err == nil && itemCount > DefaultItemCount {
		doc, err = sjson.Set(doc, KeyItemCount, itemCount)
	}
	if err != nil {
		log.WithError(err).Warn("cannot encode decision scope")
		return "", false
	}
	return base64.StdEncoding.EncodeToString([]byte(doc)), true
}

// Activity is the decoded form of an encoded activity scope.
type Activity struct {
	ActivityID  string `json:"activityId" yaml:"activityId"`
	PlacementID string `json:"placementId" yaml:"placementId"`
	ItemCount   int    `json:"itemCount" yaml:"itemCount"`
}

// Decode recovers the activity, placement and item count from an encoded scope
// name. Both the plain and the "xdm:" prefixed key forms are accepted, in any order.
func Decode(name string) (Activity, error) {
	obj, ok := decodeObject(name)
	if !ok {
		return Activity{}, ErrNotEncoded
	}
	activityKey, placementKey, countKey := KeyActivityID, KeyPlacementID, KeyItemCount
	if obj.Get(KeyXDMActivityID).Exists() {
		activityKey, placementKey, countKey = KeyXDMActivityID, KeyXDMPlacementID, KeyXDMItemCount
	}
	act := obj.Get(activityKey)
	plc := obj.Get(placementKey)
	if act.Type != gjson.String || plc.Type != gjson.String {
		return Activity{}, ErrNotEncoded
	}
	count := DefaultItemCount
	if c := obj.Get(countKey); c.Exists() {
		count = int(c.Int())
	}
	return Activity{ActivityID: act.Str, PlacementID: plc.Str, ItemCount: count}, nil
}

// IsValid reports whether the scope may be sent in a personalization request.
//
// An empty name is invalid. A name that does not Base64-decode to a JSON object is
// an opaque literal and is valid. A decoded object must carry, in priority order,
// a non-empty "xdm:name", or a non-empty "xdm:activityId"/"xdm:placementId" pair,
// or a non-empty "activityId"/"placementId" pair; an item count, when present,
// must be at least 1. An object matching none of these forms is invalid.
func (s DecisionScope) IsValid() bool {
	if s.name == "" {
		log.Debug("invalid decision scope: name is empty")
		return false
	}

	obj, ok := decodeObject(s.name)
	if !ok {
		log.WithField("scope", s.name).Trace("decision scope is an opaque name")
		return true
	}

	if name := obj.Get(KeyXDMName); name.Exists() {
		if !nonEmptyString(name) {
			log.WithField("scope", s.name).Debug("invalid decision scope: xdm:name is empty")
			return false
		}
		return true
	}
	if obj.Get(KeyXDMActivityID).Exists() {
		return validActivity(s.name, obj, KeyXDMActivityID, KeyXDMPlacementID, KeyXDMItemCount)
	}
	return validActivity(s.name, obj, KeyActivityID, KeyPlacementID, KeyItemCount)
}

func validActivity(name string, obj gjson.Result, activityKey, placementKey, countKey string) bool {
	entry := log.WithField("scope", name)
	if !nonEmptyString(obj.Get(activityKey)) {
		entry.Debugf("invalid decision scope: %s is missing or empty", activityKey)
		return false
	}
	if !nonEmptyString(obj.Get(placementKey)) {
		entry.Debugf("invalid decision scope: %s is missing or empty", placementKey)
		return false
	}
	if c := obj.Get(countKey); c.Exists() {
		if c.Type != gjson.Number || c.Int() < DefaultItemCount {
			entry.Debugf("invalid decision scope: %s (%s) is invalid", countKey, c.Raw)
			return false
		}
	}
	return true
}

func nonEmptyString(r gjson.Result) bool {
	return r.Type == gjson.String && r.Str != ""
}

// decodeObject returns the JSON object encoded in name, if any.
func decodeObject(name string) (gjson.Result, bool) {
	raw, err := base64.StdEncoding.DecodeString(name)
	if err != nil || len(raw) == 0 {
		return gjson.Result{}, false
	}
	if !gjson.ValidBytes(raw) {
		return gjson.Result{}, false
	}
	obj := gjson.ParseBytes(raw)
	if !obj.IsObject() {
		return gjson.Result{}, false
	}
	return obj, true
}

// FromEventData builds a scope from {"name": "..."}. ok is false when the map has
// no non-empty string name.
func FromEventData(data map[string]any) (DecisionScope, bool) {
	name, err := eventdata.String(data, KeyName)
	if err != nil || name == "" {
		return DecisionScope{}, false
	}
	return New(name), true
}

// ToEventData returns {"name": "..."}.
func (s DecisionScope) ToEventData() map[string]any {
	return map[string]any{KeyName: s.name}
}

// Names returns the names of the given scopes in order.
func Names(scopes []DecisionScope) []string {
	names := make([]string, len(scopes))
	for i, s := range scopes {
		names[i] = s.name
	}
	return names
}
