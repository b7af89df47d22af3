package model

import "encoding/json"

// ClientActionType tags the two variants a tool may emit.
type ClientActionType string

const (
	ActionNavigate ClientActionType = "navigate"
	ActionUI       ClientActionType = "ui_action"
)

// ClientAction is a side-channel directive for the calling UI: either a
// navigation (route + target) or a page-scoped UI state change. It is
// distinct from CRM data mutations and never persisted.
type ClientAction struct {
	Type    ClientActionType `json:"type"`
	Route   string           `json:"route,omitempty"`
	Target  string           `json:"target,omitempty"`
	Scope   string           `json:"scope,omitempty"`
	Action  string           `json:"action,omitempty"`
	Payload map[string]any   `json:"payload,omitempty"`
}

// IsNavigate reports whether the action is the navigation variant.
func (a ClientAction) IsNavigate() bool {
	return a.Type == ActionNavigate
}

// ClientActionKey is the field tools place into their result map when they
// want the UI to act.
const ClientActionKey = "client_action"

// ActionFromResult extracts a client action from a tool result map, if any.
// Handles both the typed value produced by in-process tools and the generic
// map shape after a JSON round trip.
func ActionFromResult(result map[string]any) (ClientAction, bool) {
	raw, ok := result[ClientActionKey]
	if !ok || raw == nil {
		return ClientAction{}, false
	}
	if a, ok := raw.(ClientAction); ok {
		return a, a.Type != ""
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return ClientAction{}, false
	}
	var a ClientAction
	if err := json.Unmarshal(b, &a); err != nil {
		return ClientAction{}, false
	}
	return a, a.Type != ""
}
