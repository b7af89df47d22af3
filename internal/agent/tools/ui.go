package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/voxcrm/server/internal/agent/model"
	"github.com/voxcrm/server/internal/crm"
)

// UI tools mutate nothing. They return only a client_action directive the
// collector forwards to the front end.

// navigationRoutes is the closed set of voice-navigable screens.
var navigationRoutes = map[string]string{
	"dashboard":  "/",
	"pipeline":   "/pipeline",
	"contacts":   "/contacts",
	"deals":      "/deals",
	"activities": "/activities",
	"calendar":   "/calendar",
	"settings":   "/settings",
}

// ===================================
// navigate
// ===================================

type navigateInput struct {
	Target string `json:"target"`
}

type navigateTool struct{}

func (t *navigateTool) Info() *schema.ToolInfo {
	targets := make([]string, 0, len(navigationRoutes))
	for k := range navigationRoutes {
		targets = append(targets, k)
	}
	return &schema.ToolInfo{
		Name: "navigate",
		Desc: "Open a screen of the CRM for the user. Use when the user asks to open, show or go to a page.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"target": {
				Type:     "string",
				Desc:     "Screen to open.",
				Enum:     targets,
				Required: true,
			},
		}),
	}
}

func (t *navigateTool) Call(_ context.Context, _ *crm.AuthContext, args json.RawMessage) (Result, error) {
	var in navigateInput
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	in.Target = strings.ToLower(strings.TrimSpace(in.Target))
	route, ok := navigationRoutes[in.Target]
	if !ok {
		return nil, fmt.Errorf("unknown navigation target %q", in.Target)
	}

	return Result{
		"ok": true,
		model.ClientActionKey: model.ClientAction{
			Type:   model.ActionNavigate,
			Route:  route,
			Target: in.Target,
		},
	}, nil
}

// ===================================
// filter_list
// ===================================

type filterListInput struct {
	Scope string `json:"scope"`
	Field string `json:"field"`
	Value string `json:"value"`
}

type filterListTool struct{}

func (t *filterListTool) Info() *schema.ToolInfo {
	return &schema.ToolInfo{
		Name: "filter_list",
		Desc: "Apply a filter to the list the user is looking at, e.g. only deals in a stage or contacts from a company. Does not change any data.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"scope": {
				Type:     "string",
				Desc:     "Which list to filter.",
				Enum:     []string{"contacts", "deals", "activities"},
				Required: true,
			},
			"field": {
				Type:     "string",
				Desc:     "Field to filter on, e.g. stage, company, kind.",
				Required: true,
			},
			"value": {
				Type:     "string",
				Desc:     "Filter value.",
				Required: true,
			},
		}),
	}
}

func (t *filterListTool) Call(_ context.Context, _ *crm.AuthContext, args json.RawMessage) (Result, error) {
	var in filterListInput
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if in.Scope == "" || in.Field == "" {
		return nil, fmt.Errorf("scope and field are required")
	}

	return Result{
		"ok": true,
		model.ClientActionKey: model.ClientAction{
			Type:   model.ActionUI,
			Scope:  in.Scope,
			Action: "filter",
			Payload: map[string]any{
				"field": in.Field,
				"value": in.Value,
			},
		},
	}, nil
}

// ===================================
// search_view
// ===================================

type searchViewInput struct {
	Scope string `json:"scope"`
	Query string `json:"query"`
}

type searchViewTool struct{}

func (t *searchViewTool) Info() *schema.ToolInfo {
	return &schema.ToolInfo{
		Name: "search_view",
		Desc: "Type a query into the search box of the current list for the user. Use when the user says 'search for ...' about what is on screen.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"scope": {
				Type:     "string",
				Desc:     "Which list to search.",
				Enum:     []string{"contacts", "deals", "activities"},
				Required: true,
			},
			"query": {
				Type:     "string",
				Desc:     "Search text to place into the search box.",
				Required: true,
			},
		}),
	}
}

func (t *searchViewTool) Call(_ context.Context, _ *crm.AuthContext, args json.RawMessage) (Result, error) {
	var in searchViewInput
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if in.Scope == "" || strings.TrimSpace(in.Query) == "" {
		return nil, fmt.Errorf("scope and query are required")
	}

	return Result{
		"ok": true,
		model.ClientActionKey: model.ClientAction{
			Type:   model.ActionUI,
			Scope:  in.Scope,
			Action: "search",
			Payload: map[string]any{
				"query": in.Query,
			},
		},
	}, nil
}

// ===================================
// open_form
// ===================================

type openFormInput struct {
	Entity  string            `json:"entity"`
	Prefill map[string]string `json:"prefill,omitempty"`
}

type openFormTool struct{}

func (t *openFormTool) Info() *schema.ToolInfo {
	return &schema.ToolInfo{
		Name: "open_form",
		Desc: "Open a create-form modal so the user can finish entering a record by hand. Prefer create_contact or log_activity when the user already dictated all fields.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"entity": {
				Type:     "string",
				Desc:     "Which form to open.",
				Enum:     []string{"contact", "deal", "activity"},
				Required: true,
			},
			"prefill": {
				Type: "object",
				Desc: "Field values to prefill from what the user already said.",
			},
		}),
	}
}

func (t *openFormTool) Call(_ context.Context, _ *crm.AuthContext, args json.RawMessage) (Result, error) {
	var in openFormInput
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if in.Entity == "" {
		return nil, fmt.Errorf("entity is required")
	}

	payload := map[string]any{"entity": in.Entity}
	if len(in.Prefill) > 0 {
		payload["prefill"] = in.Prefill
	}

	return Result{
		"ok": true,
		model.ClientActionKey: model.ClientAction{
			Type:    model.ActionUI,
			Scope:   in.Entity,
			Action:  "open_modal",
			Payload: payload,
		},
	}, nil
}
