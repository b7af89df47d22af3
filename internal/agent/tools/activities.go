package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/voxcrm/server/internal/crm"
)

var activityKinds = []string{"call", "note", "meeting", "email"}

type logActivityInput struct {
	Kind      string `json:"kind"`
	Summary   string `json:"summary"`
	ContactID string `json:"contact_id,omitempty"`
	DealID    string `json:"deal_id,omitempty"`
}

type logActivityTool struct {
	api crm.DataAPI
}

func (t *logActivityTool) Info() *schema.ToolInfo {
	return &schema.ToolInfo{
		Name: "log_activity",
		Desc: "Record a call, note, meeting or email on a contact or deal, attributed to the current user. Use when the user dictates what happened, e.g. 'log that I called Maria about the renewal'.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"kind": {
				Type:     "string",
				Desc:     "Activity type.",
				Enum:     activityKinds,
				Required: true,
			},
			"summary": {
				Type:     "string",
				Desc:     "Short description of what happened, in the user's words.",
				Required: true,
			},
			"contact_id": {
				Type: "string",
				Desc: "Contact to attach the activity to, from search_contacts.",
			},
			"deal_id": {
				Type: "string",
				Desc: "Deal to attach the activity to, from list_deals.",
			},
		}),
	}
}

func (t *logActivityTool) Call(ctx context.Context, actor crm.Identity, auth *crm.AuthContext, args json.RawMessage) (Result, error) {
	var in logActivityInput
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}

	valid := false
	for _, k := range activityKinds {
		if k == in.Kind {
			valid = true
			break
		}
	}
	if !valid {
		return nil, fmt.Errorf("unknown activity kind %q", in.Kind)
	}
	in.Summary = strings.TrimSpace(in.Summary)
	if in.Summary == "" {
		return nil, fmt.Errorf("summary is required")
	}
	if in.ContactID == "" && in.DealID == "" {
		return nil, fmt.Errorf("contact_id or deal_id is required")
	}

	row, err := t.api.Create(ctx, auth, "activities", crm.Payload{
		"kind":       in.Kind,
		"summary":    in.Summary,
		"contact_id": in.ContactID,
		"deal_id":    in.DealID,
		"actor_id":   actor.UserID,
		"actor_name": actor.Name,
	})
	if err != nil {
		return nil, err
	}
	return Result{"ok": true, "activity": row}, nil
}
