package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/voxcrm/server/internal/crm"
)

// ===================================
// search_contacts
// ===================================

type searchContactsInput struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results,omitempty"`
}

type searchContactsTool struct {
	api crm.DataAPI
}

func (t *searchContactsTool) Info() *schema.ToolInfo {
	return &schema.ToolInfo{
		Name: "search_contacts",
		Desc: "Search contacts by name, email, phone or company. Returns structured contact records with id, name, email, phone and company. Use this whenever the user mentions a person or company.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"query": {
				Type:     "string",
				Desc:     "Search text: a name, email fragment, phone number, or company name.",
				Required: true,
			},
			"max_results": {
				Type: "number",
				Desc: "Maximum number of contacts to return (default: 10, max: 25).",
			},
		}),
	}
}

func (t *searchContactsTool) Call(ctx context.Context, auth *crm.AuthContext, args json.RawMessage) (Result, error) {
	var in searchContactsInput
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	in.Query = strings.TrimSpace(in.Query)
	if in.Query == "" {
		return nil, fmt.Errorf("query is required")
	}
	if in.MaxResults <= 0 {
		in.MaxResults = 10
	}
	if in.MaxResults > 25 {
		in.MaxResults = 25
	}

	rows, err := t.api.Read(ctx, auth, "contacts", crm.Filter{"search": in.Query}, in.MaxResults)
	if err != nil {
		return nil, err
	}
	return Result{"contacts": rows, "total": len(rows)}, nil
}

// ===================================
// get_contact
// ===================================

type getContactInput struct {
	ContactID string `json:"contact_id"`
}

type getContactTool struct {
	api crm.DataAPI
}

func (t *getContactTool) Info() *schema.ToolInfo {
	return &schema.ToolInfo{
		Name: "get_contact",
		Desc: "Get one contact's full record including notes and owner. Use after search_contacts when the user asks for details about a specific person.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"contact_id": {
				Type:     "string",
				Desc:     "Contact id obtained from search_contacts results.",
				Required: true,
			},
		}),
	}
}

func (t *getContactTool) Call(ctx context.Context, auth *crm.AuthContext, args json.RawMessage) (Result, error) {
	var in getContactInput
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if strings.TrimSpace(in.ContactID) == "" {
		return nil, fmt.Errorf("contact_id is required")
	}

	rows, err := t.api.Read(ctx, auth, "contacts", crm.Filter{"id": in.ContactID}, 1)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("contact %s not found", in.ContactID)
	}
	return Result{"contact": rows[0]}, nil
}

// ===================================
// create_contact
// ===================================

type createContactInput struct {
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Company string `json:"company,omitempty"`
}

type createContactTool struct {
	api crm.DataAPI
}

func (t *createContactTool) Info() *schema.ToolInfo {
	return &schema.ToolInfo{
		Name: "create_contact",
		Desc: "Create a new contact owned by the current user. Requires at least a name; add email, phone and company when the user provides them.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"name": {
				Type:     "string",
				Desc:     "Full name of the contact.",
				Required: true,
			},
			"email": {
				Type: "string",
				Desc: "Email address, if mentioned.",
			},
			"phone": {
				Type: "string",
				Desc: "Phone number, if mentioned.",
			},
			"company": {
				Type: "string",
				Desc: "Company the contact works for, if mentioned.",
			},
		}),
	}
}

func (t *createContactTool) Call(ctx context.Context, actor crm.Identity, auth *crm.AuthContext, args json.RawMessage) (Result, error) {
	var in createContactInput
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, fmt.Errorf("name is required")
	}

	row, err := t.api.Create(ctx, auth, "contacts", crm.Payload{
		"name":       in.Name,
		"email":      in.Email,
		"phone":      in.Phone,
		"company":    in.Company,
		"owner_id":   actor.UserID,
		"created_by": actor.UserID,
	})
	if err != nil {
		return nil, err
	}
	return Result{"ok": true, "contact": row}, nil
}
