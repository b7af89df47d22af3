package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/voxcrm/server/internal/crm"
)

// dealStages is the closed stage enumeration of the pipeline board.
var dealStages = []string{"lead", "qualified", "proposal", "negotiation", "won", "lost"}

func validStage(s string) bool {
	for _, st := range dealStages {
		if st == s {
			return true
		}
	}
	return false
}

// ===================================
// list_deals
// ===================================

type listDealsInput struct {
	Stage      string `json:"stage,omitempty"`
	MaxResults int    `json:"max_results,omitempty"`
}

type listDealsTool struct {
	api crm.DataAPI
}

func (t *listDealsTool) Info() *schema.ToolInfo {
	return &schema.ToolInfo{
		Name: "list_deals",
		Desc: "List the user's deals, optionally filtered by pipeline stage. Returns id, title, value, stage and contact for each deal.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"stage": {
				Type: "string",
				Desc: "Optional stage filter.",
				Enum: dealStages,
			},
			"max_results": {
				Type: "number",
				Desc: "Maximum number of deals to return (default: 10, max: 25).",
			},
		}),
	}
}

func (t *listDealsTool) Call(ctx context.Context, auth *crm.AuthContext, args json.RawMessage) (Result, error) {
	var in listDealsInput
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if in.MaxResults <= 0 {
		in.MaxResults = 10
	}
	if in.MaxResults > 25 {
		in.MaxResults = 25
	}

	filter := crm.Filter{}
	if in.Stage != "" {
		if !validStage(in.Stage) {
			return nil, fmt.Errorf("unknown stage %q", in.Stage)
		}
		filter["stage"] = in.Stage
	}

	rows, err := t.api.Read(ctx, auth, "deals", filter, in.MaxResults)
	if err != nil {
		return nil, err
	}
	return Result{"deals": rows, "total": len(rows)}, nil
}

// ===================================
// pipeline_summary
// ===================================

type pipelineSummaryTool struct {
	api crm.DataAPI
}

func (t *pipelineSummaryTool) Info() *schema.ToolInfo {
	return &schema.ToolInfo{
		Name: "pipeline_summary",
		Desc: "Aggregate the user's open deals per pipeline stage: deal count and total value for each stage. Use for questions like 'how is my pipeline doing'.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{}),
	}
}

func (t *pipelineSummaryTool) Call(ctx context.Context, auth *crm.AuthContext, _ json.RawMessage) (Result, error) {
	rows, err := t.api.Read(ctx, auth, "deals", crm.Filter{"open": true}, 0)
	if err != nil {
		return nil, err
	}

	type bucket struct {
		Count int     `json:"count"`
		Value float64 `json:"value"`
	}
	stages := make(map[string]*bucket)
	var totalValue float64
	for _, row := range rows {
		stage, _ := row["stage"].(string)
		if stage == "" {
			stage = "lead"
		}
		b, ok := stages[stage]
		if !ok {
			b = &bucket{}
			stages[stage] = b
		}
		b.Count++
		if v, ok := row["value"].(float64); ok {
			b.Value += v
			totalValue += v
		}
	}

	return Result{
		"stages":      stages,
		"total_deals": len(rows),
		"total_value": totalValue,
	}, nil
}

// ===================================
// update_deal_stage
// ===================================

type updateDealStageInput struct {
	DealID string `json:"deal_id"`
	Stage  string `json:"stage"`
}

type updateDealStageTool struct {
	api crm.DataAPI
}

func (t *updateDealStageTool) Info() *schema.ToolInfo {
	return &schema.ToolInfo{
		Name: "update_deal_stage",
		Desc: "Move a deal to another pipeline stage. Use when the user says a deal advanced, was won, or was lost.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"deal_id": {
				Type:     "string",
				Desc:     "Deal id obtained from list_deals results.",
				Required: true,
			},
			"stage": {
				Type:     "string",
				Desc:     "Target stage.",
				Enum:     dealStages,
				Required: true,
			},
		}),
	}
}

func (t *updateDealStageTool) Call(ctx context.Context, actor crm.Identity, auth *crm.AuthContext, args json.RawMessage) (Result, error) {
	var in updateDealStageInput
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if strings.TrimSpace(in.DealID) == "" {
		return nil, fmt.Errorf("deal_id is required")
	}
	if !validStage(in.Stage) {
		return nil, fmt.Errorf("unknown stage %q", in.Stage)
	}

	row, err := t.api.Update(ctx, auth, "deals", in.DealID, crm.Payload{
		"stage":      in.Stage,
		"updated_by": actor.UserID,
	})
	if err != nil {
		return nil, err
	}
	return Result{"ok": true, "deal": row}, nil
}
