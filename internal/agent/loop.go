package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino/schema"

	"github.com/voxcrm/server/internal/agent/actions"
	"github.com/voxcrm/server/internal/agent/model"
	"github.com/voxcrm/server/internal/crm"
	errx "github.com/voxcrm/server/internal/core/error"
	logx "github.com/voxcrm/server/pkg/logger"
)

const defaultMaxRounds = 5

// wrapUpNotice is injected when the round budget runs out so the closing
// answer acknowledges anything left undone instead of pretending success.
const wrapUpNotice = "SYSTEM NOTICE: Tool call limit reached. Summarize what was accomplished based on the results above, clearly state any actions that could not be completed, and suggest how the user can proceed."

// loopResult carries everything one run of the tool loop produced.
type loopResult struct {
	// Final is the assistant message whose content becomes the reply.
	Final *schema.Message
	// Turn holds every message generated this turn, in transcript order:
	// assistant tool-call messages, tool results, and the final answer.
	Turn []*schema.Message
	// UsedTools reports whether any tool was executed.
	UsedTools bool
	// Rounds is the number of model calls made, including the forced
	// wrap-up call when the budget is exhausted.
	Rounds  int
	CostUSD float64
}

// runLoop alternates model calls and tool execution until the model answers
// in plain text or the round budget is spent. On exhaustion it makes one last
// call on the tools-free model so the turn always ends with text.
func (a *Agent) runLoop(ctx context.Context, transcript []*schema.Message, auth *crm.AuthContext, collector *actions.Collector) (*loopResult, error) {
	msgs := transcript
	res := &loopResult{}

	for round := 1; round <= a.cfg.MaxRounds; round++ {
		out, err := a.toolModel.Generate(ctx, msgs)
		if err != nil {
			return nil, errx.Upstream(fmt.Errorf("chat model call failed (round %d): %w", round, err))
		}
		res.Rounds = round
		res.CostUSD += a.usageCost(out)

		if len(out.ToolCalls) == 0 {
			res.Final = out
			res.Turn = append(res.Turn, out)
			return res, nil
		}

		res.UsedTools = true
		ensureToolCallIDs(out.ToolCalls, round)
		msgs = append(msgs, out)
		res.Turn = append(res.Turn, out)

		for _, call := range out.ToolCalls {
			name := call.Function.Name
			result := a.registry.Execute(ctx, name, json.RawMessage(call.Function.Arguments), auth)
			if action, ok := model.ActionFromResult(result); ok {
				collector.Add(action)
			}
			tm := schema.ToolMessage(encodeResult(result), call.ID, schema.WithToolName(name))
			msgs = append(msgs, tm)
			res.Turn = append(res.Turn, tm)
		}
	}

	// Budget spent with tool calls still pending: tell the model to wrap up
	// and answer on the tools-free model so it cannot request more work. The
	// notice is transient and is not persisted to the session.
	logx.Warn().Int("max_rounds", a.cfg.MaxRounds).Msg("tool round budget exhausted, forcing wrap-up")
	msgs = append(msgs, schema.SystemMessage(wrapUpNotice))

	out, err := a.base.Generate(ctx, msgs)
	if err != nil {
		return nil, errx.Upstream(fmt.Errorf("wrap-up model call failed: %w", err))
	}
	res.Rounds++
	res.CostUSD += a.usageCost(out)

	if len(out.ToolCalls) > 0 {
		// Some models emit tool calls anyway; keep only the text.
		out = schema.AssistantMessage(out.Content, nil)
	}
	res.Final = out
	res.Turn = append(res.Turn, out)
	return res, nil
}

// ensureToolCallIDs fills in IDs for providers that omit them so tool result
// messages can be matched back to their calls.
func ensureToolCallIDs(calls []schema.ToolCall, round int) {
	for i := range calls {
		if calls[i].ID == "" {
			calls[i].ID = fmt.Sprintf("call_%d_%d", round, i)
		}
	}
}

// encodeResult serializes a tool result for the model. Results are plain
// maps built by the registry, so failures here are exceptional.
func encodeResult(result map[string]any) string {
	b, err := json.Marshal(result)
	if err != nil {
		logx.Error().Err(err).Msg("tool result not serializable")
		return `{"error":"tool result could not be serialized"}`
	}
	return string(b)
}

func (a *Agent) usageCost(out *schema.Message) float64 {
	if out == nil || out.ResponseMeta == nil || out.ResponseMeta.Usage == nil {
		return 0
	}
	usage := out.ResponseMeta.Usage
	_, _, cost := model.ComputeCost(usage, model.ResolvePricing(a.modelName))
	logx.Debug().
		Int("prompt_tokens", usage.PromptTokens).
		Int("completion_tokens", usage.CompletionTokens).
		Float64("cost_usd", cost).
		Msg("model usage")
	return cost
}
