// Package tools declares the closed set of CRM tools the model may call and
// executes them. Handlers come in two calling conventions: read tools need
// only the caller's auth context, write tools additionally receive the actor
// identity for attribution. UI tools follow the read convention and return
// only a client_action directive — telling the UI what to do is kept apart
// from mutating the database.
package tools

import (
	"context"
	"encoding/json"

	"github.com/cloudwego/eino/schema"

	"github.com/voxcrm/server/internal/crm"
	logx "github.com/voxcrm/server/pkg/logger"
)

// Result is the JSON-shaped outcome of one tool call. Failures are carried
// in-band under the "error" key so the orchestration loop stays uniform and
// the model can react to them in natural language.
type Result map[string]any

func errResult(msg string) Result {
	return Result{"error": msg}
}

// ReadTool performs one coherent read/aggregate against the CRM data API, or
// emits a UI directive. It needs only the caller's auth context.
type ReadTool interface {
	Info() *schema.ToolInfo
	Call(ctx context.Context, auth *crm.AuthContext, args json.RawMessage) (Result, error)
}

// WriteTool performs one coherent write against the CRM data API and records
// the acting user for attribution.
type WriteTool interface {
	Info() *schema.ToolInfo
	Call(ctx context.Context, actor crm.Identity, auth *crm.AuthContext, args json.RawMessage) (Result, error)
}

// entry is the tagged union holding exactly one of the two conventions.
type entry struct {
	read  ReadTool
	write WriteTool
}

// Registry is the static name→handler table built once at startup.
type Registry struct {
	names   []string
	entries map[string]entry
}

// NewRegistry builds the full CRM tool set against the given data API.
func NewRegistry(api crm.DataAPI) *Registry {
	r := &Registry{entries: make(map[string]entry)}

	// data reads
	r.registerRead(&searchContactsTool{api: api})
	r.registerRead(&getContactTool{api: api})
	r.registerRead(&listDealsTool{api: api})
	r.registerRead(&pipelineSummaryTool{api: api})

	// data writes
	r.registerWrite(&createContactTool{api: api})
	r.registerWrite(&logActivityTool{api: api})
	r.registerWrite(&updateDealStageTool{api: api})

	// UI directives
	r.registerRead(&navigateTool{})
	r.registerRead(&filterListTool{})
	r.registerRead(&searchViewTool{})
	r.registerRead(&openFormTool{})

	return r
}

func (r *Registry) registerRead(t ReadTool) {
	name := t.Info().Name
	r.entries[name] = entry{read: t}
	r.names = append(r.names, name)
}

func (r *Registry) registerWrite(t WriteTool) {
	name := t.Info().Name
	r.entries[name] = entry{write: t}
	r.names = append(r.names, name)
}

// Infos returns the declared schemas in registration order, for binding to
// the chat model.
func (r *Registry) Infos() []*schema.ToolInfo {
	infos := make([]*schema.ToolInfo, 0, len(r.names))
	for _, name := range r.names {
		e := r.entries[name]
		if e.read != nil {
			infos = append(infos, e.read.Info())
		} else {
			infos = append(infos, e.write.Info())
		}
	}
	return infos
}

// Execute resolves name and runs the handler. Unknown names and handler
// failures become in-band error results, never Go errors: a broken tool call
// must feed back into the transcript, not abort the turn.
func (r *Registry) Execute(ctx context.Context, name string, args json.RawMessage, auth *crm.AuthContext) Result {
	e, ok := r.entries[name]
	if !ok {
		logx.Warn().Str("tool", name).Msg("model requested unknown tool")
		return errResult("unknown tool: " + name)
	}

	var (
		res Result
		err error
	)
	if e.write != nil {
		res, err = e.write.Call(ctx, auth.User, auth, args)
	} else {
		res, err = e.read.Call(ctx, auth, args)
	}
	if err != nil {
		logx.Warn().Err(err).Str("tool", name).Msg("tool execution failed")
		return errResult(err.Error())
	}
	if res == nil {
		res = Result{"ok": true}
	}
	return res
}
