// Package agent drives one conversational turn: rate-limited and
// authenticated upstream by the HTTP layer, it loads history, consults the
// response cache, runs the bounded tool-calling loop, and persists the turn.
package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/voxcrm/server/internal/agent/actions"
	"github.com/voxcrm/server/internal/agent/cache"
	"github.com/voxcrm/server/internal/agent/model"
	"github.com/voxcrm/server/internal/agent/prompts"
	"github.com/voxcrm/server/internal/agent/session"
	"github.com/voxcrm/server/internal/agent/tools"
	"github.com/voxcrm/server/internal/crm"
	errx "github.com/voxcrm/server/internal/core/error"
	logx "github.com/voxcrm/server/pkg/logger"
)

// Config assembles an Agent.
type Config struct {
	Agent     model.AgentConfig
	ModelName string
	// ChatModel is the tools-free model; the tool-bound variant is derived
	// from it at construction.
	ChatModel einomodel.ToolCallingChatModel
	Registry  *tools.Registry
	Sessions  session.Store
	Cache     cache.ResponseCache
	Prompts   *prompts.Selector
	// DefaultLanguage is used when the request carries no language flag.
	DefaultLanguage string
}

// Agent is the orchestration core. One instance serves all requests; all
// per-turn state lives on the stack of Chat.
type Agent struct {
	cfg       model.AgentConfig
	modelName string
	base      einomodel.ToolCallingChatModel
	toolModel einomodel.ToolCallingChatModel
	registry  *tools.Registry
	sessions  session.Store
	cache     cache.ResponseCache
	prompts   *prompts.Selector
	defLang   string
}

// New binds the registry's tool schemas to the chat model and returns the
// ready agent.
func New(cfg Config) (*Agent, error) {
	if cfg.ChatModel == nil {
		return nil, fmt.Errorf("chat model is nil")
	}
	if cfg.Registry == nil || cfg.Sessions == nil || cfg.Cache == nil || cfg.Prompts == nil {
		return nil, fmt.Errorf("agent dependencies are not fully initialized")
	}

	toolModel, err := cfg.ChatModel.WithTools(cfg.Registry.Infos())
	if err != nil {
		return nil, fmt.Errorf("bind tools to chat model: %w", err)
	}

	if cfg.Agent.MaxRounds <= 0 {
		cfg.Agent.MaxRounds = defaultMaxRounds
	}

	return &Agent{
		cfg:       cfg.Agent,
		modelName: cfg.ModelName,
		base:      cfg.ChatModel,
		toolModel: toolModel,
		registry:  cfg.Registry,
		sessions:  cfg.Sessions,
		cache:     cfg.Cache,
		prompts:   cfg.Prompts,
		defLang:   cfg.DefaultLanguage,
	}, nil
}

// Chat processes one user turn end to end.
func (a *Agent) Chat(ctx context.Context, auth *crm.AuthContext, req model.ChatRequest) (*model.ChatResult, error) {
	start := time.Now()

	if err := a.validate(req); err != nil {
		return nil, err
	}

	if a.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.RequestTimeout)
		defer cancel()
	}

	userID := auth.User.UserID
	lang := prompts.ParseLanguage(req.Language, a.defLang)

	hist, err := a.sessions.Load(ctx, req.SessionID, userID)
	if err != nil {
		if errors.Is(err, session.ErrNotOwner) {
			return nil, errx.Unauthorized(err)
		}
		return nil, errx.Upstream(err)
	}

	userMsg := schema.UserMessage(req.Question)

	// Cached tool-free answers short-circuit the model entirely. The turn is
	// still recorded so the transcript stays coherent.
	if cached, cerr := a.cache.Get(ctx, userID, req.Question, req.PagePath); cerr != nil {
		logx.Warn().Err(cerr).Msg("response cache read failed, continuing without it")
	} else if cached != nil {
		a.persistTurn(ctx, req.SessionID, userID, userMsg, schema.AssistantMessage(cached.Response, nil))
		return &model.ChatResult{
			Response: cached.Response,
			Model:    cached.Model,
			Cached:   true,
			Duration: time.Since(start),
		}, nil
	}

	sel, err := a.prompts.Select(ctx, lang)
	if err != nil {
		return nil, errx.Upstream(err)
	}

	transcript := make([]*schema.Message, 0, 2+len(sel.FewShot)+len(hist.Messages))
	transcript = append(transcript, schema.SystemMessage(sel.SystemPrompt))
	transcript = append(transcript, sel.FewShot...)
	transcript = append(transcript, hist.Messages...)
	transcript = append(transcript, userMsg)

	collector := actions.NewCollector()
	run, err := a.runLoop(ctx, transcript, auth, collector)
	if err != nil {
		return nil, err
	}

	response := scrubActionMarkers(run.Final.Content)
	if response == "" {
		// The user always hears a complete sentence, even when the model
		// returned nothing usable.
		response = fallbackResponse(lang)
	}

	turn := append([]*schema.Message{userMsg}, run.Turn...)
	a.persistTurn(ctx, req.SessionID, userID, turn...)

	if !run.UsedTools {
		if cerr := a.cache.Put(ctx, userID, req.Question, req.PagePath, cache.CachedResponse{
			Response:  response,
			Model:     a.modelName,
			CreatedAt: time.Now(),
		}); cerr != nil {
			logx.Warn().Err(cerr).Msg("response cache write failed")
		}
	}

	logx.Info().
		Str("session_id", req.SessionID).
		Str("user_id", userID).
		Int("rounds", run.Rounds).
		Bool("used_tools", run.UsedTools).
		Int("client_actions", collector.Len()).
		Dur("duration", time.Since(start)).
		Float64("cost_usd", run.CostUSD).
		Msg("chat turn completed")

	return &model.ChatResult{
		Response:      response,
		Model:         a.modelName,
		UsedTools:     run.UsedTools,
		ClientActions: collector.Ordered(),
		Duration:      time.Since(start),
		CostUSD:       run.CostUSD,
	}, nil
}

// persistTurn appends the turn's messages in order; persistence failures are
// logged, not surfaced, since the user already has an answer.
func (a *Agent) persistTurn(ctx context.Context, sessionID, userID string, msgs ...*schema.Message) {
	if err := a.sessions.Append(ctx, sessionID, userID, msgs...); err != nil {
		logx.Error().Err(err).Str("session_id", sessionID).Msg("failed to persist turn")
	}
}
