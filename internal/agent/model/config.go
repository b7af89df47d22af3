package model

import "time"

// ================ Config ================

// ChatModelConfig configures the response chat model.
type ChatModelConfig struct {
	Model       string  `envconfig:"CHAT_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"CHAT_MAX_TOKENS" default:"2000"`
	Temperature float32 `envconfig:"CHAT_TEMPERATURE" default:"0.4"`
}

// AgentConfig bounds one orchestration run.
type AgentConfig struct {
	// MaxRounds caps model-call/tool-execution iterations per turn. When the
	// budget is exhausted one final tools-free call produces the answer.
	MaxRounds int `envconfig:"AGENT_MAX_ROUNDS" default:"5"`
	// RequestTimeout is the wall-clock ceiling covering all rounds of a turn.
	RequestTimeout time.Duration `envconfig:"AGENT_REQUEST_TIMEOUT" default:"60s"`
	// MaxQuestionLen rejects oversized questions before any model work.
	MaxQuestionLen int `envconfig:"AGENT_MAX_QUESTION_LEN" default:"4000"`
}

// SessionConfig controls conversation history persistence.
type SessionConfig struct {
	TTL time.Duration `envconfig:"SESSION_TTL" default:"24h"`
}

// CacheConfig controls memoization of tool-free answers.
type CacheConfig struct {
	TTL time.Duration `envconfig:"CACHE_TTL" default:"1h"`
}

// RateLimitConfig holds the fixed-window limits applied per request.
type RateLimitConfig struct {
	// IPLimit applies pre-authentication, keyed by client address.
	IPLimit int `envconfig:"RATE_LIMIT_IP" default:"60"`
	// UserLimit applies post-authentication, keyed by user id.
	UserLimit int           `envconfig:"RATE_LIMIT_USER" default:"30"`
	Window    time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`
}

// PromptConfig parameterizes the per-language system prompts.
type PromptConfig struct {
	BusinessName    string `envconfig:"PROMPT_BUSINESS_NAME" default:"VoxCRM"`
	DefaultLanguage string `envconfig:"PROMPT_DEFAULT_LANGUAGE" default:"en"`
}
