package model

import "time"

// ChatRequest is one user turn as received by the HTTP layer.
type ChatRequest struct {
	SessionID string `json:"sessionId"`
	Question  string `json:"question"`
	PagePath  string `json:"pagePath,omitempty"`
	Language  string `json:"language,omitempty"`
}

// ChatResult is the outcome of one orchestration run.
type ChatResult struct {
	Response      string
	Model         string
	Cached        bool
	UsedTools     bool
	ClientActions []ClientAction
	Duration      time.Duration
	CostUSD       float64
}
