// Package queue defines message payloads exchanged over the message broker.
package queue

// SessionCompletedEvent is published when a cooking session reaches the
// COMPLETED state. It contains enough information for downstream
// consumers to log, notify, or trigger analytics without querying the
// primary database.
type SessionCompletedEvent struct {
	SessionID   uint64 `json:"session_id"`
	UserID      uint64 `json:"user_id"`
	Username    string `json:"username"`
	RecipeID    uint64 `json:"recipe_id"`
	RecipeTitle string `json:"recipe_title"`
	StepsTotal  int32  `json:"steps_total"`
	StartedAt   string `json:"started_at"`
	CompletedAt string `json:"completed_at"`
}
