package core

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

const (
	InvocationRunning   = "running"
	InvocationSucceeded = "succeeded"
	InvocationFailed    = "failed"
)

// InvocationRecord describes one calculator run: which input was executed,
// by which backend, and how it ended.
type InvocationRecord struct {
	InvocationID string
	InputFile    string
	WorkDir      string
	Backend      string
	ExtraArgs    []string
	Status       string
	ExitCode     int
	LogPath      string
	ResultFile   string
	StartedAt    time.Time
	FinishedAt   time.Time
	DurationMs   int64
}

type Event struct {
	InvocationID string      `json:"invocation_id"`
	Level        string      `json:"level"`
	EventType    string      `json:"event_type"`
	Payload      interface{} `json:"payload,omitempty"`
}

type EventLogger interface {
	Emit(event Event) error
}

func NewInvocationID() (string, error) {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generate invocation id: %w", err)
	}
	return fmt.Sprintf("calc-%s", hex.EncodeToString(bytes)), nil
}
