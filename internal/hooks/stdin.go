// Package hooks handles agent lifecycle hook payloads. Agents such as Claude
// Code invoke "devops hook <event>" with a JSON document on stdin.
package hooks

import (
	"encoding/json"
	"fmt"
	"io"
)

// SessionStartInput is the stdin JSON for SessionStart hooks.
type SessionStartInput struct {
	SessionID string `json:"session_id"`
	Source    string `json:"source"`
	CWD       string `json:"cwd"`
}

// SessionEndInput is the stdin JSON for SessionEnd hooks.
type SessionEndInput struct {
	SessionID      string `json:"session_id"`
	TranscriptPath string `json:"transcript_path"`
	CWD            string `json:"cwd"`
	Reason         string `json:"reason"`
}

// ParseStdin reads JSON from the given reader into a new instance of T.
func ParseStdin[T any](r io.Reader) (*T, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading stdin: %w", err)
	}
	if len(data) == 0 {
		// Return zero-value struct when no input is provided.
		var zero T
		return &zero, nil
	}
	var result T
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("parsing stdin JSON: %w", err)
	}
	return &result, nil
}
