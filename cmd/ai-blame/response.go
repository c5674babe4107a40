package main

import (
	"aiblame/internal/attr"
	"aiblame/internal/blame"
)

// BlameResponse is the blame command's output payload. Prompts maps prompt
// digests to locally stored prompt text and is only populated with
// --show-prompt.
type BlameResponse struct {
	*blame.Result
	Prompts map[string]string `json:"prompts,omitempty"`
}

// ShowResponse is the show command's output payload.
type ShowResponse struct {
	*attr.AttributionRecord
	TotalLines int      `json:"totalLines"`
	Files      []string `json:"files"`
}

// PromptResponse is the prompt command's output payload for one line.
type PromptResponse struct {
	File         string               `json:"file"`
	Line         int                  `json:"line"`
	Commit       string               `json:"commit,omitempty"`
	Kind         attr.ContributorKind `json:"kind"`
	Tool         string               `json:"tool,omitempty"`
	SessionID    string               `json:"sessionId,omitempty"`
	PromptDigest string               `json:"promptDigest,omitempty"`
	Prompt       string               `json:"prompt,omitempty"`
	PromptStored bool                 `json:"promptStored"`
}
