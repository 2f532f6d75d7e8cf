package domain

import "encoding/json"

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// BlockType discriminates ContentBlock variants.
type BlockType string

const (
	BlockText       BlockType = "text"
	BlockToolUse    BlockType = "tool_use"
	BlockToolResult BlockType = "tool_result"
)

// ChatMessage is the wire shape callers send: one plain-text turn.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ContentBlock is one element of a structured turn. Only the fields relevant
// to Type are populated.
type ContentBlock struct {
	Type BlockType

	// text
	Text string

	// tool_use
	ID    string
	Name  string
	Input json.RawMessage

	// tool_result
	ToolUseID string
	Content   string
	IsError   bool
}

// Turn is a single entry of the running conversation sent to the model.
type Turn struct {
	Role   Role
	Blocks []ContentBlock
}

// TextTurn builds a turn holding a single text block.
func TextTurn(role Role, text string) Turn {
	return Turn{Role: role, Blocks: []ContentBlock{{Type: BlockText, Text: text}}}
}

// StopReason is the completion API's reason for ending a response.
type StopReason string

const (
	StopEndTurn StopReason = "end_turn"
	StopToolUse StopReason = "tool_use"
)

// CompletionRequest is everything the model sees for one call.
type CompletionRequest struct {
	System   string
	Tools    []ToolDefinition
	Messages []Turn
}

// CompletionResponse is the subset of a model reply the orchestrator consumes.
type CompletionResponse struct {
	StopReason StopReason
	Blocks     []ContentBlock
}
