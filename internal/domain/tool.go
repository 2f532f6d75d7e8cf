package domain

import "encoding/json"

// ToolName is the closed set of tools the model may invoke.
type ToolName string

const (
	ToolSearchClients   ToolName = "search_clients"
	ToolGetClient       ToolName = "get_client"
	ToolSearchJobs      ToolName = "search_jobs"
	ToolGetJob          ToolName = "get_job"
	ToolCreateJob       ToolName = "create_job"
	ToolUpdateJob       ToolName = "update_job"
	ToolSearchQuotes    ToolName = "search_quotes"
	ToolGetQuote        ToolName = "get_quote"
	ToolCreateQuote     ToolName = "create_quote"
	ToolSearchInvoices  ToolName = "search_invoices"
	ToolGetInvoice      ToolName = "get_invoice"
	ToolCreateInvoice   ToolName = "create_invoice"
	ToolListTeamMembers ToolName = "list_team_members"
	ToolGetSchedule     ToolName = "get_schedule"
	ToolNavigate        ToolName = "navigate"
)

// Capability tags what a tool is allowed to do.
type Capability string

const (
	CapabilitySearch   Capability = "search"
	CapabilityMutate   Capability = "mutate"
	CapabilityNavigate Capability = "navigate"
)

// ToolDefinition describes a tool to the model. InputSchema is a JSON Schema
// object.
type ToolDefinition struct {
	Name        ToolName
	Description string
	InputSchema map[string]any
	Capability  Capability
}

// Required returns the schema's required property names.
func (d ToolDefinition) Required() []string {
	req, _ := d.InputSchema["required"].([]string)
	return req
}

// Properties returns the schema's property map.
func (d ToolDefinition) Properties() map[string]any {
	props, _ := d.InputSchema["properties"].(map[string]any)
	return props
}

// ToolInvocation is a tool request emitted by the model.
type ToolInvocation struct {
	ID    string
	Name  string
	Input json.RawMessage
}

// ToolResult is the normalized outcome of one invocation. Result holds the
// executor's typed value, or an ErrorResult when IsError is set.
type ToolResult struct {
	InvocationID string
	ToolName     string
	Result       any
	IsError      bool
}

// ErrorResult is the payload fed back to the model when a tool fails.
type ErrorResult struct {
	Error string `json:"error"`
}

// NewErrorResult builds a failed ToolResult.
func NewErrorResult(invocationID, toolName, msg string) ToolResult {
	return ToolResult{
		InvocationID: invocationID,
		ToolName:     toolName,
		Result:       ErrorResult{Error: msg},
		IsError:      true,
	}
}

// Navigation is the echo produced by the navigate tool.
type Navigation struct {
	View       string `json:"view"`
	EntityID   string `json:"entityId,omitempty"`
	EntityType string `json:"entityType,omitempty"`
}
