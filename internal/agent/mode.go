package agent

import (
	"errors"
	"strings"
	"time"

	"clamp-agent/internal/domain"
	"clamp-agent/internal/tools"
)

// Mode selects the tool subset and instructions for one request.
type Mode string

const (
	ModeChat   Mode = "chat"
	ModeSearch Mode = "search"
)

var ErrUnknownMode = errors.New("agent: unknown mode")

// ParseMode accepts "chat" or "search", case-insensitively. An empty mode is
// chat.
func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ModeChat:
		return ModeChat, nil
	case ModeSearch:
		return ModeSearch, nil
	default:
		return "", ErrUnknownMode
	}
}

// ActiveTools returns the tools offered to the model in mode. Search mode
// never carries a mutating or navigation tool. Its answers are rendered as
// search hits that the caller opens directly, so action cards have no place
// in that response.
func ActiveTools(mode Mode) []domain.ToolDefinition {
	if mode == ModeSearch {
		return tools.WithCapability(domain.CapabilitySearch)
	}
	return tools.Definitions()
}

// SystemPrompt builds the instructions for mode. now is rendered in loc so
// the model resolves "today" the way the tenant does.
func SystemPrompt(mode Mode, now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	clock := "Current date and time: " + local.Format("Monday, 2 January 2006 15:04") + " (" + loc.String() + "). " +
		"Dates for tools are YYYY-MM-DD in this timezone."

	if mode == ModeSearch {
		return strings.Join([]string{
			"You are Clamp, the search box of a field-service business app.",
			"Use the lookup tools to find the clients, jobs, quotes or invoices the user is after.",
			"",
			"Rules:",
			"1) Reply with a single terse one-line summary of what you found.",
			"2) Never ask follow-up questions.",
			"3) Never invent records. If nothing matches, say so in one line.",
			"",
			clock,
		}, "\n")
	}

	return strings.Join([]string{
		"You are Clamp, a helpful assistant inside a field-service business app.",
		"You can look up and manage clients, jobs, quotes, invoices, the team and the schedule using the tools provided.",
		"",
		"Rules:",
		"1) Look records up with tools before answering questions about them. Never invent ids, numbers or amounts.",
		"2) Before creating or changing anything, make sure you know which client or job the user means. Ask if it is ambiguous.",
		"3) After creating or updating a record, confirm what changed, including its number.",
		"4) Use the navigate tool when the user wants to open a screen or record.",
		"5) Keep replies short and friendly. Plain text, no markdown tables.",
		"",
		clock,
	}, "\n")
}

// toolAllowed reports whether name is in mode's active set.
func toolAllowed(mode Mode, name string) bool {
	for _, d := range ActiveTools(mode) {
		if string(d.Name) == name {
			return true
		}
	}
	return false
}
