package agent

import (
	"fmt"
	"strings"

	"clamp-agent/internal/domain"
)

// ActionCard is a navigation affordance the app renders as a link.
type ActionCard struct {
	Type       string `json:"type"`
	Label      string `json:"label"`
	View       string `json:"view"`
	EntityID   string `json:"entityId,omitempty"`
	EntityType string `json:"entityType,omitempty"`
}

// SearchHit is one record in the flattened search-mode result list.
type SearchHit struct {
	Type     string `json:"type"`
	ID       string `json:"id"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
	View     string `json:"view"`
}

// Response is what a run becomes for the caller. SearchResults is nil in chat
// mode and non-nil in search mode.
type Response struct {
	Reply         string
	ActionCards   []ActionCard
	SearchResults []SearchHit
}

// Assemble turns the final model blocks and every tool result of a run into
// the caller-facing response.
func Assemble(finalBlocks []domain.ContentBlock, results []domain.ToolResult, mode Mode) Response {
	resp := Response{
		Reply:       ReplyText(finalBlocks),
		ActionCards: actionCards(results),
	}
	if mode == ModeSearch {
		resp.SearchResults = searchHits(results)
	}
	return resp
}

func actionCards(results []domain.ToolResult) []ActionCard {
	cards := []ActionCard{}
	for _, r := range results {
		if r.IsError || r.ToolName != string(domain.ToolNavigate) {
			continue
		}
		nav, ok := r.Result.(domain.Navigation)
		if !ok {
			continue
		}
		label := "Go to " + nav.View
		if nav.EntityType != "" {
			label = "View " + nav.EntityType
		}
		cards = append(cards, ActionCard{
			Type:       "navigation",
			Label:      label,
			View:       nav.View,
			EntityID:   nav.EntityID,
			EntityType: nav.EntityType,
		})
	}
	return cards
}

// searchHits flattens list results. The producing value decides the hit type
// and target view; single records and errors are skipped.
func searchHits(results []domain.ToolResult) []SearchHit {
	hits := []SearchHit{}
	for _, r := range results {
		if r.IsError {
			continue
		}
		switch v := r.Result.(type) {
		case []domain.Client:
			for _, c := range v {
				hits = append(hits, SearchHit{
					Type: "client", ID: c.ID, Title: c.Name,
					Subtitle: firstNonEmpty(c.Email, c.Phone, c.Address),
					View:     "clients",
				})
			}
		case []domain.Job:
			for _, j := range v {
				hits = append(hits, SearchHit{
					Type: "job", ID: j.ID, Title: joinNonEmpty(" ", j.Number, j.Title),
					Subtitle: joinNonEmpty(" · ", j.ClientName, j.Status, startLabel(j)),
					View:     "schedule",
				})
			}
		case []domain.Quote:
			for _, q := range v {
				hits = append(hits, SearchHit{
					Type: "quote", ID: q.ID, Title: joinNonEmpty(" ", q.Number, q.Title),
					Subtitle: joinNonEmpty(" · ", q.ClientName, q.Status, money(q.Total)),
					View:     "quotes",
				})
			}
		case []domain.Invoice:
			for _, inv := range v {
				hits = append(hits, SearchHit{
					Type: "invoice", ID: inv.ID, Title: inv.Number,
					Subtitle: joinNonEmpty(" · ", inv.ClientName, inv.Status, money(inv.Total)),
					View:     "invoices",
				})
			}
		}
	}
	return hits
}

func startLabel(j domain.Job) string {
	if j.Start == nil {
		return ""
	}
	return j.Start.Format("2 Jan 15:04")
}

func money(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func joinNonEmpty(sep string, vals ...string) string {
	parts := make([]string, 0, len(vals))
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, sep)
}
