package responder

import (
	"context"
	"strings"
)

// Rule maps a lowercase substring of the user message to a canned reply.
type Rule struct {
	Keyword string
	Reply   string
}

// Scripted answers from an ordered rule table, falling back to a default
// line. It keeps development and tests independent of any model backend.
type Scripted struct {
	Rules    []Rule
	Fallback string
}

// NewScripted seeds a club-assistant script covering the quick-reply
// topics.
func NewScripted() *Scripted {
	return &Scripted{
		Rules: []Rule{
			{"event", "The next club event is the monthly general meeting, first Saturday at 10am in the main hall."},
			{"pay", "Dues can be paid from the payments page of your member dashboard. A receipt lands in your inbox."},
			{"dues", "Dues can be paid from the payments page of your member dashboard. A receipt lands in your inbox."},
			{"project", "Three projects are currently open for volunteers. The projects page lists each one with its lead."},
			{"member", "New members register through the signup form; an admin approves the application within a few days."},
		},
		Fallback: "Happy to help! Ask me about events, payments, projects, or membership.",
	}
}

func (s *Scripted) Respond(_ context.Context, req Request) (Response, error) {
	lowered := strings.ToLower(req.Message)
	for _, rule := range s.Rules {
		if strings.Contains(lowered, rule.Keyword) {
			return Response{Text: rule.Reply}, nil
		}
	}
	return Response{Text: s.Fallback}, nil
}
