package filter

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/helpdesk-console/internal/clock"
	"github.com/spec-kit/helpdesk-console/internal/domain"
)

var base = time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)

func sample() []domain.Ticket {
	return []domain.Ticket{
		{ID: "1", TicketNumber: 101, Title: "VPN down", Status: domain.StatusOpen, Priority: domain.PriorityHigh, CompanyID: "10", CompanyName: "Acme", CreatedAt: base},
		{ID: "2", TicketNumber: 102, Title: "Printer", Status: domain.StatusPending, Priority: domain.PriorityLow, CompanyID: "11", ContactEmail: "ops@globex.io", CreatedAt: base.Add(2 * time.Hour)},
		{ID: "3", TicketNumber: 103, Title: "Mailbox full", Status: domain.StatusResolved, Priority: domain.PriorityMedium, CompanyID: "10", AssignedTo: "u1", AssignedUserName: "Deniz", CreatedAt: base.Add(time.Hour)},
	}
}

func ids(tickets []domain.Ticket) []domain.ID {
	out := make([]domain.ID, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, t.ID)
	}
	return out
}

func TestApplyWithoutCriteriaSortsNewestFirst(t *testing.T) {
	in := sample()
	got := Apply(in, domain.FilterCriteria{}, "")

	assert.Equal(t, []domain.ID{"2", "3", "1"}, ids(got))
	for _, ticket := range got {
		for _, orig := range in {
			if orig.ID == ticket.ID {
				if diff := cmp.Diff(orig, ticket); diff != "" {
					t.Errorf("ticket %s changed (-want +got):\n%s", ticket.ID, diff)
				}
			}
		}
	}
	assert.Equal(t, domain.ID("1"), in[0].ID, "input order must be untouched")
}

func TestApplyStableForEqualTimestamps(t *testing.T) {
	in := []domain.Ticket{{ID: "a", CreatedAt: base}, {ID: "b", CreatedAt: base}, {ID: "c", CreatedAt: base}}
	assert.Equal(t, []domain.ID{"a", "b", "c"}, ids(Apply(in, domain.FilterCriteria{}, "")))
}

func TestStatusAliasMatchesBothWays(t *testing.T) {
	waiting, _ := domain.ParseStatus("waiting")
	tickets := []domain.Ticket{{ID: "w", Status: waiting}}

	got := Apply(tickets, domain.FilterCriteria{Status: []domain.TicketStatus{"pending"}}, "")
	assert.Equal(t, []domain.ID{"w"}, ids(got))

	got = Apply([]domain.Ticket{{ID: "p", Status: domain.StatusPending}}, domain.FilterCriteria{Status: []domain.TicketStatus{"waiting"}}, "")
	assert.Equal(t, []domain.ID{"p"}, ids(got))
}

func TestCriteriaAreAnded(t *testing.T) {
	got := Apply(sample(), domain.FilterCriteria{
		CompanyID: []domain.ID{"10"},
		Priority:  []domain.TicketPriority{domain.PriorityMedium, domain.PriorityHigh},
		Status:    []domain.TicketStatus{domain.StatusOpen},
	}, "")
	assert.Equal(t, []domain.ID{"1"}, ids(got))
}

func TestFalsyCriteriaBehaveLikeNoFilter(t *testing.T) {
	criteria := domain.FilterCriteria{
		Status:     []domain.TicketStatus{""},
		CompanyID:  []domain.ID{"", "0"},
		AssignedTo: []domain.ID{},
	}
	assert.Equal(t, ids(Apply(sample(), domain.FilterCriteria{}, "")), ids(Apply(sample(), criteria, "")))
}

func TestSearchAcrossFields(t *testing.T) {
	tests := []struct {
		term string
		want []domain.ID
	}{
		{"vpn", []domain.ID{"1"}},
		{"GLOBEX", []domain.ID{"2"}},
		{"103", []domain.ID{"3"}},
		{"deniz", []domain.ID{"3"}},
		{"acme", []domain.ID{"1"}},
		{"nothing-matches", []domain.ID{}},
	}
	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Apply(sample(), domain.FilterCriteria{}, tt.term)))
		})
	}
}

func TestCriteriaSearchTermUsedWhenArgumentBlank(t *testing.T) {
	got := Apply(sample(), domain.FilterCriteria{SearchTerm: "printer"}, " ")
	assert.Equal(t, []domain.ID{"2"}, ids(got))
}

func TestSLABreachUsesClock(t *testing.T) {
	fake := clock.Fake(base)
	engine := New(fake)
	due := base.Add(time.Hour)
	tickets := []domain.Ticket{{ID: "1", Status: domain.StatusOpen, DueDate: &due}}
	breached := true

	assert.Empty(t, engine.Apply(tickets, domain.FilterCriteria{SLABreach: &breached}, ""))

	fake.Advance(2 * time.Hour)
	assert.Equal(t, []domain.ID{"1"}, ids(engine.Apply(tickets, domain.FilterCriteria{SLABreach: &breached}, "")))
}
