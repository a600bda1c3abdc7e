package tabs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-console/internal/domain"
)

func TestDefaultsCriteria(t *testing.T) {
	set, err := NewSet(Defaults())
	require.NoError(t, err)

	mine, ok := set.Get(MyTickets)
	require.True(t, ok)
	assert.Equal(t, []domain.ID{"u1"}, mine.Criteria("u1").AssignedTo)
	assert.True(t, mine.Criteria("").IsEmpty())

	resolved, _ := set.Get(ResolvedTickets)
	assert.Equal(t, []domain.TicketStatus{domain.StatusResolved, domain.StatusClosed}, resolved.Criteria("").Status)
}

func TestAccepts(t *testing.T) {
	set, err := NewSet(Defaults())
	require.NoError(t, err)
	ticket := domain.Ticket{ID: "1", Status: domain.StatusPending, AssignedTo: "u1"}

	var accepted []string
	for _, d := range set.List() {
		if d.Accepts(ticket, "u1") {
			accepted = append(accepted, d.Key)
		}
	}
	assert.Equal(t, []string{AllTickets, MyTickets, PendingTickets}, accepted)

	mine, _ := set.Get(MyTickets)
	assert.False(t, mine.Accepts(ticket, ""))
}

func TestFallbackFor(t *testing.T) {
	set, err := NewSet(Defaults())
	require.NoError(t, err)

	assert.Equal(t, ResolvedTickets, set.FallbackFor(domain.StatusResolved))
	assert.Equal(t, ResolvedTickets, set.FallbackFor(domain.StatusClosed))
	assert.Equal(t, PendingTickets, set.FallbackFor(domain.StatusPending))
	assert.Equal(t, AllTickets, set.FallbackFor(domain.StatusOpen))

	custom, err := NewSet([]Definition{{Key: "Inbox"}})
	require.NoError(t, err)
	assert.Equal(t, "Inbox", custom.FallbackFor(domain.StatusResolved))
}

func TestNewSetValidates(t *testing.T) {
	_, err := NewSet([]Definition{{Key: "A"}, {Key: "A"}})
	assert.Error(t, err)
	_, err = NewSet([]Definition{{Key: "A", Statuses: []string{"archived"}}})
	assert.Error(t, err)
	_, err = NewSet([]Definition{{Key: "Talep #1"}})
	assert.Error(t, err)
	_, err = NewSet(nil)
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tabs.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[[tab]]
key = "Tüm Talepler"
role = "all"

[[tab]]
key = "Acil"
priorities = ["urgent", "high"]

[[tab]]
key = "Bekleyen Talepler"
role = "pending"
statuses = ["waiting"]
`), 0o600))

	set, err := LoadFile(path)
	require.NoError(t, err)

	urgent, ok := set.Get("Acil")
	require.True(t, ok)
	assert.Equal(t, RoleCustom, urgent.Role)
	assert.Len(t, urgent.Criteria("").Priority, 2)

	pending, _ := set.Get(PendingTickets)
	assert.Equal(t, []domain.TicketStatus{domain.StatusPending}, pending.Criteria("").Status)

	defaults, err := LoadFile("")
	require.NoError(t, err)
	assert.Len(t, defaults.List(), 4)
}

func TestDetailTabKey(t *testing.T) {
	assert.Equal(t, "Talep #120", DetailTabKey(domain.Ticket{ID: "9", TicketNumber: 120}))
	assert.Equal(t, "Talep 9", DetailTabKey(domain.Ticket{ID: "9"}))
	assert.True(t, IsDetailKey("Talep #120"))
	assert.False(t, IsDetailKey(AllTickets))
}

func TestRouterCloseReturnsToOpener(t *testing.T) {
	r := NewRouter(AllTickets, PendingTickets)
	require.NoError(t, r.Activate(PendingTickets))

	r.Open("Talep #5")
	assert.Equal(t, PendingTickets, r.Opener("Talep #5"))

	next := r.Close("Talep #5", ResolvedTickets)
	assert.Equal(t, PendingTickets, next)
	assert.False(t, r.IsOpen("Talep #5"))
	assert.False(t, r.IsOpen(ResolvedTickets))
}

func TestRouterCloseFallsBackWhenOpenerGone(t *testing.T) {
	r := NewRouter(AllTickets)
	r.Open("Talep #5")
	r.Close(AllTickets, "")

	next := r.Close("Talep #5", ResolvedTickets)

	assert.Equal(t, ResolvedTickets, next)
	assert.Equal(t, []string{ResolvedTickets}, r.Tabs())
}

func TestRouterCloseWithoutPriorTab(t *testing.T) {
	r := NewRouter()
	r.Open("Talep #5")
	assert.Empty(t, r.Opener("Talep #5"))
	assert.Equal(t, ResolvedTickets, r.Close("Talep #5", ResolvedTickets))
}

func TestRouterCloseInactiveTabKeepsActive(t *testing.T) {
	r := NewRouter(AllTickets)
	r.Open("Talep #5")
	require.NoError(t, r.Activate(AllTickets))

	assert.Equal(t, AllTickets, r.Close("Talep #5", ResolvedTickets))
	assert.Error(t, r.Activate("Talep #5"))
}
