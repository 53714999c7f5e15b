package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recares/dme-matcher/internal/domain"
)

func rows(ls []domain.Listing) []int {
	out := make([]int, 0, len(ls))
	for _, l := range ls {
		out = append(out, l.Row)
	}
	return out
}

func TestFindMatches_Symmetric(t *testing.T) {
	rules := DefaultRules()
	a := listing(1, domain.ActionOffer, "Wheelchair", "a@x.com", days(10))
	b := listing(2, domain.ActionNeed, "wheelchairs", "b@x.com", days(0))
	all := []domain.Listing{a, b}

	assert.Equal(t, []int{2}, rows(rules.MatchesFor(all, a, testNow)))
	assert.Equal(t, []int{1}, rows(rules.MatchesFor(all, b, testNow)))
}

func TestFindMatches_FreshnessBoundary(t *testing.T) {
	rules := DefaultRules()
	all := []domain.Listing{
		listing(1, domain.ActionOffer, "walker", "a@x.com", days(90)),
		listing(2, domain.ActionOffer, "walker", "b@x.com", days(91)),
		listing(3, domain.ActionOffer, "walker", "c@x.com", days(89)),
	}

	got := rules.FindMatches(all, "Walkers", domain.ActionOffer, 0, testNow)
	assert.Equal(t, []int{1, 3}, rows(got))
}

func TestFindMatches_Filters(t *testing.T) {
	rules := DefaultRules()
	optedOut := listing(4, domain.ActionOffer, "walker", "d@x.com", days(1))
	optedOut.Tracking.OptOut = domain.StatusOptedOut
	undated := listing(6, domain.ActionOffer, "walker", "f@x.com", 0)
	undated.SubmittedAt = domain.ParseTimestamp("not a date")

	all := []domain.Listing{
		listing(1, domain.ActionOffer, "walker", "a@x.com", days(1)),
		listing(2, domain.ActionNeed, "walker", "b@x.com", days(1)),
		listing(3, domain.ActionOffer, "cane", "c@x.com", days(1)),
		optedOut,
		listing(5, domain.ActionOffer, "walker", "e@x.com", days(1)),
		undated,
	}

	got := rules.FindMatches(all, "walker", domain.ActionOffer, 5, testNow)
	assert.Equal(t, []int{1}, rows(got), "wrong action, wrong item, opted out, excluded row and undated rows are skipped")
}

func TestFindMatches_EmptyItemNeverMatches(t *testing.T) {
	rules := DefaultRules()
	all := []domain.Listing{
		listing(1, domain.ActionOffer, "", "a@x.com", days(1)),
		listing(2, domain.ActionOffer, " ", "b@x.com", days(1)),
	}

	assert.Empty(t, rules.FindMatches(all, "", domain.ActionOffer, 0, testNow))
	assert.Empty(t, rules.FindMatches(all, "  ", domain.ActionOffer, 0, testNow))
	assert.Empty(t, rules.FindMatches(all, "walker", domain.ActionUnknown, 0, testNow))
}

func TestFindMatches_OptedOutNeverReappears(t *testing.T) {
	rules := DefaultRules()
	l := listing(1, domain.ActionOffer, "Hospital Bed", "a@x.com", days(1))
	l.Tracking.OptOut = domain.StatusOptedOut
	l.OptIn = DefaultOptInValue

	for _, item := range []string{"hospital bed", "Hospital Beds", " HOSPITAL BED "} {
		assert.Empty(t, rules.FindMatches([]domain.Listing{l}, item, domain.ActionOffer, 0, testNow))
	}
}

func TestSubscribers_RequiresOptIn(t *testing.T) {
	rules := DefaultRules()
	quiet := listing(2, domain.ActionOffer, "walker", "b@x.com", days(3))
	quiet.OptIn = "No thanks"
	fresh := listing(3, domain.ActionNeed, "walkers", "c@x.com", 0)

	all := []domain.Listing{
		listing(1, domain.ActionOffer, "Walker", "a@x.com", days(5)),
		quiet,
		fresh,
	}

	subs := rules.Subscribers(all, fresh, testNow)
	require.Len(t, subs, 1)
	assert.Equal(t, 1, subs[0].Row)
}

func TestOptedIn(t *testing.T) {
	rules := DefaultRules()
	l := domain.Listing{OptIn: "  yes - I would like to receive notifications"}
	assert.True(t, rules.OptedIn(l))

	l.OptIn = ""
	assert.False(t, rules.OptedIn(l))

	rules.OptInValue = ""
	assert.False(t, rules.OptedIn(l))
}
