package matching

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/recares/dme-matcher/internal/domain"
)

func TestDueForWarning_SingleDay(t *testing.T) {
	rules := DefaultRules()
	all := []domain.Listing{
		listing(1, domain.ActionOffer, "cane", "a@x.com", days(82)),
		listing(2, domain.ActionOffer, "cane", "b@x.com", days(83)),
		listing(3, domain.ActionOffer, "cane", "c@x.com", days(83)+23*time.Hour),
		listing(4, domain.ActionOffer, "cane", "d@x.com", days(84)),
	}

	assert.Equal(t, []int{2, 3}, rows(rules.DueForWarning(all, testNow)))
}

func TestDueForWarning_SkipsOptedOutAndQuiet(t *testing.T) {
	rules := DefaultRules()
	out := listing(1, domain.ActionOffer, "cane", "a@x.com", days(83))
	out.Tracking.OptOut = domain.StatusOptedOut
	quiet := listing(2, domain.ActionOffer, "cane", "b@x.com", days(83))
	quiet.OptIn = "No"

	assert.Empty(t, rules.DueForWarning([]domain.Listing{out, quiet}, testNow))
}

func TestAgeInDays(t *testing.T) {
	assert.Equal(t, -1, AgeInDays(domain.Listing{}, testNow))
	assert.Equal(t, -1, AgeInDays(domain.Listing{SubmittedAt: testNow.Add(time.Hour)}, testNow))
	assert.Equal(t, 0, AgeInDays(domain.Listing{SubmittedAt: testNow.Add(-23 * time.Hour)}, testNow))
	assert.Equal(t, 90, AgeInDays(domain.Listing{SubmittedAt: testNow.Add(-days(90))}, testNow))
}
