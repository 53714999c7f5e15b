package matching

import (
	"github.com/recares/dme-matcher/internal/domain"
)

// ResyncOptOuts reconciles every opt-out request against the main listings.
// A listing is retired when a request names its item and either comes from
// its own submitter or names it as the partner. The success field takes the
// request's own answer for the submitter and is forced to "Yes" for the
// partner, whose loop was closed on their behalf.
func ResyncOptOuts(listings []domain.Listing, requests []domain.OptOutRequest) []Mutation {
	type key struct{ email, partner, item string }
	keys := make([]key, len(requests))
	for i, r := range requests {
		keys[i] = key{Normalize(r.Email), Normalize(r.PartnerEmail), Normalize(r.Item)}
	}

	var out []Mutation
	for _, l := range listings {
		email, item := Normalize(l.Email), Normalize(l.Item())
		if email == "" || item == "" {
			continue
		}

		after := l.Tracking
		for i, k := range keys {
			if k.item != item {
				continue
			}
			switch {
			case k.partner != "" && k.partner == email:
				after.OptOut = domain.StatusOptedOut
				after.SuccessfulMatch = domain.SuccessYes
			case k.email == email:
				after.OptOut = domain.StatusOptedOut
				after.SuccessfulMatch = requests[i].WasSuccessful
			}
		}

		m := Mutation{Row: l.Row, Before: l.Tracking, After: after}
		if m.Changed() {
			out = append(out, m)
		}
	}
	return out
}

// OptOutOutcome is the result of reconciling a single opt-out event.
type OptOutOutcome struct {
	Mutations []Mutation
	// FoundOwn is true when at least one listing belonged to the requester.
	FoundOwn bool
	// PartnerNotice is the partner listing whose owner must be told their
	// listing was closed, or nil. It is only set for a listing that was still
	// active, so replaying the same event never notifies twice.
	PartnerNotice *domain.Listing
}

// ApplyOptOutEvent reconciles one opt-out request. The requester's matching
// listings are retired with the request's success answer copied verbatim.
// The partner's matching listings that are still active are retired with
// success forced to "Yes"; the partner outcome wins when the requester names
// themselves, as it does in ResyncOptOuts.
func ApplyOptOutEvent(listings []domain.Listing, req domain.OptOutRequest) OptOutOutcome {
	var out OptOutOutcome
	item := Normalize(req.Item)
	if item == "" {
		return out
	}
	partner := Normalize(req.PartnerEmail)

	for _, l := range listings {
		if Normalize(l.Item()) != item {
			continue
		}
		email := Normalize(l.Email)
		if email == "" {
			continue
		}

		isPartner := partner != "" && email == partner
		after := l.Tracking
		if email == Normalize(req.Email) {
			out.FoundOwn = true
			after.OptOut = domain.StatusOptedOut
			after.SuccessfulMatch = req.WasSuccessful
			if isPartner {
				// a listing named as its own partner keeps the partner outcome
				after.SuccessfulMatch = domain.SuccessYes
			}
		}
		if isPartner && !l.Tracking.OptedOut() {
			after.OptOut = domain.StatusOptedOut
			after.SuccessfulMatch = domain.SuccessYes
			if out.PartnerNotice == nil {
				notice := l
				out.PartnerNotice = &notice
			}
		}

		m := Mutation{Row: l.Row, Before: l.Tracking, After: after}
		if m.Changed() {
			out.Mutations = append(out.Mutations, m)
		}
	}
	return out
}
