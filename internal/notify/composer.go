package notify

import (
	"fmt"
	"html"
	"strings"

	"github.com/osteele/liquid"

	"github.com/recares/dme-matcher/internal/domain"
)

// Links are the fixed form URLs placed in message bodies.
type Links struct {
	OptOutForm     string
	SubmissionForm string
}

// Composer renders messages from listings. It is safe for concurrent use.
type Composer struct {
	links     Links
	signature string
	templates map[string]*liquid.Template
}

// NewComposer parses every template once. A parse failure is a programming
// error and is returned rather than deferred to send time.
func NewComposer(links Links, signature string) (*Composer, error) {
	engine := liquid.NewEngine()
	engine.RegisterFilter("escape", func(s string) string {
		return html.EscapeString(s)
	})

	sources := map[string]string{
		"table":                   tableTemplate,
		KindSubmitterConfirmation: submitterTemplate,
		KindSubscriberAlert:       subscriberTemplate,
		KindOptOutConfirmation:    optOutConfirmedTemplate,
		KindOptOutUnsuccessful:    optOutFailedTemplate,
		KindPartnerOptOut:         partnerTemplate,
		KindExpirationWarning:     expirationTemplate,
	}

	c := &Composer{links: links, signature: signature, templates: make(map[string]*liquid.Template, len(sources))}
	for name, src := range sources {
		tpl, err := engine.ParseString(src)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		c.templates[name] = tpl
	}
	return c, nil
}

func (c *Composer) render(name string, bindings map[string]interface{}) (string, error) {
	tpl, ok := c.templates[name]
	if !ok {
		return "", fmt.Errorf("unknown template %s", name)
	}
	out, err := tpl.RenderString(bindings)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return out, nil
}

// RenderMatchTable renders listings as an HTML table. The row whose raw
// timestamp equals highlightTimestamp is marked as the new arrival; pass ""
// to highlight nothing. Phone numbers are shown only to parties who agreed
// to be contacted by phone.
func (c *Composer) RenderMatchTable(listings []domain.Listing, highlightTimestamp string) (string, error) {
	rows := make([]map[string]interface{}, 0, len(listings))
	for _, l := range listings {
		rows = append(rows, map[string]interface{}{
			"highlight": highlightTimestamp != "" && l.SubmittedRaw == highlightTimestamp,
			"posted":    PostedDate(l),
			"item":      l.Item(),
			"name":      l.FirstName,
			"city":      l.City,
			"email":     l.Email,
			"phone":     ContactPhone(l),
			"details":   strings.Join(l.Details, " • "),
		})
	}
	return c.render("table", map[string]interface{}{"rows": rows})
}

// SubmitterConfirmation lists the current matches of a new listing, or says
// none were found.
func (c *Composer) SubmitterConfirmation(submitter domain.Listing, matches []domain.Listing) (Message, error) {
	bindings := map[string]interface{}{
		"name":        submitter.FirstName,
		"item":        submitter.Item(),
		"has_matches": len(matches) > 0,
		"signature":   c.signature,
	}
	if len(matches) > 0 {
		table, err := c.RenderMatchTable(matches, "")
		if err != nil {
			return Message{}, err
		}
		bindings["table"] = table
	}
	return c.message(KindSubmitterConfirmation, submitter.Email,
		fmt.Sprintf("Matches found for your %s", submitter.Item()), bindings)
}

// SubscriberAlert tells an existing listing owner about a new compatible
// listing. matches is the subscriber's full match list, fresh included; fresh
// is highlighted.
func (c *Composer) SubscriberAlert(subscriber domain.Listing, matches []domain.Listing, fresh domain.Listing) (Message, error) {
	table, err := c.RenderMatchTable(matches, fresh.SubmittedRaw)
	if err != nil {
		return Message{}, err
	}
	return c.message(KindSubscriberAlert, subscriber.Email,
		fmt.Sprintf("New Match Alert: %s", subscriber.Item()),
		map[string]interface{}{
			"name":        subscriber.FirstName,
			"item":        subscriber.Item(),
			"table":       table,
			"opt_out_url": c.links.OptOutForm,
		})
}

// OptOutConfirmation confirms a processed opt-out when found is true, and
// otherwise asks the requester to resubmit with the exact email and item.
func (c *Composer) OptOutConfirmation(req domain.OptOutRequest, found bool) (Message, error) {
	bindings := map[string]interface{}{
		"item":           req.Item,
		"submission_url": c.links.SubmissionForm,
		"opt_out_url":    c.links.OptOutForm,
		"signature":      c.signature,
	}
	if found {
		return c.message(KindOptOutConfirmation, req.Email,
			fmt.Sprintf("Confirmation: Opt-Out for %s", req.Item), bindings)
	}
	return c.message(KindOptOutUnsuccessful, req.Email, "Action Required: Opt-Out Unsuccessful", bindings)
}

// PartnerOptOut tells the owner of partner that their listing was closed by
// the other side of the exchange.
func (c *Composer) PartnerOptOut(partner domain.Listing, req domain.OptOutRequest) (Message, error) {
	return c.message(KindPartnerOptOut, partner.Email,
		fmt.Sprintf("Your %s listing was closed by your match partner", partner.Item()),
		map[string]interface{}{
			"name":           partner.FirstName,
			"requester":      req.Email,
			"item":           partner.Item(),
			"submission_url": c.links.SubmissionForm,
			"signature":      c.signature,
		})
}

// ExpirationWarning reminds the owner that the listing leaves the matching
// window in a week.
func (c *Composer) ExpirationWarning(l domain.Listing) (Message, error) {
	return c.message(KindExpirationWarning, l.Email,
		fmt.Sprintf("Action Required: Your %s listing expires in 7 days", l.Item()),
		map[string]interface{}{
			"name":           l.FirstName,
			"item":           l.Item(),
			"submission_url": c.links.SubmissionForm,
		})
}

func (c *Composer) message(kind, to, subject string, bindings map[string]interface{}) (Message, error) {
	body, err := c.render(kind, bindings)
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: subject, HTMLBody: body, Kind: kind}, nil
}

// PostedDate formats the submission date as M/D/YY, falling back to the raw
// cell when it could not be parsed.
func PostedDate(l domain.Listing) string {
	if l.SubmittedAt.IsZero() {
		return l.SubmittedRaw
	}
	return l.SubmittedAt.Format("1/2/06")
}

// ContactPhone returns the phone number when the owner consented to phone
// contact, and "" otherwise.
func ContactPhone(l domain.Listing) string {
	phone := strings.TrimSpace(l.Phone)
	if phone == "" {
		return ""
	}
	if !strings.Contains(strings.ToLower(l.PhoneConsent), "yes") {
		return ""
	}
	return phone
}
