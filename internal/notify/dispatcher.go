package notify

import (
	"context"

	"github.com/recares/dme-matcher/internal/domain"
)

// Dispatcher composes messages and hands them to a channel.
type Dispatcher struct {
	composer *Composer
	channel  Channel
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(composer *Composer, channel Channel) *Dispatcher {
	return &Dispatcher{composer: composer, channel: channel}
}

func (d *Dispatcher) send(ctx context.Context, msg Message, err error) error {
	if err != nil {
		return err
	}
	return d.channel.Send(ctx, msg)
}

func (d *Dispatcher) SubmitterConfirmation(ctx context.Context, submitter domain.Listing, matches []domain.Listing) error {
	msg, err := d.composer.SubmitterConfirmation(submitter, matches)
	return d.send(ctx, msg, err)
}

func (d *Dispatcher) SubscriberAlert(ctx context.Context, subscriber domain.Listing, matches []domain.Listing, fresh domain.Listing) error {
	msg, err := d.composer.SubscriberAlert(subscriber, matches, fresh)
	return d.send(ctx, msg, err)
}

func (d *Dispatcher) OptOutConfirmation(ctx context.Context, req domain.OptOutRequest, found bool) error {
	msg, err := d.composer.OptOutConfirmation(req, found)
	return d.send(ctx, msg, err)
}

func (d *Dispatcher) PartnerOptOut(ctx context.Context, partner domain.Listing, req domain.OptOutRequest) error {
	msg, err := d.composer.PartnerOptOut(partner, req)
	return d.send(ctx, msg, err)
}

func (d *Dispatcher) ExpirationWarning(ctx context.Context, l domain.Listing) error {
	msg, err := d.composer.ExpirationWarning(l)
	return d.send(ctx, msg, err)
}
