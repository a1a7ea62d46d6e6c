package actor

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/cuemby/bffhd/pkg/log"
	"github.com/cuemby/bffhd/pkg/resource"
	"github.com/cuemby/bffhd/pkg/signal"
)

// Actuator performs the external effect for one resource's new status
// (spec.md §4.7). A failing Apply must log internally; the driver itself
// never fails the update on an Apply error.
type Actuator interface {
	Apply(ctx context.Context, status resource.Status) error
}

// Driver is the Actor Driver task. Run must be called in its own
// goroutine; it returns when ctx is cancelled or the subscription closes.
type Driver struct {
	actuator Actuator
	sub      *signal.Subscription
	logger   zerolog.Logger
}

// NewDriver builds a Driver that applies actuator for every change
// observed on sig.
func NewDriver(name string, actuator Actuator, sig *signal.Signal) *Driver {
	return &Driver{
		actuator: actuator,
		sub:      sig.Subscribe(),
		logger:   log.Component("actor." + name),
	}
}

// Run drives the actuator. Only one Apply runs at a time: the next
// subscription value is not fetched until the current Apply returns, so
// any states Set while an Apply is in flight coalesce into the single
// next Next() call — the actor observes the latest state, never a
// backlog (spec.md §4.7 "not a queue").
func (d *Driver) Run(ctx context.Context) {
	for {
		st, err := d.sub.Next(ctx)
		if err != nil {
			return
		}

		status, err := resource.DecodeStatus(st)
		if err != nil {
			d.logger.Error().Err(err).Msg("decode status failed")
			continue
		}

		if err := d.actuator.Apply(ctx, status); err != nil {
			d.logger.Error().Err(err).Msg("actuator apply failed")
		}
	}
}
