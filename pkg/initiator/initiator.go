package initiator

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/cuemby/bffhd/pkg/bffherr"
	"github.com/cuemby/bffhd/pkg/log"
	"github.com/cuemby/bffhd/pkg/resource"
	"github.com/cuemby/bffhd/pkg/signal"
	"github.com/cuemby/bffhd/pkg/value"
)

// Sink is how an Initiator proposes an update for the resource it is
// currently bound to (spec.md §4.6 point 2/3).
type Sink interface {
	Send(ctx context.Context, actor value.UserID, event resource.Event) error
}

// Initiator is one external event source. StartFor prepares the
// initiator for resourceID (e.g. opening a device handle); Run then
// drives events from that source into sink until ctx is cancelled.
type Initiator interface {
	StartFor(ctx context.Context, resourceID string) error
	Run(ctx context.Context, sink Sink) error
}

type registrySink struct {
	registry   *resource.Registry
	resourceID string
}

func (s registrySink) Send(ctx context.Context, actor value.UserID, event resource.Event) error {
	res, ok := s.registry.Get(s.resourceID)
	if !ok {
		return bffherr.ErrNotFound
	}
	event.Actor = actor
	return res.Engine.Propose(ctx, event)
}

// BindingState encodes which resource (if any) a Driver is bound to, for
// use with a signal.Signal carrying the binding. An empty resourceID
// encodes "unbound" (spec.md §4.6 point 4).
func BindingState(resourceID string) value.State {
	b := value.NewBuilder()
	if resourceID != "" {
		b.Add(value.OIDString, value.String(resourceID))
	}
	return b.Finish()
}

func bindingID(st value.State) (string, bool) {
	v, ok := st.Get(value.OIDString)
	if !ok {
		return "", false
	}
	s, ok := v.(value.String)
	if !ok {
		return "", false
	}
	return string(s), true
}

// Driver is the Initiator Driver task (spec.md §4.6). Run must be called
// in its own goroutine; it returns when ctx is cancelled or the binding
// signal closes.
type Driver struct {
	initiator Initiator
	registry  *resource.Registry
	binding   *signal.Signal
	logger    zerolog.Logger
}

// NewDriver builds a Driver for name's initiator, resolving the bound
// resource against registry and watching binding for rebind events.
func NewDriver(name string, init Initiator, registry *resource.Registry, binding *signal.Signal) *Driver {
	return &Driver{
		initiator: init,
		registry:  registry,
		binding:   binding,
		logger:    log.Component("initiator." + name),
	}
}

// Run implements spec.md §4.6's behaviour: on every change of the bound
// resource, the previous run (if any) is cancelled and awaited before a
// new start_for(id).then(run) begins.
func (d *Driver) Run(ctx context.Context) {
	sub := d.binding.Subscribe()

	var cancelRun context.CancelFunc
	var runDone chan struct{}

	stopCurrent := func() {
		if cancelRun == nil {
			return
		}
		cancelRun()
		<-runDone
		cancelRun = nil
		runDone = nil
	}
	defer stopCurrent()

	for {
		st, err := sub.Next(ctx)
		if err != nil {
			return
		}
		stopCurrent()

		id, ok := bindingID(st)
		if !ok || id == "" {
			continue
		}

		runCtx, cancel := context.WithCancel(ctx)
		done := make(chan struct{})
		cancelRun = cancel
		runDone = done

		go d.runOnce(runCtx, id, done)
	}
}

func (d *Driver) runOnce(ctx context.Context, resourceID string, done chan struct{}) {
	defer close(done)

	if err := d.initiator.StartFor(ctx, resourceID); err != nil {
		d.logger.Error().Err(err).Str("resource", resourceID).Msg("start_for failed")
		return
	}

	sink := registrySink{registry: d.registry, resourceID: resourceID}
	if err := d.initiator.Run(ctx, sink); err != nil && ctx.Err() == nil {
		d.logger.Error().Err(err).Str("resource", resourceID).Msg("run failed")
	}
}
