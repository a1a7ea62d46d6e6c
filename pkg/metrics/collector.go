package metrics

import (
	"time"

	"github.com/cuemby/bffhd/pkg/resource"
)

// Collector periodically snapshots the resource registry into
// ResourceStatusGauge, following the teacher's pkg/metrics.Collector
// ticker-driven poll-and-tally shape (collectNodeMetrics' role×status
// tally, here reduced to a single status tally since resources carry no
// second dimension analogous to node role).
type Collector struct {
	registry *resource.Registry
	stopCh   chan struct{}
}

// NewCollector builds a Collector over registry.
func NewCollector(registry *resource.Registry) *Collector {
	return &Collector{
		registry: registry,
		stopCh:   make(chan struct{}),
	}
}

// Start begins polling every 15 seconds, collecting once immediately.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop halts the poller.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	counts := make(map[resource.StatusKind]int)
	for _, res := range c.registry.All() {
		counts[res.Engine.GetCurrent().Kind]++
	}
	ResourceStatusGauge.Reset()
	for status, count := range counts {
		ResourceStatusGauge.WithLabelValues(string(status)).Set(float64(count))
	}
}
