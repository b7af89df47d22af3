// Package actions gathers the UI directives tools emit during one
// orchestration run and orders them for delivery.
package actions

import (
	"github.com/voxcrm/server/internal/agent/model"
)

// Collector accumulates client actions for a single turn. It is used by one
// request goroutine only and needs no locking.
type Collector struct {
	actions []model.ClientAction
}

// NewCollector creates an empty per-turn collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Add records one action in emission order.
func (c *Collector) Add(a model.ClientAction) {
	c.actions = append(c.actions, a)
}

// Len reports how many actions were collected.
func (c *Collector) Len() int {
	return len(c.actions)
}

// Partition splits the collected actions into the two delivery phases: the
// first navigate (if any) fires immediately, everything else is deferred
// until the UI has rendered the new location. Extra navigates degrade to
// deferred so a single response never triggers two navigations at once.
func (c *Collector) Partition() (immediate, deferred []model.ClientAction) {
	navSeen := false
	for _, a := range c.actions {
		if a.IsNavigate() && !navSeen {
			navSeen = true
			immediate = append(immediate, a)
			continue
		}
		deferred = append(deferred, a)
	}
	return immediate, deferred
}

// Ordered returns all actions as one flat list with the primary navigate
// first, for callers that deliver in a single payload.
func (c *Collector) Ordered() []model.ClientAction {
	immediate, deferred := c.Partition()
	out := make([]model.ClientAction, 0, len(immediate)+len(deferred))
	out = append(out, immediate...)
	out = append(out, deferred...)
	return out
}
