// Package channel defines the sales-channel port implemented by the
// marketplace adapters in internal/infrastructure/channel.
package channel

import (
	"context"
	"fmt"

	"github.com/salespipe/backend/internal/domain/calendar"
	"github.com/salespipe/backend/internal/domain/shared"
	"github.com/salespipe/backend/internal/domain/warehouse"
)

// Adapter pulls orders from one sales channel and normalizes them into
// canonical line-item records.
type Adapter interface {
	// Channel identifies the sales source this adapter serves
	Channel() warehouse.Channel
	// FetchLineItems returns every line item of every order created inside
	// the window, fully normalized. Implementations follow the source's
	// pagination to exhaustion.
	FetchLineItems(ctx context.Context, win calendar.Window) ([]*warehouse.LineItemRecord, error)
}

// InventoryProvider is implemented by adapters whose channel exposes
// warehouse inventory levels.
type InventoryProvider interface {
	FetchInventory(ctx context.Context) ([]*warehouse.InventoryRecord, error)
}

// UnconfiguredAdapter stands in for a channel whose credentials are
// absent. Registering it keeps the channel addressable so a sync run
// reports the misconfiguration instead of silently skipping the channel.
type UnconfiguredAdapter struct {
	Source warehouse.Channel
	Reason error
}

var _ Adapter = (*UnconfiguredAdapter)(nil)

// Channel identifies the sales source this adapter stands in for
func (u *UnconfiguredAdapter) Channel() warehouse.Channel { return u.Source }

// FetchLineItems always fails with the configuration error
func (u *UnconfiguredAdapter) FetchLineItems(context.Context, calendar.Window) ([]*warehouse.LineItemRecord, error) {
	if u.Reason != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotConfigured, u.Reason)
	}
	return nil, ErrNotConfigured
}

// Registry holds the configured adapters keyed by channel
type Registry struct {
	adapters map[warehouse.Channel]Adapter
}

// NewRegistry creates a registry from the given adapters
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[warehouse.Channel]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Channel()] = a
	}
	return r
}

// Get returns the adapter for a channel
func (r *Registry) Get(ch warehouse.Channel) (Adapter, error) {
	a, ok := r.adapters[ch]
	if !ok {
		return nil, fmt.Errorf("%w: no adapter configured for channel %s", shared.ErrNotFound, ch)
	}
	return a, nil
}

// Resolve maps a channel selection to the configured adapters, preserving
// selection order.
func (r *Registry) Resolve(channels []warehouse.Channel) ([]Adapter, error) {
	adapters := make([]Adapter, 0, len(channels))
	for _, ch := range channels {
		a, err := r.Get(ch)
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, a)
	}
	return adapters, nil
}

// Channels returns the channels with a configured adapter
func (r *Registry) Channels() []warehouse.Channel {
	channels := make([]warehouse.Channel, 0, len(r.adapters))
	for _, ch := range warehouse.AllChannels() {
		if _, ok := r.adapters[ch]; ok {
			channels = append(channels, ch)
		}
	}
	return channels
}
