// Package diff classifies fetched feed items as new or already seen.
package diff

import (
	"context"
	"log/slog"

	"torznab_monitor/internal/feed"
	"torznab_monitor/internal/storage"
)

// maxSeenPerEndpoint caps the seen-item records kept per endpoint. Torznab
// feeds return a bounded window of recent items, so anything older than the
// newest few hundred records can never reappear as new.
const maxSeenPerEndpoint = 200

// Engine produces the not-yet-seen subset of a fetched document.
type Engine struct {
	store storage.Storage
	log   *slog.Logger
}

// NewEngine creates a diff Engine on top of the given store.
func NewEngine(store storage.Storage, log *slog.Logger) *Engine {
	return &Engine{store: store, log: log}
}

// Diff returns the items not previously seen for the endpoint, in feed
// order, recording each as seen before it is returned. Items whose category
// codes do not intersect the endpoint's filter are discarded without being
// recorded, so they stay eligible should they reappear with a matching
// category.
//
// An item is marked seen before it is handed off for dispatch. A crash
// between the store write and the notification POST loses that item; a
// crash before the write redelivers it on the next run.
func (e *Engine) Diff(ctx context.Context, endpoint string, categories []string, items []feed.Item) []feed.Item {
	filter := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		filter[c] = struct{}{}
	}

	var fresh []feed.Item
	for _, item := range items {
		if !matchesCategories(item, filter) {
			e.log.Debug("no matching categories", "endpoint", endpoint, "title", item.Title())
			continue
		}

		id := item.ID()
		seen, err := e.store.IsSeen(ctx, endpoint, id)
		if err != nil {
			e.log.Error("check seen", "endpoint", endpoint, "guid", id, "error", err)
			continue
		}
		if seen {
			continue
		}

		if err := e.store.MarkSeen(ctx, endpoint, id); err != nil {
			// Not handed off: dispatching an unrecorded item would
			// redeliver it on every tick until the write succeeds.
			e.log.Error("mark seen", "endpoint", endpoint, "guid", id, "error", err)
			continue
		}
		fresh = append(fresh, item)
	}

	if err := e.store.PruneSeen(ctx, endpoint, maxSeenPerEndpoint); err != nil {
		e.log.Warn("prune seen items", "endpoint", endpoint, "error", err)
	}

	return fresh
}

func matchesCategories(item feed.Item, filter map[string]struct{}) bool {
	for cat := range item.Categories() {
		if _, ok := filter[cat]; ok {
			return true
		}
	}
	return false
}
