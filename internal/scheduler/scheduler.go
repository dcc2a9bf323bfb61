// Package scheduler runs one independent polling loop per endpoint.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"torznab_monitor/internal/config"
	"torznab_monitor/internal/diff"
	"torznab_monitor/internal/feed"
	"torznab_monitor/internal/mapping"
)

// Sender is the interface for delivering a resolved notification record.
type Sender interface {
	Send(ctx context.Context, record mapping.Record) error
}

// Scheduler polls each configured endpoint at its own interval and pushes
// notifications for new items.
type Scheduler struct {
	endpoints []config.Endpoint
	fetcher   *feed.Fetcher
	engine    *diff.Engine
	mappings  *mapping.Config
	sender    Sender
	log       *slog.Logger

	// skipInitial marks each endpoint's first fetch as seen without
	// notifying, so a fresh deployment does not flood the channel with
	// the feed's whole backlog.
	skipInitial bool
}

// New creates a Scheduler for the given endpoints.
func New(endpoints []config.Endpoint, fetcher *feed.Fetcher, engine *diff.Engine, mappings *mapping.Config, sender Sender, log *slog.Logger, skipInitial bool) *Scheduler {
	return &Scheduler{
		endpoints:   endpoints,
		fetcher:     fetcher,
		engine:      engine,
		mappings:    mappings,
		sender:      sender,
		log:         log,
		skipInitial: skipInitial,
	}
}

// Run starts one polling loop per endpoint and blocks until ctx is
// cancelled and every loop has stopped. Loops never influence each other;
// errors in one endpoint's tick are logged and absorbed there.
func (s *Scheduler) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, ep := range s.endpoints {
		wg.Add(1)
		go func(ep config.Endpoint) {
			defer wg.Done()
			s.runEndpoint(ctx, ep)
		}(ep)
	}
	wg.Wait()
}

func (s *Scheduler) runEndpoint(ctx context.Context, ep config.Endpoint) {
	s.log.Info("starting endpoint loop", "endpoint", ep.Name, "interval", ep.PollInterval)

	s.tick(ctx, ep, s.skipInitial)

	ticker := time.NewTicker(ep.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("stopping endpoint loop", "endpoint", ep.Name)
			return
		case <-ticker.C:
			s.tick(ctx, ep, false)
		}
	}
}

// tick runs one fetch-diff-map-dispatch cycle for an endpoint. With
// suppress set, new items are recorded as seen but no notifications go out.
func (s *Scheduler) tick(ctx context.Context, ep config.Endpoint, suppress bool) {
	s.log.Debug("polling feed", "endpoint", ep.Name, "url", ep.URL)

	doc, err := s.fetcher.Fetch(ctx, ep.URL)
	if err != nil {
		s.log.Error("fetch feed", "endpoint", ep.Name, "url", ep.URL, "error", err)
		return
	}
	s.log.Debug("fetched feed", "endpoint", ep.Name, "title", doc.Title, "items", len(doc.Items))

	fresh := s.engine.Diff(ctx, ep.Name, ep.Categories, doc.Items)

	if suppress {
		s.log.Info("recorded initial items without notifying", "endpoint", ep.Name, "count", len(fresh))
		return
	}

	rules, ok := s.mappings.Ruleset(mapping.KeyFor(ep.Name))
	if !ok {
		// Checked at startup, so this only fires if wiring changed.
		s.log.Error("notification mapping not found", "endpoint", ep.Name, "mapping", mapping.KeyFor(ep.Name))
		return
	}

	sent := 0
	for _, item := range fresh {
		record := mapping.Resolve(item, rules)
		if err := s.sender.Send(ctx, record); err != nil {
			s.log.Error("send notification", "endpoint", ep.Name, "guid", item.ID(), "error", err)
			continue
		}
		sent++
	}

	if sent > 0 {
		s.log.Info("sent notifications", "endpoint", ep.Name, "count", sent)
	}
}
