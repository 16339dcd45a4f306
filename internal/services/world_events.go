package services

import (
	"context"

	"github.com/yungbote/dreamworld-backend/internal/data/graph"
	"github.com/yungbote/dreamworld-backend/internal/domain/dreams"
	"github.com/yungbote/dreamworld-backend/internal/domain/world"
	"github.com/yungbote/dreamworld-backend/internal/modules/dreamworld/merge"
	"github.com/yungbote/dreamworld-backend/internal/platform/logger"
	"github.com/yungbote/dreamworld-backend/internal/realtime"
	"github.com/yungbote/dreamworld-backend/internal/realtime/bus"
)

// WorldEvents runs the post-commit side effects of world changes: realtime
// events and the graph mirror. Failures are logged and never returned.
type WorldEvents struct {
	bus    bus.Bus
	mirror *graph.WorldMirror
	log    *logger.Logger
}

func NewWorldEvents(b bus.Bus, mirror *graph.WorldMirror, baseLog *logger.Logger) *WorldEvents {
	return &WorldEvents{bus: b, mirror: mirror, log: baseLog.With("service", "WorldEvents")}
}

var _ merge.Observer = (*WorldEvents)(nil)

func (e *WorldEvents) publish(ctx context.Context, event realtime.Event, data any) {
	if e == nil || e.bus == nil {
		return
	}
	if err := e.bus.Publish(ctx, realtime.Message{Channel: realtime.ChannelWorld, Event: event, Data: data}); err != nil {
		e.log.Warn("publish failed", "event", event, "error", err)
	}
}

func (e *WorldEvents) sync(ctx context.Context, locations []*world.Location, transits []*world.Transit) {
	if e == nil || !e.mirror.Enabled() {
		return
	}
	if err := e.mirror.Upsert(ctx, locations, transits); err != nil {
		e.log.Warn("graph mirror sync failed", "error", err)
	}
}

func (e *WorldEvents) DreamCreated(ctx context.Context, d *dreams.Dream) {
	e.publish(ctx, realtime.EventDreamCreated, map[string]any{"dream": d})
}

func (e *WorldEvents) DreamProcessed(ctx context.Context, dreamID uint64, summary map[string]any, locations []*world.Location, transits []*world.Transit) {
	data := map[string]any{"dream_id": dreamID}
	for k, v := range summary {
		data[k] = v
	}
	e.publish(ctx, realtime.EventDreamProcessed, data)
	e.sync(ctx, locations, transits)
}

func (e *WorldEvents) LocationSaved(ctx context.Context, event realtime.Event, loc *world.Location) {
	e.publish(ctx, event, map[string]any{"location": loc})
	e.sync(ctx, []*world.Location{loc}, nil)
}

func (e *WorldEvents) LocationsMerged(ctx context.Context, out merge.Outcome) {
	e.publish(ctx, realtime.EventLocationMerged, map[string]any{
		"location":    out.Survivor,
		"removed_ids": out.RemovedIDs,
	})
	if e == nil || !e.mirror.Enabled() {
		return
	}
	if err := e.mirror.ApplyMerge(ctx, out.Survivor, out.RemovedIDs, out.Transits); err != nil {
		e.log.Warn("graph mirror merge failed", "error", err)
	}
}
