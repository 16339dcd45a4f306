package graph

import (
	"context"
	"strconv"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/yungbote/dreamworld-backend/internal/domain/world"
	"github.com/yungbote/dreamworld-backend/internal/platform/logger"
	"github.com/yungbote/dreamworld-backend/internal/platform/neo4jdb"
)

// WorldMirror keeps a read-only copy of the dream world in Neo4j as
// (:DreamLocation)-[:TRANSIT]->(:DreamLocation). The relational store stays the
// source of truth; mirror failures are logged by callers and never fail a write.
type WorldMirror struct {
	client *neo4jdb.Client
	log    *logger.Logger
}

func NewWorldMirror(client *neo4jdb.Client, log *logger.Logger) *WorldMirror {
	return &WorldMirror{client: client, log: log.With("component", "WorldMirror")}
}

func (m *WorldMirror) Enabled() bool {
	return m != nil && m.client != nil && m.client.Driver != nil
}

func locationNodes(locations []*world.Location, now string) []map[string]any {
	nodes := make([]map[string]any, 0, len(locations))
	for _, l := range locations {
		if l == nil || l.ID == 0 {
			continue
		}
		nodes = append(nodes, map[string]any{
			"id":        strconv.FormatUint(l.ID, 10),
			"name":      l.Name,
			"archetype": string(l.Archetype),
			"layer":     string(l.Layer),
			"x":         l.X,
			"y":         l.Y,
			"frequency": int64(l.Frequency),
			"symbol":    l.Symbol,
			"color":     l.Color,
			"synced_at": now,
		})
	}
	return nodes
}

func transitRels(transits []*world.Transit, now string) []map[string]any {
	rels := make([]map[string]any, 0, len(transits))
	for _, t := range transits {
		if t == nil || t.ID == 0 {
			continue
		}
		dreamID := ""
		if t.DreamID != nil {
			dreamID = strconv.FormatUint(*t.DreamID, 10)
		}
		rels = append(rels, map[string]any{
			"id":         strconv.FormatUint(t.ID, 10),
			"from_id":    strconv.FormatUint(t.FromLocationID, 10),
			"to_id":      strconv.FormatUint(t.ToLocationID, 10),
			"trigger":    t.Trigger,
			"confidence": t.Confidence,
			"dream_id":   dreamID,
			"synced_at":  now,
		})
	}
	return rels
}

// Upsert merges the given locations and transits into the mirror.
func (m *WorldMirror) Upsert(ctx context.Context, locations []*world.Location, transits []*world.Transit) error {
	if !m.Enabled() {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	nodes := locationNodes(locations, now)
	rels := transitRels(transits, now)
	if len(nodes) == 0 && len(rels) == 0 {
		return nil
	}

	session := m.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: m.client.Database,
	})
	defer session.Close(ctx)

	if res, err := session.Run(ctx, `CREATE CONSTRAINT dream_location_id_unique IF NOT EXISTS FOR (l:DreamLocation) REQUIRE l.id IS UNIQUE`, nil); err != nil {
		m.log.Warn("neo4j schema init failed (continuing)", "error", err)
	} else {
		_, _ = res.Consume(ctx)
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if len(nodes) > 0 {
			res, err := tx.Run(ctx, `
UNWIND $nodes AS n
MERGE (l:DreamLocation {id: n.id})
SET l += n
`, map[string]any{"nodes": nodes})
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}
		if len(rels) > 0 {
			res, err := tx.Run(ctx, `
UNWIND $rels AS r
MATCH (a:DreamLocation {id: r.from_id})
MATCH (b:DreamLocation {id: r.to_id})
MERGE (a)-[t:TRANSIT {id: r.id}]->(b)
SET t.trigger = r.trigger,
    t.confidence = r.confidence,
    t.dream_id = r.dream_id,
    t.synced_at = r.synced_at
`, map[string]any{"rels": rels})
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

// ApplyMerge removes merged-away nodes and re-syncs the survivor with its transits.
func (m *WorldMirror) ApplyMerge(ctx context.Context, survivor *world.Location, removedIDs []uint64, transits []*world.Transit) error {
	if !m.Enabled() || survivor == nil {
		return nil
	}
	ids := make([]string, 0, len(removedIDs))
	for _, id := range removedIDs {
		ids = append(ids, strconv.FormatUint(id, 10))
	}
	if len(ids) > 0 {
		session := m.client.Driver.NewSession(ctx, neo4j.SessionConfig{
			AccessMode:   neo4j.AccessModeWrite,
			DatabaseName: m.client.Database,
		})
		_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			res, err := tx.Run(ctx, `
MATCH (l:DreamLocation)
WHERE l.id IN $ids
DETACH DELETE l
`, map[string]any{"ids": ids})
			if err != nil {
				return nil, err
			}
			_, err = res.Consume(ctx)
			return nil, err
		})
		session.Close(ctx)
		if err != nil {
			return err
		}
	}
	return m.Upsert(ctx, []*world.Location{survivor}, transits)
}
