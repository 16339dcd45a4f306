package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/dreamworld-backend/internal/platform/logger"
	"github.com/yungbote/dreamworld-backend/internal/platform/neo4jdb"
	"github.com/yungbote/dreamworld-backend/internal/platform/openai"
	"github.com/yungbote/dreamworld-backend/internal/realtime"
	"github.com/yungbote/dreamworld-backend/internal/realtime/bus"
)

type Clients struct {
	Bus    bus.Bus
	Redis  bool
	Neo4j  *neo4jdb.Client
	OpenAI openai.Client
}

func wireClients(log *logger.Logger, cfg Config, hub *realtime.Hub) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	// Redis
	if strings.TrimSpace(cfg.Redis.Addr) != "" {
		b, err := bus.NewRedisBus(log, cfg.Redis)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis event bus: %w", err)
		}
		out.Bus = b
		out.Redis = true
	} else {
		out.Bus = bus.NewLocal(hub)
	}

	// Neo4j
	n4j, err := neo4jdb.NewFromEnv(log)
	if err != nil {
		out.Close(context.Background())
		return Clients{}, fmt.Errorf("init neo4j: %w", err)
	}
	out.Neo4j = n4j

	// Openai
	if strings.TrimSpace(cfg.OpenAI.APIKey) != "" {
		c, err := openai.NewClient(log, cfg.OpenAI)
		if err != nil {
			out.Close(context.Background())
			return Clients{}, fmt.Errorf("init openai client: %w", err)
		}
		out.OpenAI = c
	}

	return out, nil
}

func (c Clients) Close(ctx context.Context) {
	if c.Bus != nil {
		_ = c.Bus.Close()
	}
	if c.Neo4j != nil {
		_ = c.Neo4j.Close(ctx)
	}
}
