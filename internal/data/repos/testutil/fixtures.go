package testutil

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/dreamworld-backend/internal/domain/dreams"
	"github.com/yungbote/dreamworld-backend/internal/domain/world"
)

func SeedDream(tb testing.TB, ctx context.Context, tx *gorm.DB, content string) *dreams.Dream {
	tb.Helper()
	d := &dreams.Dream{
		Date:     time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC),
		Cycle:    1,
		Content:  content,
		Language: dreams.DefaultLanguage,
	}
	if err := tx.WithContext(ctx).Create(d).Error; err != nil {
		tb.Fatalf("seed dream: %v", err)
	}
	return d
}

func SeedLocation(tb testing.TB, ctx context.Context, tx *gorm.DB, name string, frequency int, x, y float64) *world.Location {
	tb.Helper()
	style := world.StyleFor(world.ArchetypeOther)
	loc := &world.Location{
		Name:      name,
		Archetype: world.ArchetypeOther,
		Layer:     world.LayerPrimary,
		X:         x,
		Y:         y,
		Frequency: frequency,
		Symbol:    style.Symbol,
		Color:     style.Color,
	}
	if err := tx.WithContext(ctx).Create(loc).Error; err != nil {
		tb.Fatalf("seed location: %v", err)
	}
	return loc
}

func SeedEntity(tb testing.TB, ctx context.Context, tx *gorm.DB, name string, locationID uint64) *world.Entity {
	tb.Helper()
	e := &world.Entity{
		Name:       name,
		Type:       "creature",
		Confidence: 1,
		LocationID: &locationID,
	}
	if err := tx.WithContext(ctx).Create(e).Error; err != nil {
		tb.Fatalf("seed entity: %v", err)
	}
	return e
}

func SeedTransit(tb testing.TB, ctx context.Context, tx *gorm.DB, fromID, toID uint64) *world.Transit {
	tb.Helper()
	t := &world.Transit{
		FromLocationID: fromID,
		ToLocationID:   toID,
		Confidence:     1,
	}
	if err := tx.WithContext(ctx).Create(t).Error; err != nil {
		tb.Fatalf("seed transit: %v", err)
	}
	return t
}
