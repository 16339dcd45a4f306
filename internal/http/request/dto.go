package request

import (
	"strings"
	"time"

	"github.com/yungbote/dreamworld-backend/internal/domain/world"
	"github.com/yungbote/dreamworld-backend/internal/modules/dreamworld/merge"
	domainerrors "github.com/yungbote/dreamworld-backend/internal/pkg/errors"
	"github.com/yungbote/dreamworld-backend/internal/services"
)

type CreateDream struct {
	Date     string `json:"date" validate:"required"`
	Cycle    *int   `json:"cycle" validate:"omitempty,min=1"`
	Content  string `json:"content" validate:"required"`
	Language string `json:"language" validate:"omitempty,max=5"`
}

// ParseDate accepts RFC 3339 timestamps and plain calendar dates.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, domainerrors.Validation("create dream", "date must be RFC 3339 or YYYY-MM-DD")
}

func (r CreateDream) Input() (services.CreateDreamInput, error) {
	date, err := ParseDate(r.Date)
	if err != nil {
		return services.CreateDreamInput{}, err
	}
	cycle := 1
	if r.Cycle != nil {
		cycle = *r.Cycle
	}
	return services.CreateDreamInput{
		Date:     date,
		Cycle:    cycle,
		Content:  r.Content,
		Language: r.Language,
	}, nil
}

type CreateLocation struct {
	Name        string   `json:"name" validate:"required,max=200"`
	Archetype   string   `json:"archetype"`
	Layer       string   `json:"layer" validate:"omitempty,layer"`
	X           *float64 `json:"x"`
	Y           *float64 `json:"y"`
	Symbol      string   `json:"symbol"`
	Description string   `json:"description"`
	Color       string   `json:"color" validate:"omitempty,hexcolor6"`
}

func (r CreateLocation) Input() services.CreateLocationInput {
	in := services.CreateLocationInput{
		Name:        r.Name,
		Archetype:   r.Archetype,
		Layer:       normalizeLayer(r.Layer),
		Symbol:      r.Symbol,
		Description: r.Description,
		Color:       r.Color,
	}
	if r.X != nil {
		in.X = *r.X
	}
	if r.Y != nil {
		in.Y = *r.Y
	}
	return in
}

// PatchLocation leaves omitted and null fields untouched.
type PatchLocation struct {
	Name        *string  `json:"name" validate:"omitempty,min=1,max=200"`
	Archetype   *string  `json:"archetype"`
	Layer       *string  `json:"layer" validate:"omitempty,layer"`
	X           *float64 `json:"x"`
	Y           *float64 `json:"y"`
	Symbol      *string  `json:"symbol"`
	Description *string  `json:"description"`
	Color       *string  `json:"color" validate:"omitempty,hexcolor6"`
}

func (r PatchLocation) Patch() services.LocationPatch {
	p := services.LocationPatch{
		Name:        r.Name,
		Archetype:   r.Archetype,
		X:           r.X,
		Y:           r.Y,
		Symbol:      r.Symbol,
		Description: r.Description,
		Color:       r.Color,
	}
	if r.Layer != nil {
		l := normalizeLayer(*r.Layer)
		p.Layer = &l
	}
	return p
}

func normalizeLayer(raw string) world.Layer {
	if l, ok := world.ParseLayer(raw); ok {
		return l
	}
	return world.Layer(raw)
}

type MergeLocations struct {
	SourceIDs  []uint64 `json:"source_ids" validate:"required,min=1,dive,min=1"`
	TargetName string   `json:"target_name" validate:"required"`
	UserNote   string   `json:"user_note"`
}

func (r MergeLocations) Request() merge.Request {
	return merge.Request{SourceIDs: r.SourceIDs, TargetName: r.TargetName, UserNote: r.UserNote}
}

type CreateEntity struct {
	Name        string   `json:"name" validate:"required,max=200"`
	Type        string   `json:"type"`
	Symbol      string   `json:"symbol"`
	Description string   `json:"description"`
	Confidence  *float64 `json:"confidence" validate:"omitempty,gte=0,lte=1"`
	LocationID  *uint64  `json:"location_id" validate:"omitempty,min=1"`
}

func (r CreateEntity) Input() services.CreateEntityInput {
	return services.CreateEntityInput{
		Name:        r.Name,
		Type:        r.Type,
		Symbol:      r.Symbol,
		Description: r.Description,
		Confidence:  r.Confidence,
		LocationID:  r.LocationID,
	}
}
