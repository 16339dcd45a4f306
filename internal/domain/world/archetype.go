package world

import (
	"regexp"
	"strings"
)

type Archetype string

const (
	ArchetypeHome   Archetype = "home"
	ArchetypeForest Archetype = "forest"
	ArchetypeCity   Archetype = "city"
	ArchetypeWater  Archetype = "water"
	ArchetypeCave   Archetype = "cave"
	ArchetypeOther  Archetype = "other"
)

var AllArchetypes = []Archetype{ArchetypeHome, ArchetypeForest, ArchetypeCity, ArchetypeWater, ArchetypeCave, ArchetypeOther}

// Style is the default presentation of an archetype.
type Style struct {
	Color  string
	Symbol string
}

var styles = map[Archetype]Style{
	ArchetypeHome:   {Color: "#3b82f6", Symbol: "🏠"},
	ArchetypeForest: {Color: "#22c55e", Symbol: "🌲"},
	ArchetypeCity:   {Color: "#6366f1", Symbol: "🏙️"},
	ArchetypeWater:  {Color: "#06b6d4", Symbol: "🌊"},
	ArchetypeCave:   {Color: "#78716c", Symbol: "🕳️"},
	ArchetypeOther:  {Color: "#6b7280", Symbol: "❓"},
}

var aliases = map[string]Archetype{
	"house":       ArchetypeHome,
	"room":        ArchetypeHome,
	"apartment":   ArchetypeHome,
	"woods":       ArchetypeForest,
	"jungle":      ArchetypeForest,
	"town":        ArchetypeCity,
	"street":      ArchetypeCity,
	"building":    ArchetypeCity,
	"ocean":       ArchetypeWater,
	"sea":         ArchetypeWater,
	"lake":        ArchetypeWater,
	"river":       ArchetypeWater,
	"underground": ArchetypeCave,
	"tunnel":      ArchetypeCave,
}

// ParseArchetype maps a free-form hint onto the closed taxonomy; unknown hints become other.
func ParseArchetype(raw string) Archetype {
	v := strings.ToLower(strings.TrimSpace(raw))
	for _, a := range AllArchetypes {
		if string(a) == v {
			return a
		}
	}
	if a, ok := aliases[v]; ok {
		return a
	}
	return ArchetypeOther
}

func (a Archetype) Valid() bool {
	_, ok := styles[a]
	return ok
}

func StyleFor(a Archetype) Style {
	if s, ok := styles[a]; ok {
		return s
	}
	return styles[ArchetypeOther]
}

var colorRe = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

func ValidColor(c string) bool {
	return colorRe.MatchString(c)
}
