package world

import (
	"strconv"
	"strings"
)

// Layer is one of the three vertical strata of the dream world.
type Layer string

const (
	LayerPrimary Layer = "PRIMARY"
	LayerUpper   Layer = "UPPER"
	LayerLower   Layer = "LOWER"
)

var AllLayers = []Layer{LayerPrimary, LayerUpper, LayerLower}

func (l Layer) Valid() bool {
	switch l {
	case LayerPrimary, LayerUpper, LayerLower:
		return true
	default:
		return false
	}
}

// Level is the numeric form used by extraction payloads: LOWER=-1, PRIMARY=0, UPPER=1.
func (l Layer) Level() int {
	switch l {
	case LayerUpper:
		return 1
	case LayerLower:
		return -1
	default:
		return 0
	}
}

// ParseLayer accepts layer names in any case or the numeric levels -1, 0 and 1.
func ParseLayer(raw string) (Layer, bool) {
	v := strings.ToUpper(strings.TrimSpace(raw))
	if v == "" {
		return "", false
	}
	if n, err := strconv.Atoi(v); err == nil {
		return LayerFromLevel(n)
	}
	l := Layer(v)
	return l, l.Valid()
}

func LayerFromLevel(n int) (Layer, bool) {
	switch n {
	case -1:
		return LayerLower, true
	case 0:
		return LayerPrimary, true
	case 1:
		return LayerUpper, true
	default:
		return "", false
	}
}
