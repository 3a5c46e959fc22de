package llm

import (
	"github.com/pkg/errors"
)

type Level string

const (
	LevelNone    Level = "none"
	LevelMedium  Level = "medium"
	LevelHigh    Level = "high"
	LevelExtreme Level = "extreme"
)

func ParseLevel(s string) (Level, error) {
	switch l := Level(s); l {
	case LevelNone, LevelMedium, LevelHigh, LevelExtreme:
		return l, nil
	case "":
		return LevelNone, nil
	default:
		return "", errors.Errorf("unknown content level %q", s)
	}
}

// ContentPolicy controls both the policy section of the prompt and whether
// the codec is applied.
type ContentPolicy struct {
	Enabled     bool   `json:"enabled"`
	Erotica     Level  `json:"eroticaLevel"`
	Violence    Level  `json:"violenceLevel"`
	DarkContent Level  `json:"darkContentLevel"`
	Style       string `json:"customPrompt,omitempty"`
}

// Axis is one named severity setting of a policy.
type Axis struct {
	Name  string
	Level Level
}

// Axes lists the three axes in prompt order.
func (p ContentPolicy) Axes() []Axis {
	return []Axis{
		{Name: "Erotica Level", Level: p.Erotica},
		{Name: "Violence Level", Level: p.Violence},
		{Name: "Dark Content Level", Level: p.DarkContent},
	}
}
