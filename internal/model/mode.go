package model

import (
	"fmt"
	"strings"
)

// Mode selects how input rows are interpreted and rendered.
type Mode string

const (
	ModeTabular   Mode = "tabular"
	ModeBroadcast Mode = "broadcast"
)

func ParseMode(raw string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "tabular", "stock", "recommendations":
		return ModeTabular, nil
	case "broadcast", "generic":
		return ModeBroadcast, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want tabular|broadcast)", raw)
	}
}

// Format selects the message body layout in tabular mode.
type Format string

const (
	FormatTable     Format = "table"
	FormatNarrative Format = "narrative"
)

// ParseFormat accepts the layout names used by operators. Empty means narrative.
func ParseFormat(raw string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "narrative", "simple", "layout-b":
		return FormatNarrative, nil
	case "table", "tabular", "layout-a":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("unknown format %q (want table|narrative)", raw)
	}
}

// ActionKind is the normalized recommendation action.
type ActionKind int

const (
	ActionUnknown ActionKind = iota
	ActionBuy
	ActionSell
)

// Action is the raw action cell. Matching is case-insensitive.
type Action string

func (a Action) Kind() ActionKind {
	switch strings.ToUpper(strings.TrimSpace(string(a))) {
	case "BUY":
		return ActionBuy
	case "SELL":
		return ActionSell
	default:
		return ActionUnknown
	}
}
