// Package group partitions a validated input table into delivery units.
//
// Order is significant: units come out in first-seen group order and rows
// keep their input order inside a unit, which fixes the BUY/SELL
// sub-ordering of rendered messages.
package group

import (
	"errors"
	"fmt"
	"strings"

	"recobot/internal/model"
)

var ErrEmptyGroupKey = errors.New("row has an empty group key")

// Units dispatches on the table's mode.
func Units(t *model.Table) ([]model.Unit, error) {
	if t == nil {
		return nil, errors.New("nil table")
	}
	switch t.Mode {
	case model.ModeTabular:
		return Recommendations(t)
	case model.ModeBroadcast:
		return Broadcast(t)
	default:
		return nil, fmt.Errorf("unknown mode %q", t.Mode)
	}
}

// Recommendations groups rows by group name. Every unit has at least one row.
// The unit's client name is taken from the group's first row.
func Recommendations(t *model.Table) ([]model.Unit, error) {
	index := map[string]int{}
	out := make([]model.Unit, 0)
	for i, row := range t.Rows {
		name := row.Group
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("row %d: %w", i+1, ErrEmptyGroupKey)
		}
		pos, ok := index[name]
		if !ok {
			pos = len(out)
			index[name] = pos
			out = append(out, model.Unit{Group: model.Group{Name: name, ClientName: row.ClientName}})
		}
		out[pos].Rows = append(out[pos].Rows, row.Reco)
	}
	return out, nil
}

// Broadcast keeps one unit per distinct (group, client name) pair.
func Broadcast(t *model.Table) ([]model.Unit, error) {
	type key struct{ group, client string }
	seen := map[key]struct{}{}
	out := make([]model.Unit, 0)
	for i, row := range t.Rows {
		if strings.TrimSpace(row.Group) == "" {
			return nil, fmt.Errorf("row %d: %w", i+1, ErrEmptyGroupKey)
		}
		k := key{row.Group, row.ClientName}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, model.Unit{Group: model.Group{Name: row.Group, ClientName: row.ClientName}})
	}
	return out, nil
}
