package dispatch

import (
	"recobot/internal/dispatch/group"
	"recobot/internal/dispatch/render"
	"recobot/internal/model"
)

// Rendered is one group's message body as it would be sent.
type Rendered struct {
	Group string `json:"group"`
	Body  string `json:"body,omitempty"`
	Error string `json:"error,omitempty"`
}

// Preview groups and renders r without a UI session. Render failures are
// reported per group, as a real run would.
func Preview(opts render.Options, r *Run) ([]Rendered, error) {
	if r == nil {
		return nil, ErrNilRun
	}
	units, err := group.Units(r.Table)
	if err != nil {
		return nil, &GroupingError{Err: err}
	}
	out := make([]Rendered, 0, len(units))
	for _, u := range units {
		body, err := renderUnit(opts, r, u)
		item := Rendered{Group: u.Group.Name, Body: body}
		if err != nil {
			item.Error = err.Error()
		}
		out = append(out, item)
	}
	return out, nil
}

func renderUnit(opts render.Options, r *Run, u model.Unit) (string, error) {
	if r.Mode() == model.ModeBroadcast {
		return render.Broadcast(opts, u, r.BroadcastText)
	}
	return render.Recommendations(opts, u, r.Table, r.Format)
}
