package model

import (
	"strings"
	"time"
)

// Group is a recipient group. Name must match the messaging client's search
// results exactly as typed; no case folding is applied.
type Group struct {
	Name       string
	ClientName string
}

// DisplayName returns the client name, or def when absent.
func (g Group) DisplayName(def string) string {
	if n := strings.TrimSpace(g.ClientName); n != "" {
		return n
	}
	return def
}

// Unit is one delivery: a group and, in tabular mode, its rows in input order.
type Unit struct {
	Group Group
	Rows  []Recommendation
}

type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Failure kinds recorded on outcomes.
const (
	KindRender    = "render"
	KindTimeout   = "timeout"
	KindDelivery  = "delivery"
	KindCancelled = "cancelled"
	KindPanic     = "panic"
)

// Outcome is the result for one group in one run.
type Outcome struct {
	Group  string `json:"group"`
	Status Status `json:"status"`
	Kind   string `json:"kind,omitempty"`
	Reason string `json:"reason,omitempty"`
}

func (o Outcome) OK() bool { return o.Status == StatusSuccess }

// Failure is the report view of a failed outcome.
type Failure struct {
	Group string `json:"group"`
	Error string `json:"error"`
}

// Report is the ordered outcome list for one run. The orchestrator appends
// while the run is active and hands out a Frozen copy on return. Groups is the
// unique group count of the input, set before the browser is launched.
type Report struct {
	RunID      string    `json:"run_id"`
	Mode       Mode      `json:"mode"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Groups     int       `json:"groups"`
	Outcomes   []Outcome `json:"outcomes"`
}

func (r *Report) Succeed(group string) {
	r.Outcomes = append(r.Outcomes, Outcome{Group: group, Status: StatusSuccess})
}

func (r *Report) Fail(group, kind, reason string) {
	r.Outcomes = append(r.Outcomes, Outcome{Group: group, Status: StatusFailure, Kind: kind, Reason: reason})
}

// Frozen returns a copy that shares nothing with r.
func (r Report) Frozen() Report {
	cp := r
	cp.Outcomes = append([]Outcome(nil), r.Outcomes...)
	return cp
}

func (r Report) Total() int { return len(r.Outcomes) }

func (r Report) Succeeded() []string {
	out := make([]string, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		if o.OK() {
			out = append(out, o.Group)
		}
	}
	return out
}

func (r Report) Failed() []Failure {
	out := make([]Failure, 0)
	for _, o := range r.Outcomes {
		if !o.OK() {
			out = append(out, Failure{Group: o.Group, Error: o.Reason})
		}
	}
	return out
}

func (r Report) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
