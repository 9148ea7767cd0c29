package dispatch

import "recobot/internal/model"

// Result is the structured response of a run trigger.
type Result struct {
	Message     string  `json:"message,omitempty"`
	Error       string  `json:"error,omitempty"`
	RunID       string  `json:"run_id,omitempty"`
	GroupsCount int     `json:"groups_count"`
	Details     Details `json:"details"`
}

type Details struct {
	SuccessfulGroups []string        `json:"successful_groups"`
	FailedGroups     []model.Failure `json:"failed_groups"`
}

// NewResult shapes a report and the run error into a Result.
func NewResult(rep model.Report, err error) Result {
	res := Result{
		Message:     "Messages processed",
		RunID:       rep.RunID,
		GroupsCount: rep.Groups,
		Details: Details{
			SuccessfulGroups: rep.Succeeded(),
			FailedGroups:     rep.Failed(),
		},
	}
	if err != nil {
		res.Message = ""
		res.Error = err.Error()
	}
	return res
}
