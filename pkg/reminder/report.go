package reminder

import "time"

// Report describes the outcome of one check.
type Report struct {
	RunID   string `json:"run_id"`
	Kind    string `json:"kind"`
	NowDate string `json:"now_date"`
	NowTime string `json:"now_time"`
	// Pending holds every unfired reminder loaded for the check.
	Pending []Item `json:"pending"`
	Fired   []Item `json:"fired"`
	// Undelivered holds due items whose notification was not delivered.
	// They are also in Fired when undelivered reminders are marked.
	Undelivered []Item        `json:"undelivered"`
	MarkFailed  []Item        `json:"mark_failed"`
	Invalid     []InvalidItem `json:"invalid"`
}

// InvalidItem is a reminder whose date or time could not be parsed.
type InvalidItem struct {
	Item
	Error string `json:"error"`
}

func newReport(runID, kind string, now time.Time) *Report {
	s := ScheduleOf(now)
	return &Report{
		RunID:       runID,
		Kind:        kind,
		NowDate:     s.Date.String(),
		NowTime:     s.Clock.String(),
		Pending:     []Item{},
		Fired:       []Item{},
		Undelivered: []Item{},
		MarkFailed:  []Item{},
		Invalid:     []InvalidItem{},
	}
}
