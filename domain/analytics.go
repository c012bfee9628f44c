package domain

import "time"

// ViewKind tells a generic page view from a product detail view.
type ViewKind string

const (
	KindPageView    ViewKind = "page_view"
	KindProductView ViewKind = "product_view"
)

// DateLayout is the calendar-day bucket key format.
const DateLayout = "2006-01-02"

// ViewEvent is one entry of the event log. Events are never mutated.
type ViewEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Date      string    `json:"date"`
	SubjectID string    `json:"subject_id,omitempty"`
	Kind      ViewKind  `json:"kind"`
	Path      string    `json:"path,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
}

// NewViewEvent stamps an event at now, bucketing it by the calendar day of loc.
func NewViewEvent(now time.Time, loc *time.Location, subjectID string) ViewEvent {
	if loc == nil {
		loc = time.Local
	}
	kind := KindPageView
	if subjectID != "" {
		kind = KindProductView
	}
	return ViewEvent{
		Timestamp: now,
		Date:      now.In(loc).Format(DateLayout),
		SubjectID: subjectID,
		Kind:      kind,
	}
}

// VisitStats are the rolling counters shown on the dashboard.
type VisitStats struct {
	Today      int         `json:"today"`
	ThisWeek   int         `json:"this_week"`
	ThisMonth  int         `json:"this_month"`
	Total      int         `json:"total"`
	UniqueDays int         `json:"unique_days"`
	Events     []ViewEvent `json:"-"`
}

// DayCount is one point of the visit trend.
type DayCount struct {
	Date  string `json:"date"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

// DashboardSummary aggregates catalog counters and visit analytics.
type DashboardSummary struct {
	TotalProducts int        `json:"total_products"`
	Sold          int        `json:"sold"`
	Available     int        `json:"available"`
	Reserved      int        `json:"reserved"`
	Revenue       float64    `json:"revenue"`
	Visits        VisitStats `json:"visits"`
	Trend         []DayCount `json:"trend"`
	GeneratedAt   time.Time  `json:"generated_at"`
}

// CatalogSnapshot is one change-feed delivery: the full collection or a failure.
type CatalogSnapshot struct {
	Products []Product
	Err      error
}

// Theme is the persisted UI preference.
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

func (t Theme) Valid() bool {
	return t == ThemeDark || t == ThemeLight
}
