package api

import "time"

// Job is a single content-generation job.
type Job struct {
	ID          string     `json:"id"`
	Industry    string     `json:"industry"`
	Status      string     `json:"status"`
	Progress    int        `json:"progress"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// JobList is the payload of the job list and archived job list endpoints.
type JobList struct {
	Jobs  []Job `json:"jobs"`
	Total int   `json:"total"`
}

// EmptyJobList is the benign default broadcast when the job list cannot
// be fetched due to a permission or transient error.
func EmptyJobList() JobList {
	return JobList{Jobs: []Job{}}
}

// JobStats summarises job counts by state.
type JobStats struct {
	Queued    int `json:"queued"`
	Running   int `json:"running"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// DashboardStats is the payload of the dashboard statistics endpoint.
type DashboardStats struct {
	ActiveJobs       int     `json:"active_jobs"`
	PostsToday       int     `json:"posts_today"`
	TrendsDiscovered int     `json:"trends_discovered"`
	SuccessRate      float64 `json:"success_rate"`
}

// ServiceCost is the per-service breakdown inside a cost window.
type ServiceCost struct {
	Requests int     `json:"requests"`
	CostUSD  float64 `json:"cost_usd"`
}

// CostWindow aggregates spend over one reporting window.
type CostWindow struct {
	TotalUSD  float64                `json:"total_usd"`
	GeminiUSD float64                `json:"gemini_usd"`
	LinkupEUR float64                `json:"linkup_eur"`
	Services  map[string]ServiceCost `json:"services"`
}

// ExchangeRate is the EUR/USD rate applied when aggregating costs.
type ExchangeRate struct {
	EURToUSD  float64   `json:"eur_to_usd"`
	FetchedAt time.Time `json:"fetched_at,omitempty"`
}

// CostReport is the payload of the detailed cost analytics endpoint.
type CostReport struct {
	Today         CostWindow   `json:"today"`
	ExchangeRate  ExchangeRate `json:"exchange_rate"`
	WeeklySummary CostWindow   `json:"weekly_summary"`
}

// EmptyCostReport is the zero-filled default broadcast to cost
// subscribers who lack permission for cost analytics. Maps are non-nil
// so consumers can range over them without nil checks.
func EmptyCostReport() CostReport {
	return CostReport{
		Today:         CostWindow{Services: map[string]ServiceCost{}},
		ExchangeRate:  ExchangeRate{EURToUSD: 1.0},
		WeeklySummary: CostWindow{Services: map[string]ServiceCost{}},
	}
}

// ArchiveEligibility reports how many completed jobs are old enough to
// be archived.
type ArchiveEligibility struct {
	Eligible   int `json:"eligible"`
	CutoffDays int `json:"cutoff_days"`
}

// Post is a generated blog post.
type Post struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Industry    string    `json:"industry"`
	PublishedAt time.Time `json:"published_at"`
}

// PostList is the payload of the recent posts endpoint.
type PostList struct {
	Posts []Post `json:"posts"`
	Total int    `json:"total"`
}

// EmptyPostList is the benign default for the recent posts endpoint.
func EmptyPostList() PostList {
	return PostList{Posts: []Post{}}
}
