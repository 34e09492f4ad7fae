package models

// IssueFilters narrows a derived view. Empty or "all" selectors match
// everything.
type IssueFilters struct {
	Query    string `form:"query" json:"query,omitempty"`
	Status   string `form:"status" json:"status,omitempty"`
	Category string `form:"category" json:"category,omitempty"`
}

// FilterAll is the selector value that disables a status or category filter.
const FilterAll = "all"

// DashboardStats is recomputed on every call and never persisted.
type DashboardStats struct {
	Total              int                   `json:"total"`
	ByStatus           map[IssueStatus]int   `json:"byStatus"`
	ByCategory         map[IssueCategory]int `json:"byCategory"`
	AvgResolutionHours *float64              `json:"avgResolutionHours"`
}

// DailyCount is the number of issues created on one UTC day.
type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// VotedIssue is the projection used by the top-voted listing.
type VotedIssue struct {
	ID       string        `json:"id"`
	Title    string        `json:"title"`
	Category IssueCategory `json:"category"`
	Votes    int           `json:"votes"`
}

// IssueAnalytics extends the dashboard statistics with the authority
// dashboard's trend and ranking panels.
type IssueAnalytics struct {
	DashboardStats
	Last7Days  []DailyCount `json:"last7Days"`
	TopVoted   []VotedIssue `json:"topVotedIssues"`
	OpenIssues int          `json:"openIssues"`
}
