// Package analytics computes read-only views over a snapshot of issues.
// Nothing here mutates its input or holds state.
package analytics

import (
	"strings"

	"civicsync/models"
)

// Filter returns the issues matching every active criterion, in input order.
func Filter(issues []models.Issue, criteria models.IssueFilters) []models.Issue {
	query := strings.ToLower(criteria.Query)

	out := make([]models.Issue, 0, len(issues))
	for _, issue := range issues {
		if criteria.Status != "" && criteria.Status != models.FilterAll &&
			string(issue.Status) != criteria.Status {
			continue
		}
		if criteria.Category != "" && criteria.Category != models.FilterAll &&
			string(issue.Category) != criteria.Category {
			continue
		}
		if query != "" && !matchesQuery(issue, query) {
			continue
		}
		out = append(out, issue)
	}
	return out
}

func matchesQuery(issue models.Issue, lowered string) bool {
	return strings.Contains(strings.ToLower(issue.Title), lowered) ||
		strings.Contains(strings.ToLower(issue.Description), lowered) ||
		strings.Contains(strings.ToLower(issue.Location), lowered)
}

// Paginate slices one page out of issues. Out-of-range inputs fall back to
// page 1 and a limit of 10, the feed defaults.
func Paginate(issues []models.Issue, page, limit int) (pageItems []models.Issue, totalPages int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	totalPages = (len(issues) + limit - 1) / limit
	start := (page - 1) * limit
	if start >= len(issues) {
		return []models.Issue{}, totalPages
	}
	end := min(start+limit, len(issues))
	return issues[start:end], totalPages
}
