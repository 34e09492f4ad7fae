package analytics

import (
	"math"
	"sort"
	"time"

	"civicsync/models"
)

// Aggregate counts issues by status and category and averages resolution
// time over resolved issues. Every status and category key is present.
func Aggregate(issues []models.Issue) models.DashboardStats {
	stats := models.DashboardStats{
		Total:      len(issues),
		ByStatus:   make(map[models.IssueStatus]int, len(models.Statuses)),
		ByCategory: make(map[models.IssueCategory]int, len(models.Categories)),
	}
	for _, s := range models.Statuses {
		stats.ByStatus[s] = 0
	}
	for _, c := range models.Categories {
		stats.ByCategory[c] = 0
	}

	var totalHours float64
	var resolved int
	for _, issue := range issues {
		stats.ByStatus[issue.Status]++
		stats.ByCategory[issue.Category]++

		if issue.Status == models.StatusResolved {
			totalHours += ResolutionTime(issue).Hours()
			resolved++
		}
	}

	if resolved > 0 {
		avg := math.Round(totalHours/float64(resolved)*10) / 10
		stats.AvgResolutionHours = &avg
	}
	return stats
}

// ResolutionTime measures from creation to resolvedAt, falling back to
// updatedAt for records persisted before resolvedAt existed.
func ResolutionTime(issue models.Issue) time.Duration {
	end := issue.UpdatedAt
	if issue.ResolvedAt != nil {
		end = *issue.ResolvedAt
	}
	return end.Sub(issue.CreatedAt)
}

// LastNDays counts issues created on each of the n UTC days ending on now's
// day, oldest first. A non-positive n yields an empty series.
func LastNDays(issues []models.Issue, now time.Time, n int) []models.DailyCount {
	n = max(n, 0)
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	days := make([]models.DailyCount, 0, n)
	for i := n - 1; i >= 0; i-- {
		day := today.AddDate(0, 0, -i)
		next := day.AddDate(0, 0, 1)

		count := 0
		for _, issue := range issues {
			created := issue.CreatedAt.UTC()
			if !created.Before(day) && created.Before(next) {
				count++
			}
		}
		days = append(days, models.DailyCount{Date: day.Format("2006-01-02"), Count: count})
	}
	return days
}

// TopVoted returns up to n issues by upvotes, highest first. Ties keep their
// collection order.
func TopVoted(issues []models.Issue, n int) []models.VotedIssue {
	n = max(n, 0)
	voted := make([]models.VotedIssue, 0, len(issues))
	for _, issue := range issues {
		voted = append(voted, models.VotedIssue{
			ID:       issue.ID,
			Title:    issue.Title,
			Category: issue.Category,
			Votes:    issue.Upvotes,
		})
	}

	sort.SliceStable(voted, func(i, j int) bool {
		return voted[i].Votes > voted[j].Votes
	})

	if len(voted) > n {
		voted = voted[:n]
	}
	return voted
}

// Analytics bundles the authority dashboard panels.
func Analytics(issues []models.Issue, now time.Time) models.IssueAnalytics {
	stats := Aggregate(issues)
	return models.IssueAnalytics{
		DashboardStats: stats,
		Last7Days:      LastNDays(issues, now, 7),
		TopVoted:       TopVoted(issues, 5),
		OpenIssues:     stats.ByStatus[models.StatusNew] + stats.ByStatus[models.StatusInProgress],
	}
}
