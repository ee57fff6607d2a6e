package service

import "github.com/vanshika/internet-atlas/backend/internal/domain"

// BuildNodeStats computes visit counts and active time per domain. Every
// session counts as one visit, so a user returning to a domain counts again.
func BuildNodeStats(sessions []domain.CleanedSession) domain.NodeStats {
	stats := make(map[domain.Domain]domain.DomainStats)
	for _, s := range sessions {
		st := stats[s.Domain]
		st.VisitCount++
		st.TotalTimeSpent += s.ActiveSeconds
		stats[s.Domain] = st
	}
	for d, st := range stats {
		st.AvgTimePerVisit = st.TotalTimeSpent / float64(st.VisitCount)
		stats[d] = st
	}

	// The two role views are not computed separately yet.
	return domain.NodeStats{
		ByOrigin: stats,
		ByTarget: stats,
	}
}
