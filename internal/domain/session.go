package domain

import "time"

// Domain is a canonical hostname: lowercase, dot-separated labels of
// letters, digits and hyphens, at least two labels.
type Domain string

func (d Domain) String() string {
	return string(d)
}

// CleanedSession is a browsing session that survived validation and time repair.
// End is never before Start.
type CleanedSession struct {
	UserID        int64
	Domain        Domain
	Start         time.Time
	End           time.Time
	ActiveSeconds float64
	// RowCount is carried from the input untouched and never used in statistics.
	RowCount int
}

// Duration returns the wall-clock span between start and end.
func (s CleanedSession) Duration() time.Duration {
	return s.End.Sub(s.Start)
}
