package service

// SessionInput is one raw session row as delivered by a reader. Every field is
// kept as text; an empty string means the value is absent.
type SessionInput struct {
	// Line is the 1-based source row, used only for diagnostics.
	Line          int
	UserID        string
	Domain        string
	StartTime     string
	EndTime       string
	ActiveSeconds string
	RowCount      string
}

// DropReason explains why a row did not become a cleaned session.
type DropReason string

const (
	DropNone          DropReason = ""
	DropInvalidUser   DropReason = "invalid_user"
	DropInvalidDomain DropReason = "invalid_domain"
	DropMissingStart  DropReason = "missing_start"
	DropMissingEnd    DropReason = "missing_end"
)

// DropReasons lists every reason in reporting order.
var DropReasons = []DropReason{DropInvalidUser, DropInvalidDomain, DropMissingStart, DropMissingEnd}

// CleanReport describes the outcome of a cleaning pass.
type CleanReport struct {
	Total       int
	Kept        int
	Dropped     map[DropReason]int
	RepairedEnd int
	DerivedTime int
}

// DroppedTotal sums the dropped rows over all reasons.
func (r CleanReport) DroppedTotal() int {
	total := 0
	for _, n := range r.Dropped {
		total += n
	}
	return total
}
