// Package portfolio derives the summary figures shown above the
// investments table. Pure computation over whatever the backend returned.
package portfolio

import "github.com/bgoutham/limited/pkg/api/client"

// Summary holds the three headline figures of the portfolio view.
type Summary struct {
	// Total is the sum of every investment's amount, regardless of status.
	// Failed commitments deliberately count here and nowhere else.
	Total float64
	// ActiveCount is the number of completed investments.
	ActiveCount int
	// PendingTotal is the sum of amounts still pending.
	PendingTotal float64
}

// Aggregate computes the summary over the caller's investments.
func Aggregate(investments []client.Investment) Summary {
	var s Summary
	for _, inv := range investments {
		s.Total += inv.Amount
		switch inv.Status {
		case client.InvestmentCompleted:
			s.ActiveCount++
		case client.InvestmentPending:
			s.PendingTotal += inv.Amount
		}
	}
	return s
}
