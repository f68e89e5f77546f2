package portfolio

import (
	"testing"

	"github.com/bgoutham/limited/pkg/api/client"
)

func TestAggregate(t *testing.T) {
	investments := []client.Investment{
		{Amount: 100, Status: client.InvestmentCompleted},
		{Amount: 50, Status: client.InvestmentPending},
		{Amount: 30, Status: client.InvestmentFailed},
	}
	s := Aggregate(investments)
	if s.Total != 180 {
		t.Fatalf("Total = %v, want 180 (failed amounts still count)", s.Total)
	}
	if s.ActiveCount != 1 {
		t.Fatalf("ActiveCount = %d, want 1", s.ActiveCount)
	}
	if s.PendingTotal != 50 {
		t.Fatalf("PendingTotal = %v, want 50", s.PendingTotal)
	}
}

func TestAggregateEmpty(t *testing.T) {
	s := Aggregate(nil)
	if s.Total != 0 || s.ActiveCount != 0 || s.PendingTotal != 0 {
		t.Fatalf("empty aggregate should be zero, got %+v", s)
	}
}
