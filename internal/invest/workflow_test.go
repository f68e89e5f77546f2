package invest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bgoutham/limited/pkg/api/client"
)

type fakeSubmitter struct {
	mu     sync.Mutex
	calls  int
	fundID string
	amount float64
	err    error
	block  chan struct{}
}

func (f *fakeSubmitter) CreateInvestment(ctx context.Context, fundID string, amount float64) (client.Investment, error) {
	f.mu.Lock()
	f.calls++
	f.fundID = fundID
	f.amount = amount
	err := f.err
	block := f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	if err != nil {
		return client.Investment{}, err
	}
	return client.Investment{ID: "inv-1", FundID: fundID, Amount: amount, Status: client.InvestmentPending}, nil
}

func testFund() client.Fund {
	return client.Fund{ID: "fund-1", Name: "Growth Fund I", Symbol: "GFI", MinInvestment: 10000}
}

func TestNewPrefillsMinimum(t *testing.T) {
	wf := New(testFund(), &fakeSubmitter{})
	defer wf.Close()
	if wf.Amount() != "10000" {
		t.Fatalf("expected prefilled minimum, got %q", wf.Amount())
	}
	if wf.Phase() != PhaseEditing {
		t.Fatalf("expected editing phase, got %v", wf.Phase())
	}
}

func TestSubmitRejectsUnparsableAmount(t *testing.T) {
	sub := &fakeSubmitter{}
	wf := New(testFund(), sub)
	defer wf.Close()

	for _, input := range []string{"abc", "", "12x", "-100", "0"} {
		wf.SetAmount(input)
		if err := wf.Submit(context.Background()); err != nil {
			t.Fatalf("validation failure must not return an error, got %v", err)
		}
		if wf.Phase() != PhaseEditing {
			t.Fatalf("amount %q: expected editing phase, got %v", input, wf.Phase())
		}
		if wf.Err() != "Please enter a valid investment amount" {
			t.Fatalf("amount %q: unexpected message %q", input, wf.Err())
		}
	}
	if sub.calls != 0 {
		t.Fatalf("invalid input must not reach the backend, got %d calls", sub.calls)
	}
}

func TestSubmitRejectsBelowMinimum(t *testing.T) {
	sub := &fakeSubmitter{}
	wf := New(testFund(), sub)
	defer wf.Close()

	wf.SetAmount("9999")
	if err := wf.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if wf.Err() != "Minimum investment amount is $10,000" {
		t.Fatalf("unexpected message %q", wf.Err())
	}
	if sub.calls != 0 {
		t.Fatalf("below-minimum input must not reach the backend")
	}
	// The entered amount stays put for correction.
	if wf.Amount() != "9999" {
		t.Fatalf("amount should be preserved, got %q", wf.Amount())
	}
}

func TestSubmitAcceptsFormattedAmount(t *testing.T) {
	sub := &fakeSubmitter{}
	wf := New(testFund(), sub)
	defer wf.Close()

	wf.SetAmount("$25,000")
	if err := wf.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if wf.Phase() != PhaseSucceeded {
		t.Fatalf("expected success, got %v (%s)", wf.Phase(), wf.Err())
	}
	if sub.amount != 25000 {
		t.Fatalf("unexpected submitted amount %v", sub.amount)
	}
	if sub.fundID != "fund-1" {
		t.Fatalf("unexpected fund id %q", sub.fundID)
	}
}

func TestSubmitSuccessResetsAmount(t *testing.T) {
	wf := New(testFund(), &fakeSubmitter{})
	defer wf.Close()

	wf.SetAmount("50000")
	if err := wf.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if wf.Amount() != "10000" {
		t.Fatalf("amount should reset to the minimum, got %q", wf.Amount())
	}
	inv, ok := wf.Result()
	if !ok || inv.ID != "inv-1" {
		t.Fatalf("expected result, got %+v ok=%t", inv, ok)
	}
}

func TestSubmitBackendRejectionPreservesAmount(t *testing.T) {
	sub := &fakeSubmitter{err: client.APIError{Status: 400, Message: "Investment amount is below the fund minimum"}}
	wf := New(testFund(), sub)
	defer wf.Close()

	wf.SetAmount("15000")
	err := wf.Submit(context.Background())
	if err == nil {
		t.Fatalf("expected error")
	}
	if wf.Phase() != PhaseEditing {
		t.Fatalf("expected return to editing, got %v", wf.Phase())
	}
	if wf.Err() != "Investment amount is below the fund minimum" {
		t.Fatalf("backend reason should surface verbatim, got %q", wf.Err())
	}
	if wf.Amount() != "15000" {
		t.Fatalf("amount should be preserved for retry, got %q", wf.Amount())
	}
}

func TestSubmitTransportFailureUsesGenericMessage(t *testing.T) {
	sub := &fakeSubmitter{err: errors.New("connection refused")}
	wf := New(testFund(), sub)
	defer wf.Close()

	if err := wf.Submit(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if wf.Err() != "Failed to process your investment. Please try again." {
		t.Fatalf("unexpected message %q", wf.Err())
	}
}

func TestSubmitWhileInFlight(t *testing.T) {
	block := make(chan struct{})
	sub := &fakeSubmitter{block: block}
	wf := New(testFund(), sub)
	defer wf.Close()

	done := make(chan error, 1)
	go func() { done <- wf.Submit(context.Background()) }()

	// Wait for the first submission to reach the backend.
	deadline := time.After(2 * time.Second)
	for {
		if wf.Phase() == PhaseSubmitting {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("first submission never reached the submitting phase")
		case <-time.After(time.Millisecond):
		}
	}

	if err := wf.Submit(context.Background()); !errors.Is(err, ErrSubmissionInFlight) {
		t.Fatalf("expected ErrSubmissionInFlight, got %v", err)
	}
	close(block)
	if err := <-done; err != nil {
		t.Fatalf("first submit: %v", err)
	}
}

func TestHandoffNavigatesAfterDelay(t *testing.T) {
	navigated := make(chan string, 1)
	wf := New(testFund(), &fakeSubmitter{},
		WithRedirectDelay(10*time.Millisecond),
		WithNavigator(func(path string) { navigated <- path }))
	defer wf.Close()

	if err := wf.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	select {
	case path := <-navigated:
		if path != PortfolioPath {
			t.Fatalf("unexpected hand-off destination %q", path)
		}
	case <-time.After(time.Second):
		t.Fatalf("hand-off never fired")
	}
}

func TestCloseCancelsPendingHandoff(t *testing.T) {
	navigated := make(chan string, 1)
	wf := New(testFund(), &fakeSubmitter{},
		WithRedirectDelay(50*time.Millisecond),
		WithNavigator(func(path string) { navigated <- path }))

	if err := wf.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	wf.Close()

	select {
	case path := <-navigated:
		t.Fatalf("hand-off fired after close: %q", path)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestSubmitAfterClose(t *testing.T) {
	wf := New(testFund(), &fakeSubmitter{})
	wf.Close()
	if err := wf.Submit(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
