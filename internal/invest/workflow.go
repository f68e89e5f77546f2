// Package invest drives the per-fund submission sequence: collect and
// validate an amount, submit it, then either hand off to the portfolio view
// or return control to the form for another attempt.
package invest

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bgoutham/limited/internal/money"
	"github.com/bgoutham/limited/pkg/api/client"
)

// Phase is the workflow's current position in the submission sequence.
type Phase int

const (
	PhaseEditing Phase = iota
	PhaseValidating
	PhaseSubmitting
	PhaseSucceeded
)

func (p Phase) String() string {
	switch p {
	case PhaseEditing:
		return "editing"
	case PhaseValidating:
		return "validating"
	case PhaseSubmitting:
		return "submitting"
	case PhaseSucceeded:
		return "succeeded"
	default:
		return "unknown"
	}
}

// PortfolioPath is the post-success hand-off destination.
const PortfolioPath = "/portfolio"

// DefaultRedirectDelay leaves the success message readable before the
// portfolio hand-off.
const DefaultRedirectDelay = 3 * time.Second

const (
	msgInvalidAmount = "Please enter a valid investment amount"
	msgGenericRetry  = "Failed to process your investment. Please try again."
)

// ErrSubmissionInFlight is returned when Submit is called while a previous
// submission is still awaiting the backend.
var ErrSubmissionInFlight = errors.New("submission already in flight")

// ErrClosed is returned when the owning view has been torn down.
var ErrClosed = errors.New("workflow closed")

// Submitter sends the commitment to the authority of record. *client.Client
// satisfies it; the bearer token is attached by the session at call time.
type Submitter interface {
	CreateInvestment(ctx context.Context, fundID string, amount float64) (client.Investment, error)
}

// Option customises a Workflow.
type Option func(*Workflow)

// WithRedirectDelay overrides the post-success hand-off delay.
func WithRedirectDelay(d time.Duration) Option {
	return func(w *Workflow) { w.delay = d }
}

// WithNavigator installs the navigation callback invoked after a successful
// submission, once the redirect delay elapses. Without one, no hand-off is
// scheduled.
func WithNavigator(fn func(path string)) Option {
	return func(w *Workflow) { w.navigate = fn }
}

// Workflow is the submission state machine for one fund-detail view
// instance. Discard it with Close when the view goes away; any pending
// portfolio hand-off is cancelled.
type Workflow struct {
	fund      client.Fund
	submitter Submitter
	delay     time.Duration
	navigate  func(path string)

	mu     sync.Mutex
	amount string
	phase  Phase
	errMsg string
	result client.Investment
	timer  *time.Timer
	closed bool
}

// New builds a Workflow in the editing phase with the amount pre-filled to
// the fund's minimum.
func New(fund client.Fund, submitter Submitter, opts ...Option) *Workflow {
	w := &Workflow{
		fund:      fund,
		submitter: submitter,
		delay:     DefaultRedirectDelay,
		amount:    strconv.FormatInt(fund.MinInvestment, 10),
		phase:     PhaseEditing,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Fund returns the fund this workflow submits against.
func (w *Workflow) Fund() client.Fund { return w.fund }

// Amount returns the current raw amount input.
func (w *Workflow) Amount() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.amount
}

// SetAmount replaces the raw amount input.
func (w *Workflow) SetAmount(input string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.amount = input
}

// Phase reports the workflow's current phase.
func (w *Workflow) Phase() Phase {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.phase
}

// Err returns the message to surface inline, empty when there is none.
func (w *Workflow) Err() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.errMsg
}

// Result returns the investment the backend created, valid once the phase
// is succeeded.
func (w *Workflow) Result() (client.Investment, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.result, w.phase == PhaseSucceeded
}

// Submit runs one attempt through the machine. Invalid input keeps the
// phase in editing with an inline message and issues no network call.
// Backend rejection also returns to editing, preserving the entered amount
// so it can be corrected and resubmitted. On success the amount resets to
// the fund minimum and a portfolio hand-off is scheduled.
func (w *Workflow) Submit(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrClosed
	}
	if w.phase == PhaseSubmitting {
		w.mu.Unlock()
		return ErrSubmissionInFlight
	}
	w.phase = PhaseValidating
	w.errMsg = ""

	amount, ok := w.validateLocked()
	if !ok {
		w.phase = PhaseEditing
		w.mu.Unlock()
		return nil
	}
	w.phase = PhaseSubmitting
	fundID := w.fund.ID
	w.mu.Unlock()

	value, _ := amount.Float64()
	inv, err := w.submitter.CreateInvestment(ctx, fundID, value)

	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		w.phase = PhaseEditing
		w.errMsg = failureMessage(err)
		return err
	}
	w.phase = PhaseSucceeded
	w.errMsg = ""
	w.result = inv
	w.amount = strconv.FormatInt(w.fund.MinInvestment, 10)
	w.scheduleHandoffLocked()
	return nil
}

// validateLocked applies the validation rules in order; the first failing
// rule wins and sets the inline message.
func (w *Workflow) validateLocked() (decimal.Decimal, bool) {
	amount, err := money.ParseAmount(w.amount)
	if err != nil || !amount.IsPositive() {
		w.errMsg = msgInvalidAmount
		return decimal.Decimal{}, false
	}
	if amount.LessThan(decimal.NewFromInt(w.fund.MinInvestment)) {
		w.errMsg = "Minimum investment amount is " + money.FormatUSDInt(w.fund.MinInvestment)
		return decimal.Decimal{}, false
	}
	return amount, true
}

func (w *Workflow) scheduleHandoffLocked() {
	if w.navigate == nil {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.delay, func() {
		w.mu.Lock()
		cancelled := w.closed
		w.mu.Unlock()
		if !cancelled {
			w.navigate(PortfolioPath)
		}
	})
}

// Close tears the workflow down with its owning view. A scheduled portfolio
// hand-off that has not fired yet is cancelled; Close after the hand-off is
// a no-op.
func (w *Workflow) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

// failureMessage surfaces the backend's reason when it sent one, otherwise
// the generic retry copy. Transport errors read the same as rejections.
func failureMessage(err error) string {
	var apiErr client.APIError
	if client.AsAPIError(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return msgGenericRetry
}
