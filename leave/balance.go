/*
balance.go - Yearly leave-credit balance

PURPOSE:
  Answers "how many general-commander leaves may this officer still take
  in year Y?". Nothing is stored; the balance is derived on every call:

    credits(o, y)  = Σ ledger deltas for (o, y)
    consumed(o, y) = # records of o dated in y that are
                     VALIDATED_BY_ADMIN + ACTIVE + general_commander
    balance(o, y)  = credits - consumed

  Because consumed is derived from record state, exchanging or deleting a
  validated leave gives the credit back, and restoring it takes it again,
  without any ledger write.

GATING:
  CanRequest is consulted when a credit-consuming leave is created.
  balance > 0                    → ok
  balance <= 0, override allowed → ok with warning
  balance <= 0, no override      → *generic.BalanceError

SEE ALSO:
  - generic/ledger.go: credit entries
  - workflow.go: Create runs CanRequest inside the insert transaction
*/
package leave

import (
	"context"
	"fmt"

	"github.com/warp/leave-engine/generic"
)

// Balance is the computed balance of one officer for one year.
type Balance struct {
	OfficerID string `json:"officer_id"`
	Year      int    `json:"year"`
	Credits   int    `json:"credits"`
	Consumed  int    `json:"consumed"`
}

// Available returns credits minus consumed.
func (b Balance) Available() int {
	return b.Credits - b.Consumed
}

// BalanceCheck is the outcome of a successful CanRequest.
type BalanceCheck struct {
	Balance    Balance `json:"balance"`
	Overridden bool    `json:"overridden"`
}

// Warning describes an accepted override, or "" when none was needed.
func (c *BalanceCheck) Warning() string {
	if c == nil || !c.Overridden {
		return ""
	}
	return fmt.Sprintf("no balance for year %d (balance %d); accepted by override",
		c.Balance.Year, c.Balance.Available())
}

// =============================================================================
// BALANCE CALCULATOR
// =============================================================================

type BalanceCalculator struct {
	Ledger generic.LedgerStore
	Leaves Store
}

// Credits returns the sum of ledger deltas for officer+year.
func (bc *BalanceCalculator) Credits(ctx context.Context, officerID string, year int) (int, error) {
	entries, err := bc.Ledger.Entries(ctx, officerID, year)
	if err != nil {
		return 0, fmt.Errorf("failed to load ledger entries: %w", err)
	}
	return generic.SumCredits(entries), nil
}

// Consumed counts the credit-consuming records of officer dated in year.
func (bc *BalanceCalculator) Consumed(ctx context.Context, officerID string, year int) (int, error) {
	records, err := bc.Leaves.ListLeaves(ctx, Filter{
		OfficerID: officerID,
		Year:      year,
		Approvals: []Approval{ApprovalValidatedByAdmin},
		Statuses:  []Status{StatusActive},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to load leave records: %w", err)
	}
	consumed := 0
	for _, r := range records {
		if r.OfficerID == officerID && r.Date.Year() == year && r.ConsumesCredit() {
			consumed++
		}
	}
	return consumed, nil
}

// Balance computes credits - consumed for officer+year.
func (bc *BalanceCalculator) Balance(ctx context.Context, officerID string, year int) (Balance, error) {
	credits, err := bc.Credits(ctx, officerID, year)
	if err != nil {
		return Balance{}, err
	}
	consumed, err := bc.Consumed(ctx, officerID, year)
	if err != nil {
		return Balance{}, err
	}
	return Balance{OfficerID: officerID, Year: year, Credits: credits, Consumed: consumed}, nil
}

// CanRequest decides whether a credit-consuming leave on date may be created.
func (bc *BalanceCalculator) CanRequest(ctx context.Context, officerID string, date generic.Date, allowOverride bool) (*BalanceCheck, error) {
	balance, err := bc.Balance(ctx, officerID, date.Year())
	if err != nil {
		return nil, err
	}
	if balance.Available() > 0 {
		return &BalanceCheck{Balance: balance}, nil
	}
	if allowOverride {
		return &BalanceCheck{Balance: balance, Overridden: true}, nil
	}
	return nil, &generic.BalanceError{
		OfficerID: officerID,
		Year:      balance.Year,
		Balance:   balance.Available(),
	}
}
