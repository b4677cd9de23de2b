package requests

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/employee-requests/internal/domain/workflow"
)

var cent = decimal.New(1, -2)

// IsWholeCents reports whether amount carries no fraction of a cent
func IsWholeCents(amount decimal.Decimal) bool {
	return amount.Equal(amount.Truncate(2))
}

// BuildSchedule splits total into n monthly installments due on the first day of each
// month following from. Amounts are truncated to cents and the last installment takes the
// remainder, so the schedule always sums to total.
func BuildSchedule(total decimal.Decimal, n int, from time.Time) ([]workflow.Installment, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: number of installments must be positive, got %d", workflow.ErrInvalidDecision, n)
	}
	if !total.IsPositive() {
		return nil, fmt.Errorf("%w: installment total must be positive, got %s", workflow.ErrInvalidDecision, total)
	}

	if !IsWholeCents(total) {
		return nil, fmt.Errorf("%w: installment total %s has fractions of a cent", workflow.ErrInvalidDecision, total)
	}
	count := decimal.NewFromInt(int64(n))
	if total.LessThan(cent.Mul(count)) {
		return nil, fmt.Errorf("%w: %s cannot be split into %d installments", workflow.ErrInvalidDecision, total.StringFixed(2), n)
	}

	per := total.DivRound(count, 8).Truncate(2)
	last := total.Sub(per.Mul(decimal.NewFromInt(int64(n - 1))))

	schedule := make([]workflow.Installment, n)
	for i := 0; i < n; i++ {
		amount := per
		if i == n-1 {
			amount = last
		}
		schedule[i] = workflow.Installment{
			Sequence: i + 1,
			DueDate:  time.Date(from.Year(), from.Month()+time.Month(i+1), 1, 0, 0, 0, 0, from.Location()),
			Amount:   amount,
			IsPaid:   false,
		}
	}
	return schedule, nil
}

// ScheduleTotal sums the installment amounts
func ScheduleTotal(schedule []workflow.Installment) decimal.Decimal {
	total := decimal.Zero
	for _, inst := range schedule {
		total = total.Add(inst.Amount)
	}
	return total
}
