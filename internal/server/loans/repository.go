package loans

import "context"

type Repository interface {
	// Create inserts the loan and fills in its id.
	Create(ctx context.Context, l *Loan) error

	// Get returns the loan or common.ErrLoanNotFound.
	Get(ctx context.Context, id int64) (*Loan, error)

	// Update persists lender, status, start time and repaid amount.
	Update(ctx context.Context, l *Loan) error

	// ListByBorrower returns the borrower's loans, newest first.
	ListByBorrower(ctx context.Context, borrower string) ([]*Loan, error)

	// AppendEvent records an audit entry.
	AppendEvent(ctx context.Context, e *Event) error

	// Events returns the loan's audit trail, oldest first.
	Events(ctx context.Context, loanID int64) ([]*Event, error)
}
