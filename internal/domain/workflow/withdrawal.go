package workflow

import (
	"fmt"
	"time"
)

// CanWithdraw returns true if the actor owns the request, the request is still open and,
// for leave requests, the leave has not started yet
func CanWithdraw(req *Request, actorID string, now time.Time) bool {
	return CheckWithdrawal(req, actorID, now) == nil
}

// CheckWithdrawal explains why a withdrawal is refused, or returns nil
func CheckWithdrawal(req *Request, actorID string, now time.Time) error {
	if req.Status.IsTerminal() {
		return fmt.Errorf("%w: request %d is %s", ErrAlreadyTerminal, req.ID, req.Status)
	}
	if req.RequestedByID != actorID {
		return fmt.Errorf("%w: only the requester may withdraw request %d", ErrForbidden, req.ID)
	}
	if req.Kind == KindLeave {
		leave := req.Details.Leave
		if leave == nil {
			return fmt.Errorf("%w: leave request %d has no dates", ErrInvalidTransition, req.ID)
		}
		if !now.Before(leave.LeaveFrom) {
			return fmt.Errorf("%w: leave already started on %s", ErrInvalidTransition, leave.LeaveFrom.Format("2006-01-02"))
		}
	}
	return nil
}
