package workflow

// Status is a request status. Each request kind accepts a closed subset of these values,
// declared by its resolver's transition table.
type Status string

const (
	StatusNotYetSubmitted Status = "not_yet_submitted"
	StatusPendingManager  Status = "pending_manager"
	StatusPendingHR       Status = "pending_hr"
	StatusPendingFinance  Status = "pending_finance"
	StatusApproved        Status = "approved"
	StatusRejected        Status = "rejected"
	StatusWithdrawn       Status = "withdrawn"
)

var validStatuses = map[Status]bool{
	StatusNotYetSubmitted: true,
	StatusPendingManager:  true,
	StatusPendingHR:       true,
	StatusPendingFinance:  true,
	StatusApproved:        true,
	StatusRejected:        true,
	StatusWithdrawn:       true,
}

var terminalStatuses = map[Status]bool{
	StatusApproved:  true,
	StatusRejected:  true,
	StatusWithdrawn: true,
}

// IsTerminal returns true if the status accepts no further decisions or withdrawal
func (s Status) IsTerminal() bool {
	return terminalStatuses[s]
}

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// IsValid returns true if the status is a known status
func (s Status) IsValid() bool {
	return validStatuses[s]
}

// Kind identifies a request type
type Kind string

const (
	KindLeave          Kind = "leave"
	KindCashAdvance    Kind = "cash_advance"
	KindReimbursement  Kind = "reimbursement"
	KindCarReservation Kind = "car_reservation"
)

// ModuleSlug returns the permission module that gates approvals for the kind
func (k Kind) ModuleSlug() string {
	switch k {
	case KindLeave:
		return "leave_requests"
	case KindCashAdvance:
		return "cash_advances"
	case KindReimbursement:
		return "reimbursements"
	case KindCarReservation:
		return "car_reservations"
	default:
		return string(k)
	}
}

// Department is an organizational role that records one decision per request.
// DepartmentEmployee is the requester acting on their own unsubmitted request.
type Department string

const (
	DepartmentEmployee Department = "employee"
	DepartmentManager  Department = "manager"
	DepartmentHR       Department = "hr"
	DepartmentFinance  Department = "finance"
)

var departmentCapabilities = map[Department]string{
	DepartmentManager: "canApproveAsManager",
	DepartmentHR:      "canApproveAsHR",
	DepartmentFinance: "canApproveAsFinance",
}

// Capability returns the capability flag that lets an actor decide for the department
func (d Department) Capability() string {
	return departmentCapabilities[d]
}

// Stage is the party currently eligible to act on a request
type Stage string

const (
	StageEmployee Stage = "employee"
	StageManager  Stage = "manager"
	StageHR       Stage = "hr"
	StageFinance  Stage = "finance"
	StageTerminal Stage = "terminal"
)

// Department returns the department acting at this stage, empty for the terminal stage
func (s Stage) Department() Department {
	if s == StageTerminal {
		return ""
	}
	return Department(s)
}

// StageOf returns the stage at which the department acts
func StageOf(d Department) Stage {
	return Stage(d)
}

// Capabilities is the set of capability flags granted to an actor for one module
type Capabilities map[string]bool

// Grants returns true if the capabilities allow deciding for the department
func (c Capabilities) Grants(d Department) bool {
	name := d.Capability()
	if name == "" {
		return false
	}
	return c[name]
}
