package enums

import "fmt"

// ApprovalAction is the decision an approver submits.
type ApprovalAction string

const (
	ApprovalActionApprove ApprovalAction = "approve"
	ApprovalActionReject  ApprovalAction = "reject"
)

var validApprovalActions = []ApprovalAction{
	ApprovalActionApprove,
	ApprovalActionReject,
}

// IsValid reports whether the value matches the canonical approval action enum.
func (a ApprovalAction) IsValid() bool {
	for _, candidate := range validApprovalActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseApprovalAction converts the raw string to ApprovalAction. An empty value approves.
func ParseApprovalAction(value string) (ApprovalAction, error) {
	if value == "" {
		return ApprovalActionApprove, nil
	}
	for _, candidate := range validApprovalActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid approval action %q", value)
}
