package approval

import (
	"fmt"

	"github.com/reraeasy/quotation-engine/pkg/enums"
	pkgerrors "github.com/reraeasy/quotation-engine/pkg/errors"
	"github.com/shopspring/decimal"
)

// Approver is the user acting on a pending quotation.
type Approver struct {
	Username  string
	Role      enums.UserRole
	Threshold decimal.Decimal
}

// Authorize checks that approver may decide on a quotation with the given effective
// discount. Managers are limited to their own threshold; admins are not limited.
func Authorize(approver Approver, effectiveDiscount decimal.Decimal) error {
	if !approver.Role.CanApprove() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only admin or manager can approve quotations")
	}
	if approver.Role == enums.UserRoleManager && effectiveDiscount.GreaterThan(approver.Threshold) {
		return pkgerrors.New(pkgerrors.CodeForbidden,
			fmt.Sprintf("approval requires admin (limit %s%%)", approver.Threshold.String())).
			WithDetails(map[string]any{
				"threshold":         approver.Threshold.String(),
				"effectiveDiscount": effectiveDiscount.String(),
			})
	}
	return nil
}

// Outcome maps an approval action onto the resulting status.
func Outcome(action enums.ApprovalAction) enums.QuotationStatus {
	if action == enums.ApprovalActionApprove {
		return enums.QuotationStatusCompleted
	}
	return enums.QuotationStatusRejected
}
