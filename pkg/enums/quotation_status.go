package enums

import "fmt"

// QuotationStatus mirrors the status column of a quotation record.
type QuotationStatus string

const (
	QuotationStatusDraft           QuotationStatus = "draft"
	QuotationStatusPendingApproval QuotationStatus = "pending_approval"
	QuotationStatusCompleted       QuotationStatus = "completed"
	QuotationStatusRejected        QuotationStatus = "rejected"
)

var validQuotationStatuses = []QuotationStatus{
	QuotationStatusDraft,
	QuotationStatusPendingApproval,
	QuotationStatusCompleted,
	QuotationStatusRejected,
}

func (s QuotationStatus) String() string { return string(s) }

// IsValid reports whether the value matches the canonical quotation status enum.
func (s QuotationStatus) IsValid() bool {
	for _, candidate := range validQuotationStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// AllowsDownload reports whether a PDF may be generated in this status.
func (s QuotationStatus) AllowsDownload() bool {
	return s != QuotationStatusPendingApproval && s != QuotationStatusRejected
}

// ParseQuotationStatus converts the raw string to QuotationStatus.
func ParseQuotationStatus(value string) (QuotationStatus, error) {
	for _, candidate := range validQuotationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid quotation status %q", value)
}
