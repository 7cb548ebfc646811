package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUserRole(t *testing.T) {
	t.Parallel()

	role, err := ParseUserRole(" Manager ")
	require.NoError(t, err)
	assert.Equal(t, UserRoleManager, role)
	assert.True(t, role.CanApprove())
	assert.False(t, UserRoleUser.CanApprove())

	_, err = ParseUserRole("owner")
	assert.Error(t, err)
}

func TestQuotationStatusDownloadGate(t *testing.T) {
	t.Parallel()

	assert.False(t, QuotationStatusPendingApproval.AllowsDownload())
	assert.False(t, QuotationStatusRejected.AllowsDownload())
	assert.True(t, QuotationStatusCompleted.AllowsDownload())
	assert.True(t, QuotationStatusDraft.AllowsDownload())

	_, err := ParseQuotationStatus("archived")
	assert.Error(t, err)
}

func TestParseDisplayMode(t *testing.T) {
	t.Parallel()

	mode, err := ParseDisplayMode("LUMPSUM")
	require.NoError(t, err)
	assert.Equal(t, DisplayModeLumpsum, mode)

	_, err = ParseDisplayMode("compact")
	assert.Error(t, err)
}

func TestParseApprovalAction(t *testing.T) {
	t.Parallel()

	action, err := ParseApprovalAction("")
	require.NoError(t, err)
	assert.Equal(t, ApprovalActionApprove, action)

	action, err = ParseApprovalAction("reject")
	require.NoError(t, err)
	assert.Equal(t, ApprovalActionReject, action)

	_, err = ParseApprovalAction("maybe")
	assert.Error(t, err)
}
