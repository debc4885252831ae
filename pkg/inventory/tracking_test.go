package inventory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trackingState() *State {
	s := NewState()
	s.Movements = []Movement{
		{ID: "M1", ProductID: "A", Type: MovementTypePurchase, CreatedAt: testTime, ReferenceID: "PUR-1"},
		{ID: "M2", ProductID: "B", Type: MovementTypePurchase, CreatedAt: testTime.Add(time.Hour), ReferenceID: "PUR-2"},
		{ID: "M3", ProductID: "A", Type: MovementTypeSale, CreatedAt: testTime.Add(2 * time.Hour), ReferenceID: "INV-1"},
		{ID: "M4", ProductID: "A", Type: MovementTypeManufacturingIn, CreatedAt: testTime.Add(2 * time.Hour), ReferenceID: "MFG-1"},
		{ID: "M5", ProductID: "C", Type: MovementTypeManufacturingOut, CreatedAt: testTime.Add(2 * time.Hour), ReferenceID: "MFG-1"},
	}
	s.Purchases = []PurchaseRecord{{ID: "PUR-1", VendorID: "V1"}, {ID: "PUR-2", VendorID: "V2"}}
	s.Sales = []Sale{{ID: "INV-1", CustomerID: "C1"}, {ID: "INV-2"}}
	s.Claims = []ManufacturingClaim{{ID: "CLM-1", Status: ClaimStatusPending}, {ID: "CLM-2", Status: ClaimStatusResolved}}
	return s
}

func TestMovementHistory(t *testing.T) {
	s := trackingState()

	history := s.MovementHistory("A", 0)
	require.Len(t, history, 3)
	// 同時刻は後に記録されたものが先
	assert.Equal(t, "M4", history[0].ID)
	assert.Equal(t, "M3", history[1].ID)
	assert.Equal(t, "M1", history[2].ID)

	limited := s.MovementHistory("A", 2)
	assert.Len(t, limited, 2)

	all := s.MovementHistory("", 0)
	require.Len(t, all, 5)
	assert.Equal(t, "M5", all[0].ID)

	assert.Empty(t, s.MovementHistory("NONE", 10))
}

func TestMovementsByDateRange(t *testing.T) {
	s := trackingState()

	got, err := s.MovementsByDateRange("A", testTime, testTime.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "M1", got[0].ID)

	got, err = s.MovementsByDateRange("", testTime.Add(time.Hour), testTime.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Len(t, got, 4)

	_, err = s.MovementsByDateRange("A", testTime, testTime.Add(-time.Hour))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRecordQueries(t *testing.T) {
	s := trackingState()

	assert.Len(t, s.MovementsByReference("MFG-1"), 2)
	assert.Len(t, s.PurchasesByVendor("V1"), 1)
	assert.Len(t, s.SalesByCustomer("C1"), 1)
	assert.Len(t, s.SalesByCustomer(""), 1)

	pending := s.PendingClaims()
	require.Len(t, pending, 1)
	assert.Equal(t, "CLM-1", pending[0].ID)

	resolved := s.ClaimsByStatus(ClaimStatusResolved)
	require.Len(t, resolved, 1)
	assert.Equal(t, "CLM-2", resolved[0].ID)
	assert.Len(t, s.ClaimsByStatus(""), 2)
}
