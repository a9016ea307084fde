package inventory_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/athena-robotics/workcell-go/internal/domain/bottle"
	"github.com/athena-robotics/workcell-go/internal/domain/inventory"
	"github.com/athena-robotics/workcell-go/internal/domain/shared"
)

func newTestInventory(t *testing.T) *inventory.Inventory {
	t.Helper()
	inv := inventory.New(shared.NewMockClock(time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)))
	require.NoError(t, inv.AddSlot(inventory.NewSlot("shelf_temp_1000_001", inventory.CategoryShelf, "shelf", bottle.Glass1000, 2)))
	require.NoError(t, inv.AddSlot(inventory.NewSlot("shelf_temp_500_001", inventory.CategoryShelf, "shelf", bottle.Glass500, 2)))
	require.NoError(t, inv.AddSlot(inventory.NewSlot("back_temp_1000_001", inventory.CategoryBackPlatform, "", bottle.Glass1000, 1)))
	require.NoError(t, inv.AddSlot(inventory.NewSlot("back_temp_1000_002", inventory.CategoryBackPlatform, "", bottle.Glass1000, 1)))
	require.NoError(t, inv.AddSlot(inventory.NewSlot("worktable_temp_001", inventory.CategoryWorktable, "worktable", "", 2)))
	require.NoError(t, inv.RegisterBottle("B1", bottle.Glass1000, bottle.HandRight, "shelf_temp_1000_001"))
	require.NoError(t, inv.RegisterBottle("B2", bottle.Glass500, bottle.HandLeft, "shelf_temp_500_001"))
	require.NoError(t, inv.BindBottle("B1", "shelf_temp_1000_001"))
	require.NoError(t, inv.BindBottle("B2", "shelf_temp_500_001"))
	return inv
}

func TestReserveAndCommitPlace(t *testing.T) {
	// Arrange
	inv := newTestInventory(t)
	require.NoError(t, inv.CommitRemove("shelf_temp_1000_001", "B1"))

	// Act
	res, err := inv.ReserveBackSlot(bottle.Glass1000, "B1")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "back_temp_1000_001", res.PoseName())

	require.NoError(t, inv.CommitPlace(res))
	slot, err := inv.Slot("back_temp_1000_001")
	require.NoError(t, err)
	assert.Equal(t, []string{"B1"}, slot.Occupants)

	view, err := inv.Bottle("B1")
	require.NoError(t, err)
	assert.Equal(t, "back_temp_1000_001", view.Location)
}

func TestReservationCountsAgainstCapacity(t *testing.T) {
	// Arrange
	inv := newTestInventory(t)
	require.NoError(t, inv.RegisterBottle("B3", bottle.Glass1000, bottle.HandRight, ""))
	require.NoError(t, inv.RegisterBottle("B4", bottle.Glass1000, bottle.HandRight, ""))
	require.NoError(t, inv.RegisterBottle("B5", bottle.Glass1000, bottle.HandRight, ""))

	// Act
	_, err1 := inv.ReserveBackSlot(bottle.Glass1000, "B3")
	_, err2 := inv.ReserveBackSlot(bottle.Glass1000, "B4")
	_, err3 := inv.ReserveBackSlot(bottle.Glass1000, "B5")

	// Assert
	require.NoError(t, err1)
	require.NoError(t, err2)
	require.Error(t, err3)
	assert.Equal(t, shared.CodePlatformOverCapacity, shared.CodeOf(err3))
}

func TestCancelReservationFreesCapacity(t *testing.T) {
	// Arrange
	inv := newTestInventory(t)
	require.NoError(t, inv.RegisterBottle("B3", bottle.Glass1000, bottle.HandRight, ""))
	res, err := inv.Reserve("back_temp_1000_001", "B3")
	require.NoError(t, err)

	// Act
	inv.CancelReservation(res)

	// Assert
	slot, err := inv.Slot("back_temp_1000_001")
	require.NoError(t, err)
	assert.Equal(t, 1, slot.Free)

	// A second cancel is a no-op
	inv.CancelReservation(res)
	slot, _ = inv.Slot("back_temp_1000_001")
	assert.Equal(t, 1, slot.Free)
}

func TestReserveTypeMismatch(t *testing.T) {
	// Arrange
	inv := newTestInventory(t)

	// Act
	_, err := inv.Reserve("back_temp_1000_001", "B2")

	// Assert
	require.Error(t, err)
	assert.Equal(t, shared.CodeTypeMismatch, shared.CodeOf(err))
}

func TestReserveUnknownSlotAndBottle(t *testing.T) {
	inv := newTestInventory(t)

	_, err := inv.Reserve("no_such_pose", "B1")
	assert.Equal(t, shared.CodeSlotNotFound, shared.CodeOf(err))

	_, err = inv.Reserve("back_temp_1000_001", "ghost")
	assert.Equal(t, shared.CodeBottleNotFound, shared.CodeOf(err))
}

func TestUntypedSlotAcceptsAnyFamily(t *testing.T) {
	// Arrange
	inv := newTestInventory(t)
	require.NoError(t, inv.CommitRemove("shelf_temp_500_001", "B2"))

	// Act
	res, err := inv.Reserve("worktable_temp_001", "B2")

	// Assert
	require.NoError(t, err)
	require.NoError(t, inv.CommitPlace(res))
	slot, _ := inv.Slot("worktable_temp_001")
	assert.Equal(t, []string{"B2"}, slot.Occupants)
}

func TestCommitPlaceRejectsDoubleLocation(t *testing.T) {
	// Arrange: B1 is still bound to its shelf slot
	inv := newTestInventory(t)
	res, err := inv.Reserve("back_temp_1000_001", "B1")
	require.NoError(t, err)

	// Act
	err = inv.CommitPlace(res)

	// Assert
	require.Error(t, err)
	assert.Equal(t, shared.CodeInternal, shared.CodeOf(err))
}

func TestBackPlatformFreeCounts(t *testing.T) {
	// Arrange
	inv := newTestInventory(t)
	require.NoError(t, inv.CommitRemove("shelf_temp_1000_001", "B1"))
	res, err := inv.ReserveBackSlot(bottle.Glass1000, "B1")
	require.NoError(t, err)
	require.NoError(t, inv.CommitPlace(res))

	// Act
	free := inv.BackPlatformFree()

	// Assert
	assert.Equal(t, 1, free[bottle.Glass1000])
	assert.Equal(t, 0, free[bottle.Glass500])
}

func TestSlotsByNavigationSorted(t *testing.T) {
	inv := newTestInventory(t)

	slots := inv.SlotsByNavigation("shelf")

	require.Len(t, slots, 2)
	assert.Equal(t, "shelf_temp_1000_001", slots[0].PoseName)
	assert.Equal(t, "shelf_temp_500_001", slots[1].PoseName)
}

func TestSummaryShapes(t *testing.T) {
	inv := newTestInventory(t)

	byBottle, err := inv.Summary(inventory.SummaryFilter{BottleID: "B1", Detail: true})
	require.NoError(t, err)
	view := byBottle["bottle"].(inventory.BottleView)
	assert.Equal(t, bottle.Glass1000, view.ObjectType)
	assert.Equal(t, "shelf", view.NavigationPose)

	byPose, err := inv.Summary(inventory.SummaryFilter{PoseName: "shelf_temp_1000_001"})
	require.NoError(t, err)
	assert.Equal(t, []string{"B1"}, byPose["bottle_ids"])

	all, err := inv.Summary(inventory.SummaryFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, all["total_count"])
	assert.Equal(t, []string{"B1", "B2"}, all["bottle_ids"])

	_, err = inv.Summary(inventory.SummaryFilter{BottleID: "ghost"})
	assert.Equal(t, shared.CodeBottleNotFound, shared.CodeOf(err))
}

func TestMarkScannedStampsClockTime(t *testing.T) {
	// Arrange
	inv := newTestInventory(t)

	// Act
	require.NoError(t, inv.MarkScanned("B1"))

	// Assert
	view, err := inv.Bottle("B1")
	require.NoError(t, err)
	assert.True(t, view.Scanned)
	require.NotNil(t, view.ScannedAt)
	assert.Equal(t, time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC), *view.ScannedAt)
}

func TestDefaultLayoutInvariants(t *testing.T) {
	inv := inventory.NewDefault(nil)

	free := inv.BackPlatformFree()
	total := 0
	for _, typ := range bottle.AllObjectTypes() {
		total += free[typ]
	}
	assert.Equal(t, 8, total)
	for _, typ := range bottle.AllObjectTypes() {
		assert.Equal(t, 2, free[typ], "family %s", typ)
	}

	view, err := inv.Bottle("glass_bottle_1000_001")
	require.NoError(t, err)
	assert.Equal(t, "shelf_temp_1000_001", view.Location)
}
