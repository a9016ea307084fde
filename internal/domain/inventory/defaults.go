package inventory

import (
	"fmt"

	"github.com/athena-robotics/workcell-go/internal/domain/bottle"
	"github.com/athena-robotics/workcell-go/internal/domain/shared"
)

// Navigation waypoints of the fixed workcell layout.
const (
	NavShelf     = "shelf"
	NavWorktable = "worktable"
	NavScanTable = "scan_table"
	NavSplit     = "split_station"
	NavCharging  = "charging_station"
)

// DefaultSlots returns the workcell's fixed slot table: shelf and
// worktable storage, the robot's typed back platform (two positions per
// family), the detect-temp poses on the scan table and the split-station
// drop-off slots.
func DefaultSlots() []*Slot {
	var slots []*Slot

	shelf := func(t bottle.ObjectType, n int) {
		for i := 1; i <= n; i++ {
			name := fmt.Sprintf("shelf_temp_%s_%03d", t.ShortCode(), i)
			slots = append(slots, NewSlot(name, CategoryShelf, NavShelf, t, 2))
		}
	}
	shelf(bottle.Glass1000, 4)
	shelf(bottle.Glass500, 2)
	shelf(bottle.Glass250, 2)

	for _, t := range bottle.AllObjectTypes() {
		for i := 1; i <= 2; i++ {
			name := fmt.Sprintf("back_temp_%s_%03d", t.ShortCode(), i)
			slots = append(slots, NewSlot(name, CategoryBackPlatform, "", t, 1))
		}
	}

	slots = append(slots,
		NewSlot("worktable_temp_001", CategoryWorktable, NavWorktable, "", 2),
		NewSlot("worktable_temp_002", CategoryWorktable, NavWorktable, "", 2),
		NewSlot("scan_table_temp_001", CategoryScanTable, NavScanTable, "", 1),
		NewSlot("detect_temp_1000_001", CategoryDetectTemp, NavScanTable, bottle.Glass1000, 1),
		NewSlot("detect_temp_500_001", CategoryDetectTemp, NavScanTable, bottle.Glass500, 1),
		NewSlot("detect_temp_250_001", CategoryDetectTemp, NavScanTable, bottle.Glass250, 1),
	)

	for _, t := range bottle.AllObjectTypes() {
		name := fmt.Sprintf("split_temp_%s_001", t.ShortCode())
		slots = append(slots, NewSlot(name, CategoryWorktable, NavSplit, t, 2))
	}

	return slots
}

// NewDefault builds an inventory seeded with the fixed layout and the
// two shelf bottles the cell ships with.
func NewDefault(clock shared.Clock) *Inventory {
	inv := New(clock)
	for _, s := range DefaultSlots() {
		mustSeed(inv.AddSlot(s))
	}

	seed := []struct {
		id   string
		typ  bottle.ObjectType
		slot string
	}{
		{"glass_bottle_1000_001", bottle.Glass1000, "shelf_temp_1000_001"},
		{"glass_bottle_1000_002", bottle.Glass1000, "shelf_temp_1000_002"},
	}
	for _, b := range seed {
		mustSeed(inv.RegisterBottle(b.id, b.typ, bottle.HandRight, b.slot))
		mustSeed(inv.BindBottle(b.id, b.slot))
	}
	return inv
}

func mustSeed(err error) {
	if err != nil {
		panic(fmt.Sprintf("inventory default layout: %v", err))
	}
}
