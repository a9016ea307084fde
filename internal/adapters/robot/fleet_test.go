package robot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/athena-robotics/workcell-go/internal/domain/shared"
	"github.com/athena-robotics/workcell-go/test/helpers"
)

func fleetConfig(id, address string) Config {
	return Config{
		ID:               id,
		Address:          address,
		RetryInterval:    5 * time.Millisecond,
		MaxRetryAttempts: 2,
		RequestTimeout:   time.Second,
		RateLimit:        1000,
	}
}

func TestFleetRejectsDuplicateRobot(t *testing.T) {
	fleet := NewFleet(zap.NewNop())
	clock := shared.NewMockClock(time.Time{})

	_, err := fleet.Register(fleetConfig("robot_a", "127.0.0.1:1"), true, clock)
	require.NoError(t, err)

	_, err = fleet.Register(fleetConfig("robot_a", "127.0.0.1:2"), false, clock)
	assert.ErrorContains(t, err, "registered twice")
}

func TestFleetRejectsSecondPrimary(t *testing.T) {
	fleet := NewFleet(zap.NewNop())
	clock := shared.NewMockClock(time.Time{})

	_, err := fleet.Register(fleetConfig("robot_a", "127.0.0.1:1"), true, clock)
	require.NoError(t, err)

	_, err = fleet.Register(fleetConfig("robot_b", "127.0.0.1:2"), true, clock)
	assert.ErrorContains(t, err, "both flagged primary")
}

func TestFleetConnectAllNeedsAPrimary(t *testing.T) {
	fleet := NewFleet(zap.NewNop())

	err := fleet.ConnectAll(context.Background())

	assert.ErrorContains(t, err, "no primary robot configured")
}

func TestFleetPrimaryConnectFailureIsFatal(t *testing.T) {
	dead := helpers.NewMockRobotPeer()
	address := dead.Address()
	dead.Close()

	fleet := NewFleet(zap.NewNop())
	_, err := fleet.Register(fleetConfig("robot_a", address), true, shared.NewMockClock(time.Time{}))
	require.NoError(t, err)

	err = fleet.ConnectAll(context.Background())

	require.Error(t, err)
	assert.ErrorContains(t, err, "primary robot robot_a")
}

func TestFleetSecondaryFailureIsTolerated(t *testing.T) {
	peer := helpers.NewMockRobotPeer()
	defer peer.Close()
	dead := helpers.NewMockRobotPeer()
	deadAddress := dead.Address()
	dead.Close()

	fleet := NewFleet(zap.NewNop())
	clock := shared.NewMockClock(time.Time{})
	_, err := fleet.Register(fleetConfig("robot_a", peer.Address()), true, clock)
	require.NoError(t, err)
	_, err = fleet.Register(fleetConfig("robot_b", deadAddress), false, clock)
	require.NoError(t, err)
	defer fleet.CloseAll()

	err = fleet.ConnectAll(context.Background())

	require.NoError(t, err, "a dead secondary must not block startup")
	states := fleet.ConnectionStates()
	assert.True(t, states["robot_a"])
}

func TestFleetLookupAndOrdering(t *testing.T) {
	fleet := NewFleet(zap.NewNop())
	clock := shared.NewMockClock(time.Time{})
	primary, err := fleet.Register(fleetConfig("robot_b", "127.0.0.1:2"), true, clock)
	require.NoError(t, err)
	_, err = fleet.Register(fleetConfig("robot_a", "127.0.0.1:1"), false, clock)
	require.NoError(t, err)

	assert.Equal(t, []string{"robot_a", "robot_b"}, fleet.IDs())
	assert.Same(t, primary, fleet.Primary())

	found, ok := fleet.Robot("robot_a")
	require.True(t, ok)
	assert.Equal(t, "robot_a", found.ID())

	_, ok = fleet.Robot("robot_z")
	assert.False(t, ok)
}
