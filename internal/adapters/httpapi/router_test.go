package httpapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/athena-robotics/workcell-go/internal/adapters/httpapi"
	"github.com/athena-robotics/workcell-go/internal/application/common"
	fulfillmentTypes "github.com/athena-robotics/workcell-go/internal/application/fulfillment/types"
	inventoryQueries "github.com/athena-robotics/workcell-go/internal/application/inventory/queries"
	"github.com/athena-robotics/workcell-go/internal/application/tasks"
	tasksCommands "github.com/athena-robotics/workcell-go/internal/application/tasks/commands"
	tasksQueries "github.com/athena-robotics/workcell-go/internal/application/tasks/queries"
	"github.com/athena-robotics/workcell-go/internal/domain/inventory"
	"github.com/athena-robotics/workcell-go/internal/domain/shared"
)

type stubHandler struct {
	fn func(ctx context.Context, request common.Request) (common.Response, error)
}

func (h *stubHandler) Handle(ctx context.Context, request common.Request) (common.Response, error) {
	return h.fn(ctx, request)
}

type apiFixture struct {
	server *httptest.Server
	engine *tasks.Engine
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	clock := shared.NewMockClock(time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC))
	inv := inventory.NewDefault(clock)

	med := common.NewMediator()
	require.NoError(t, common.RegisterHandler[*fulfillmentTypes.PickUpCommand](med,
		&stubHandler{fn: func(ctx context.Context, request common.Request) (common.Response, error) {
			return &fulfillmentTypes.ExecutionResult{Success: true, SuccessCount: 1, Total: 1}, nil
		}}))
	require.NoError(t, common.RegisterHandler[*inventoryQueries.BottleGetQuery](med,
		inventoryQueries.NewBottleGetHandler(inv)))

	engine := tasks.NewEngine(med, tasks.Options{Logger: nil})
	require.NoError(t, common.RegisterHandler[*tasksCommands.CancelCommand](med,
		tasksCommands.NewCancelHandler(engine)))
	require.NoError(t, common.RegisterHandler[*tasksQueries.GetTaskStateQuery](med,
		tasksQueries.NewGetTaskStateHandler(engine)))
	engine.Start()
	t.Cleanup(func() { _ = engine.Stop(context.Background()) })

	handler := httpapi.NewRouter(httpapi.Deps{
		Mediator: med,
		Engine:   engine,
		Version:  "test",
	})
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return &apiFixture{server: server, engine: engine}
}

func postCommand(t *testing.T, f *apiFixture, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(f.server.URL+"/", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func TestCommandRejectsMalformedJSON(t *testing.T) {
	// Arrange
	f := newAPIFixture(t)

	// Act
	resp, body := postCommand(t, f, `{not json`)

	// Assert
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, false, body["success"])
	assert.EqualValues(t, shared.CodeBadRequest, body["code"])
}

func TestCommandRequiresCmdType(t *testing.T) {
	// Arrange
	f := newAPIFixture(t)

	// Act
	resp, body := postCommand(t, f, `{"cmd_id":"1","params":{}}`)

	// Assert
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.EqualValues(t, shared.CodeBadRequest, body["code"])
}

func TestCommandUnknownType(t *testing.T) {
	// Arrange
	f := newAPIFixture(t)

	// Act
	resp, body := postCommand(t, f, `{"cmd_type":"NO_SUCH_COMMAND","params":{}}`)

	// Assert
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.EqualValues(t, shared.CodeUnknownCommand, body["code"])
}

func TestPickUpQueuesTask(t *testing.T) {
	// Arrange
	f := newAPIFixture(t)

	// Act
	resp, body := postCommand(t, f,
		`{"cmd_type":"PICK_UP","cmd_id":"c1","params":{"target_params":[{"bottle_id":"glass_bottle_1000_001"}]}}`)

	// Assert
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	taskID, _ := body["task_id"].(string)
	assert.True(t, strings.HasPrefix(taskID, "TASK_"), "task id %q", taskID)
	assert.Contains(t, body, "queue_size")

	// The queued task becomes visible on the status endpoint.
	require.Eventually(t, func() bool {
		r, err := http.Get(f.server.URL + "/task/" + taskID)
		if err != nil {
			return false
		}
		defer r.Body.Close()
		var reply struct {
			Data struct {
				Status string `json:"status"`
			} `json:"data"`
		}
		if json.NewDecoder(r.Body).Decode(&reply) != nil {
			return false
		}
		return reply.Data.Status == "COMPLETED"
	}, 2*time.Second, 20*time.Millisecond)
}

func TestPickUpValidatesParams(t *testing.T) {
	// Arrange
	f := newAPIFixture(t)

	// Act: empty target list fails validation before anything is queued.
	resp, body := postCommand(t, f,
		`{"cmd_type":"PICK_UP","cmd_id":"c1","params":{"target_params":[]}}`)

	// Assert
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.EqualValues(t, shared.CodeBadRequest, body["code"])
	assert.Equal(t, 0, f.engine.Status().Submitted)
}

func TestScanQrcodeRejectsParams(t *testing.T) {
	// Arrange
	f := newAPIFixture(t)

	// Act
	resp, body := postCommand(t, f,
		`{"cmd_type":"SCAN_QRCODE","cmd_id":"c1","params":{"anything":1}}`)

	// Assert
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.EqualValues(t, shared.CodeBadRequest, body["code"])
}

func TestBottleGetAnswersInline(t *testing.T) {
	// Arrange
	f := newAPIFixture(t)

	// Act
	resp, body := postCommand(t, f,
		`{"cmd_type":"BOTTLE_GET","cmd_id":"c1","params":{"bottle_id":"glass_bottle_1000_001"}}`)

	// Assert
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.Contains(t, body, "data")
}

func TestCancelUnknownTask(t *testing.T) {
	// Arrange
	f := newAPIFixture(t)

	// Act
	resp, body := postCommand(t, f,
		`{"cmd_type":"CANCEL","cmd_id":"c1","params":{"task_id":"TASK_MISSING"}}`)

	// Assert
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.EqualValues(t, shared.CodeTaskNotFound, body["code"])
}

func TestQueueStatusEndpoint(t *testing.T) {
	// Arrange
	f := newAPIFixture(t)

	// Act
	resp, err := http.Get(f.server.URL + "/queue/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	// Assert
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var status map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	for _, key := range []string{"queue_size", "total_tasks", "completed_tasks", "failed_tasks", "cancelled_tasks"} {
		assert.Contains(t, status, key)
	}
}

func TestHealthEndpoint(t *testing.T) {
	// Arrange
	f := newAPIFixture(t)

	// Act
	resp, err := http.Get(f.server.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	// Assert
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var health map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, "test", health["version"])
}

func TestTaskGetUnknown(t *testing.T) {
	// Arrange
	f := newAPIFixture(t)

	// Act
	resp, err := http.Get(f.server.URL + "/task/TASK_MISSING")
	require.NoError(t, err)
	defer resp.Body.Close()

	// Assert
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
