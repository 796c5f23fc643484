package reward

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"acthub-rewardengine/pkg/middleware"
)

func newTestRouter(t *testing.T, db *gorm.DB) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.Error())
	NewHandler(newTestService(t, db)).Register(r)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.TenantHeader, testTenant)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandler_MissingTenantHeader(t *testing.T) {
	r := newTestRouter(t, newRewardDB(t))

	req := httptest.NewRequest(http.MethodGet, "/v1/rewards", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_PayoutFlow(t *testing.T) {
	db := newRewardDB(t)
	node := newNode(t)
	r := newTestRouter(t, db)

	w := doJSON(t, r, http.MethodPost, "/v1/rewards", gin.H{
		"name": "launch coupon", "type": "coupon", "total_quantity": 2,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created Reward
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.RewardID)

	w = doJSON(t, r, http.MethodPost, "/v1/rewards/"+created.RewardID+"/items/import", gin.H{
		"items": []gin.H{{"item_value": "code-a"}, {"item_value": "code-b"}},
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"inserted": 2}`, w.Body.String())

	seedTask(t, db, "task-1")
	seedApproved(t, db, node, "task-1", "alice", "bob", "carol")

	w = doJSON(t, r, http.MethodPost, "/v1/payouts", gin.H{
		"task_id": "task-1", "reward_id": created.RewardID, "scope": "APPROVED_USERS",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var result BatchResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.Equal(t, BatchResult{Requested: 3, Succeeded: 2, InsufficientStock: 1}, result)

	w = doJSON(t, r, http.MethodGet, "/v1/rewards/"+created.RewardID+"/status", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var status RewardStatusView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	require.EqualValues(t, 2, status.IssuedQuantity)
	require.Zero(t, status.AvailableCount)

	w = doJSON(t, r, http.MethodGet, "/v1/tasks/task-1/payouts", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var listed struct {
		Payouts []RewardPayout `json:"payouts"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	require.Len(t, listed.Payouts, 2)
}

func TestHandler_TriggerPayoutValidation(t *testing.T) {
	r := newTestRouter(t, newRewardDB(t))

	w := doJSON(t, r, http.MethodPost, "/v1/payouts", gin.H{"task_id": "task-1"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/v1/payouts", gin.H{
		"task_id": "task-1", "reward_id": "rw-1", "scope": "EVERYBODY",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_AdjustStockConflict(t *testing.T) {
	db := newRewardDB(t)
	r := newTestRouter(t, db)

	seedReward(t, db, "rw-1", 5)

	w := doJSON(t, r, http.MethodPost, "/v1/rewards/rw-1/stock/adjust", gin.H{"delta": -6})
	require.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, r, http.MethodPost, "/v1/rewards/rw-1/stock/adjust", gin.H{"delta": 5})
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"total_quantity": 10}`, w.Body.String())
}

func TestHandler_VoidAndRelease(t *testing.T) {
	db := newRewardDB(t)
	node := newNode(t)
	r := newTestRouter(t, db)

	seedReward(t, db, "rw-1", 2)
	items := seedItems(t, db, node, "rw-1", "code-a")

	w := doJSON(t, r, http.MethodPost, "/v1/items/"+items[0].ItemID+"/release", nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodPost, "/v1/items/"+items[0].ItemID+"/void", nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, r, http.MethodPost, "/v1/items/"+items[0].ItemID+"/void", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}
