package reward

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"acthub-rewardengine/pkg/errutil"
	"acthub-rewardengine/pkg/middleware"
)

// Handler exposes the engine over HTTP. The tenant always comes from the
// Tenant middleware; it is threaded into every service call explicitly.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(r *gin.Engine) {
	v1 := r.Group("/v1", middleware.Tenant())

	v1.POST("/rewards", h.createReward)
	v1.GET("/rewards", h.listRewards)
	v1.GET("/rewards/:reward_id/status", h.getRewardStatus)
	v1.GET("/rewards/:reward_id/items", h.listRewardItems)
	v1.POST("/rewards/:reward_id/items/import", h.importRewardItems)
	v1.POST("/rewards/:reward_id/items/generate", h.generateRewardItems)
	v1.POST("/rewards/:reward_id/stock/adjust", h.adjustStock)
	v1.POST("/items/:item_id/void", h.voidItem)
	v1.POST("/items/:item_id/release", h.releaseItem)
	v1.POST("/payouts", h.triggerPayout)
	v1.GET("/tasks/:task_id/payouts", h.listPayouts)
}

func (h *Handler) createReward(c *gin.Context) {
	var req CreateRewardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	rw, err := h.svc.CreateReward(c.Request.Context(), middleware.TenantID(c), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, rw)
}

func (h *Handler) listRewards(c *gin.Context) {
	rewards, err := h.svc.ListRewards(c.Request.Context(), middleware.TenantID(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rewards": rewards})
}

func (h *Handler) getRewardStatus(c *gin.Context) {
	view, err := h.svc.GetRewardStatus(c.Request.Context(), middleware.TenantID(c), c.Param("reward_id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) listRewardItems(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	status := ItemStatus(c.Query("status"))

	items, err := h.svc.ListRewardItems(c.Request.Context(), middleware.TenantID(c), c.Param("reward_id"), status, limit)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

type importItemsRequest struct {
	Items []ImportItem `json:"items"`
}

func (h *Handler) importRewardItems(c *gin.Context) {
	var req importItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	inserted, err := h.svc.ImportRewardItems(c.Request.Context(), middleware.TenantID(c), c.Param("reward_id"), req.Items)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"inserted": inserted})
}

type generateItemsRequest struct {
	Count int `json:"count"`
}

func (h *Handler) generateRewardItems(c *gin.Context) {
	var req generateItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	inserted, err := h.svc.GenerateRewardItems(c.Request.Context(), middleware.TenantID(c), c.Param("reward_id"), req.Count)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"inserted": inserted})
}

type adjustStockRequest struct {
	Delta int64 `json:"delta"`
}

func (h *Handler) adjustStock(c *gin.Context) {
	var req adjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	newTotal, err := h.svc.AdjustStock(c.Request.Context(), middleware.TenantID(c), c.Param("reward_id"), req.Delta)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"total_quantity": newTotal})
}

func (h *Handler) voidItem(c *gin.Context) {
	if err := h.svc.VoidRewardItem(c.Request.Context(), middleware.TenantID(c), c.Param("item_id")); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) releaseItem(c *gin.Context) {
	if err := h.svc.ReleaseRewardItem(c.Request.Context(), middleware.TenantID(c), c.Param("item_id")); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

type triggerPayoutRequest struct {
	TaskID   string `json:"task_id"`
	RewardID string `json:"reward_id"`
	Scope    Scope  `json:"scope"`
}

func (h *Handler) triggerPayout(c *gin.Context) {
	var req triggerPayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", err))
		return
	}
	if req.TaskID == "" || req.RewardID == "" {
		_ = c.Error(errutil.BadRequest("task_id and reward_id are required", nil))
		return
	}

	result, err := h.svc.TriggerPayout(c.Request.Context(), middleware.TenantID(c), req.TaskID, req.RewardID, req.Scope)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) listPayouts(c *gin.Context) {
	payouts, err := h.svc.ListPayouts(c.Request.Context(), middleware.TenantID(c), c.Param("task_id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payouts": payouts})
}
