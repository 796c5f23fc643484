package reward

import (
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"acthub-rewardengine/pkg/config"
	"acthub-rewardengine/services/participation"
)

var Module = fx.Module("reward.service",
	fx.Provide(
		provideItemPool,
		provideAuditSink,
		provideEngine,
		NewService,
		NewHandler,
	),
	fx.Invoke(registerRoutes),
)

func provideItemPool(cfg *config.Config) *ItemPool {
	return NewItemPool(cfg.Engine.ReserveScanLimit)
}

type auditSinkParams struct {
	fx.In
	Config *config.Config
	Asynq  *asynq.Client `optional:"true"`
}

func provideAuditSink(p auditSinkParams) AuditSink {
	if p.Asynq == nil {
		return NopAuditSink{}
	}
	return NewAsynqAuditSink(p.Asynq, p.Config.Audit.Queue)
}

type engineParams struct {
	fx.In

	Config *config.Config
	DB     *gorm.DB
	Node   *snowflake.Node
	Pool   *ItemPool
	Source participation.Source
	Audit  AuditSink
}

func provideEngine(p engineParams) *Engine {
	return NewEngine(EngineParams{
		DB:          p.DB,
		Node:        p.Node,
		Pool:        p.Pool,
		Source:      p.Source,
		Audit:       p.Audit,
		LockTimeout: p.Config.Engine.LockTimeout,
	})
}

func registerRoutes(r *gin.Engine, h *Handler) {
	h.Register(r)
}
