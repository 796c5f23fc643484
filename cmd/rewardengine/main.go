package main

import (
	"log"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"acthub-rewardengine/pkg/config"
	"acthub-rewardengine/pkg/db"
	"acthub-rewardengine/pkg/health"
	"acthub-rewardengine/pkg/logger"
	"acthub-rewardengine/pkg/redis"
	"acthub-rewardengine/pkg/sequence"
	"acthub-rewardengine/pkg/server"
	"acthub-rewardengine/pkg/task"
	"acthub-rewardengine/services/participation"
	"acthub-rewardengine/services/reward"
)

func main() {
	opts := []fx.Option{
		config.Module,
		logger.Module,
		db.Module,
		redis.Module,
		task.Client,
		task.Server,
		sequence.Module,
		health.Module,
		fx.Provide(
			provideSnowflakeNode,
		),
		participation.Module,
		reward.Module,
		reward.TaskModule,
		server.ProvideHTTPServer,
		fxLogger,
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	app := fx.New(opts...)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	if cfg.AppEnv == "production" {
		return fxevent.NopLogger
	}
	return &fxevent.ZapLogger{Logger: logger}
})

func provideSnowflakeNode() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
