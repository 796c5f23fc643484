package reward

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const TypePayoutCompleted = "payout:completed"

// PayoutEventPayload is the audit notification emitted once per completed
// batch, after every payout transaction has committed.
type PayoutEventPayload struct {
	TenantID          string    `json:"tenant_id"`
	TaskID            string    `json:"task_id"`
	RewardID          string    `json:"reward_id"`
	Scope             string    `json:"scope"`
	Requested         int       `json:"requested"`
	Succeeded         int       `json:"succeeded"`
	Failed            int       `json:"failed"`
	InsufficientStock int       `json:"insufficient_stock"`
	CompletedAt       time.Time `json:"completed_at"`
}

func NewPayoutCompletedTask(p PayoutEventPayload, queue string) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypePayoutCompleted, payload, asynq.Queue(queue)), nil
}

// AuditSink receives batch results on a best-effort basis. Implementations
// must never fail the payout path; errors stay inside the sink.
type AuditSink interface {
	NotifyBatchResult(ctx context.Context, payload PayoutEventPayload)
}

// NopAuditSink drops notifications. Used when no queue is wired.
type NopAuditSink struct{}

func (NopAuditSink) NotifyBatchResult(context.Context, PayoutEventPayload) {}

// AsynqAuditSink enqueues batch results for the external audit pipeline.
type AsynqAuditSink struct {
	client *asynq.Client
	queue  string
}

func NewAsynqAuditSink(client *asynq.Client, queue string) *AsynqAuditSink {
	return &AsynqAuditSink{client: client, queue: queue}
}

func (s *AsynqAuditSink) NotifyBatchResult(ctx context.Context, payload PayoutEventPayload) {
	task, err := NewPayoutCompletedTask(payload, s.queue)
	if err != nil {
		zap.L().Warn("failed to build payout audit task", zap.Error(err))
		return
	}
	if _, err := s.client.EnqueueContext(ctx, task); err != nil {
		// Fire and forget: the payout already committed and stays committed.
		zap.L().Warn("failed to enqueue payout audit task", zap.Error(err))
	}
}

var TaskModule = fx.Module("task.reward",
	fx.Invoke(registerTaskHandlers),
)

func registerTaskHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypePayoutCompleted, HandlePayoutCompleted)
}

// HandlePayoutCompleted forwards the batch result to the audit log. The
// audit pipeline itself lives outside this service; here the event is made
// durable in the log stream.
func HandlePayoutCompleted(ctx context.Context, t *asynq.Task) error {
	var payload PayoutEventPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return err
	}

	zap.L().Info("payout batch completed",
		zap.String("tenant_id", payload.TenantID),
		zap.String("task_id", payload.TaskID),
		zap.String("reward_id", payload.RewardID),
		zap.String("scope", payload.Scope),
		zap.Int("requested", payload.Requested),
		zap.Int("succeeded", payload.Succeeded),
		zap.Int("failed", payload.Failed),
		zap.Int("insufficient_stock", payload.InsufficientStock),
	)

	return nil
}
