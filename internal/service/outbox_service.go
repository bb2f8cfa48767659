package service

import (
	"context"
	"time"

	"VISO_Collective/internal/model"

	"go.uber.org/zap"
)

// OutboxStore *mysql.OutboxRepository 实现
type OutboxStore interface {
	Insert(ctx context.Context, ev model.RecordEvent) error
	List(ctx context.Context, batchSize, maxRetry int) ([]model.RecordOutbox, error)
	RetryUpdate(ctx context.Context, id uint64) error
	SuccessUpdate(ctx context.Context, id uint64) error
}

type Sender func(ctx context.Context, ob *model.RecordOutbox) error

// OutboxRelayer outbox 表投递器
type OutboxRelayer struct {
	repo      OutboxStore
	batchSize int
	maxRetry  int
	interval  time.Duration
	sender    Sender
	log       *zap.Logger
}

func NewOutboxRelayer(repo OutboxStore, sender Sender, log *zap.Logger) *OutboxRelayer {
	return &OutboxRelayer{
		repo:      repo,
		batchSize: 200,
		maxRetry:  5,
		interval:  time.Second,
		sender:    sender,
		log:       log,
	}
}

// Run 定时投递直到 ctx 取消
func (r *OutboxRelayer) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.DrainOnce(ctx)
		}
	}
}

// DrainOnce 取一批待投递事件交给 sender，返回成功条数
func (r *OutboxRelayer) DrainOnce(ctx context.Context) int {
	rows, err := r.repo.List(ctx, r.batchSize, r.maxRetry)
	if err != nil {
		r.log.Warn("outbox query failed", zap.Error(err))
		return 0
	}
	sent := 0
	for i := range rows {
		ob := rows[i]
		if err := r.sender(ctx, &ob); err != nil {
			r.log.Warn("outbox send failed", zap.Uint64("id", ob.ID), zap.String("record_id", ob.RecordID), zap.Error(err))
			if err := r.repo.RetryUpdate(ctx, ob.ID); err != nil {
				r.log.Warn("outbox retry update failed", zap.Uint64("id", ob.ID), zap.Error(err))
			}
			continue
		}
		if err := r.repo.SuccessUpdate(ctx, ob.ID); err != nil {
			r.log.Warn("outbox success update failed", zap.Uint64("id", ob.ID), zap.Error(err))
			continue
		}
		sent++
	}
	return sent
}

// KafkaSender 把 outbox 中的事件原样发到 kafka
func KafkaSender(s MessageSender) Sender {
	return func(ctx context.Context, ob *model.RecordOutbox) error {
		return s.Send(ctx, ob.RecordID, []byte(ob.Payload))
	}
}

// LogSender 未配置 kafka 时只写日志
func LogSender(log *zap.Logger) Sender {
	return func(_ context.Context, ob *model.RecordOutbox) error {
		log.Info("outbox send",
			zap.String("type", ob.EventType),
			zap.String("table", ob.Tbl),
			zap.String("record_id", ob.RecordID),
			zap.String("payload", ob.Payload))
		return nil
	}
}
