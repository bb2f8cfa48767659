package mysql

import (
	"context"
	"encoding/json"

	"VISO_Collective/internal/model"

	"gorm.io/gorm"
)

type OutboxRepository struct {
	DB *gorm.DB
}

// Insert 写入一条待投递事件
func (r *OutboxRepository) Insert(ctx context.Context, ev model.RecordEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	ob := &model.RecordOutbox{
		EventType: string(ev.Type),
		Tbl:       string(ev.Table),
		RecordID:  ev.RecordID,
		Payload:   string(payload),
		Status:    model.OutboxPending,
	}
	return r.DB.WithContext(ctx).Create(ob).Error
}

// List 待投递事件，失败过的也会重新取出
func (r *OutboxRepository) List(ctx context.Context, batchSize, maxRetry int) ([]model.RecordOutbox, error) {
	var list []model.RecordOutbox
	if err := r.DB.WithContext(ctx).
		Where("status = ? OR (status = ? AND retry < ?)", model.OutboxPending, model.OutboxFailed, maxRetry).
		Order("id ASC").
		Limit(batchSize).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// RetryUpdate 投递失败
func (r *OutboxRepository) RetryUpdate(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Model(&model.RecordOutbox{}).Where("id = ?", id).
		Updates(map[string]any{"status": model.OutboxFailed, "retry": gorm.Expr("retry + 1")}).Error
}

// SuccessUpdate 投递成功
func (r *OutboxRepository) SuccessUpdate(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Model(&model.RecordOutbox{}).Where("id = ?", id).
		Update("status", model.OutboxSent).Error
}
