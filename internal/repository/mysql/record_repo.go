package mysql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"time"

	"VISO_Collective/internal/filter"
	"VISO_Collective/internal/model"
	"VISO_Collective/internal/store"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RecordRepository 以 records 表实现 store.Store，过滤在进程内完成
type RecordRepository struct {
	DB  *gorm.DB
	Now func() time.Time
}

func NewRecordRepository(db *gorm.DB) *RecordRepository {
	return &RecordRepository{DB: db, Now: time.Now}
}

func (r *RecordRepository) Find(ctx context.Context, table model.Table, id string) (*model.Record, error) {
	var row model.RecordRow
	err := r.DB.WithContext(ctx).Where("id = ? AND tbl = ?", id, string(table)).First(&row).Error
	if err != nil {
		return nil, notFound(table, id, err)
	}
	return decodeRow(&row)
}

func (r *RecordRepository) Create(ctx context.Context, table model.Table, fields model.Fields) (*model.Record, error) {
	payload, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode fields: %w", err)
	}
	now := r.Now().UTC()
	row := &model.RecordRow{
		ID:        store.NewRecordID(),
		Tbl:       string(table),
		Fields:    string(payload),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.DB.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return decodeRow(row)
}

// Update 行锁内合并字段，只覆盖传入的键
func (r *RecordRepository) Update(ctx context.Context, table model.Table, id string, fields model.Fields) (*model.Record, error) {
	var out *model.Record
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row model.RecordRow
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND tbl = ?", id, string(table)).
			First(&row).Error; err != nil {
			return notFound(table, id, err)
		}
		rec, err := decodeRow(&row)
		if err != nil {
			return err
		}
		for k, v := range fields {
			rec.Fields[k] = v
		}
		payload, err := json.Marshal(rec.Fields)
		if err != nil {
			return fmt.Errorf("encode fields: %w", err)
		}
		if err := tx.Model(&model.RecordRow{}).Where("id = ?", id).
			Updates(map[string]any{"fields": string(payload), "updated_at": r.Now().UTC()}).Error; err != nil {
			return err
		}
		// 重新解码，保证返回值与再次读取一致
		row.Fields = string(payload)
		out, err = decodeRow(&row)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *RecordRepository) Destroy(ctx context.Context, table model.Table, id string) error {
	tx := r.DB.WithContext(ctx).Where("id = ? AND tbl = ?", id, string(table)).Delete(&model.RecordRow{})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return fmt.Errorf("%s/%s: %w", table, id, store.ErrNotFound)
	}
	return nil
}

func (r *RecordRepository) Select(ctx context.Context, table model.Table, q store.Query) iter.Seq2[*model.Record, error] {
	return func(yield func(*model.Record, error) bool) {
		var rows []model.RecordRow
		if err := r.DB.WithContext(ctx).
			Where("tbl = ?", string(table)).
			Order("created_at ASC, id ASC").
			Find(&rows).Error; err != nil {
			yield(nil, err)
			return
		}

		now := r.Now()
		matched := make([]*model.Record, 0, len(rows))
		for i := range rows {
			rec, err := decodeRow(&rows[i])
			if err != nil {
				yield(nil, err)
				return
			}
			if filter.Match(q.Filter, rec.Fields, now) {
				matched = append(matched, rec)
			}
		}
		for _, rec := range store.Apply(matched, q) {
			if !yield(rec, nil) {
				return
			}
		}
	}
}

func decodeRow(row *model.RecordRow) (*model.Record, error) {
	fields := model.Fields{}
	if row.Fields != "" {
		if err := json.Unmarshal([]byte(row.Fields), &fields); err != nil {
			return nil, fmt.Errorf("decode record %s: %w", row.ID, err)
		}
	}
	return &model.Record{ID: row.ID, CreatedTime: row.CreatedAt.UTC(), Fields: fields}, nil
}

func notFound(table model.Table, id string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s/%s: %w", table, id, store.ErrNotFound)
	}
	return err
}
