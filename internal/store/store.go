// Package store 外部表格存储的访问契约。
package store

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"VISO_Collective/internal/filter"
	"VISO_Collective/internal/model"

	"github.com/google/uuid"
)

// ErrNotFound 记录不存在，各实现都需用 %w 包装
var ErrNotFound = errors.New("store: record not found")

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

type Sort struct {
	Field     string
	Direction Direction
}

// Query 列表查询，零值表示全表
type Query struct {
	Filter     filter.Expr
	Sort       []Sort
	MaxRecords int
}

type Store interface {
	Find(ctx context.Context, table model.Table, id string) (*model.Record, error)
	Create(ctx context.Context, table model.Table, fields model.Fields) (*model.Record, error)
	// Update 部分更新，只写入传入的字段
	Update(ctx context.Context, table model.Table, id string, fields model.Fields) (*model.Record, error)
	Destroy(ctx context.Context, table model.Table, id string) error
	// Select 惰性分页，遇到错误后序列结束
	Select(ctx context.Context, table model.Table, q Query) iter.Seq2[*model.Record, error]
}

// Collect 读完整个序列
func Collect(seq iter.Seq2[*model.Record, error]) ([]*model.Record, error) {
	var out []*model.Record
	for rec, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// NewRecordID 本地存储生成与 Airtable 相同形态的 id：rec + 14 位十六进制
func NewRecordID() string {
	u := uuid.New()
	return fmt.Sprintf("rec%x", u[:7])
}
