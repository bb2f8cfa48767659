// Package memory 进程内记录存储，用于测试和本地演示。
package memory

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"sync"
	"time"

	"VISO_Collective/internal/filter"
	"VISO_Collective/internal/model"
	"VISO_Collective/internal/store"
)

type Store struct {
	mu sync.RWMutex
	// [table][id]record
	data map[model.Table]map[string]*model.Record
	now  func() time.Time
}

func New() *Store {
	return &Store{
		data: make(map[model.Table]map[string]*model.Record),
		now:  time.Now,
	}
}

// SetClock 测试用，固定 TODAY() 的取值
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// Put 直接写入一条记录（不经过网关），用于准备测试数据
func (s *Store) Put(table model.Table, rec *model.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data[table] == nil {
		s.data[table] = make(map[string]*model.Record)
	}
	s.data[table][rec.ID] = copyRecord(rec)
}

func (s *Store) Find(_ context.Context, table model.Table, id string) (*model.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.data[table][id]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", table, id, store.ErrNotFound)
	}
	return copyRecord(rec), nil
}

func (s *Store) Create(_ context.Context, table model.Table, fields model.Fields) (*model.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := &model.Record{
		ID:          store.NewRecordID(),
		CreatedTime: s.now().UTC(),
		Fields:      fields.Clone(),
	}
	if s.data[table] == nil {
		s.data[table] = make(map[string]*model.Record)
	}
	s.data[table][rec.ID] = rec
	return copyRecord(rec), nil
}

func (s *Store) Update(_ context.Context, table model.Table, id string, fields model.Fields) (*model.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.data[table][id]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", table, id, store.ErrNotFound)
	}
	for k, v := range fields {
		rec.Fields[k] = v
	}
	return copyRecord(rec), nil
}

func (s *Store) Destroy(_ context.Context, table model.Table, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[table][id]; !ok {
		return fmt.Errorf("%s/%s: %w", table, id, store.ErrNotFound)
	}
	delete(s.data[table], id)
	return nil
}

func (s *Store) Select(ctx context.Context, table model.Table, q store.Query) iter.Seq2[*model.Record, error] {
	return func(yield func(*model.Record, error) bool) {
		s.mu.RLock()
		now := s.now()
		var matched []*model.Record
		for _, rec := range s.data[table] {
			if filter.Match(q.Filter, rec.Fields, now) {
				matched = append(matched, copyRecord(rec))
			}
		}
		s.mu.RUnlock()

		// 没有排序条件时按创建时间输出，保证结果稳定
		if len(q.Sort) == 0 {
			sortByCreated(matched)
		}
		for _, rec := range store.Apply(matched, q) {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

func copyRecord(r *model.Record) *model.Record {
	return &model.Record{ID: r.ID, CreatedTime: r.CreatedTime, Fields: r.Fields.Clone()}
}

func sortByCreated(recs []*model.Record) {
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].CreatedTime.Equal(recs[j].CreatedTime) {
			return recs[i].ID < recs[j].ID
		}
		return recs[i].CreatedTime.Before(recs[j].CreatedTime)
	})
}
