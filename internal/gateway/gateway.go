// Package gateway 记录网关：所有对外部表格存储的读写都经过这里。
//
// 写操作只允许记录创建者执行，判断依据是记录上的 CreatorId 字段。
// 读取-校验-写入三步之间没有事务，存储本身不提供可以关闭这个窗口的原语。
package gateway

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"VISO_Collective/internal/filter"
	"VISO_Collective/internal/model"
	"VISO_Collective/internal/store"

	"go.uber.org/zap"
)

// Publisher 接收写操作事件，失败只记日志
type Publisher interface {
	Publish(ctx context.Context, ev model.RecordEvent) error
}

type Gateway struct {
	store store.Store
	pub   Publisher
	log   *zap.Logger
	now   func() time.Time
}

type Option func(*Gateway)

func WithPublisher(p Publisher) Option {
	return func(g *Gateway) { g.pub = p }
}

func WithLogger(l *zap.Logger) Option {
	return func(g *Gateway) { g.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

func New(s store.Store, opts ...Option) *Gateway {
	g := &Gateway{
		store: s,
		log:   zap.NewNop(),
		now:   time.Now,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Create 写入前盖上创建者标记，调用方传入的同名字段会被覆盖
func (g *Gateway) Create(ctx context.Context, table model.Table, fields model.Fields, caller model.Caller) (*model.Record, error) {
	if !caller.Authenticated() {
		return nil, model.ErrUnauthenticated
	}

	out := fields.Clone()
	out[model.FieldCreatorID] = caller.ID
	out[model.FieldCreator] = caller.Label()

	rec, err := g.store.Create(ctx, table, out)
	if err != nil {
		return nil, upstream("create", table, "", err)
	}
	g.publish(ctx, model.RecordCreated, table, rec.ID, caller, rec.Fields)
	return rec, nil
}

// Update 部分更新；去掉创建者标记后没有可写字段时直接返回当前记录
func (g *Gateway) Update(ctx context.Context, table model.Table, id string, fields model.Fields, caller model.Caller) (*model.Record, error) {
	current, err := g.Authorize(ctx, table, id, caller)
	if err != nil {
		return nil, err
	}

	patch := fields.Clone()
	delete(patch, model.FieldCreatorID)
	delete(patch, model.FieldCreator)
	if len(patch) == 0 {
		return current, nil
	}

	rec, err := g.store.Update(ctx, table, id, patch)
	if err != nil {
		return nil, g.storeErr("update", table, id, err)
	}
	g.publish(ctx, model.RecordUpdated, table, id, caller, patch)
	return rec, nil
}

func (g *Gateway) Delete(ctx context.Context, table model.Table, id string, caller model.Caller) error {
	if _, err := g.Authorize(ctx, table, id, caller); err != nil {
		return err
	}
	if err := g.store.Destroy(ctx, table, id); err != nil {
		return g.storeErr("delete", table, id, err)
	}
	g.publish(ctx, model.RecordDeleted, table, id, caller, nil)
	return nil
}

// Authorize 所有权校验：
//  1. 调用者为空 -> Unauthenticated，不访问存储
//  2. 按 id 读取记录，不存在 -> NotFound，其它错误 -> Upstream
//  3. CreatorId 缺失或为空 -> PermissionDenied
//  4. CreatorId 与调用者不完全相等 -> PermissionDenied
//  5. 相等则通过，返回读到的记录
func (g *Gateway) Authorize(ctx context.Context, table model.Table, id string, caller model.Caller) (*model.Record, error) {
	if !caller.Authenticated() {
		return nil, model.ErrUnauthenticated
	}
	rec, err := g.store.Find(ctx, table, id)
	if err != nil {
		return nil, g.storeErr("find", table, id, err)
	}
	owner := rec.Fields.String(model.FieldCreatorID)
	if owner == "" || owner != caller.ID {
		return nil, model.ErrPermissionDenied
	}
	return rec, nil
}

// ListOwned 只列出调用者创建的记录，附加过滤条件与所有权条件取交集
func (g *Gateway) ListOwned(ctx context.Context, table model.Table, caller model.Caller, q store.Query) (iter.Seq2[*model.Record, error], error) {
	if !caller.Authenticated() {
		return nil, model.ErrUnauthenticated
	}
	q.Filter = filter.And(q.Filter, filter.Eq(model.FieldCreatorID, caller.ID))
	return g.List(ctx, table, q), nil
}

// Get 读路径不做鉴权
func (g *Gateway) Get(ctx context.Context, table model.Table, id string) (*model.Record, error) {
	rec, err := g.store.Find(ctx, table, id)
	if err != nil {
		return nil, g.storeErr("find", table, id, err)
	}
	return rec, nil
}

func (g *Gateway) List(ctx context.Context, table model.Table, q store.Query) iter.Seq2[*model.Record, error] {
	return func(yield func(*model.Record, error) bool) {
		for rec, err := range g.store.Select(ctx, table, q) {
			if err != nil {
				yield(nil, upstream("select", table, "", err))
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

func (g *Gateway) storeErr(op string, table model.Table, id string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %s/%s", model.ErrNotFound, table, id)
	}
	return upstream(op, table, id, err)
}

func upstream(op string, table model.Table, id string, err error) error {
	if id == "" {
		return fmt.Errorf("%w: %s %s: %w", model.ErrUpstream, op, table, err)
	}
	return fmt.Errorf("%w: %s %s/%s: %w", model.ErrUpstream, op, table, id, err)
}

func (g *Gateway) publish(ctx context.Context, typ model.RecordEventType, table model.Table, id string, caller model.Caller, fields model.Fields) {
	if g.pub == nil {
		return
	}
	ev := model.RecordEvent{
		Type:     typ,
		Table:    table,
		RecordID: id,
		ActorID:  caller.ID,
		At:       g.now().UTC(),
		Fields:   fields,
	}
	if err := g.pub.Publish(ctx, ev); err != nil {
		g.log.Warn("publish record event failed",
			zap.String("type", string(typ)),
			zap.String("table", string(table)),
			zap.String("record_id", id),
			zap.Error(err))
	}
}
