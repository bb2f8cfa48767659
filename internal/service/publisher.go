package service

import (
	"context"
	"encoding/json"
	"errors"

	"VISO_Collective/internal/gateway"
	"VISO_Collective/internal/model"
	"VISO_Collective/internal/pkg"

	"go.uber.org/zap"
)

// Publishers 依次投递给所有发布者，错误合并返回
type Publishers []gateway.Publisher

func (ps Publishers) Publish(ctx context.Context, ev model.RecordEvent) error {
	var errs []error
	for _, p := range ps {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogPublisher 记录事件写日志，始终启用
type LogPublisher struct {
	Log *zap.Logger
}

func (p LogPublisher) Publish(_ context.Context, ev model.RecordEvent) error {
	p.Log.Info("record event",
		zap.String("type", string(ev.Type)),
		zap.String("table", string(ev.Table)),
		zap.String("record_id", ev.RecordID),
		zap.String("actor_id", ev.ActorID),
		zap.Time("at", ev.At))
	return nil
}

// MessageSender 按 key 发送消息，*pkg.KafkaProducer 实现
type MessageSender interface {
	Send(ctx context.Context, key string, value []byte) error
}

// KafkaPublisher key 为记录 id，value 为事件 JSON
type KafkaPublisher struct {
	Sender MessageSender
}

func (p KafkaPublisher) Publish(ctx context.Context, ev model.RecordEvent) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.Sender.Send(ctx, ev.RecordID, value)
}

// ModeratorMailer 新帖子、新活动创建后通知管理员
type ModeratorMailer struct {
	Mailer     pkg.Mailer
	Moderators []string
}

func (p ModeratorMailer) Publish(_ context.Context, ev model.RecordEvent) error {
	if ev.Type != model.RecordCreated || len(p.Moderators) == 0 {
		return nil
	}
	var kind string
	switch ev.Table {
	case model.TablePosts:
		kind = "帖子"
	case model.TableEvents:
		kind = "活动"
	default:
		return nil
	}
	title := ev.Fields.String(model.PostTitle)
	author := ev.Fields.String(model.FieldCreator)
	subject := "[VISO] 新" + kind + "：" + title
	return p.Mailer.Send(p.Moderators, subject, pkg.NewRecordHTML(kind, title, author, ev.RecordID))
}

// OutboxPublisher 事件先落 outbox 表，由 OutboxRelayer 异步投递
type OutboxPublisher struct {
	Repo OutboxStore
}

func (p OutboxPublisher) Publish(ctx context.Context, ev model.RecordEvent) error {
	return p.Repo.Insert(ctx, ev)
}
