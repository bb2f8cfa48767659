package model

import "time"

type RecordEventType string

const (
	RecordCreated RecordEventType = "created"
	RecordUpdated RecordEventType = "updated"
	RecordDeleted RecordEventType = "deleted"
)

// RecordEvent 写操作成功后发布的事件
type RecordEvent struct {
	Type     RecordEventType `json:"type"`
	Table    Table           `json:"table"`
	RecordID string          `json:"record_id"`
	ActorID  string          `json:"actor_id"`
	At       time.Time       `json:"at"`
	Fields   Fields          `json:"fields,omitempty"` // 删除事件为空
}
