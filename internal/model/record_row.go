package model

import "time"

// RecordRow SQL 存储中的一行，字段以 JSON 文本保存
type RecordRow struct {
	ID        string    `gorm:"primaryKey;size:32"`
	Tbl       string    `gorm:"column:tbl;size:64;not null;index:idx_tbl_created,priority:1"`
	Fields    string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"index:idx_tbl_created,priority:2"`
	UpdatedAt time.Time
}

func (RecordRow) TableName() string { return "records" }

// RecordOutbox 记录事件 outbox 表
type RecordOutbox struct {
	ID        uint64 `gorm:"primaryKey"`
	EventType string `gorm:"size:16;not null"` // created / updated / deleted
	Tbl       string `gorm:"column:tbl;size:64;not null"`
	RecordID  string `gorm:"size:32;not null"`
	Payload   string `gorm:"type:text;not null"`
	Status    int8   `gorm:"not null;default:0;index;comment:'0=pending,1=sent,2=failed'"`
	Retry     int    `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (RecordOutbox) TableName() string { return "record_outbox" }

const (
	OutboxPending int8 = 0
	OutboxSent    int8 = 1
	OutboxFailed  int8 = 2
)
