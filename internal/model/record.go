package model

import (
	"time"
)

// Table 外部表格存储中的表名
type Table string

const (
	TableMembers Table = "Members"
	TablePosts   Table = "Posts"
	TableEvents  Table = "Events"
)

// 创建者标记字段
const (
	FieldCreatorID = "CreatorId"
	FieldCreator   = "Creator"
)

const UnknownCreator = "Unknown User"

// Fields 存储侧字段，键为表格原生字段名
type Fields map[string]any

// Record 外部存储中的一行记录
type Record struct {
	ID          string    `json:"id"`
	CreatedTime time.Time `json:"createdTime"`
	Fields      Fields    `json:"fields"`
}

// Caller 当前请求的调用者身份，ID 为空表示匿名
type Caller struct {
	ID   string
	Name string
}

func (c Caller) Authenticated() bool { return c.ID != "" }

// Label 写入创建者标签字段时使用的名字
func (c Caller) Label() string {
	if c.Name == "" {
		return UnknownCreator
	}
	return c.Name
}

// Attachment 附件字段写入格式
type Attachment struct {
	URL string `json:"url"`
}

func Attachments(urls []string) []Attachment {
	out := make([]Attachment, 0, len(urls))
	for _, u := range urls {
		out = append(out, Attachment{URL: u})
	}
	return out
}

// Clone 浅拷贝字段表
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

func (f Fields) String(key string) string {
	s, _ := f[key].(string)
	return s
}

// StringOr 主字段为空时读取备用字段
func (f Fields) StringOr(key, fallback string) string {
	if s := f.String(key); s != "" {
		return s
	}
	return f.String(fallback)
}

func (f Fields) Strings(key string) []string {
	switch v := f[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, it := range v {
			if s, ok := it.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Int 数值字段，JSON 解码后通常是 float64
func (f Fields) Int(key string) (int, bool) {
	switch v := f[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}

// AttachmentURLs 读取附件字段中的所有 url
func (f Fields) AttachmentURLs(key string) []string {
	switch v := f[key].(type) {
	case []Attachment:
		out := make([]string, 0, len(v))
		for _, a := range v {
			out = append(out, a.URL)
		}
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, it := range v {
			if m, ok := it.(map[string]any); ok {
				if u, ok := m["url"].(string); ok && u != "" {
					out = append(out, u)
				}
			}
		}
		return out
	}
	return nil
}

func (f Fields) FirstAttachmentURL(key string) string {
	if urls := f.AttachmentURLs(key); len(urls) > 0 {
		return urls[0]
	}
	return ""
}
