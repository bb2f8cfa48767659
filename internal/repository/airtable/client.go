// Package airtable Airtable REST API 上的记录存储。
package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"VISO_Collective/internal/filter"
	"VISO_Collective/internal/model"
	"VISO_Collective/internal/store"
)

const (
	DefaultEndpoint = "https://api.airtable.com/v0"
	pageSize        = 100
)

type Config struct {
	APIKey   string
	BaseID   string
	Endpoint string // 为空使用 DefaultEndpoint
}

type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient 不设置超时，取消依赖请求的 context
func NewClient(cfg Config, hc *http.Client) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{cfg: cfg, http: hc}
}

func (c *Client) HTTPClient() *http.Client { return c.http }

// APIError Airtable 错误响应
type APIError struct {
	Status  int
	Type    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("airtable: %d %s", e.Status, e.Type)
	}
	return fmt.Sprintf("airtable: %d %s: %s", e.Status, e.Type, e.Message)
}

type recordJSON struct {
	ID          string       `json:"id"`
	CreatedTime string       `json:"createdTime"`
	Fields      model.Fields `json:"fields"`
}

type listJSON struct {
	Records []recordJSON `json:"records"`
	Offset  string       `json:"offset"`
}

func (r recordJSON) toModel() *model.Record {
	rec := &model.Record{ID: r.ID, Fields: r.Fields}
	if rec.Fields == nil {
		rec.Fields = model.Fields{}
	}
	if t, err := time.Parse(time.RFC3339, r.CreatedTime); err == nil {
		rec.CreatedTime = t
	}
	return rec
}

func (c *Client) Find(ctx context.Context, table model.Table, id string) (*model.Record, error) {
	var out recordJSON
	if err := c.do(ctx, http.MethodGet, c.recordURL(table, id), nil, &out); err != nil {
		return nil, err
	}
	return out.toModel(), nil
}

func (c *Client) Create(ctx context.Context, table model.Table, fields model.Fields) (*model.Record, error) {
	var out recordJSON
	body := map[string]any{"fields": fields}
	if err := c.do(ctx, http.MethodPost, c.tableURL(table), body, &out); err != nil {
		return nil, err
	}
	return out.toModel(), nil
}

// Update PATCH 只改传入的字段
func (c *Client) Update(ctx context.Context, table model.Table, id string, fields model.Fields) (*model.Record, error) {
	var out recordJSON
	body := map[string]any{"fields": fields}
	if err := c.do(ctx, http.MethodPatch, c.recordURL(table, id), body, &out); err != nil {
		return nil, err
	}
	return out.toModel(), nil
}

func (c *Client) Destroy(ctx context.Context, table model.Table, id string) error {
	return c.do(ctx, http.MethodDelete, c.recordURL(table, id), nil, nil)
}

// Select 按 offset 游标逐页拉取，消费者停止迭代后不再请求下一页
func (c *Client) Select(ctx context.Context, table model.Table, q store.Query) iter.Seq2[*model.Record, error] {
	return func(yield func(*model.Record, error) bool) {
		params, err := listParams(q)
		if err != nil {
			yield(nil, err)
			return
		}
		for {
			var page listJSON
			u := c.tableURL(table) + "?" + params.Encode()
			if err := c.do(ctx, http.MethodGet, u, nil, &page); err != nil {
				yield(nil, err)
				return
			}
			for _, r := range page.Records {
				if !yield(r.toModel(), nil) {
					return
				}
			}
			if page.Offset == "" {
				return
			}
			params.Set("offset", page.Offset)
		}
	}
}

func listParams(q store.Query) (url.Values, error) {
	v := url.Values{}
	v.Set("pageSize", strconv.Itoa(pageSize))
	formula, err := filter.Formula(q.Filter)
	if err != nil {
		return nil, err
	}
	if formula != "" {
		v.Set("filterByFormula", formula)
	}
	for i, s := range q.Sort {
		v.Set(fmt.Sprintf("sort[%d][field]", i), s.Field)
		dir := s.Direction
		if dir == "" {
			dir = store.Asc
		}
		v.Set(fmt.Sprintf("sort[%d][direction]", i), string(dir))
	}
	if q.MaxRecords > 0 {
		v.Set("maxRecords", strconv.Itoa(q.MaxRecords))
	}
	return v, nil
}

func (c *Client) tableURL(table model.Table) string {
	return c.cfg.Endpoint + "/" + url.PathEscape(c.cfg.BaseID) + "/" + url.PathEscape(string(table))
}

func (c *Client) recordURL(table model.Table, id string) string {
	return c.tableURL(table) + "/" + url.PathEscape(id)
}

func (c *Client) do(ctx context.Context, method, u string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("airtable: encode body: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("airtable: %s: %w", method, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("airtable: read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := decodeError(resp.StatusCode, payload)
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %w", store.ErrNotFound, apiErr)
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("airtable: decode response: %w", err)
	}
	return nil
}

// decodeError 错误体有两种形态：{"error":"NOT_FOUND"} 和 {"error":{"type":..,"message":..}}
func decodeError(status int, payload []byte) *APIError {
	e := &APIError{Status: status, Type: http.StatusText(status)}
	var env struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(payload, &env) != nil || len(env.Error) == 0 {
		return e
	}
	var s string
	if json.Unmarshal(env.Error, &s) == nil {
		e.Type = s
		return e
	}
	var obj struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	if json.Unmarshal(env.Error, &obj) == nil {
		if obj.Type != "" {
			e.Type = obj.Type
		}
		e.Message = obj.Message
	}
	return e
}
