package store

import (
	"sort"

	"VISO_Collective/internal/model"
)

// Apply 本地存储用：按 Query 的排序和条数限制处理已过滤的记录
func Apply(records []*model.Record, q Query) []*model.Record {
	if len(q.Sort) > 0 {
		sort.SliceStable(records, func(i, j int) bool {
			for _, s := range q.Sort {
				c := compareField(records[i].Fields[s.Field], records[j].Fields[s.Field])
				if c == 0 {
					continue
				}
				if s.Direction == Desc {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}
	if q.MaxRecords > 0 && len(records) > q.MaxRecords {
		records = records[:q.MaxRecords]
	}
	return records
}

// compareField 空值排在最前，数值按大小，其余按字符串
func compareField(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	fa, aok := toFloat(a)
	fb, bok := toFloat(b)
	if aok && bok {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}
	sa, _ := a.(string)
	sb, _ := b.(string)
	switch {
	case sa < sb:
		return -1
	case sa > sb:
		return 1
	}
	return 0
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}
