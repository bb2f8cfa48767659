// Package filter 查询过滤表达式。
//
// 表达式在边界处渲染成 Airtable 公式（Formula），或在进程内对记录求值（Match），
// 调用方传入的值永远不会直接拼接进公式。
package filter

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidField = errors.New("invalid field name")

// Expr 封闭接口，只有本包内的节点实现
type Expr interface {
	exprNode()
}

// Operand 比较右值
type Operand interface {
	operandNode()
}

type Op string

const (
	OpGTE Op = ">="
	OpLT  Op = "<"
)

type eqExpr struct {
	Field string
	Value any
}

type andExpr struct {
	Exprs []Expr
}

type cmpExpr struct {
	Field   string
	Op      Op
	Operand Operand
}

func (eqExpr) exprNode()  {}
func (andExpr) exprNode() {}
func (cmpExpr) exprNode() {}

type todayOperand struct{}

type valueOperand struct {
	v any
}

func (todayOperand) operandNode() {}
func (valueOperand) operandNode() {}

// Eq 字段等于字面值
func Eq(field string, value any) Expr {
	return eqExpr{Field: field, Value: value}
}

// And 忽略 nil；没有操作数返回 nil，只有一个时直接返回该操作数
func And(exprs ...Expr) Expr {
	out := make([]Expr, 0, len(exprs))
	for _, e := range exprs {
		if e != nil {
			out = append(out, e)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	}
	return andExpr{Exprs: out}
}

func Cmp(field string, op Op, operand Operand) Expr {
	return cmpExpr{Field: field, Op: op, Operand: operand}
}

// Today 当天日期（UTC）
func Today() Operand { return todayOperand{} }

func Value(v any) Operand { return valueOperand{v: v} }

// Formula 渲染成 Airtable filterByFormula，nil 表达式渲染为空串
func Formula(e Expr) (string, error) {
	if e == nil {
		return "", nil
	}
	var b strings.Builder
	if err := render(&b, e); err != nil {
		return "", err
	}
	return b.String(), nil
}

func render(b *strings.Builder, e Expr) error {
	switch x := e.(type) {
	case eqExpr:
		ref, err := fieldRef(x.Field)
		if err != nil {
			return err
		}
		lit, err := literal(x.Value)
		if err != nil {
			return err
		}
		b.WriteString(ref + " = " + lit)
	case andExpr:
		b.WriteString("AND(")
		for i, sub := range x.Exprs {
			if i > 0 {
				b.WriteString(", ")
			}
			if err := render(b, sub); err != nil {
				return err
			}
		}
		b.WriteString(")")
	case cmpExpr:
		ref, err := fieldRef(x.Field)
		if err != nil {
			return err
		}
		if x.Op != OpGTE && x.Op != OpLT {
			return fmt.Errorf("unsupported operator %q", x.Op)
		}
		var rhs string
		switch o := x.Operand.(type) {
		case todayOperand:
			rhs = "TODAY()"
		case valueOperand:
			if rhs, err = literal(o.v); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unsupported operand %T", x.Operand)
		}
		b.WriteString(ref + " " + string(x.Op) + " " + rhs)
	default:
		return fmt.Errorf("unsupported expression %T", e)
	}
	return nil
}

func fieldRef(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, "{}") {
		return "", fmt.Errorf("%w: %q", ErrInvalidField, name)
	}
	return "{" + name + "}", nil
}

var quoter = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

func literal(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return "'" + quoter.Replace(x) + "'", nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return "", fmt.Errorf("unsupported number %v", x)
		}
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case bool:
		if x {
			return "TRUE()", nil
		}
		return "FALSE()", nil
	}
	return "", fmt.Errorf("unsupported literal type %T", v)
}

// Match 在进程内对字段表求值，语义与公式一致。nil 表达式匹配所有记录
func Match(e Expr, fields map[string]any, now time.Time) bool {
	switch x := e.(type) {
	case nil:
		return true
	case eqExpr:
		return compare(fields[x.Field], x.Value) == 0
	case andExpr:
		for _, sub := range x.Exprs {
			if !Match(sub, fields, now) {
				return false
			}
		}
		return true
	case cmpExpr:
		var c int
		switch o := x.Operand.(type) {
		case todayOperand:
			day, ok := dateOf(fields[x.Field])
			if !ok {
				return false
			}
			c = strings.Compare(day, now.UTC().Format(time.DateOnly))
		case valueOperand:
			if fields[x.Field] == nil {
				return false
			}
			c = compare(fields[x.Field], o.v)
		default:
			return false
		}
		switch x.Op {
		case OpGTE:
			return c >= 0
		case OpLT:
			return c < 0
		}
	}
	return false
}

// compare 数值按数值比较，其余按字符串比较；空字段等同空串
func compare(a, b any) int {
	if fa, ok := number(a); ok {
		if fb, ok := number(b); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			}
			return 0
		}
	}
	return strings.Compare(text(a), text(b))
}

func number(v any) (float64, bool) {
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

func text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		if x {
			return "1"
		}
		return "0"
	}
	return fmt.Sprint(v)
}

// dateOf 取日期字段的 YYYY-MM-DD 部分
func dateOf(v any) (string, bool) {
	s, ok := v.(string)
	if !ok || len(s) < len(time.DateOnly) {
		return "", false
	}
	day := s[:len(time.DateOnly)]
	if _, err := time.Parse(time.DateOnly, day); err != nil {
		return "", false
	}
	return day, true
}
