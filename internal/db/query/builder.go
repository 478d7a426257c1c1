package query

import (
	"fmt"
	"strings"

	"github.com/cinedex/cinedex-backend/internal/db"
)

// Operator is a comparison applied by a Where condition.
type Operator string

const (
	Eq       Operator = "="
	Gt       Operator = ">"
	Gte      Operator = ">="
	Lt       Operator = "<"
	Lte      Operator = "<="
	Contains Operator = "contains"
)

// Condition is a single column comparison. Conditions are ANDed together.
type Condition struct {
	Column   string
	Operator Operator
	Value    interface{}
}

// Order is a single ORDER BY term.
type Order struct {
	Column string
	Desc   bool
}

// Builder helps construct SQL queries against a single table.
//
// A Builder is immutable: every refinement returns a new Builder, so a base
// builder can be shared and re-rendered any number of times.
type Builder struct {
	dialect    db.Dialect
	table      string
	tiebreak   string
	conditions []Condition
	orders     []Order
	limit      int
	hasLimit   bool
}

// NewBuilder creates a new query builder for a table
func NewBuilder(dialect db.Dialect, table string) *Builder {
	return &Builder{dialect: dialect, table: table}
}

func (b *Builder) clone() *Builder {
	c := *b
	c.conditions = append([]Condition(nil), b.conditions...)
	c.orders = append([]Order(nil), b.orders...)
	return &c
}

// Tiebreak sets the column appended ascending to every ordered selection, so
// rows that compare equal keep a stable order.
func (b *Builder) Tiebreak(column string) *Builder {
	c := b.clone()
	c.tiebreak = column
	return c
}

// Where adds a condition.
func (b *Builder) Where(column string, op Operator, value interface{}) *Builder {
	c := b.clone()
	c.conditions = append(c.conditions, Condition{Column: column, Operator: op, Value: value})
	return c
}

// OrderBy adds an ascending sort key.
func (b *Builder) OrderBy(column string) *Builder {
	c := b.clone()
	c.orders = append(c.orders, Order{Column: column})
	return c
}

// OrderByDesc adds a descending sort key.
func (b *Builder) OrderByDesc(column string) *Builder {
	c := b.clone()
	c.orders = append(c.orders, Order{Column: column, Desc: true})
	return c
}

// Limit caps the number of selected rows. Negative values are treated as zero.
func (b *Builder) Limit(n int) *Builder {
	c := b.clone()
	if n < 0 {
		n = 0
	}
	c.limit = n
	c.hasLimit = true
	return c
}

// Select renders a SELECT of the given columns with conditions, ordering and limit.
func (b *Builder) Select(columns ...string) (string, []interface{}) {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(columns, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(b.table)

	args := b.writeWhere(&sb)
	b.writeOrder(&sb)

	if b.hasLimit {
		fmt.Fprintf(&sb, " LIMIT %d", b.limit)
	}
	return sb.String(), args
}

// Aggregate renders a single-row aggregate such as AVG(rating) over the
// matching rows. Ordering and limit do not apply.
func (b *Builder) Aggregate(fn, column string) (string, []interface{}) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s(%s) FROM %s", fn, column, b.table)
	args := b.writeWhere(&sb)
	return sb.String(), args
}

// Values renders a SELECT of one column over the matching rows, for callers
// that aggregate in Go. Ordering and limit do not apply.
func (b *Builder) Values(column string) (string, []interface{}) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s", column, b.table)
	args := b.writeWhere(&sb)
	return sb.String(), args
}

// GroupBy renders one row per distinct group value with fn(column) computed
// per group, ordered by the group value.
func (b *Builder) GroupBy(group, fn, column string) (string, []interface{}) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s, %s(%s) FROM %s", group, fn, column, b.table)
	args := b.writeWhere(&sb)
	fmt.Fprintf(&sb, " GROUP BY %s ORDER BY %s ASC", group, group)
	return sb.String(), args
}

func (b *Builder) writeWhere(sb *strings.Builder) []interface{} {
	if len(b.conditions) == 0 {
		return nil
	}

	args := make([]interface{}, 0, len(b.conditions))
	clauses := make([]string, 0, len(b.conditions))
	for _, cond := range b.conditions {
		args = append(args, cond.Value)
		placeholder := b.dialect.Placeholder(len(args))

		switch cond.Operator {
		case Contains:
			clauses = append(clauses, b.dialect.Contains(cond.Column, placeholder))
		case Gt, Gte, Lt, Lte:
			clauses = append(clauses, fmt.Sprintf("%s %s %s", cond.Column, cond.Operator, placeholder))
		default:
			clauses = append(clauses, fmt.Sprintf("%s = %s", cond.Column, placeholder))
		}
	}

	sb.WriteString(" WHERE ")
	sb.WriteString(strings.Join(clauses, " AND "))
	return args
}

func (b *Builder) writeOrder(sb *strings.Builder) {
	terms := make([]string, 0, len(b.orders)+1)
	for _, o := range b.orders {
		dir := "ASC"
		if o.Desc {
			dir = "DESC"
		}
		terms = append(terms, o.Column+" "+dir)
	}

	if b.tiebreak != "" {
		last := len(b.orders) - 1
		if last < 0 || b.orders[last].Column != b.tiebreak {
			terms = append(terms, b.tiebreak+" ASC")
		}
	}

	if len(terms) == 0 {
		return
	}
	sb.WriteString(" ORDER BY ")
	sb.WriteString(strings.Join(terms, ", "))
}
