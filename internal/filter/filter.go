// Package filter turns query parameters into a typed, allow-listed query
// specification and applies it to gorm queries.
package filter

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/storefront/internal/transport"
)

type Op string

const (
	OpExact     Op = "exact"
	OpIExact    Op = "iexact"
	OpIContains Op = "icontains"
	OpIStarts   Op = "istartswith"
	OpGt        Op = "gt"
	OpGte       Op = "gte"
	OpLt        Op = "lt"
	OpLte       Op = "lte"
	OpIn        Op = "in"
)

type Kind int

const (
	KindString Kind = iota
	KindDecimal
	KindInt
	KindTime
)

const (
	ParamSearch   = "search"
	ParamOrdering = "ordering"
	ParamLimit    = "limit"
	ParamOffset   = "offset"

	DefaultLimit = 20
	MaxLimit     = 100
)

type Field struct {
	Column  string
	Kind    Kind
	Ops     []Op
	Choices []string
}

func (f Field) allows(op Op) bool {
	for _, o := range f.Ops {
		if o == op {
			return true
		}
	}
	return false
}

// Flag is a boolean query parameter mapped to one condition per value.
type Flag struct {
	True  Condition
	False Condition
}

type Schema struct {
	Fields          map[string]Field
	Flags           map[string]Flag
	SearchColumns   []string
	OrderingFields  map[string]string
	DefaultOrdering []Ordering
	TieBreaker      string
}

type Condition struct {
	Column string
	Op     Op
	Value  any
}

type Ordering struct {
	Column string
	Desc   bool
}

type Spec struct {
	Conditions []Condition
	Search     []string
	Ordering   []Ordering
	Limit      int
	Offset     int
}

// With returns a copy of s with extra conditions appended.
func (s Spec) With(conds ...Condition) Spec {
	out := s
	out.Conditions = append(append([]Condition(nil), s.Conditions...), conds...)
	return out
}

func Parse(values url.Values, schema Schema) (Spec, error) {
	verr := transport.NewValidationError()
	spec := Spec{Limit: DefaultLimit}

	for key, vals := range values {
		if len(vals) == 0 {
			continue
		}
		raw := vals[len(vals)-1]

		switch key {
		case ParamSearch:
			spec.Search = strings.Fields(raw)
			continue
		case ParamOrdering, ParamLimit, ParamOffset:
			continue
		}

		if flag, ok := schema.Flags[key]; ok {
			b, err := strconv.ParseBool(raw)
			if err != nil {
				verr.Add(key, "Must be a valid boolean.")
				continue
			}
			if b {
				spec.Conditions = append(spec.Conditions, flag.True)
			} else {
				spec.Conditions = append(spec.Conditions, flag.False)
			}
			continue
		}

		name, op := splitLookup(key)
		field, ok := schema.Fields[name]
		if !ok || !field.allows(op) {
			continue
		}

		cond, msg := buildCondition(field, op, raw)
		if msg != "" {
			verr.Add(key, msg)
			continue
		}
		spec.Conditions = append(spec.Conditions, cond)
	}

	if len(schema.SearchColumns) == 0 {
		spec.Search = nil
	}

	spec.Ordering = parseOrdering(values.Get(ParamOrdering), schema)
	spec.Limit, spec.Offset = parsePage(values.Get(ParamLimit), values.Get(ParamOffset))

	if err := verr.OrNil(); err != nil {
		return Spec{}, err
	}
	return spec, nil
}

func splitLookup(key string) (string, Op) {
	name, op, found := strings.Cut(key, "__")
	if !found {
		return key, OpExact
	}
	return name, Op(op)
}

func buildCondition(field Field, op Op, raw string) (Condition, string) {
	if op == OpIn {
		parts := strings.Split(raw, ",")
		vals := make([]any, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			v, msg := parseValue(field, p)
			if msg != "" {
				return Condition{}, msg
			}
			vals = append(vals, v)
		}
		if len(vals) == 0 {
			return Condition{}, "Enter a list of values."
		}
		return Condition{Column: field.Column, Op: OpIn, Value: vals}, ""
	}

	if field.Kind == KindTime {
		return timeCondition(field, op, raw)
	}

	v, msg := parseValue(field, raw)
	if msg != "" {
		return Condition{}, msg
	}
	return Condition{Column: field.Column, Op: op, Value: v}, ""
}

func parseValue(field Field, raw string) (any, string) {
	switch field.Kind {
	case KindDecimal:
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, "Enter a number."
		}
		return d, ""
	case KindInt:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, "Enter a whole number."
		}
		return n, ""
	case KindTime:
		t, _, err := parseTime(raw)
		if err != nil {
			return nil, "Enter a valid date/time."
		}
		return t, ""
	default:
		if len(field.Choices) > 0 && !contains(field.Choices, raw) {
			return nil, fmt.Sprintf("Select a valid choice. %s is not one of the available choices.", raw)
		}
		return raw, ""
	}
}

// timeCondition widens date-only bounds so that a day is matched as a whole.
func timeCondition(field Field, op Op, raw string) (Condition, string) {
	t, dateOnly, err := parseTime(raw)
	if err != nil {
		return Condition{}, "Enter a valid date/time."
	}
	if dateOnly {
		next := t.AddDate(0, 0, 1)
		switch op {
		case OpLte:
			return Condition{Column: field.Column, Op: OpLt, Value: next}, ""
		case OpGt:
			return Condition{Column: field.Column, Op: OpGte, Value: next}, ""
		}
	}
	return Condition{Column: field.Column, Op: op, Value: t}, ""
}

func parseTime(raw string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), false, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}

// parseOrdering keeps only allow-listed keys; unknown keys are dropped.
func parseOrdering(raw string, schema Schema) []Ordering {
	var out []Ordering
	seen := map[string]bool{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		desc := strings.HasPrefix(part, "-")
		part = strings.TrimPrefix(part, "-")

		col, ok := schema.OrderingFields[part]
		if !ok || seen[col] {
			continue
		}
		seen[col] = true
		out = append(out, Ordering{Column: col, Desc: desc})
	}
	if len(out) == 0 {
		out = append(out, schema.DefaultOrdering...)
	}
	if schema.TieBreaker != "" && !seen[schema.TieBreaker] {
		out = append(out, Ordering{Column: schema.TieBreaker})
	}
	return out
}

func parsePage(rawLimit, rawOffset string) (limit, offset int) {
	limit = DefaultLimit
	if n, err := strconv.Atoi(rawLimit); err == nil && n > 0 {
		limit = n
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if n, err := strconv.Atoi(rawOffset); err == nil && n > 0 {
		offset = n
	}
	return limit, offset
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(v string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(v)) + "%"
}

func prefixPattern(v string) string {
	return likeEscaper.Replace(strings.ToLower(v)) + "%"
}

// Where applies conditions and search terms; it is shared by count and page queries.
func (s Spec) Where(searchColumns []string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		for _, c := range s.Conditions {
			db = applyCondition(db, c)
		}
		for _, term := range s.Search {
			if len(searchColumns) == 0 {
				break
			}
			clauses := make([]string, 0, len(searchColumns))
			args := make([]any, 0, len(searchColumns))
			for _, col := range searchColumns {
				clauses = append(clauses, "LOWER("+col+") LIKE ? ESCAPE '\\'")
				args = append(args, likePattern(term))
			}
			db = db.Where("("+strings.Join(clauses, " OR ")+")", args...)
		}
		return db
	}
}

func applyCondition(db *gorm.DB, c Condition) *gorm.DB {
	switch c.Op {
	case OpIExact:
		return db.Where("LOWER("+c.Column+") = ?", strings.ToLower(fmt.Sprint(c.Value)))
	case OpIContains:
		return db.Where("LOWER("+c.Column+") LIKE ? ESCAPE '\\'", likePattern(fmt.Sprint(c.Value)))
	case OpIStarts:
		return db.Where("LOWER("+c.Column+") LIKE ? ESCAPE '\\'", prefixPattern(fmt.Sprint(c.Value)))
	case OpGt:
		return db.Where(c.Column+" > ?", c.Value)
	case OpGte:
		return db.Where(c.Column+" >= ?", c.Value)
	case OpLt:
		return db.Where(c.Column+" < ?", c.Value)
	case OpLte:
		return db.Where(c.Column+" <= ?", c.Value)
	case OpIn:
		return db.Where(c.Column+" IN ?", c.Value)
	default:
		return db.Where(c.Column+" = ?", c.Value)
	}
}

// Page applies ordering, limit and offset.
func (s Spec) Page() func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return s.Order()(db).Limit(s.Limit).Offset(s.Offset)
	}
}

func (s Spec) Order() func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		for _, o := range s.Ordering {
			db = db.Order(clause.OrderByColumn{Column: clause.Column{Name: o.Column}, Desc: o.Desc})
		}
		return db
	}
}
