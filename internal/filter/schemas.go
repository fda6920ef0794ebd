package filter

import "github.com/Skotchmaster/storefront/internal/models"

var numericOps = []Op{OpExact, OpGt, OpGte, OpLt, OpLte}

var Products = Schema{
	Fields: map[string]Field{
		"name":        {Column: "name", Kind: KindString, Ops: []Op{OpExact, OpIExact, OpIStarts, OpIContains}},
		"description": {Column: "description", Kind: KindString, Ops: []Op{OpIContains}},
		"price":       {Column: "price", Kind: KindDecimal, Ops: numericOps},
		"stock":       {Column: "stock", Kind: KindInt, Ops: numericOps},
	},
	Flags: map[string]Flag{
		"in_stock": {
			True:  Condition{Column: "stock", Op: OpGt, Value: 0},
			False: Condition{Column: "stock", Op: OpExact, Value: 0},
		},
	},
	SearchColumns: []string{"name", "description"},
	OrderingFields: map[string]string{
		"price": "price",
		"name":  "name",
		"stock": "stock",
	},
	DefaultOrdering: []Ordering{{Column: "created_at"}},
	TieBreaker:      "id",
}

var Orders = Schema{
	Fields: map[string]Field{
		"status":     {Column: "status", Kind: KindString, Ops: []Op{OpExact, OpIn}, Choices: statusChoices()},
		"created_at": {Column: "created_at", Kind: KindTime, Ops: numericOps},
	},
	OrderingFields: map[string]string{
		"created_at": "created_at",
		"status":     "status",
	},
	DefaultOrdering: []Ordering{{Column: "created_at", Desc: true}},
	TieBreaker:      "id",
}

func statusChoices() []string {
	out := make([]string, 0, len(models.OrderStatuses))
	for _, s := range models.OrderStatuses {
		out = append(out, string(s))
	}
	return out
}
