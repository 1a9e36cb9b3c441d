package query

import (
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

const (
	ParamPage    = "page"
	ParamLimit   = "limit"
	ParamSort    = "sort"
	ParamFields  = "fields"
	ParamKeyword = "keyword"

	defaultPage  = 1
	defaultLimit = 15
	maxLimit     = 100

	listSeparator  = ","
	descendingMark = "-"
	idFieldName    = "id"
	likeEscape     = `\`
)

var reservedParams = map[string]struct{}{
	ParamPage:    {},
	ParamLimit:   {},
	ParamSort:    {},
	ParamFields:  {},
	ParamKeyword: {},
}

// Operator is a comparison applied to a single column.
type Operator string

const (
	OperatorEq  Operator = "eq"
	OperatorGt  Operator = "gt"
	OperatorGte Operator = "gte"
	OperatorLt  Operator = "lt"
	OperatorLte Operator = "lte"
	OperatorIn  Operator = "in"
)

func parseOperator(raw string) (Operator, bool) {
	switch Operator(raw) {
	case OperatorGt, OperatorGte, OperatorLt, OperatorLte, OperatorIn:
		return Operator(raw), true
	}
	return "", false
}

func (operator Operator) supports(fieldType FieldType) bool {
	if fieldType == FieldBool {
		return operator == OperatorEq || operator == OperatorIn
	}
	return true
}

// Condition constrains one column. OperatorIn carries every candidate in Values,
// every other operator carries exactly one value.
type Condition struct {
	Column   string
	Operator Operator
	Values   []any
}

// Value returns the single comparison operand.
func (condition Condition) Value() any {
	if len(condition.Values) == 0 {
		return nil
	}
	return condition.Values[0]
}

// Equal builds an equality condition for fixed, server-side constraints.
func Equal(column string, value any) Condition {
	return Condition{Column: column, Operator: OperatorEq, Values: []any{value}}
}

// SortTerm orders by one column.
type SortTerm struct {
	Column     string
	Descending bool
}

// Keyword is a case-insensitive substring match ORed across Fields.
type Keyword struct {
	Term   string
	Fields []KeywordField
}

// LikePattern returns the lower-cased, escaped LIKE operand for the term.
// The escape character is a backslash.
func (keyword Keyword) LikePattern() string {
	replacer := strings.NewReplacer(likeEscape, likeEscape+likeEscape, "%", likeEscape+"%", "_", likeEscape+"_")
	return "%" + replacer.Replace(strings.ToLower(keyword.Term)) + "%"
}

// Projection lists the selected columns and the client names they render as.
type Projection struct {
	Columns  []string
	Names    []string
	Explicit bool
}

// Plan is the store-agnostic shape of one list request.
type Plan struct {
	Conditions []Condition
	Keyword    *Keyword
	Sort       []SortTerm
	Projection Projection
	Page       int
	Limit      int
}

// Skip is the number of matching documents before the current page.
func (plan Plan) Skip() int {
	if plan.Page < 1 || plan.Limit < 1 {
		return 0
	}
	return (min(plan.Page, pageCeiling(plan.Limit)) - 1) * plan.Limit
}

// pageCeiling keeps page*limit within 32 bits.
func pageCeiling(limit int) int {
	return math.MaxInt32 / limit
}

// Where returns a copy of the plan with extra conditions ANDed in.
func (plan Plan) Where(conditions ...Condition) Plan {
	combined := make([]Condition, 0, len(plan.Conditions)+len(conditions))
	combined = append(combined, plan.Conditions...)
	combined = append(combined, conditions...)
	plan.Conditions = combined
	return plan
}

// Project keeps only the projected attributes of a rendered document.
func (plan Plan) Project(document map[string]any) map[string]any {
	if !plan.Projection.Explicit {
		return document
	}
	projected := make(map[string]any, len(plan.Projection.Names))
	for _, name := range plan.Projection.Names {
		if value, ok := document[name]; ok {
			projected[name] = value
		}
	}
	return projected
}

// Shape builds a Plan from request parameters. It never fails: anything the
// schema does not allow, or that does not parse, falls back to defaults or is dropped.
func Shape(schema Schema, params url.Values) Plan {
	limit := parsePositive(params.Get(ParamLimit), schema.defaultLimit(), schema.maxLimit())
	return Plan{
		Conditions: shapeConditions(schema, params),
		Keyword:    shapeKeyword(schema, params.Get(ParamKeyword)),
		Sort:       shapeSort(schema, params.Get(ParamSort)),
		Projection: shapeProjection(schema, params.Get(ParamFields)),
		Page:       parsePositive(params.Get(ParamPage), defaultPage, pageCeiling(limit)),
		Limit:      limit,
	}
}

func shapeConditions(schema Schema, params url.Values) []Condition {
	keys := make([]string, 0, len(params))
	for key := range params {
		if _, reserved := reservedParams[key]; !reserved {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	conditions := make([]Condition, 0, len(keys))
	for _, key := range keys {
		name, operator, ok := splitFilterKey(key)
		if !ok {
			continue
		}
		field, known := schema.field(name)
		if !known || !field.Filterable || !operator.supports(field.Type) {
			continue
		}
		condition, ok := buildCondition(field, operator, params[key])
		if ok {
			conditions = append(conditions, condition)
		}
	}
	return conditions
}

// splitFilterKey separates "price[gte]" into the field name and operator.
func splitFilterKey(key string) (string, Operator, bool) {
	name, rest, bracketed := strings.Cut(key, "[")
	if !bracketed {
		return key, OperatorEq, key != ""
	}
	if !strings.HasSuffix(rest, "]") || name == "" {
		return "", "", false
	}
	operator, ok := parseOperator(strings.TrimSuffix(rest, "]"))
	return name, operator, ok
}

func buildCondition(field Field, operator Operator, rawValues []string) (Condition, bool) {
	if operator == OperatorIn || (operator == OperatorEq && len(rawValues) > 1) {
		var values []any
		for _, rawValue := range rawValues {
			for _, part := range strings.Split(rawValue, listSeparator) {
				if value, ok := field.parseValue(part); ok {
					values = append(values, value)
				}
			}
		}
		if len(values) == 0 {
			return Condition{}, false
		}
		return Condition{Column: field.Column, Operator: OperatorIn, Values: values}, true
	}
	if len(rawValues) == 0 {
		return Condition{}, false
	}
	value, ok := field.parseValue(rawValues[0])
	if !ok {
		return Condition{}, false
	}
	return Condition{Column: field.Column, Operator: operator, Values: []any{value}}, true
}

func shapeKeyword(schema Schema, raw string) *Keyword {
	term := strings.TrimSpace(raw)
	if term == "" || len(schema.KeywordFields) == 0 {
		return nil
	}
	return &Keyword{Term: term, Fields: schema.KeywordFields}
}

func shapeSort(schema Schema, raw string) []SortTerm {
	var terms []SortTerm
	seen := make(map[string]struct{})
	for _, part := range strings.Split(raw, listSeparator) {
		part = strings.TrimSpace(part)
		descending := strings.HasPrefix(part, descendingMark)
		name := strings.TrimPrefix(part, descendingMark)
		field, known := schema.field(name)
		if !known || !field.Sortable {
			continue
		}
		if _, duplicate := seen[field.Column]; duplicate {
			continue
		}
		seen[field.Column] = struct{}{}
		terms = append(terms, SortTerm{Column: field.Column, Descending: descending})
	}
	if len(terms) == 0 {
		return append([]SortTerm(nil), schema.DefaultSort...)
	}
	return terms
}

func shapeProjection(schema Schema, raw string) Projection {
	requested := make(map[string]struct{})
	for _, part := range strings.Split(raw, listSeparator) {
		if name := strings.TrimSpace(part); name != "" {
			requested[name] = struct{}{}
		}
	}
	explicit := false
	for _, field := range schema.Fields {
		if _, wanted := requested[field.Name]; wanted && !field.Hidden {
			explicit = true
		}
	}

	projection := Projection{Explicit: explicit}
	selected := make(map[string]struct{})
	addColumn := func(column string) {
		if _, duplicate := selected[column]; !duplicate {
			selected[column] = struct{}{}
			projection.Columns = append(projection.Columns, column)
		}
	}
	for _, field := range schema.Fields {
		if field.Hidden {
			continue
		}
		if _, wanted := requested[field.Name]; explicit && !wanted && field.Name != idFieldName {
			continue
		}
		addColumn(field.Column)
		for _, column := range field.Requires {
			addColumn(column)
		}
		projection.Names = append(projection.Names, field.Name)
	}
	return projection
}

func parsePositive(raw string, fallback int, ceiling int) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value < 1 {
		return fallback
	}
	if ceiling > 0 && value > ceiling {
		return ceiling
	}
	return value
}
