package gormstore

import (
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/MarkoPoloResearchLab/voyages/pkg/query"
)

const tieBreakColumn = "id"

// filtered applies the plan's conditions and keyword group.
func filtered(plan query.Plan) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		for _, condition := range plan.Conditions {
			db = db.Where(conditionExpression(condition))
		}
		if plan.Keyword != nil && len(plan.Keyword.Fields) > 0 {
			db = db.Where(keywordExpression(*plan.Keyword))
		}
		return db
	}
}

// windowed applies projection, ordering and the page window.
func windowed(plan query.Plan) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if len(plan.Projection.Columns) > 0 {
			db = db.Select(plan.Projection.Columns)
		}
		ordersByID := false
		for _, term := range plan.Sort {
			db = db.Order(clause.OrderByColumn{
				Column: clause.Column{Table: clause.CurrentTable, Name: term.Column},
				Desc:   term.Descending,
			})
			ordersByID = ordersByID || term.Column == tieBreakColumn
		}
		if !ordersByID {
			db = db.Order(clause.OrderByColumn{Column: clause.Column{Table: clause.CurrentTable, Name: tieBreakColumn}})
		}
		if plan.Limit > 0 {
			db = db.Offset(plan.Skip()).Limit(plan.Limit)
		}
		return db
	}
}

func conditionExpression(condition query.Condition) clause.Expression {
	column := clause.Column{Table: clause.CurrentTable, Name: condition.Column}
	switch condition.Operator {
	case query.OperatorGt:
		return clause.Gt{Column: column, Value: condition.Value()}
	case query.OperatorGte:
		return clause.Gte{Column: column, Value: condition.Value()}
	case query.OperatorLt:
		return clause.Lt{Column: column, Value: condition.Value()}
	case query.OperatorLte:
		return clause.Lte{Column: column, Value: condition.Value()}
	case query.OperatorIn:
		return clause.IN{Column: column, Values: condition.Values}
	default:
		return clause.Eq{Column: column, Value: condition.Value()}
	}
}

// keywordExpression ORs a case-insensitive LIKE over every keyword field as one
// parenthesized expression. Fields on a related table match through a subquery
// on the relation's key pair.
func keywordExpression(keyword query.Keyword) clause.Expression {
	pattern := keyword.LikePattern()
	parts := make([]string, 0, len(keyword.Fields))
	vars := make([]any, 0, len(keyword.Fields)*4)
	for _, field := range keyword.Fields {
		if field.Via == nil {
			parts = append(parts, `LOWER(?) LIKE ? ESCAPE '\'`)
			vars = append(vars, clause.Column{Table: clause.CurrentTable, Name: field.Column}, pattern)
			continue
		}
		parts = append(parts, `? IN (SELECT ? FROM ? WHERE LOWER(?) LIKE ? ESCAPE '\')`)
		vars = append(vars,
			clause.Column{Table: clause.CurrentTable, Name: field.Via.LocalKey},
			clause.Column{Name: field.Via.ForeignKey},
			clause.Table{Name: field.Via.Table},
			clause.Column{Name: field.Column},
			pattern,
		)
	}
	return clause.Expr{SQL: "(" + strings.Join(parts, " OR ") + ")", Vars: vars}
}
