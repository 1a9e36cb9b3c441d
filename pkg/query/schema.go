// Package query turns list-endpoint request parameters into a store-agnostic plan:
// typed filter conditions, keyword search, sort order, projection and a page window.
package query

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FieldType drives how raw filter values are parsed.
type FieldType string

const (
	FieldString FieldType = "string"
	FieldNumber FieldType = "number"
	FieldBool   FieldType = "bool"
	FieldTime   FieldType = "time"
	FieldUUID   FieldType = "uuid"
)

// Field describes one client-visible attribute of a collection. Requires lists
// extra columns that must be loaded whenever the field is projected.
type Field struct {
	Name       string
	Column     string
	Type       FieldType
	Filterable bool
	Sortable   bool
	Hidden     bool
	Requires   []string
}

// Relation points from a collection to another table through a key pair.
type Relation struct {
	Table      string
	LocalKey   string
	ForeignKey string
}

// KeywordField is a text column searched by the keyword parameter. A nil Via
// means the column lives on the primary collection.
type KeywordField struct {
	Column string
	Via    *Relation
}

// Schema is the allow-list a collection exposes to the shaper.
type Schema struct {
	Fields        []Field
	KeywordFields []KeywordField
	DefaultSort   []SortTerm
	DefaultLimit  int
	MaxLimit      int
}

func (schema Schema) field(name string) (Field, bool) {
	for _, field := range schema.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return Field{}, false
}

func (schema Schema) defaultLimit() int {
	if schema.DefaultLimit > 0 {
		return schema.DefaultLimit
	}
	return defaultLimit
}

func (schema Schema) maxLimit() int {
	if schema.MaxLimit > 0 {
		return schema.MaxLimit
	}
	return maxLimit
}

var timeLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"}

// parseValue converts a raw parameter into the Go value the store compares with.
func (field Field) parseValue(raw string) (any, bool) {
	trimmed := strings.TrimSpace(raw)
	switch field.Type {
	case FieldNumber:
		value, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return nil, false
		}
		return value, true
	case FieldBool:
		value, err := strconv.ParseBool(trimmed)
		if err != nil {
			return nil, false
		}
		return value, true
	case FieldTime:
		for _, layout := range timeLayouts {
			if value, err := time.Parse(layout, trimmed); err == nil {
				return value.UTC(), true
			}
		}
		return nil, false
	case FieldUUID:
		value, err := uuid.Parse(trimmed)
		if err != nil {
			return nil, false
		}
		return value.String(), true
	default:
		if trimmed == "" {
			return nil, false
		}
		return trimmed, true
	}
}
