package repository

// Operator is a comparison applied to a single entity field.
type Operator string

const (
	OperatorEquals         Operator = "eq"
	OperatorNotEquals      Operator = "ne"
	OperatorGreaterThan    Operator = "gt"
	OperatorGreaterOrEqual Operator = "gte"
	OperatorLessThan       Operator = "lt"
	OperatorLessOrEqual    Operator = "lte"
	OperatorContains       Operator = "contains"
	OperatorBeginsWith     Operator = "begins_with"
)

// FieldFilter filters on one field. Field names refer to the serialized
// attribute names of the entity, which both backends share.
type FieldFilter struct {
	Field    string
	Operator Operator
	Value    interface{}
}

// Specification describes a query declaratively. Each backend compiles it
// into its native form: the document store builds a DynamoDB filter
// expression, the relational store renders a WHERE clause.
type Specification struct {
	Filters        []FieldFilter
	SortBy         string
	SortDescending bool
	Limit          int
	Offset         int
}

// Where appends a field filter and returns the specification for chaining.
func (s Specification) Where(field string, op Operator, value interface{}) Specification {
	s.Filters = append(s.Filters, FieldFilter{Field: field, Operator: op, Value: value})
	return s
}

// OrderBy sets the sort field and direction.
func (s Specification) OrderBy(field string, descending bool) Specification {
	s.SortBy = field
	s.SortDescending = descending
	return s
}

// Page sets pagination bounds. A zero limit means no limit.
func (s Specification) Page(limit, offset int) Specification {
	s.Limit = limit
	s.Offset = offset
	return s
}
