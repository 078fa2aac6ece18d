package querylanguage

// Order is one sort key: an attribute or extended property by logical
// name, and a direction.
type Order struct {
	Field string
	Desc  bool
}

// Asc returns an ascending sort key.
func Asc(field string) Order {
	return Order{Field: field}
}

// Desc returns a descending sort key.
func Desc(field string) Order {
	return Order{Field: field, Desc: true}
}

// String returns the text representation of the sort key.
func (o Order) String() string {
	if o.Desc {
		return o.Field + " DESC"
	}
	return o.Field + " ASC"
}
