package discover

// Expression is one clause of a parsed query string. ParseQueryString
// builds them and each backend lowers them to its own filter syntax.
type Expression interface {
	expr()
}

type baseExpr struct{}

func (baseExpr) expr() {}

// AndExpr matches when every clause matches.
type AndExpr struct {
	baseExpr
	Exprs []Expression
}

// And joins clauses so that all must match.
func And(exprs ...Expression) Expression {
	return AndExpr{Exprs: exprs}
}

// OrExpr matches when any clause matches.
type OrExpr struct {
	baseExpr
	Exprs []Expression
}

// Or joins clauses so that one must match.
func Or(exprs ...Expression) Expression {
	return OrExpr{Exprs: exprs}
}

// NotExpr inverts Inner. A `-field:"value"` clause parses to one.
type NotExpr struct {
	baseExpr
	Inner Expression
}

// Not wraps expr in a negation.
func Not(expr Expression) Expression {
	return NotExpr{Inner: expr}
}

// EqExpr matches documents whose Field equals Value. A `+field:"value"`
// clause parses to one.
type EqExpr struct {
	baseExpr
	Field string
	Value interface{}
}

// Eq matches field against value.
func Eq(field string, value interface{}) Expression {
	return EqExpr{Field: field, Value: value}
}

// ExistsExpr matches documents that carry Field with a non-nil value.
type ExistsExpr struct {
	baseExpr
	Field string
}

// Exists matches documents that have field set.
func Exists(field string) Expression {
	return ExistsExpr{Field: field}
}
