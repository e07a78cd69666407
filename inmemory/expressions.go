package inmemory

import (
	"fmt"

	"github.com/letmevibethatforyou/discover"
)

// matchesFilters checks if a document matches all the filter expressions.
func (b *Backend) matchesFilters(doc Document, filters []discover.Expression) bool {
	for _, filter := range filters {
		if !b.evaluateExpression(doc, filter) {
			return false
		}
	}
	return true
}

// evaluateExpression evaluates a single expression against a document.
func (b *Backend) evaluateExpression(doc Document, expr discover.Expression) bool {
	switch e := expr.(type) {
	case discover.AndExpr:
		for _, inner := range e.Exprs {
			if !b.evaluateExpression(doc, inner) {
				return false
			}
		}
		return true
	case discover.OrExpr:
		for _, inner := range e.Exprs {
			if b.evaluateExpression(doc, inner) {
				return true
			}
		}
		return false
	case discover.NotExpr:
		return !b.evaluateExpression(doc, e.Inner)
	case discover.EqExpr:
		return b.evaluateEq(doc, e)
	case discover.ExistsExpr:
		v, exists := doc.Fields[e.Field]
		return exists && v != nil
	default:
		// Unknown expression type, return true to not filter out
		return true
	}
}

// evaluateEq matches scalar fields directly and array fields when any
// element matches.
func (b *Backend) evaluateEq(doc Document, expr discover.EqExpr) bool {
	docValue, exists := doc.Fields[expr.Field]
	if !exists {
		return expr.Value == nil
	}

	if list, ok := docValue.([]interface{}); ok {
		for _, item := range list {
			if b.compareEqual(item, expr.Value) {
				return true
			}
		}
		return false
	}
	return b.compareEqual(docValue, expr.Value)
}

// compareEqual checks if two values are equal.
func (b *Backend) compareEqual(v1, v2 interface{}) bool {
	if v1 == nil || v2 == nil {
		return v1 == v2
	}

	if f1, ok1 := toFloat64(v1); ok1 {
		if f2, ok2 := toFloat64(v2); ok2 {
			return f1 == f2
		}
		if s, ok := v2.(string); ok {
			if f2, ok2 := parseFloat(s); ok2 {
				return f1 == f2
			}
		}
	}

	return fmt.Sprintf("%v", v1) == fmt.Sprintf("%v", v2)
}

// toFloat64 attempts to convert a value to float64.
func toFloat64(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int8:
		return float64(val), true
	case int16:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint8:
		return float64(val), true
	case uint16:
		return float64(val), true
	case uint32:
		return float64(val), true
	case uint64:
		return float64(val), true
	default:
		return 0, false
	}
}
