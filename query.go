package discover

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Operation prefixes a filter clause.
type Operation string

const (
	// Include requires the clause to match.
	Include Operation = "+"
	// Exclude requires the clause not to match.
	Exclude Operation = "-"
)

var slashes = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	"\x00", `\0`,
)

// EscapeValue renders a clause value for use inside double quotes.
// Only strings are escaped; other values are formatted as-is.
func EscapeValue(value interface{}) string {
	s, ok := value.(string)
	if !ok {
		return fmt.Sprintf("%v", value)
	}
	return slashes.Replace(s)
}

// FilterClause renders ` <op><field>:"<value>"`, ready to be appended to a query.
func FilterClause(op Operation, field string, value interface{}) string {
	return " " + string(op) + field + `:"` + EscapeValue(value) + `"`
}

// ParsedQuery is a query string split into free-text terms and field filters.
type ParsedQuery struct {
	// Terms must each match somewhere in a document.
	Terms []string
	// Excluded terms must not match anywhere.
	Excluded []string
	// Filters are field clauses, all of which must hold.
	Filters []Expression
}

// ParseQueryString understands the subset of query_string syntax the
// controller produces: bare or quoted terms, optionally signed, and
// field:value / field:"value" / field:* clauses. Field clauses joined by
// AND or OR form one filter, with AND binding tighter; clauses with no
// connective between them are separate filters.
func ParseQueryString(q string) (*ParsedQuery, error) {
	p := &ParsedQuery{}
	var chain clauseChain
	i := 0
	for {
		for i < len(q) && isSpace(q[i]) {
			i++
		}
		if i >= len(q) {
			chain.flush(p)
			return p, nil
		}

		var sign byte
		if q[i] == '+' || q[i] == '-' {
			sign = q[i]
			i++
		}

		if i < len(q) && q[i] == '"' {
			phrase, n, err := readQuoted(q[i:])
			if err != nil {
				return nil, err
			}
			i += n
			chain.flush(p)
			p.addTerm(sign, phrase)
			continue
		}

		start := i
		for i < len(q) && !isSpace(q[i]) && q[i] != ':' {
			i++
		}
		word := q[start:i]

		if sign == 0 && (word == "AND" || word == "OR") && (i >= len(q) || q[i] != ':') {
			chain.connect(word)
			continue
		}

		if i < len(q) && q[i] == ':' {
			i++
			if word == "" {
				return nil, errors.Wrapf(ErrInvalidQuery, "missing field name at offset %d", start)
			}
			var (
				value  string
				quoted bool
			)
			if i < len(q) && q[i] == '"' {
				v, n, err := readQuoted(q[i:])
				if err != nil {
					return nil, err
				}
				i += n
				value, quoted = v, true
			} else {
				vs := i
				for i < len(q) && !isSpace(q[i]) {
					i++
				}
				value = q[vs:i]
			}

			var e Expression = Eq(word, value)
			if !quoted && value == "*" {
				e = Exists(word)
			}
			if sign == '-' {
				e = Not(e)
			}
			chain.add(p, e)
			continue
		}

		chain.flush(p)
		p.addTerm(sign, word)
	}
}

// clauseChain collects field clauses joined by AND/OR as a disjunction of
// conjunctions.
type clauseChain struct {
	groups [][]Expression
	conn   string
}

// connect records the connective before the next clause. Outside a chain
// the keyword has nothing to join and is dropped.
func (c *clauseChain) connect(word string) {
	if len(c.groups) > 0 {
		c.conn = word
	}
}

func (c *clauseChain) add(p *ParsedQuery, e Expression) {
	switch {
	case len(c.groups) > 0 && c.conn == "OR":
		c.groups = append(c.groups, []Expression{e})
	case len(c.groups) > 0 && c.conn == "AND":
		last := len(c.groups) - 1
		c.groups[last] = append(c.groups[last], e)
	default:
		c.flush(p)
		c.groups = [][]Expression{{e}}
	}
	c.conn = ""
}

func (c *clauseChain) flush(p *ParsedQuery) {
	if len(c.groups) == 0 {
		return
	}
	ors := make([]Expression, 0, len(c.groups))
	for _, g := range c.groups {
		if len(g) == 1 {
			ors = append(ors, g[0])
		} else {
			ors = append(ors, And(g...))
		}
	}
	if len(ors) == 1 {
		p.Filters = append(p.Filters, ors[0])
	} else {
		p.Filters = append(p.Filters, Or(ors...))
	}
	c.groups, c.conn = nil, ""
}

func (p *ParsedQuery) addTerm(sign byte, term string) {
	if term == "" {
		return
	}
	if sign == '-' {
		p.Excluded = append(p.Excluded, term)
		return
	}
	p.Terms = append(p.Terms, term)
}

// readQuoted reads a double-quoted value starting at s[0] and returns the
// unescaped value and the number of bytes consumed.
func readQuoted(s string) (string, int, error) {
	var b strings.Builder
	for j := 1; j < len(s); j++ {
		switch c := s[j]; c {
		case '\\':
			if j+1 >= len(s) {
				return "", 0, errors.Wrap(ErrInvalidQuery, "dangling escape")
			}
			j++
			if s[j] == '0' {
				b.WriteByte(0)
			} else {
				b.WriteByte(s[j])
			}
		case '"':
			return b.String(), j + 1, nil
		default:
			b.WriteByte(c)
		}
	}
	return "", 0, errors.Wrap(ErrInvalidQuery, "unterminated quote")
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
