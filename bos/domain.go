package bos

import (
	"fmt"
	"strings"
)

// Op is a comparison operator of a domain clause.
type Op string

const (
	Eq       Op = "="
	NotEq    Op = "!="
	In       Op = "in"
	NotIn    Op = "not in"
	ILike    Op = "ilike"
	NotILike Op = "not ilike"
	Lt       Op = "<"
	Le       Op = "<="
	Gt       Op = ">"
	Ge       Op = ">="
)

// Clause filters on one field. Field may be a dotted path traversing
// many2one relations, e.g. "move.state".
type Clause struct {
	Field string
	Op    Op
	Value any
}

// Domain is a conjunction of clauses. The empty domain matches everything.
type Domain []Clause

// Where builds a single-clause domain.
func Where(field string, op Op, value any) Domain {
	return Domain{{Field: field, Op: op, Value: value}}
}

// And returns the domain extended with another clause.
func (d Domain) And(field string, op Op, value any) Domain {
	out := make(Domain, len(d), len(d)+1)
	copy(out, d)
	return append(out, Clause{Field: field, Op: op, Value: value})
}

// Path splits the clause field on dots.
func (c Clause) Path() []string {
	return strings.Split(c.Field, ".")
}

func (c Clause) String() string {
	return fmt.Sprintf("(%s %s %v)", c.Field, c.Op, c.Value)
}

func (d Domain) String() string {
	parts := make([]string, len(d))
	for i, c := range d {
		parts[i] = c.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
