// Package dice provides the randomness abstraction used by combat, behaviors
// and scripts.
package dice

import (
	"fmt"
	"strconv"
	"strings"
)

// Expr is a dice expression in NdS+M notation.
type Expr struct {
	Count    int
	Sides    int
	Modifier int
}

// D20 is a single twenty-sided die.
var D20 = Expr{Count: 1, Sides: 20}

// maxDice bounds Count so a script cannot ask for an unbounded roll.
const maxDice = 100

// Parse reads expressions such as "d20", "3d6" and "2d8-1". The count
// defaults to 1 and whitespace is not allowed.
func Parse(s string) (Expr, error) {
	lower := strings.ToLower(s)
	count, rest, ok := strings.Cut(lower, "d")
	if !ok {
		return Expr{}, fmt.Errorf("dice %q: missing 'd'", s)
	}
	e := Expr{Count: 1}
	if count != "" {
		n, err := strconv.Atoi(count)
		if err != nil || n < 1 || n > maxDice {
			return Expr{}, fmt.Errorf("dice %q: count must be 1..%d", s, maxDice)
		}
		e.Count = n
	}
	sides := rest
	if i := strings.IndexAny(rest, "+-"); i >= 0 {
		sides = rest[:i]
		m, err := strconv.Atoi(rest[i:])
		if err != nil {
			return Expr{}, fmt.Errorf("dice %q: bad modifier", s)
		}
		e.Modifier = m
	}
	n, err := strconv.Atoi(sides)
	if err != nil || n < 1 {
		return Expr{}, fmt.Errorf("dice %q: sides must be a positive number", s)
	}
	e.Sides = n
	return e, nil
}

func (e Expr) String() string {
	if e.Modifier == 0 {
		return fmt.Sprintf("%dd%d", e.Count, e.Sides)
	}
	return fmt.Sprintf("%dd%d%+d", e.Count, e.Sides, e.Modifier)
}

// Outcome is one roll of an Expr.
//
// Postcondition: Total() == sum(Faces) + Modifier.
type Outcome struct {
	Expr
	Faces []int
}

// Total sums the faces and the modifier.
func (o Outcome) Total() int {
	sum := o.Modifier
	for _, f := range o.Faces {
		sum += f
	}
	return sum
}

// String renders the roll for logs, e.g. "2d6+3 [4 5] = 12".
func (o Outcome) String() string {
	return fmt.Sprintf("%s %v = %d", o.Expr, o.Faces, o.Total())
}

// Source is the randomness provider for dice rolls.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}
