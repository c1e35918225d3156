package solver

import (
	"fmt"
)

// Var identifies a boolean variable of a Model.
type Var int

// Sense is the comparison of a linear constraint against its right-hand side.
type Sense int

const (
	LessOrEqual Sense = iota
	Equal
	GreaterOrEqual
)

func (s Sense) String() string {
	switch s {
	case LessOrEqual:
		return "<="
	case Equal:
		return "="
	case GreaterOrEqual:
		return ">="
	default:
		return fmt.Sprintf("sense(%d)", int(s))
	}
}

// Term is a coefficient applied to a variable.
type Term struct {
	Var  Var
	Coef int64
}

// Constraint is Σ terms <sense> RHS.
type Constraint struct {
	Name  string
	Terms []Term
	Sense Sense
	RHS   int64
}

// Activity returns the left-hand side value for the given assignment.
func (c Constraint) Activity(values []bool) int64 {
	var act int64
	for _, t := range c.Terms {
		if values[t.Var] {
			act += t.Coef
		}
	}
	return act
}

// Satisfied reports whether the assignment meets the constraint.
func (c Constraint) Satisfied(values []bool) bool {
	act := c.Activity(values)
	switch c.Sense {
	case LessOrEqual:
		return act <= c.RHS
	case GreaterOrEqual:
		return act >= c.RHS
	default:
		return act == c.RHS
	}
}

// Model is a 0-1 integer program. It is built once per run and not shared.
type Model struct {
	names       []string
	group       []int
	groups      [][]Var
	constraints []Constraint
	obj         []int64
	constant    int64
}

// NewModel returns an empty model.
func NewModel() *Model {
	return &Model{}
}

// NewBool adds a boolean variable.
func (m *Model) NewBool(name string) Var {
	m.names = append(m.names, name)
	m.group = append(m.group, -1)
	m.obj = append(m.obj, 0)
	return Var(len(m.names) - 1)
}

// NumVars returns the number of variables.
func (m *Model) NumVars() int { return len(m.names) }

// Name returns the name given to v.
func (m *Model) Name(v Var) string { return m.names[v] }

// ExactlyOne requires exactly one of vars to be true. A variable may belong
// to a single group only.
func (m *Model) ExactlyOne(vars ...Var) error {
	if len(vars) == 0 {
		return fmt.Errorf("exactly-one group is empty")
	}
	idx := len(m.groups)
	for _, v := range vars {
		if err := m.check(v); err != nil {
			return err
		}
		if m.group[v] >= 0 {
			return fmt.Errorf("variable %s already belongs to a group", m.names[v])
		}
	}
	for _, v := range vars {
		m.group[v] = idx
	}
	m.groups = append(m.groups, append([]Var(nil), vars...))
	return nil
}

// AddConstraint appends a linear constraint.
func (m *Model) AddConstraint(name string, sense Sense, rhs int64, terms ...Term) error {
	for _, t := range terms {
		if err := m.check(t.Var); err != nil {
			return fmt.Errorf("constraint %s: %w", name, err)
		}
	}
	m.constraints = append(m.constraints, Constraint{Name: name, Terms: append([]Term(nil), terms...), Sense: sense, RHS: rhs})
	return nil
}

// Fix forces v to the given value.
func (m *Model) Fix(name string, v Var, value bool) error {
	var rhs int64
	if value {
		rhs = 1
	}
	return m.AddConstraint(name, Equal, rhs, Term{Var: v, Coef: 1})
}

// AddObjective adds coef·v to the minimised objective.
func (m *Model) AddObjective(v Var, coef int64) {
	m.obj[v] += coef
}

// AddConstant adds a constant to the objective.
func (m *Model) AddConstant(c int64) { m.constant += c }

// Groups returns the exactly-one groups.
func (m *Model) Groups() [][]Var { return m.groups }

// Constraints returns the linear constraints.
func (m *Model) Constraints() []Constraint { return m.constraints }

// Objective returns the objective coefficient of v.
func (m *Model) Objective(v Var) int64 { return m.obj[v] }

// Constant returns the objective constant.
func (m *Model) Constant() int64 { return m.constant }

// Evaluate returns the objective value of an assignment.
func (m *Model) Evaluate(values []bool) int64 {
	total := m.constant
	for i, on := range values {
		if on {
			total += m.obj[i]
		}
	}
	return total
}

// Check verifies that values is a feasible assignment of the model.
func (m *Model) Check(values []bool) error {
	if len(values) != len(m.names) {
		return fmt.Errorf("expected %d values got %d", len(m.names), len(values))
	}
	for i, g := range m.groups {
		n := 0
		for _, v := range g {
			if values[v] {
				n++
			}
		}
		if n != 1 {
			return fmt.Errorf("group %d has %d variables set", i, n)
		}
	}
	for _, c := range m.constraints {
		if !c.Satisfied(values) {
			return fmt.Errorf("constraint %s violated: %d %s %d", c.Name, c.Activity(values), c.Sense, c.RHS)
		}
	}
	return nil
}

func (m *Model) check(v Var) error {
	if v < 0 || int(v) >= len(m.names) {
		return fmt.Errorf("unknown variable %d", v)
	}
	return nil
}
