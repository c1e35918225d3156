package solver

import (
	"sort"
)

const noVar Var = -1

// choice is one admissible assignment of a unit: the variable set to true,
// or noVar when every member stays false.
type choice struct {
	on    Var
	obj   int64
	coefs []int64 // aligned with unit.rows
}

// unit is a branching decision: an exactly-one group or a free variable.
type unit struct {
	index   int
	rows    []int
	choices []choice
	minC    []int64
	maxC    []int64
	minObj  int64
}

func (u *unit) refresh() {
	u.minC = make([]int64, len(u.rows))
	u.maxC = make([]int64, len(u.rows))
	for j := range u.rows {
		for k, ch := range u.choices {
			if k == 0 || ch.coefs[j] < u.minC[j] {
				u.minC[j] = ch.coefs[j]
			}
			if k == 0 || ch.coefs[j] > u.maxC[j] {
				u.maxC[j] = ch.coefs[j]
			}
		}
	}
	for k, ch := range u.choices {
		if k == 0 || ch.obj < u.minObj {
			u.minObj = ch.obj
		}
	}
}

func (u *unit) regret() int64 {
	if len(u.choices) < 2 {
		return 0
	}
	objs := make([]int64, len(u.choices))
	for k, ch := range u.choices {
		objs[k] = ch.obj
	}
	sort.Slice(objs, func(i, j int) bool { return objs[i] < objs[j] })
	return objs[1] - objs[0]
}

type row struct {
	name   string
	lo, hi int64
	hasLo  bool
	hasHi  bool
	// knap lists the capacity consumers of a knapsack row sorted by
	// penalty per unit of capacity. Nil for other rows.
	knap []knapItem
}

func (r *row) admits(act int64) bool {
	return (!r.hasHi || act <= r.hi) && (!r.hasLo || act >= r.lo)
}

type knapItem struct {
	pos   int
	w     int64
	delta int64
}

// problem is the search form of a Model.
type problem struct {
	nvars    int
	constant int64
	units    []*unit
	rows     []row
	knapRows []int
	restMin  []int64
}

// compile turns m into units and rows, removes statically infeasible
// choices and orders the search. It reports false when m has no solution.
func compile(m *Model) (*problem, bool) {
	p := &problem{nvars: m.NumVars(), constant: m.Constant()}
	owner := make([]int, m.NumVars())
	for _, g := range m.Groups() {
		u := &unit{index: len(p.units)}
		for _, v := range g {
			u.choices = append(u.choices, choice{on: v, obj: m.Objective(v)})
			owner[v] = u.index
		}
		p.units = append(p.units, u)
	}
	for i := 0; i < m.NumVars(); i++ {
		v := Var(i)
		if m.group[v] >= 0 {
			continue
		}
		u := &unit{index: len(p.units), choices: []choice{{on: noVar}, {on: v, obj: m.Objective(v)}}}
		owner[v] = u.index
		p.units = append(p.units, u)
	}

	coefs := make([]map[Var]int64, 0, len(m.Constraints()))
	for ri, c := range m.Constraints() {
		r := row{name: c.Name}
		switch c.Sense {
		case LessOrEqual:
			r.hi, r.hasHi = c.RHS, true
		case GreaterOrEqual:
			r.lo, r.hasLo = c.RHS, true
		default:
			r.lo, r.hi, r.hasLo, r.hasHi = c.RHS, c.RHS, true, true
		}
		agg := make(map[Var]int64, len(c.Terms))
		for _, t := range c.Terms {
			agg[t.Var] += t.Coef
		}
		empty := true
		for _, t := range c.Terms {
			if agg[t.Var] == 0 {
				continue
			}
			empty = false
			u := p.units[owner[t.Var]]
			if n := len(u.rows); n == 0 || u.rows[n-1] != ri {
				u.rows = append(u.rows, ri)
			}
		}
		if empty && !r.admits(0) {
			return nil, false
		}
		p.rows = append(p.rows, r)
		coefs = append(coefs, agg)
	}

	for _, u := range p.units {
		for k := range u.choices {
			ch := &u.choices[k]
			ch.coefs = make([]int64, len(u.rows))
			if ch.on == noVar {
				continue
			}
			for j, r := range u.rows {
				ch.coefs[j] = coefs[r][ch.on]
			}
		}
		u.refresh()
	}

	if !p.filter() {
		return nil, false
	}
	p.order()
	p.prepareKnapsacks()
	return p, true
}

// filter drops choices that violate a row whatever the other units do,
// repeating until nothing changes.
func (p *problem) filter() bool {
	lo := make([]int64, len(p.rows))
	hi := make([]int64, len(p.rows))
	for _, u := range p.units {
		for j, r := range u.rows {
			lo[r] += u.minC[j]
			hi[r] += u.maxC[j]
		}
	}
	for changed := true; changed; {
		changed = false
		for _, u := range p.units {
			kept := make([]choice, 0, len(u.choices))
			for _, ch := range u.choices {
				ok := true
				for j, r := range u.rows {
					rw := &p.rows[r]
					if rw.hasHi && lo[r]-u.minC[j]+ch.coefs[j] > rw.hi {
						ok = false
						break
					}
					if rw.hasLo && hi[r]-u.maxC[j]+ch.coefs[j] < rw.lo {
						ok = false
						break
					}
				}
				if ok {
					kept = append(kept, ch)
				}
			}
			if len(kept) == 0 {
				return false
			}
			if len(kept) == len(u.choices) {
				continue
			}
			for j, r := range u.rows {
				lo[r] -= u.minC[j]
				hi[r] -= u.maxC[j]
			}
			u.choices = kept
			u.refresh()
			for j, r := range u.rows {
				lo[r] += u.minC[j]
				hi[r] += u.maxC[j]
			}
			changed = true
		}
	}
	return true
}

// order sorts units so that forced decisions come first, then by
// descending regret. Choices are tried cheapest first.
func (p *problem) order() {
	for _, u := range p.units {
		sort.SliceStable(u.choices, func(i, j int) bool { return u.choices[i].obj < u.choices[j].obj })
	}
	regret := make([]int64, len(p.units))
	for i, u := range p.units {
		regret[i] = u.regret()
	}
	sort.SliceStable(p.units, func(i, j int) bool {
		a, b := p.units[i], p.units[j]
		fa, fb := len(a.choices) == 1, len(b.choices) == 1
		if fa != fb {
			return fa
		}
		if regret[a.index] != regret[b.index] {
			return regret[a.index] > regret[b.index]
		}
		return a.index < b.index
	})
	p.restMin = make([]int64, len(p.units)+1)
	for d := len(p.units) - 1; d >= 0; d-- {
		p.restMin[d] = p.restMin[d+1] + p.units[d].minObj
	}
}

// split returns the depth of the first unit with more than one choice, or
// -1 when every decision is forced.
func (p *problem) split() int {
	for d, u := range p.units {
		if len(u.choices) > 1 {
			return d
		}
	}
	return -1
}

// prepareKnapsacks marks the <= rows where every unit either consumes a
// single positive amount of capacity or none, and keeps for each the units
// whose cheapest choice consumes capacity.
func (p *problem) prepareKnapsacks() {
	type entry struct {
		pos int
		j   int
	}
	touching := make([][]entry, len(p.rows))
	for pos, u := range p.units {
		for j, r := range u.rows {
			touching[r] = append(touching[r], entry{pos: pos, j: j})
		}
	}
	for r := range p.rows {
		rw := &p.rows[r]
		if !rw.hasHi || rw.hasLo || len(touching[r]) == 0 {
			continue
		}
		var items []knapItem
		qualifies := true
		for _, e := range touching[r] {
			u := p.units[e.pos]
			var w int64
			hasZero := false
			var zeroObj int64
			for _, ch := range u.choices {
				c := ch.coefs[e.j]
				switch {
				case c == 0:
					if !hasZero || ch.obj < zeroObj {
						zeroObj = ch.obj
					}
					hasZero = true
				case c > 0 && (w == 0 || c == w):
					w = c
				default:
					qualifies = false
				}
			}
			if !qualifies || !hasZero {
				qualifies = false
				break
			}
			if w == 0 {
				continue
			}
			if zeroObj > u.minObj {
				items = append(items, knapItem{pos: e.pos, w: w, delta: zeroObj - u.minObj})
			}
		}
		if !qualifies || len(items) == 0 {
			continue
		}
		sort.SliceStable(items, func(i, j int) bool {
			ri := float64(items[i].delta) / float64(items[i].w)
			rj := float64(items[j].delta) / float64(items[j].w)
			if ri != rj {
				return ri < rj
			}
			return items[i].pos < items[j].pos
		})
		rw.knap = items
		p.knapRows = append(p.knapRows, r)
	}
}
