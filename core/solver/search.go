package solver

import (
	"context"
	"math"
	"sync/atomic"
	"time"
)

// search is the depth-first state of one branch-and-bound walk. Each worker
// owns its own search; only global is shared.
type search struct {
	p        *problem
	fixed    []int64
	remMin   []int64
	remMax   []int64
	pick     []int
	fixedObj int64

	found    bool
	best     int64
	bestPick []int

	nodes    int64
	limit    int64
	ctx      context.Context
	deadline time.Time
	stopped  bool
	global   *atomic.Int64
}

func newSearch(ctx context.Context, p *problem, deadline time.Time, limit int64) *search {
	s := &search{
		p:        p,
		fixed:    make([]int64, len(p.rows)),
		remMin:   make([]int64, len(p.rows)),
		remMax:   make([]int64, len(p.rows)),
		pick:     make([]int, len(p.units)),
		ctx:      ctx,
		deadline: deadline,
		limit:    limit,
	}
	for _, u := range p.units {
		for j, r := range u.rows {
			s.remMin[r] += u.minC[j]
			s.remMax[r] += u.maxC[j]
		}
	}
	return s
}

func (s *search) interrupted() bool {
	if s.stopped {
		return true
	}
	if s.limit > 0 && s.nodes > s.limit {
		s.stopped = true
	} else if s.nodes&255 == 0 {
		if s.ctx.Err() != nil || (!s.deadline.IsZero() && time.Now().After(s.deadline)) {
			s.stopped = true
		}
	}
	return s.stopped
}

// enter removes u from the unassigned activity ranges.
func (s *search) enter(u *unit) {
	for j, r := range u.rows {
		s.remMin[r] -= u.minC[j]
		s.remMax[r] -= u.maxC[j]
	}
}

func (s *search) leave(u *unit) {
	for j, r := range u.rows {
		s.remMin[r] += u.minC[j]
		s.remMax[r] += u.maxC[j]
	}
}

// apply fixes choice k of u and reports whether every row it touches can
// still be satisfied.
func (s *search) apply(u *unit, k int) bool {
	ch := &u.choices[k]
	s.fixedObj += ch.obj
	ok := true
	for j, r := range u.rows {
		s.fixed[r] += ch.coefs[j]
		rw := &s.p.rows[r]
		if rw.hasHi && s.fixed[r]+s.remMin[r] > rw.hi {
			ok = false
		}
		if rw.hasLo && s.fixed[r]+s.remMax[r] < rw.lo {
			ok = false
		}
	}
	return ok
}

func (s *search) undo(u *unit, k int) {
	ch := &u.choices[k]
	s.fixedObj -= ch.obj
	for j, r := range u.rows {
		s.fixed[r] -= ch.coefs[j]
	}
}

// bound is a lower bound on every completion of the units before depth d.
func (s *search) bound(d int) int64 {
	lb := s.fixedObj + s.p.constant + s.p.restMin[d]
	var pen float64
	for _, r := range s.p.knapRows {
		if v := s.knapsack(&s.p.rows[r], s.fixed[r], d); v > pen {
			pen = v
		}
	}
	return lb + int64(math.Ceil(pen-1e-9))
}

// knapsack returns the cheapest fractional way of moving unassigned units
// off the row until its remaining capacity is respected.
func (s *search) knapsack(rw *row, fixed int64, d int) float64 {
	var need int64
	for _, it := range rw.knap {
		if it.pos >= d {
			need += it.w
		}
	}
	excess := float64(need - (rw.hi - fixed))
	if excess <= 0 {
		return 0
	}
	var pen float64
	for _, it := range rw.knap {
		if it.pos < d {
			continue
		}
		w := float64(it.w)
		if w >= excess {
			return pen + float64(it.delta)*excess/w
		}
		pen += float64(it.delta)
		excess -= w
	}
	return pen
}

func (s *search) pruned(lb int64) bool {
	if s.found && lb >= s.best {
		return true
	}
	return s.global != nil && lb > s.global.Load()
}

func (s *search) dfs(d int) {
	s.nodes++
	if s.interrupted() {
		return
	}
	if d == len(s.p.units) {
		s.record()
		return
	}
	u := s.p.units[d]
	s.enter(u)
	for k := range u.choices {
		if s.apply(u, k) {
			s.pick[d] = k
			if !s.pruned(s.bound(d + 1)) {
				s.dfs(d + 1)
			}
		}
		s.undo(u, k)
		if s.stopped {
			break
		}
	}
	s.leave(u)
}

func (s *search) record() {
	cost := s.fixedObj + s.p.constant
	if s.found && cost >= s.best {
		return
	}
	s.found = true
	s.best = cost
	s.bestPick = append(s.bestPick[:0], s.pick...)
	if s.global == nil {
		return
	}
	for {
		g := s.global.Load()
		if cost >= g || s.global.CompareAndSwap(g, cost) {
			return
		}
	}
}

// values expands the best pick into one boolean per model variable.
func (s *search) values() []bool {
	out := make([]bool, s.p.nvars)
	for d, k := range s.bestPick {
		if on := s.p.units[d].choices[k].on; on != noVar {
			out[on] = true
		}
	}
	return out
}
