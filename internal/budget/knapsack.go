// Package budget selects items under a spending ceiling.
//
// The 0/1 knapsack solvers work on integral costs. Callers convert prices to
// whole cost units first (see Prepare); the size of the budget in those units
// bounds both time and memory, so coarser units are the knob for large budgets.
package budget

import (
	"fmt"
	"math"

	"github.com/harvesthub/catalog-engine/internal/errors"
)

// DefaultTableThreshold is the budget above which Optimize switches from the
// full table solver to the single-row solver.
const DefaultTableThreshold = 10000

// Method names the solver that produced a Selection.
type Method string

const (
	MethodTable   Method = "table"
	MethodCompact Method = "compact"
	MethodEmpty   Method = "empty"
)

// Candidate is one indivisible item offered to the solver.
type Candidate struct {
	Value float64
	Cost  int
}

// Selection is the optimal subset found by a solver. Indices refer to
// positions in the candidate slice and are ascending.
type Selection struct {
	Indices    []int   `json:"indices"`
	TotalValue float64 `json:"total_value"`
	TotalCost  int     `json:"total_cost"`
	Method     Method  `json:"method"`
}

func emptySelection() Selection {
	return Selection{Indices: []int{}, Method: MethodEmpty}
}

// validate rejects negative budgets, negative costs and non-finite values.
func validate(candidates []Candidate, budget int) error {
	if budget < 0 {
		return errors.NewValidationError("budget", "must not be negative")
	}
	for i, c := range candidates {
		if c.Cost < 0 {
			return errors.NewValidationError("cost", fmt.Sprintf("candidate %d has negative cost %d", i, c.Cost))
		}
		if math.IsNaN(c.Value) || math.IsInf(c.Value, 0) {
			return errors.NewValidationError("value", fmt.Sprintf("candidate %d has non-finite value", i))
		}
	}
	return nil
}

// Optimize picks the solver by budget size: the full table up to threshold
// units, the compact solver above it. A threshold <= 0 uses DefaultTableThreshold.
func Optimize(candidates []Candidate, budget, threshold int) (Selection, error) {
	if threshold <= 0 {
		threshold = DefaultTableThreshold
	}
	if budget > threshold {
		return SolveCompact(candidates, budget)
	}
	return SolveTable(candidates, budget)
}

// SolveTable runs the textbook DP with a (n+1) x (budget+1) value table and
// reconstructs the subset by walking the table backwards.
func SolveTable(candidates []Candidate, budget int) (Selection, error) {
	if err := validate(candidates, budget); err != nil {
		return Selection{}, err
	}
	if budget == 0 || len(candidates) == 0 {
		return emptySelection(), nil
	}

	n := len(candidates)
	table := make([][]float64, n+1)
	for i := range table {
		table[i] = make([]float64, budget+1)
	}

	for i := 1; i <= n; i++ {
		c := candidates[i-1]
		prev, row := table[i-1], table[i]
		for w := 0; w <= budget; w++ {
			row[w] = prev[w]
			if c.Cost <= w {
				if with := prev[w-c.Cost] + c.Value; with > row[w] {
					row[w] = with
				}
			}
		}
	}

	taken := make([]bool, n)
	w := budget
	for i := n; i >= 1; i-- {
		if table[i][w] != table[i-1][w] {
			taken[i-1] = true
			w -= candidates[i-1].Cost
		}
	}
	return collect(candidates, taken, MethodTable), nil
}

// SolveCompact keeps a single DP row plus one bit per (item, cost) recording
// whether the item was taken at that cost, which is all reconstruction needs.
func SolveCompact(candidates []Candidate, budget int) (Selection, error) {
	if err := validate(candidates, budget); err != nil {
		return Selection{}, err
	}
	if budget == 0 || len(candidates) == 0 {
		return emptySelection(), nil
	}

	n := len(candidates)
	best := make([]float64, budget+1)
	keep := make([]bitset, n)

	for i, c := range candidates {
		keep[i] = newBitset(budget + 1)
		if c.Cost > budget {
			continue
		}
		// descending w so each item is used at most once
		for w := budget; w >= c.Cost; w-- {
			if with := best[w-c.Cost] + c.Value; with > best[w] {
				best[w] = with
				keep[i].set(w)
			}
		}
	}

	taken := make([]bool, n)
	w := budget
	for i := n - 1; i >= 0; i-- {
		if keep[i].has(w) {
			taken[i] = true
			w -= candidates[i].Cost
		}
	}
	return collect(candidates, taken, MethodCompact), nil
}

func collect(candidates []Candidate, taken []bool, method Method) Selection {
	sel := Selection{Indices: []int{}, Method: method}
	for i, t := range taken {
		if !t {
			continue
		}
		sel.Indices = append(sel.Indices, i)
		sel.TotalValue += candidates[i].Value
		sel.TotalCost += candidates[i].Cost
	}
	return sel
}

type bitset []uint64

func newBitset(n int) bitset {
	return make(bitset, (n+63)/64)
}

func (b bitset) set(i int) {
	b[i/64] |= 1 << (uint(i) % 64)
}

func (b bitset) has(i int) bool {
	return b[i/64]&(1<<(uint(i)%64)) != 0
}
