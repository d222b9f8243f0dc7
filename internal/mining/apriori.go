// Package mining derives association rules from completed sale transactions.
// It is a pure in-memory implementation of the apriori algorithm: callers
// load the transaction history, Mine builds a boolean incidence matrix
// (rows = transactions, columns = distinct products), finds frequent
// itemsets above a minimum support and expands them into rules above a
// minimum confidence. Cost is O(transactions × distinct products) per level;
// callers are expected to invoke it per request or behind their own
// recomputation triggers.
package mining

import (
	"sort"

	"github.com/google/uuid"
)

// Transaction is one completed sale reduced to the set of distinct products
// purchased together. Duplicate product ids are tolerated and collapsed.
type Transaction struct {
	ID       uuid.UUID
	Products []uuid.UUID
}

// Rule is an association rule derived from a frequent itemset.
// Support is the fraction of transactions containing antecedent ∪ consequent,
// Confidence = support(A∪C)/support(A), Lift = Confidence/support(C).
type Rule struct {
	Antecedent []uuid.UUID
	Consequent []uuid.UUID
	Support    float64
	Confidence float64
	Lift       float64
}

// Thresholds holds the tunable mining parameters.
type Thresholds struct {
	MinSupport    float64
	MinConfidence float64
}

// itemset is a sorted slice of column indices into the incidence matrix.
type itemset []int

func (s itemset) key() string {
	// Column indices are < len(items), which fits comfortably in two bytes.
	b := make([]byte, 0, len(s)*2)
	for _, v := range s {
		b = append(b, byte(v>>8), byte(v))
	}
	return string(b)
}

// Mine returns all association rules meeting the thresholds, in a discovery
// order that is stable for identical input data: products are mapped to
// columns in sorted id order and candidates are generated deterministically.
// Zero transactions, or no itemset reaching minimum support, yield an empty
// slice — callers fall back to heuristics in that case.
func Mine(txns []Transaction, th Thresholds) []Rule {
	if len(txns) == 0 {
		return nil
	}

	items, matrix := buildIncidenceMatrix(txns)
	if len(items) == 0 {
		return nil
	}

	frequent, support := frequentItemsets(matrix, len(items), th.MinSupport)

	var rules []Rule
	for _, is := range frequent {
		if len(is) < 2 {
			continue
		}
		rules = append(rules, expandRules(is, support, items, th.MinConfidence)...)
	}
	return rules
}

// buildIncidenceMatrix maps distinct product ids to column indices (sorted
// by id for determinism) and encodes each transaction as a boolean row.
func buildIncidenceMatrix(txns []Transaction) ([]uuid.UUID, [][]bool) {
	seen := make(map[uuid.UUID]struct{})
	for _, t := range txns {
		for _, p := range t.Products {
			seen[p] = struct{}{}
		}
	}

	items := make([]uuid.UUID, 0, len(seen))
	for p := range seen {
		items = append(items, p)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].String() < items[j].String() })

	col := make(map[uuid.UUID]int, len(items))
	for i, p := range items {
		col[p] = i
	}

	matrix := make([][]bool, len(txns))
	for i, t := range txns {
		row := make([]bool, len(items))
		for _, p := range t.Products {
			row[col[p]] = true
		}
		matrix[i] = row
	}
	return items, matrix
}

// frequentItemsets runs level-wise apriori over the matrix. It returns the
// frequent itemsets in discovery order plus a support lookup keyed by
// itemset. Downward closure guarantees every subset of a returned itemset is
// also present in the lookup.
func frequentItemsets(matrix [][]bool, numItems int, minSupport float64) ([]itemset, map[string]float64) {
	total := float64(len(matrix))
	support := make(map[string]float64)
	var all []itemset

	// Level 1
	var level []itemset
	for i := 0; i < numItems; i++ {
		is := itemset{i}
		sup := countSupport(matrix, is) / total
		if sup >= minSupport {
			support[is.key()] = sup
			level = append(level, is)
			all = append(all, is)
		}
	}

	// Level k: join pairs sharing a (k-1)-prefix, prune by subset frequency,
	// then count against the matrix.
	for len(level) > 0 {
		var next []itemset
		for i := 0; i < len(level); i++ {
			for j := i + 1; j < len(level); j++ {
				cand, ok := join(level[i], level[j])
				if !ok {
					continue
				}
				if !allSubsetsFrequent(cand, support) {
					continue
				}
				sup := countSupport(matrix, cand) / total
				if sup >= minSupport {
					support[cand.key()] = sup
					next = append(next, cand)
					all = append(all, cand)
				}
			}
		}
		level = next
	}
	return all, support
}

// join merges two k-itemsets into a (k+1)-candidate when they share the same
// first k-1 elements. Both inputs are sorted, so the result stays sorted.
func join(a, b itemset) (itemset, bool) {
	n := len(a)
	for i := 0; i < n-1; i++ {
		if a[i] != b[i] {
			return nil, false
		}
	}
	if a[n-1] >= b[n-1] {
		return nil, false
	}
	cand := make(itemset, n+1)
	copy(cand, a)
	cand[n] = b[n-1]
	return cand, true
}

// allSubsetsFrequent applies the apriori pruning step: every (k-1)-subset of
// a candidate must itself be frequent.
func allSubsetsFrequent(cand itemset, support map[string]float64) bool {
	if len(cand) <= 2 {
		return true // both 1-subsets were checked at join time
	}
	sub := make(itemset, len(cand)-1)
	for skip := range cand {
		sub = sub[:0]
		for i, v := range cand {
			if i != skip {
				sub = append(sub, v)
			}
		}
		if _, ok := support[sub.key()]; !ok {
			return false
		}
	}
	return true
}

func countSupport(matrix [][]bool, is itemset) float64 {
	count := 0
	for _, row := range matrix {
		hit := true
		for _, col := range is {
			if !row[col] {
				hit = false
				break
			}
		}
		if hit {
			count++
		}
	}
	return float64(count)
}

// expandRules enumerates every non-empty proper subset of a frequent itemset
// as an antecedent (consequent = complement) and keeps rules meeting the
// confidence threshold. Subset masks are walked in increasing order so rule
// discovery order is stable per run.
func expandRules(is itemset, support map[string]float64, items []uuid.UUID, minConfidence float64) []Rule {
	itemSupport := support[is.key()]
	var rules []Rule

	n := len(is)
	for mask := 1; mask < (1<<n)-1; mask++ {
		var ante, cons itemset
		for i := 0; i < n; i++ {
			if mask&(1<<i) != 0 {
				ante = append(ante, is[i])
			} else {
				cons = append(cons, is[i])
			}
		}

		anteSup := support[ante.key()]
		consSup := support[cons.key()]
		if anteSup == 0 || consSup == 0 {
			continue
		}
		confidence := itemSupport / anteSup
		if confidence < minConfidence {
			continue
		}
		rules = append(rules, Rule{
			Antecedent: toIDs(ante, items),
			Consequent: toIDs(cons, items),
			Support:    itemSupport,
			Confidence: confidence,
			Lift:       confidence / consSup,
		})
	}
	return rules
}

func toIDs(is itemset, items []uuid.UUID) []uuid.UUID {
	ids := make([]uuid.UUID, len(is))
	for i, v := range is {
		ids[i] = items[v]
	}
	return ids
}

// AntecedentContains reports whether the rule's antecedent includes id.
func (r Rule) AntecedentContains(id uuid.UUID) bool {
	for _, p := range r.Antecedent {
		if p == id {
			return true
		}
	}
	return false
}
