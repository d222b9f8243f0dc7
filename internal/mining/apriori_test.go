package mining

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func txn(products ...uuid.UUID) Transaction {
	return Transaction{ID: uuid.New(), Products: products}
}

// findRule locates the rule with the exact antecedent/consequent pair.
func findRule(rules []Rule, ante, cons uuid.UUID) *Rule {
	for i, r := range rules {
		if len(r.Antecedent) == 1 && len(r.Consequent) == 1 &&
			r.Antecedent[0] == ante && r.Consequent[0] == cons {
			return &rules[i]
		}
	}
	return nil
}

func TestMine_EmptyHistory(t *testing.T) {
	assert.Empty(t, Mine(nil, Thresholds{MinSupport: 0.01, MinConfidence: 0.1}))
	assert.Empty(t, Mine([]Transaction{}, Thresholds{MinSupport: 0.01, MinConfidence: 0.1}))
}

func TestMine_PairwiseMetrics(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	txns := []Transaction{
		txn(a, b),
		txn(a, b),
		txn(a, c),
		txn(b),
	}

	rules := Mine(txns, Thresholds{MinSupport: 0.25, MinConfidence: 0.1})
	require.NotEmpty(t, rules)

	// support(a)=3/4, support(b)=3/4, support(ab)=2/4
	// a→b: confidence = 0.5/0.75 = 2/3, lift = (2/3)/0.75 = 8/9
	ab := findRule(rules, a, b)
	require.NotNil(t, ab)
	assert.InDelta(t, 0.5, ab.Support, 1e-9)
	assert.InDelta(t, 2.0/3.0, ab.Confidence, 1e-9)
	assert.InDelta(t, 8.0/9.0, ab.Lift, 1e-9)

	// The symmetric rule exists with the same support but its own confidence.
	ba := findRule(rules, b, a)
	require.NotNil(t, ba)
	assert.InDelta(t, 0.5, ba.Support, 1e-9)
	assert.InDelta(t, 2.0/3.0, ba.Confidence, 1e-9)
}

func TestMine_SupportThresholdExcludesRarePairs(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	txns := []Transaction{
		txn(a, b),
		txn(a, b),
		txn(a, b),
		txn(a, c), // a+c co-occur only once: support 0.25
	}

	rules := Mine(txns, Thresholds{MinSupport: 0.5, MinConfidence: 0.1})
	require.NotEmpty(t, rules)
	assert.Nil(t, findRule(rules, a, c))
	assert.Nil(t, findRule(rules, c, a))
	assert.NotNil(t, findRule(rules, a, b))
}

func TestMine_ConfidenceThreshold(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	// a appears in 4 transactions, a+b only in 1: confidence(a→b)=0.25.
	txns := []Transaction{
		txn(a, b),
		txn(a),
		txn(a),
		txn(a),
	}

	rules := Mine(txns, Thresholds{MinSupport: 0.25, MinConfidence: 0.5})
	assert.Nil(t, findRule(rules, a, b))
	// b→a has confidence 1.0 and survives.
	assert.NotNil(t, findRule(rules, b, a))
}

func TestMine_TripleItemsetYieldsCompoundAntecedents(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	txns := []Transaction{
		txn(a, b, c),
		txn(a, b, c),
		txn(a, b, c),
	}

	rules := Mine(txns, Thresholds{MinSupport: 0.5, MinConfidence: 0.5})

	var compound *Rule
	for i, r := range rules {
		if len(r.Antecedent) == 2 {
			compound = &rules[i]
			break
		}
	}
	require.NotNil(t, compound, "expected a rule with a two-item antecedent")
	assert.InDelta(t, 1.0, compound.Support, 1e-9)
	assert.InDelta(t, 1.0, compound.Confidence, 1e-9)
	assert.InDelta(t, 1.0, compound.Lift, 1e-9)
}

func TestMine_DuplicateProductsCollapse(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	// A line-level duplicate must not inflate support.
	txns := []Transaction{
		{ID: uuid.New(), Products: []uuid.UUID{a, a, b}},
		txn(a, b),
	}

	rules := Mine(txns, Thresholds{MinSupport: 0.5, MinConfidence: 0.5})
	r := findRule(rules, a, b)
	require.NotNil(t, r)
	assert.InDelta(t, 1.0, r.Support, 1e-9)
	assert.InDelta(t, 1.0, r.Confidence, 1e-9)
}

func TestMine_Deterministic(t *testing.T) {
	a, b, c, d := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	txns := []Transaction{
		txn(a, b, c),
		txn(a, b),
		txn(b, c, d),
		txn(a, c),
		txn(b, d),
	}
	th := Thresholds{MinSupport: 0.2, MinConfidence: 0.1}

	first := Mine(txns, th)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Mine(txns, th))
	}
}

func TestRule_AntecedentContains(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	r := Rule{Antecedent: []uuid.UUID{a}, Consequent: []uuid.UUID{b}}
	assert.True(t, r.AntecedentContains(a))
	assert.False(t, r.AntecedentContains(b))
}
