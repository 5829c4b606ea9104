package combat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/hearth/internal/game/entity"
)

func TestAddAggro_BumpsExisting(t *testing.T) {
	var targets []entity.Aggro
	targets = AddAggro(targets, 1, 10)
	targets = AddAggro(targets, 2, 10)
	targets = AddAggro(targets, 1, 10)
	assert.Equal(t, []entity.Aggro{{Attacker: 1, Score: 20}, {Attacker: 2, Score: 10}}, targets)
}

func TestDecay_DropsZero(t *testing.T) {
	targets := []entity.Aggro{{Attacker: 1, Score: 1}, {Attacker: 2, Score: 5}}
	targets = Decay(targets, 1)
	assert.Equal(t, []entity.Aggro{{Attacker: 2, Score: 4}}, targets)
}

func TestRemove(t *testing.T) {
	targets := []entity.Aggro{{Attacker: 1, Score: 1}, {Attacker: 2, Score: 5}}
	assert.Equal(t, []entity.Aggro{{Attacker: 2, Score: 5}}, Remove(targets, 1))
}

func TestSelectTarget(t *testing.T) {
	targets := []entity.Aggro{{Attacker: 1, Score: 5}, {Attacker: 2, Score: 9}, {Attacker: 3, Score: 9}}
	all := func(entity.ID) bool { return true }
	id, ok := SelectTarget(targets, all)
	assert.True(t, ok)
	assert.Equal(t, entity.ID(2), id, "ties keep the first")

	notTwo := func(id entity.ID) bool { return id != 2 }
	id, ok = SelectTarget(targets, notTwo)
	assert.True(t, ok)
	assert.Equal(t, entity.ID(3), id)

	_, ok = SelectTarget(targets, func(entity.ID) bool { return false })
	assert.False(t, ok)
}

func TestDistribute_CeilingRounding(t *testing.T) {
	shares := Distribute(10, []entity.Aggro{{Attacker: 1, Score: 3}, {Attacker: 2, Score: 1}})
	assert.Equal(t, []Share{{Attacker: 1, Amount: 8}, {Attacker: 2, Amount: 3}}, shares)
}

func TestDistribute_Empty(t *testing.T) {
	assert.Nil(t, Distribute(10, nil))
	assert.Nil(t, Distribute(10, []entity.Aggro{{Attacker: 1, Score: 0}}))
}

// Property: each share is the ceiling of its proportional part, so the total
// is at least the reward and exceeds it by less than the number of attackers.
func TestPropertyDistributeBounds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		reward := rapid.IntRange(0, 1000).Draw(t, "reward")
		scores := rapid.SliceOfN(rapid.IntRange(1, 100), 1, 8).Draw(t, "scores")
		var targets []entity.Aggro
		for i, s := range scores {
			targets = append(targets, entity.Aggro{Attacker: entity.ID(i + 1), Score: s})
		}
		shares := Distribute(reward, targets)
		if len(shares) != len(targets) {
			t.Fatalf("got %d shares for %d attackers", len(shares), len(targets))
		}
		sum := 0
		for _, s := range shares {
			sum += s.Amount
		}
		if sum < reward || sum >= reward+len(targets)+1 {
			t.Fatalf("sum %d outside [%d, %d]", sum, reward, reward+len(targets))
		}
	})
}

// Property: aggro entries stay unique per attacker.
func TestPropertyAggroUnique(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var targets []entity.Aggro
		hits := rapid.SliceOfN(rapid.IntRange(1, 5), 0, 40).Draw(t, "hits")
		for i, h := range hits {
			targets = AddAggro(targets, entity.ID(h), 10)
			if i%4 == 3 {
				targets = Decay(targets, 3)
			}
		}
		seen := map[entity.ID]bool{}
		for _, a := range targets {
			if seen[a.Attacker] {
				t.Fatalf("duplicate aggro entry for %d", a.Attacker)
			}
			if a.Score <= 0 {
				t.Fatalf("non-positive score kept for %d", a.Attacker)
			}
			seen[a.Attacker] = true
		}
	})
}
