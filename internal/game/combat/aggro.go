package combat

import "github.com/cory-johannsen/hearth/internal/game/entity"

// DefaultAggroIncrement is the aggro added per damaging hit when unconfigured.
const DefaultAggroIncrement = 10

// DefaultAggroDecay is the aggro removed from every entry per enemy think.
const DefaultAggroDecay = 1

// AddAggro adds amount to attacker's score, creating the entry if needed.
//
// Postcondition: targets holds at most one entry per attacker.
func AddAggro(targets []entity.Aggro, attacker entity.ID, amount int) []entity.Aggro {
	for i := range targets {
		if targets[i].Attacker == attacker {
			targets[i].Score += amount
			return targets
		}
	}
	return append(targets, entity.Aggro{Attacker: attacker, Score: amount})
}

// Decay lowers every score by amount and drops entries that reach zero.
// Order of the surviving entries is preserved.
func Decay(targets []entity.Aggro, amount int) []entity.Aggro {
	out := targets[:0]
	for _, t := range targets {
		t.Score -= amount
		if t.Score > 0 {
			out = append(out, t)
		}
	}
	return out
}

// Remove drops attacker's entry, if any.
func Remove(targets []entity.Aggro, attacker entity.ID) []entity.Aggro {
	out := targets[:0]
	for _, t := range targets {
		if t.Attacker != attacker {
			out = append(out, t)
		}
	}
	return out
}

// SelectTarget returns the eligible attacker with the highest score. Ties keep
// the earliest entry.
func SelectTarget(targets []entity.Aggro, eligible func(entity.ID) bool) (entity.ID, bool) {
	var best entity.ID
	bestScore := 0
	found := false
	for _, t := range targets {
		if !eligible(t.Attacker) {
			continue
		}
		if !found || t.Score > bestScore {
			best, bestScore, found = t.Attacker, t.Score, true
		}
	}
	return best, found
}

// Share is one attacker's part of a reward.
type Share struct {
	Attacker entity.ID
	Amount   int
}

// Distribute splits reward across targets in proportion to aggro, rounding
// each share up. Because each share is rounded independently the sum may
// exceed reward; that is the intended payout rule.
//
// Postcondition: len(result) == number of entries with a positive score, or 0 when
// the total score is not positive.
func Distribute(reward int, targets []entity.Aggro) []Share {
	total := 0
	for _, t := range targets {
		if t.Score > 0 {
			total += t.Score
		}
	}
	if total <= 0 {
		return nil
	}
	shares := make([]Share, 0, len(targets))
	for _, t := range targets {
		if t.Score <= 0 {
			continue
		}
		amount := (reward*t.Score + total - 1) / total
		if reward <= 0 {
			amount = 0
		}
		shares = append(shares, Share{Attacker: t.Attacker, Amount: amount})
	}
	return shares
}
