package election

import "github.com/staketools/offline-election/pkg/core"

// Nominator is an account that stakes tokens and designates candidates to
// back. Targets is an ordered set: duplicates are rejected on insert and
// order is preserved through override application.
type Nominator struct {
	AccountID string           `json:"account_id"`
	Stake     core.StakeAmount `json:"stake"`
	// Targets lists the candidate account ids this nominator votes for. It
	// may be empty, in which case the stake is idle.
	Targets []string `json:"targets"`
}

// NewNominator creates a nominator with no targets.
func NewNominator(accountID string, stake core.StakeAmount) Nominator {
	return Nominator{AccountID: accountID, Stake: stake}
}

// AddTarget appends a voting edge to candidateID unless one already exists.
func (n *Nominator) AddTarget(candidateID string) {
	for _, t := range n.Targets {
		if t == candidateID {
			return
		}
	}
	n.Targets = append(n.Targets, candidateID)
}

// RemoveTarget deletes the voting edge to candidateID. Removing an edge that
// does not exist is a no-op.
func (n *Nominator) RemoveTarget(candidateID string) {
	out := n.Targets[:0]
	for _, t := range n.Targets {
		if t != candidateID {
			out = append(out, t)
		}
	}
	n.Targets = out
}

// HasTarget reports whether an edge to candidateID exists.
func (n *Nominator) HasTarget(candidateID string) bool {
	for _, t := range n.Targets {
		if t == candidateID {
			return true
		}
	}
	return false
}

func (n Nominator) clone() Nominator {
	out := n
	out.Targets = append([]string(nil), n.Targets...)
	return out
}
