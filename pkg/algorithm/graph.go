package algorithm

import (
	"math/big"
	"sort"

	"github.com/staketools/offline-election/pkg/core"
	"github.com/staketools/offline-election/pkg/election"
)

// graphCandidate tracks one candidate's state across selection rounds.
// approval is the total stake voting for the candidate, self stake included.
// backed is the stake currently assigned to it and is maintained through
// distribution and balancing.
type graphCandidate struct {
	id        string
	selfStake *big.Int
	approval  *big.Int
	backed    *big.Int
	score     *big.Rat
	elected   bool
	round     int
}

// graphEdge is one voter's link to a candidate.
type graphEdge struct {
	candidate *graphCandidate
	load      *big.Rat
	weight    *big.Int
}

// graphVoter distributes a stake budget across its edges. Candidates appear
// as self voters with a single edge to themselves, which keeps self stake in
// the same bookkeeping as nominations.
type graphVoter struct {
	id       string
	budget   *big.Int
	load     *big.Rat
	edges    []*graphEdge
	selfVote bool
}

// electionGraph is the working state shared by the selection methods.
type electionGraph struct {
	candidates []*graphCandidate
	voters     []*graphVoter
}

// newGraph builds the electorate. Candidate and nominator input order is
// preserved; duplicate targets within one nominator collapse to one edge.
func newGraph(candidates []election.ValidatorCandidate, nominators []election.Nominator) *electionGraph {
	g := &electionGraph{
		candidates: make([]*graphCandidate, 0, len(candidates)),
		voters:     make([]*graphVoter, 0, len(candidates)+len(nominators)),
	}

	byID := make(map[string]*graphCandidate, len(candidates))
	for i := range candidates {
		node := &graphCandidate{
			id:        candidates[i].AccountID,
			selfStake: candidates[i].Stake.ToBig(),
			approval:  new(big.Int),
			backed:    new(big.Int),
		}
		g.candidates = append(g.candidates, node)
		byID[node.id] = node
	}

	for _, node := range g.candidates {
		voter := &graphVoter{
			id:       node.id,
			budget:   new(big.Int).Set(node.selfStake),
			load:     new(big.Rat),
			selfVote: true,
		}
		voter.edges = []*graphEdge{{candidate: node, load: new(big.Rat), weight: new(big.Int)}}
		g.voters = append(g.voters, voter)
	}

	for i := range nominators {
		voter := &graphVoter{
			id:     nominators[i].AccountID,
			budget: nominators[i].Stake.ToBig(),
			load:   new(big.Rat),
		}
		seen := make(map[string]struct{}, len(nominators[i].Targets))
		for _, target := range nominators[i].Targets {
			node, ok := byID[target]
			if !ok {
				continue
			}
			if _, dup := seen[target]; dup {
				continue
			}
			seen[target] = struct{}{}
			voter.edges = append(voter.edges, &graphEdge{candidate: node, load: new(big.Rat), weight: new(big.Int)})
		}
		g.voters = append(g.voters, voter)
	}

	for _, v := range g.voters {
		for _, e := range v.edges {
			e.candidate.approval.Add(e.candidate.approval, v.budget)
		}
	}
	return g
}

// electableCount is how many unelected candidates still carry a nonzero
// approval stake. Candidates nobody backs can never be elected.
func (g *electionGraph) electableCount() int {
	n := 0
	for _, c := range g.candidates {
		if !c.elected && c.approval.Sign() > 0 {
			n++
		}
	}
	return n
}

// winners returns the elected candidates ordered by selection round.
func (g *electionGraph) winners() []*graphCandidate {
	var out []*graphCandidate
	for _, c := range g.candidates {
		if c.elected {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].round < out[j].round })
	return out
}

// distributeByLoads converts accumulated Phragmen edge loads into integer
// stake weights. Per voter the loads telescope to the voter load, so the
// floor division remainder is at most the elected edge count; it lands on
// the largest edge so the split sums exactly to the budget.
func (g *electionGraph) distributeByLoads() {
	for _, v := range g.voters {
		if v.load.Sign() == 0 || v.budget.Sign() == 0 {
			continue
		}
		var elected []*graphEdge
		for _, e := range v.edges {
			if e.candidate.elected && e.load.Sign() > 0 {
				elected = append(elected, e)
			}
		}
		if len(elected) == 0 {
			continue
		}

		assigned := new(big.Int)
		for _, e := range elected {
			ratio := new(big.Rat).Quo(e.load, v.load)
			amount := new(big.Int).Mul(v.budget, ratio.Num())
			amount.Quo(amount, ratio.Denom())
			e.weight.Set(amount)
			assigned.Add(assigned, amount)
		}

		remainder := new(big.Int).Sub(v.budget, assigned)
		if remainder.Sign() > 0 {
			e := largestEdge(elected)
			e.weight.Add(e.weight, remainder)
		}

		for _, e := range elected {
			e.candidate.backed.Add(e.candidate.backed, e.weight)
		}
	}
}

// distributeEqually splits each voter's budget evenly across its elected
// targets, remainder on the first. The balancing pass refines this seed.
func (g *electionGraph) distributeEqually() {
	for _, v := range g.voters {
		if v.budget.Sign() == 0 {
			continue
		}
		var elected []*graphEdge
		for _, e := range v.edges {
			if e.candidate.elected {
				elected = append(elected, e)
			}
		}
		if len(elected) == 0 {
			continue
		}

		n := big.NewInt(int64(len(elected)))
		share := new(big.Int).Quo(v.budget, n)
		remainder := new(big.Int).Sub(v.budget, new(big.Int).Mul(share, n))

		for i, e := range elected {
			e.weight.Set(share)
			if i == 0 {
				e.weight.Add(e.weight, remainder)
			}
			e.candidate.backed.Add(e.candidate.backed, e.weight)
		}
	}
}

// largestEdge picks the edge with the greatest weight, breaking ties toward
// the lexically smallest candidate id.
func largestEdge(edges []*graphEdge) *graphEdge {
	best := edges[0]
	for _, e := range edges[1:] {
		cmp := e.weight.Cmp(best.weight)
		if cmp > 0 || (cmp == 0 && e.candidate.id < best.candidate.id) {
			best = e
		}
	}
	return best
}

// assignments extracts per-nominator integer stake splits. Self votes are
// excluded; they surface through each winner's backing instead.
func (g *electionGraph) assignments() []Assignment {
	var out []Assignment
	for _, v := range g.voters {
		if v.selfVote {
			continue
		}
		var edges []AssignedEdge
		for _, e := range v.edges {
			if !e.candidate.elected || e.weight.Sign() == 0 {
				continue
			}
			edges = append(edges, AssignedEdge{
				ValidatorID: e.candidate.id,
				Amount:      core.MustStakeFromBig(e.weight),
			})
		}
		if len(edges) == 0 {
			continue
		}
		out = append(out, Assignment{NominatorID: v.id, Edges: edges})
	}
	return out
}

// winnerIDs lists elected candidate ids in selection round order.
func (g *electionGraph) winnerIDs() []string {
	winners := g.winners()
	out := make([]string, 0, len(winners))
	for _, c := range winners {
		out = append(out, c.id)
	}
	return out
}
