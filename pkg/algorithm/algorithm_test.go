package algorithm_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/staketools/offline-election/pkg/algorithm"
	"github.com/staketools/offline-election/pkg/core"
	"github.com/staketools/offline-election/pkg/election"
)

func cand(id string, stake uint64) election.ValidatorCandidate {
	return election.NewCandidate(id, core.NewStake(stake))
}

func nom(id string, stake uint64, targets ...string) election.Nominator {
	n := election.NewNominator(id, core.NewStake(stake))
	for _, t := range targets {
		n.AddTarget(t)
	}
	return n
}

// assignedTotals sums each nominator's assigned edges.
func assignedTotals(raw *algorithm.RawSelection) map[string]core.StakeAmount {
	totals := make(map[string]core.StakeAmount, len(raw.Assignments))
	for _, a := range raw.Assignments {
		sum := core.NewStake(0)
		for _, e := range a.Edges {
			sum = sum.Add(e.Amount)
		}
		totals[a.NominatorID] = sum
	}
	return totals
}

var _ = Describe("SequentialPhragmen", func() {
	var method *algorithm.SequentialPhragmen

	BeforeEach(func() {
		method = algorithm.NewSequentialPhragmen()
	})

	It("elects the heaviest approvals first", func() {
		candidates := []election.ValidatorCandidate{
			cand("c1", 1_000_000),
			cand("c2", 2_000_000),
			cand("c3", 1_500_000),
		}
		nominators := []election.Nominator{
			nom("n1", 500_000, "c1", "c2"),
			nom("n2", 300_000, "c3"),
		}

		raw, err := method.Execute(candidates, nominators, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(raw.Winners).To(Equal([]string{"c2", "c3"}))

		totals := assignedTotals(raw)
		Expect(totals).To(HaveLen(2))
		Expect(totals["n1"].String()).To(Equal("500000"))
		Expect(totals["n2"].String()).To(Equal("300000"))
	})

	It("breaks score ties toward the lexically smaller id", func() {
		candidates := []election.ValidatorCandidate{
			cand("bbb", 1_000),
			cand("aaa", 1_000),
		}

		raw, err := method.Execute(candidates, nil, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(raw.Winners).To(Equal([]string{"aaa"}))
	})

	It("levels a shared nomination across both winners", func() {
		candidates := []election.ValidatorCandidate{
			cand("c1", 1_000),
			cand("c2", 1_000),
		}
		nominators := []election.Nominator{
			nom("n1", 600, "c1", "c2"),
		}

		raw, err := method.Execute(candidates, nominators, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(raw.Winners).To(Equal([]string{"c1", "c2"}))
		Expect(raw.BalanceIterations).To(Equal(2))

		Expect(raw.Assignments).To(HaveLen(1))
		edges := raw.Assignments[0].Edges
		Expect(edges).To(HaveLen(2))
		Expect(edges[0].ValidatorID).To(Equal("c1"))
		Expect(edges[0].Amount.String()).To(Equal("300"))
		Expect(edges[1].ValidatorID).To(Equal("c2"))
		Expect(edges[1].Amount.String()).To(Equal("300"))
	})

	It("produces identical output on repeated runs", func() {
		candidates := []election.ValidatorCandidate{
			cand("c1", 1_000_000),
			cand("c2", 2_000_000),
			cand("c3", 1_500_000),
			cand("c4", 750_000),
		}
		nominators := []election.Nominator{
			nom("n1", 500_000, "c1", "c2", "c4"),
			nom("n2", 300_000, "c3", "c4"),
			nom("n3", 120_000, "c1"),
		}

		first, err := method.Execute(candidates, nominators, 3)
		Expect(err).NotTo(HaveOccurred())
		second, err := method.Execute(candidates, nominators, 3)
		Expect(err).NotTo(HaveOccurred())

		Expect(second.Winners).To(Equal(first.Winners))
		Expect(second.Assignments).To(HaveLen(len(first.Assignments)))
		for i := range first.Assignments {
			Expect(second.Assignments[i].NominatorID).To(Equal(first.Assignments[i].NominatorID))
			Expect(second.Assignments[i].Edges).To(HaveLen(len(first.Assignments[i].Edges)))
			for j := range first.Assignments[i].Edges {
				Expect(second.Assignments[i].Edges[j].Amount.Cmp(first.Assignments[i].Edges[j].Amount)).To(BeZero())
			}
		}
	})

	It("refuses an empty candidate list", func() {
		_, err := method.Execute(nil, []election.Nominator{nom("n1", 100)}, 1)
		Expect(err).To(HaveOccurred())

		var validationErr *core.ValidationError
		Expect(err).To(BeAssignableToTypeOf(validationErr))
	})

	It("refuses a set size that only zero approval candidates could fill", func() {
		candidates := []election.ValidatorCandidate{
			cand("c1", 0),
			cand("c2", 1_000),
		}

		_, err := method.Execute(candidates, nil, 2)
		Expect(err).To(HaveOccurred())

		var algErr *core.AlgorithmError
		Expect(err).To(BeAssignableToTypeOf(algErr))
		algErr = err.(*core.AlgorithmError)
		Expect(algErr.Algorithm).To(Equal(core.SequentialPhragmen))
		Expect(algErr.Message).To(ContainSubstring("needs 2 candidates but only 1"))
	})

	It("never assigns more than a nominator's budget", func() {
		candidates := []election.ValidatorCandidate{
			cand("c1", 5_000),
			cand("c2", 3_000),
			cand("c3", 4_000),
		}
		nominators := []election.Nominator{
			nom("n1", 1_000, "c1", "c2", "c3"),
			nom("n2", 777, "c2"),
			nom("n3", 333, "c1", "c3"),
		}

		raw, err := method.Execute(candidates, nominators, 2)
		Expect(err).NotTo(HaveOccurred())

		budgets := map[string]core.StakeAmount{
			"n1": core.NewStake(1_000),
			"n2": core.NewStake(777),
			"n3": core.NewStake(333),
		}
		for id, total := range assignedTotals(raw) {
			Expect(total.Cmp(budgets[id])).To(BeNumerically("<=", 0), "nominator %s", id)
		}
	})
})

var _ = Describe("ParallelPhragmen", func() {
	var method *algorithm.ParallelPhragmen

	BeforeEach(func() {
		method = algorithm.NewParallelPhragmen()
	})

	It("elects the heaviest approvals first", func() {
		candidates := []election.ValidatorCandidate{
			cand("c1", 1_000_000),
			cand("c2", 2_000_000),
			cand("c3", 1_500_000),
		}
		nominators := []election.Nominator{
			nom("n1", 500_000, "c1", "c2"),
			nom("n2", 300_000, "c3"),
		}

		raw, err := method.Execute(candidates, nominators, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(raw.Winners).To(Equal([]string{"c2", "c3"}))

		totals := assignedTotals(raw)
		Expect(totals["n1"].String()).To(Equal("500000"))
		Expect(totals["n2"].String()).To(Equal("300000"))
	})

	It("dilutes a voter's weight once a target is seated", func() {
		// n1's full 900 initially favors c2; after c1 wins on approval the
		// halved contribution no longer lifts c2 over c3.
		candidates := []election.ValidatorCandidate{
			cand("c1", 2_000),
			cand("c2", 500),
			cand("c3", 1_000),
		}
		nominators := []election.Nominator{
			nom("n1", 900, "c1", "c2"),
		}

		raw, err := method.Execute(candidates, nominators, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(raw.Winners).To(Equal([]string{"c1", "c3"}))
	})

	It("breaks score ties toward the lexically smaller id", func() {
		candidates := []election.ValidatorCandidate{
			cand("bbb", 1_000),
			cand("aaa", 1_000),
		}

		raw, err := method.Execute(candidates, nil, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(raw.Winners).To(Equal([]string{"aaa"}))
	})

	It("levels a shared nomination across both winners", func() {
		candidates := []election.ValidatorCandidate{
			cand("c1", 1_000),
			cand("c2", 1_000),
		}
		nominators := []election.Nominator{
			nom("n1", 600, "c1", "c2"),
		}

		raw, err := method.Execute(candidates, nominators, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(raw.Winners).To(Equal([]string{"c1", "c2"}))

		Expect(raw.Assignments).To(HaveLen(1))
		edges := raw.Assignments[0].Edges
		Expect(edges).To(HaveLen(2))
		Expect(edges[0].Amount.String()).To(Equal("300"))
		Expect(edges[1].Amount.String()).To(Equal("300"))
	})

	It("refuses a set size that only zero approval candidates could fill", func() {
		candidates := []election.ValidatorCandidate{
			cand("c1", 0),
			cand("c2", 1_000),
		}

		_, err := method.Execute(candidates, nil, 2)
		Expect(err).To(HaveOccurred())

		var algErr *core.AlgorithmError
		Expect(err).To(BeAssignableToTypeOf(algErr))
		algErr = err.(*core.AlgorithmError)
		Expect(algErr.Algorithm).To(Equal(core.ParallelPhragmen))
	})
})

var _ = Describe("MultiPhase", func() {
	It("delegates selection to the sequential method and tags the phase", func() {
		candidates := []election.ValidatorCandidate{
			cand("c1", 1_000_000),
			cand("c2", 2_000_000),
		}
		nominators := []election.Nominator{
			nom("n1", 500_000, "c1"),
		}

		multiPhase := algorithm.NewMultiPhase()
		sequential := algorithm.NewSequentialPhragmen()

		rawMulti, err := multiPhase.Execute(candidates, nominators, 2)
		Expect(err).NotTo(HaveOccurred())
		rawSeq, err := sequential.Execute(candidates, nominators, 2)
		Expect(err).NotTo(HaveOccurred())

		Expect(rawMulti.Winners).To(Equal(rawSeq.Winners))
		Expect(rawMulti.Phase).To(Equal("signed"))
		Expect(rawSeq.Phase).To(BeEmpty())
	})

	It("wraps inner algorithm failures with the phase context", func() {
		candidates := []election.ValidatorCandidate{
			cand("c1", 0),
			cand("c2", 1_000),
		}

		_, err := algorithm.NewMultiPhase().Execute(candidates, nil, 2)
		Expect(err).To(HaveOccurred())

		var algErr *core.AlgorithmError
		Expect(err).To(BeAssignableToTypeOf(algErr))
		algErr = err.(*core.AlgorithmError)
		Expect(algErr.Algorithm).To(Equal(core.MultiPhase))
		Expect(algErr.Message).To(HavePrefix("Multi-phase election failed in signed phase: "))
	})
})

var _ = Describe("ForType", func() {
	It("resolves every known algorithm", func() {
		for _, t := range []core.AlgorithmType{core.SequentialPhragmen, core.ParallelPhragmen, core.MultiPhase} {
			method, err := algorithm.ForType(t)
			Expect(err).NotTo(HaveOccurred())
			Expect(method.Name()).To(Equal(string(t)))
		}
	})

	It("rejects an unknown algorithm", func() {
		_, err := algorithm.ForType(core.AlgorithmType("approval-voting"))
		Expect(err).To(HaveOccurred())

		var validationErr *core.ValidationError
		Expect(err).To(BeAssignableToTypeOf(validationErr))
		validationErr = err.(*core.ValidationError)
		Expect(validationErr.Field).To(Equal("algorithm"))
	})
})
