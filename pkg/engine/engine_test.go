package engine_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/staketools/offline-election/pkg/core"
	"github.com/staketools/offline-election/pkg/election"
	"github.com/staketools/offline-election/pkg/engine"
)

func fixedClock() time.Time {
	return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
}

func candidate(id string, stake uint64) election.ValidatorCandidate {
	return election.NewCandidate(id, core.NewStake(stake))
}

func nominator(id string, stake uint64, targets ...string) election.Nominator {
	n := election.NewNominator(id, core.NewStake(stake))
	for _, t := range targets {
		n.AddTarget(t)
	}
	return n
}

func buildData(candidates []election.ValidatorCandidate, nominators []election.Nominator) *election.ElectionData {
	data := election.NewElectionData()
	for _, c := range candidates {
		Expect(data.AddCandidate(c)).To(Succeed())
	}
	for _, n := range nominators {
		Expect(data.AddNominator(n)).To(Succeed())
	}
	return data
}

func buildConfig(algorithm core.AlgorithmType, size uint32) election.ElectionConfiguration {
	config, err := election.NewConfigBuilder().Algorithm(algorithm).ActiveSetSize(size).Build()
	Expect(err).NotTo(HaveOccurred())
	return config
}

var _ = Describe("Engine", func() {
	var eng *engine.Engine

	BeforeEach(func() {
		eng = engine.New(engine.WithClock(fixedClock))
	})

	Context("single candidate with one backer", func() {
		var data *election.ElectionData

		BeforeEach(func() {
			data = buildData(
				[]election.ValidatorCandidate{candidate("c1", 1_000_000)},
				[]election.Nominator{nominator("n1", 500_000, "c1")},
			)
		})

		It("selects the candidate with self stake plus the nomination", func() {
			result, err := eng.Execute(buildConfig(core.SequentialPhragmen, 1), data)
			Expect(err).NotTo(HaveOccurred())

			Expect(result.SelectedValidators).To(HaveLen(1))
			winner := result.SelectedValidators[0]
			Expect(winner.AccountID).To(Equal("c1"))
			Expect(winner.TotalBackingStake.String()).To(Equal("1500000"))
			Expect(winner.NominatorCount).To(Equal(uint32(1)))
			Expect(winner.Rank).To(Equal(uint32(1)))

			Expect(result.StakeDistribution).To(HaveLen(1))
			alloc := result.StakeDistribution[0]
			Expect(alloc.NominatorID).To(Equal("n1"))
			Expect(alloc.ValidatorID).To(Equal("c1"))
			Expect(alloc.Amount.String()).To(Equal("500000"))
			Expect(alloc.Proportion).To(Equal(1.0))

			Expect(result.TotalStake.String()).To(Equal("1500000"))
			Expect(result.AlgorithmUsed).To(Equal(core.SequentialPhragmen))
		})
	})

	Context("active set larger than the candidate pool", func() {
		It("rejects with the insufficient candidates variant", func() {
			data := buildData(
				[]election.ValidatorCandidate{candidate("c1", 1_000_000), candidate("c2", 2_000_000)},
				[]election.Nominator{nominator("n1", 100_000, "c1")},
			)

			_, err := eng.Execute(buildConfig(core.SequentialPhragmen, 3), data)
			Expect(err).To(HaveOccurred())

			var insufficient *core.InsufficientCandidatesError
			Expect(err).To(BeAssignableToTypeOf(insufficient))
			insufficient = err.(*core.InsufficientCandidatesError)
			Expect(insufficient.Requested).To(Equal(uint32(3)))
			Expect(insufficient.Available).To(Equal(uint32(2)))
		})
	})

	Context("empty candidate set", func() {
		It("rejects with a validation error naming the candidate collection", func() {
			data := election.NewElectionData()
			Expect(data.AddNominator(nominator("n1", 100_000))).To(Succeed())

			_, err := eng.Execute(buildConfig(core.SequentialPhragmen, 1), data)
			Expect(err).To(HaveOccurred())

			var validationErr *core.ValidationError
			Expect(err).To(BeAssignableToTypeOf(validationErr))
			validationErr = err.(*core.ValidationError)
			Expect(validationErr.Field).To(Equal("candidates"))
			Expect(validationErr.Message).To(ContainSubstring("at least one validator candidate"))
		})
	})

	Context("three candidates under both balancing methods", func() {
		var data *election.ElectionData

		BeforeEach(func() {
			data = buildData(
				[]election.ValidatorCandidate{
					candidate("c1", 1_000_000),
					candidate("c2", 2_000_000),
					candidate("c3", 1_500_000),
				},
				[]election.Nominator{
					nominator("n1", 500_000, "c1", "c2"),
					nominator("n2", 300_000, "c3"),
				},
			)
		})

		methods := []core.AlgorithmType{core.SequentialPhragmen, core.ParallelPhragmen}

		It("selects exactly the configured number of validators", func() {
			for _, method := range methods {
				result, err := eng.Execute(buildConfig(method, 2), data)
				Expect(err).NotTo(HaveOccurred(), "method %s", method)
				Expect(result.SelectedValidators).To(HaveLen(2), "method %s", method)
			}
		})

		It("never allocates more than a nominator's declared stake", func() {
			for _, method := range methods {
				result, err := eng.Execute(buildConfig(method, 2), data)
				Expect(err).NotTo(HaveOccurred(), "method %s", method)

				for _, n := range data.Nominators {
					assigned := core.NewStake(0)
					hasSelectedTarget := false
					for _, alloc := range result.AllocationsFor(n.AccountID) {
						assigned = assigned.Add(alloc.Amount)
						hasSelectedTarget = true
					}
					Expect(assigned.Cmp(n.Stake)).To(BeNumerically("<=", 0),
						"method %s nominator %s", method, n.AccountID)
					if hasSelectedTarget {
						Expect(assigned.Cmp(n.Stake)).To(BeZero(),
							"method %s nominator %s should be fully allocated", method, n.AccountID)
					}
				}
			}
		})

		It("produces byte-identical output on repeated runs", func() {
			for _, method := range methods {
				config := buildConfig(method, 2)

				first, err := eng.Execute(config, data)
				Expect(err).NotTo(HaveOccurred())
				second, err := eng.Execute(config, data)
				Expect(err).NotTo(HaveOccurred())

				firstJSON, err := first.ToJSON()
				Expect(err).NotTo(HaveOccurred())
				secondJSON, err := second.ToJSON()
				Expect(err).NotTo(HaveOccurred())
				Expect(secondJSON).To(Equal(firstJSON), "method %s", method)
			}
		})

		It("elects the most backed candidates with full allocations", func() {
			for _, method := range methods {
				result, err := eng.Execute(buildConfig(method, 2), data)
				Expect(err).NotTo(HaveOccurred())

				Expect(result.FindValidator("c2")).NotTo(BeNil(), "method %s", method)
				Expect(result.FindValidator("c3")).NotTo(BeNil(), "method %s", method)
				Expect(result.FindValidator("c2").TotalBackingStake.String()).To(Equal("2500000"))
				Expect(result.FindValidator("c3").TotalBackingStake.String()).To(Equal("1800000"))
				Expect(result.TotalStake.String()).To(Equal("4300000"))
			}
		})
	})

	Context("overrides", func() {
		var (
			data   *election.ElectionData
			config election.ElectionConfiguration
		)

		BeforeEach(func() {
			data = buildData(
				[]election.ValidatorCandidate{
					candidate("c1", 1_000_000),
					candidate("c2", 2_000_000),
				},
				[]election.Nominator{nominator("n1", 500_000, "c1")},
			)
		})

		It("uses the overridden candidate stake without touching the original", func() {
			overrides := election.NewOverrides()
			overrides.SetCandidateStake("c1", core.NewStake(9_000_000))

			var err error
			config, err = election.NewConfigBuilder().
				Algorithm(core.SequentialPhragmen).
				ActiveSetSize(1).
				Overrides(*overrides).
				Build()
			Expect(err).NotTo(HaveOccurred())

			result, err := eng.Execute(config, data)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.SelectedValidators[0].AccountID).To(Equal("c1"))
			Expect(result.SelectedValidators[0].TotalBackingStake.String()).To(Equal("9500000"))

			// The caller's data is untouched.
			Expect(data.FindCandidate("c1").Stake.String()).To(Equal("1000000"))
		})

		It("honors an active set size override", func() {
			overrides := election.NewOverrides()
			overrides.SetActiveSetSize(2)

			var err error
			config, err = election.NewConfigBuilder().
				Algorithm(core.SequentialPhragmen).
				ActiveSetSize(1).
				Overrides(*overrides).
				Build()
			Expect(err).NotTo(HaveOccurred())

			result, err := eng.Execute(config, data)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.SelectedValidators).To(HaveLen(2))
		})

		It("re-validates after overrides and rejects an oversized set", func() {
			overrides := election.NewOverrides()
			overrides.SetActiveSetSize(5)

			var err error
			config, err = election.NewConfigBuilder().
				Algorithm(core.SequentialPhragmen).
				ActiveSetSize(1).
				Overrides(*overrides).
				Build()
			Expect(err).NotTo(HaveOccurred())

			_, err = eng.Execute(config, data)
			Expect(err).To(HaveOccurred())

			var insufficient *core.InsufficientCandidatesError
			Expect(err).To(BeAssignableToTypeOf(insufficient))
			insufficient = err.(*core.InsufficientCandidatesError)
			Expect(insufficient.Requested).To(Equal(uint32(5)))
			Expect(insufficient.Available).To(Equal(uint32(2)))
		})

		It("routes added voting edges into the distribution", func() {
			overrides := election.NewOverrides()
			overrides.AddVotingEdge("n1", "c2")
			overrides.RemoveVotingEdge("n1", "c1")

			var err error
			config, err = election.NewConfigBuilder().
				Algorithm(core.SequentialPhragmen).
				ActiveSetSize(1).
				Overrides(*overrides).
				Build()
			Expect(err).NotTo(HaveOccurred())

			result, err := eng.Execute(config, data)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.SelectedValidators[0].AccountID).To(Equal("c2"))
			Expect(result.SelectedValidators[0].TotalBackingStake.String()).To(Equal("2500000"))
		})
	})

	Context("multi-phase method", func() {
		It("tags the result with the signed phase", func() {
			data := buildData(
				[]election.ValidatorCandidate{candidate("c1", 1_000_000), candidate("c2", 500_000)},
				[]election.Nominator{nominator("n1", 250_000, "c1")},
			)

			result, err := eng.Execute(buildConfig(core.MultiPhase, 1), data)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.AlgorithmUsed).To(Equal(core.MultiPhase))
			Expect(result.ExecutionMetadata.Phase).To(Equal("signed"))
		})

		It("matches the sequential selection", func() {
			data := buildData(
				[]election.ValidatorCandidate{
					candidate("c1", 1_000_000),
					candidate("c2", 2_000_000),
					candidate("c3", 1_500_000),
				},
				[]election.Nominator{
					nominator("n1", 500_000, "c1", "c2"),
					nominator("n2", 300_000, "c3"),
				},
			)

			sequential, err := eng.Execute(buildConfig(core.SequentialPhragmen, 2), data)
			Expect(err).NotTo(HaveOccurred())
			multiPhase, err := eng.Execute(buildConfig(core.MultiPhase, 2), data)
			Expect(err).NotTo(HaveOccurred())

			Expect(multiPhase.SelectedValidators).To(HaveLen(len(sequential.SelectedValidators)))
			for i := range sequential.SelectedValidators {
				Expect(multiPhase.SelectedValidators[i].AccountID).
					To(Equal(sequential.SelectedValidators[i].AccountID))
				Expect(multiPhase.SelectedValidators[i].TotalBackingStake.String()).
					To(Equal(sequential.SelectedValidators[i].TotalBackingStake.String()))
			}
		})

		It("re-tags a primary phase failure", func() {
			data := buildData(
				[]election.ValidatorCandidate{candidate("c1", 0), candidate("c2", 100)},
				[]election.Nominator{nominator("n1", 10, "c2")},
			)

			_, err := eng.Execute(buildConfig(core.MultiPhase, 2), data)
			Expect(err).To(HaveOccurred())

			var algErr *core.AlgorithmError
			Expect(err).To(BeAssignableToTypeOf(algErr))
			algErr = err.(*core.AlgorithmError)
			Expect(algErr.Algorithm).To(Equal(core.MultiPhase))
			Expect(algErr.Message).To(HavePrefix("Multi-phase election failed in signed phase: "))
		})
	})

	Context("candidates nobody backs", func() {
		It("fails when the active set cannot be filled with backed candidates", func() {
			data := buildData(
				[]election.ValidatorCandidate{candidate("c1", 0), candidate("c2", 1_000)},
				[]election.Nominator{nominator("n1", 500, "c2")},
			)

			_, err := eng.Execute(buildConfig(core.SequentialPhragmen, 2), data)
			Expect(err).To(HaveOccurred())

			var algErr *core.AlgorithmError
			Expect(err).To(BeAssignableToTypeOf(algErr))
			algErr = err.(*core.AlgorithmError)
			Expect(algErr.Message).To(ContainSubstring("zero"))
			Expect(algErr.Message).To(ContainSubstring("stake"))
		})

		It("still elects zero stake candidates that nominators back", func() {
			data := buildData(
				[]election.ValidatorCandidate{candidate("c1", 0), candidate("c2", 1_000)},
				[]election.Nominator{nominator("n1", 500, "c1")},
			)

			result, err := eng.Execute(buildConfig(core.SequentialPhragmen, 2), data)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.FindValidator("c1")).NotTo(BeNil())
			Expect(result.FindValidator("c1").TotalBackingStake.String()).To(Equal("500"))
		})

		It("proceeds when nominators hold zero stake", func() {
			data := buildData(
				[]election.ValidatorCandidate{candidate("c1", 1_000), candidate("c2", 2_000)},
				[]election.Nominator{nominator("n1", 0, "c1")},
			)

			result, err := eng.Execute(buildConfig(core.SequentialPhragmen, 2), data)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.TotalStake.String()).To(Equal("3000"))
			Expect(result.AllocationsFor("n1")).To(BeEmpty())
		})
	})

	Context("execution metadata", func() {
		It("stamps the timestamp from the injected clock", func() {
			data := buildData(
				[]election.ValidatorCandidate{candidate("c1", 1_000)},
				[]election.Nominator{nominator("n1", 500, "c1")},
			)

			result, err := eng.Execute(buildConfig(core.SequentialPhragmen, 1), data)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.ExecutionMetadata.ExecutionTimestamp).To(Equal("2024-05-01T12:00:00Z"))
		})

		It("prefers the configured block number over the data's", func() {
			data := buildData(
				[]election.ValidatorCandidate{candidate("c1", 1_000)},
				[]election.Nominator{nominator("n1", 500, "c1")},
			)
			dataBlock := uint64(100)
			data.Metadata = &election.ElectionMetadata{BlockNumber: &dataBlock, Source: core.SourceFile}

			config, err := election.NewConfigBuilder().
				Algorithm(core.SequentialPhragmen).
				ActiveSetSize(1).
				BlockNumber(250).
				Build()
			Expect(err).NotTo(HaveOccurred())

			result, err := eng.Execute(config, data)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.ExecutionMetadata.BlockNumber).NotTo(BeNil())
			Expect(*result.ExecutionMetadata.BlockNumber).To(Equal(uint64(250)))
			Expect(result.ExecutionMetadata.DataSource).To(Equal("file"))
		})
	})

	Context("diagnostics", func() {
		var data *election.ElectionData

		BeforeEach(func() {
			data = buildData(
				[]election.ValidatorCandidate{
					candidate("c1", 1_000_000),
					candidate("c2", 2_000_000),
					candidate("c3", 1_500_000),
				},
				[]election.Nominator{
					nominator("n1", 500_000, "c1", "c2"),
					nominator("n2", 300_000, "c3"),
				},
			)
		})

		It("returns nothing unless requested", func() {
			_, diag, err := eng.ExecuteWithDiagnostics(buildConfig(core.SequentialPhragmen, 2), data, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(diag).To(BeNil())
		})

		It("explains every candidate when requested", func() {
			result, diag, err := eng.ExecuteWithDiagnostics(buildConfig(core.SequentialPhragmen, 2), data, true)
			Expect(err).NotTo(HaveOccurred())
			Expect(diag).NotTo(BeNil())
			Expect(diag.ValidatorExplanations).To(HaveLen(len(data.Candidates)))

			for _, v := range result.SelectedValidators {
				explanation := diag.ExplanationFor(v.AccountID)
				Expect(explanation).NotTo(BeNil())
				Expect(explanation.Selected).To(BeTrue())
				Expect(explanation.Reason).NotTo(BeEmpty())
			}
		})
	})
})
