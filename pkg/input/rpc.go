package input

import (
	"math/big"
	"sort"

	gsrpc "github.com/centrifuge/go-substrate-rpc-client/v4"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types"

	"github.com/staketools/offline-election/pkg/address"
	"github.com/staketools/offline-election/pkg/core"
	"github.com/staketools/offline-election/pkg/election"
)

// validatorPrefs mirrors pallet_staking::ValidatorPrefs. Commission is a
// compact Perbill.
type validatorPrefs struct {
	Commission types.UCompact `scale:",compact"`
	Blocked    types.Bool
}

// stakingLedger mirrors pallet_staking::StakingLedger.
type stakingLedger struct {
	Stash          types.AccountID
	Total          types.U128
	Active         types.U128
	Unlocking      []unlockChunk `scale:"max=32"`
	ClaimedRewards []types.U32   `scale:"max=512"`
}

type unlockChunk struct {
	Value types.U128
	Era   types.U32
}

// nominations mirrors pallet_staking::Nominations.
type nominations struct {
	Targets     []types.AccountID `scale:"max=16"`
	SubmittedIn types.U32
	Suppressed  types.Bool
}

const perbillPerPercent = 10_000_000

// RPCLoader fetches a staking snapshot from a Substrate node and flattens it
// into election data: registered validators with their active bond, and
// nominators with their targets filtered to the candidate set.
type RPCLoader struct {
	api    *gsrpc.SubstrateAPI
	url    string
	prefix byte
}

// NewRPCLoader connects to the given websocket or HTTP endpoint.
func NewRPCLoader(url string) (*RPCLoader, error) {
	api, err := gsrpc.NewSubstrateAPI(url)
	if err != nil {
		return nil, &core.RPCError{Message: "Failed to create RPC client: " + err.Error(), URL: url, Err: err}
	}
	return &RPCLoader{api: api, url: url, prefix: address.GenericPrefix}, nil
}

// LoadLatest snapshots the chain head.
func (l *RPCLoader) LoadLatest() (*election.ElectionData, error) {
	hash, err := l.api.RPC.Chain.GetBlockHashLatest()
	if err != nil {
		return nil, l.rpcErr("Failed to get latest block hash", err)
	}
	header, err := l.api.RPC.Chain.GetHeader(hash)
	if err != nil {
		return nil, l.rpcErr("Failed to get block header", err)
	}
	return l.loadAt(hash, uint64(header.Number))
}

// LoadAtBlock snapshots the state at a specific block number.
func (l *RPCLoader) LoadAtBlock(blockNumber uint64) (*election.ElectionData, error) {
	hash, err := l.api.RPC.Chain.GetBlockHash(blockNumber)
	if err != nil {
		return nil, l.rpcErr("Failed to get block hash", err)
	}
	return l.loadAt(hash, blockNumber)
}

func (l *RPCLoader) loadAt(hash types.Hash, blockNumber uint64) (*election.ElectionData, error) {
	meta, err := l.api.RPC.State.GetMetadata(hash)
	if err != nil {
		return nil, l.rpcErr("Failed to get chain metadata", err)
	}

	chain := ""
	if name, err := l.api.RPC.System.Chain(); err == nil {
		chain = string(name)
		switch chain {
		case "Polkadot":
			l.prefix = address.PolkadotPrefix
		case "Kusama":
			l.prefix = address.KusamaPrefix
		}
	}

	candidates, err := l.fetchValidators(meta, hash)
	if err != nil {
		return nil, err
	}
	nominators, err := l.fetchNominators(meta, hash, candidates)
	if err != nil {
		return nil, err
	}

	data := election.NewElectionData()
	data.Candidates = candidates
	data.Nominators = nominators
	data.Metadata = &election.ElectionMetadata{
		BlockNumber: &blockNumber,
		Chain:       chain,
		Source:      core.SourceRPC,
	}
	return data, nil
}

// fetchValidators enumerates Staking.Validators and resolves each stash's
// active bond through Staking.Bonded and Staking.Ledger. Results are sorted
// by account id so a snapshot is reproducible regardless of storage order.
func (l *RPCLoader) fetchValidators(meta *types.Metadata, hash types.Hash) ([]election.ValidatorCandidate, error) {
	keys, err := l.api.RPC.State.GetKeys(types.CreateStorageKeyPrefix("Staking", "Validators"), hash)
	if err != nil {
		return nil, l.rpcErr("Failed to enumerate validators", err)
	}

	candidates := make([]election.ValidatorCandidate, 0, len(keys))
	for _, key := range keys {
		stash, ok := storageKeyAccount(key)
		if !ok {
			continue
		}

		var prefs validatorPrefs
		found, err := l.api.RPC.State.GetStorage(key, &prefs, hash)
		if err != nil {
			return nil, l.rpcErr("Failed to decode validator preferences", err)
		}
		if !found {
			continue
		}

		stake, err := l.activeBond(meta, hash, stash)
		if err != nil {
			return nil, err
		}

		commission := uint8(new(big.Int).Div(compactBig(&prefs.Commission), big.NewInt(perbillPerPercent)).Uint64())
		status := "validating"
		if bool(prefs.Blocked) {
			status = "blocked"
		}

		candidates = append(candidates, election.ValidatorCandidate{
			AccountID: address.MustEncode(stash, l.prefix),
			Stake:     stake,
			Metadata: &election.CandidateMetadata{
				CommissionRate: &commission,
				OnChainStatus:  status,
			},
		})
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].AccountID < candidates[j].AccountID })
	return candidates, nil
}

// fetchNominators enumerates Staking.Nominators. Targets that are not part
// of the candidate set are dropped, matching what the on-chain snapshot
// preparation does with stale nominations.
func (l *RPCLoader) fetchNominators(meta *types.Metadata, hash types.Hash, candidates []election.ValidatorCandidate) ([]election.Nominator, error) {
	known := make(map[string]struct{}, len(candidates))
	for i := range candidates {
		known[candidates[i].AccountID] = struct{}{}
	}

	keys, err := l.api.RPC.State.GetKeys(types.CreateStorageKeyPrefix("Staking", "Nominators"), hash)
	if err != nil {
		return nil, l.rpcErr("Failed to enumerate nominators", err)
	}

	out := make([]election.Nominator, 0, len(keys))
	for _, key := range keys {
		stash, ok := storageKeyAccount(key)
		if !ok {
			continue
		}

		var noms nominations
		found, err := l.api.RPC.State.GetStorage(key, &noms, hash)
		if err != nil {
			return nil, l.rpcErr("Failed to decode nominations", err)
		}
		if !found || bool(noms.Suppressed) {
			continue
		}

		stake, err := l.activeBond(meta, hash, stash)
		if err != nil {
			return nil, err
		}

		nominator := election.NewNominator(address.MustEncode(stash, l.prefix), stake)
		for _, target := range noms.Targets {
			id := address.MustEncode(target.ToBytes(), l.prefix)
			if _, ok := known[id]; ok {
				nominator.AddTarget(id)
			}
		}
		out = append(out, nominator)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].AccountID < out[j].AccountID })
	return out, nil
}

// activeBond resolves stash -> controller -> ledger and returns the active
// bonded balance, zero when the account is not bonded.
func (l *RPCLoader) activeBond(meta *types.Metadata, hash types.Hash, stash []byte) (core.StakeAmount, error) {
	bondedKey, err := types.CreateStorageKey(meta, "Staking", "Bonded", stash)
	if err != nil {
		return core.StakeAmount{}, l.rpcErr("Failed to build Bonded storage key", err)
	}
	var controller types.AccountID
	found, err := l.api.RPC.State.GetStorage(bondedKey, &controller, hash)
	if err != nil {
		return core.StakeAmount{}, l.rpcErr("Failed to read bonded controller", err)
	}
	if !found {
		return core.StakeAmount{}, nil
	}

	ledgerKey, err := types.CreateStorageKey(meta, "Staking", "Ledger", controller.ToBytes())
	if err != nil {
		return core.StakeAmount{}, l.rpcErr("Failed to build Ledger storage key", err)
	}
	var ledger stakingLedger
	found, err = l.api.RPC.State.GetStorage(ledgerKey, &ledger, hash)
	if err != nil {
		return core.StakeAmount{}, l.rpcErr("Failed to decode staking ledger", err)
	}
	if !found || ledger.Active.Int == nil {
		return core.StakeAmount{}, nil
	}
	return core.MustStakeFromBig(ledger.Active.Int), nil
}

func (l *RPCLoader) rpcErr(msg string, err error) error {
	return &core.RPCError{Message: msg + ": " + err.Error(), URL: l.url, Err: err}
}

// storageKeyAccount extracts the trailing 32-byte account id from a map
// storage key.
func storageKeyAccount(key types.StorageKey) ([]byte, bool) {
	if len(key) < 32 {
		return nil, false
	}
	return key[len(key)-32:], true
}

func compactBig(u *types.UCompact) *big.Int {
	return (*big.Int)(u)
}
