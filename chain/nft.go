package chain

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/alchemydao/alchemist/types"
)

// Errors
var (
	ErrUnknownToken       = errors.New("unknown token id")
	ErrTokenExists        = errors.New("token id already minted")
	ErrNotOwnerOrApproved = errors.New("caller is neither owner nor approved")
	ErrWrongOwner         = errors.New("from is not the token owner")
	ErrUnknownSignature   = errors.New("unknown operation signature")
)

// Operation signatures a collection dispatches over.
const (
	SigTransferFrom = "transferFrom(address,address,uint256)"
	SigApprove      = "approve(address,uint256)"
)

// NFTCollection is an ERC721-style collection: per-token ownership with
// single-address approvals. It registers as a contract so governed delegated
// calls can reach it, mirroring how a vault forwards a transfer on a held
// asset.
type NFTCollection struct {
	name   string
	symbol string
	addr   common.Address

	owners    map[string]common.Address
	approvals map[string]common.Address
}

// NewNFTCollection creates an empty collection.
func NewNFTCollection(name, symbol string) *NFTCollection {
	return &NFTCollection{
		name:      name,
		symbol:    symbol,
		owners:    make(map[string]common.Address),
		approvals: make(map[string]common.Address),
	}
}

// Bind implements Bindable.
func (n *NFTCollection) Bind(addr common.Address) { n.addr = addr }

// Address returns the collection's registered address.
func (n *NFTCollection) Address() common.Address { return n.addr }

// Name returns the collection name.
func (n *NFTCollection) Name() string { return n.name }

// Symbol returns the collection symbol.
func (n *NFTCollection) Symbol() string { return n.symbol }

// Mint creates token id owned by to. Test and demo primitive.
func (n *NFTCollection) Mint(to common.Address, id *big.Int) error {
	key := id.String()
	if _, ok := n.owners[key]; ok {
		return fmt.Errorf("%w: %w: %s", types.ErrState, ErrTokenExists, key)
	}
	n.owners[key] = to
	return nil
}

// OwnerOf returns the owner of token id.
func (n *NFTCollection) OwnerOf(id *big.Int) (common.Address, error) {
	owner, ok := n.owners[id.String()]
	if !ok {
		return common.Address{}, fmt.Errorf("%w: %w: %s", types.ErrState, ErrUnknownToken, id)
	}
	return owner, nil
}

// Approve lets the token owner authorize spender to transfer token id once.
func (n *NFTCollection) Approve(caller, spender common.Address, id *big.Int) error {
	owner, err := n.OwnerOf(id)
	if err != nil {
		return err
	}
	if owner != caller {
		return fmt.Errorf("%w: %w", types.ErrAuthorization, ErrNotOwnerOrApproved)
	}
	n.approvals[id.String()] = spender
	return nil
}

// Approved returns the approved spender for token id, if any.
func (n *NFTCollection) Approved(id *big.Int) (common.Address, bool) {
	spender, ok := n.approvals[id.String()]
	return spender, ok
}

// TransferFrom moves token id from one owner to another. The caller must be
// the current owner or the approved spender; any approval is consumed.
func (n *NFTCollection) TransferFrom(caller, from, to common.Address, id *big.Int) error {
	owner, err := n.OwnerOf(id)
	if err != nil {
		return err
	}
	if owner != from {
		return fmt.Errorf("%w: %w", types.ErrState, ErrWrongOwner)
	}
	key := id.String()
	if caller != owner && n.approvals[key] != caller {
		return fmt.Errorf("%w: %w", types.ErrAuthorization, ErrNotOwnerOrApproved)
	}
	delete(n.approvals, key)
	n.owners[key] = to
	return nil
}

// transferFromArgs are the RLP arguments of SigTransferFrom.
type transferFromArgs struct {
	From    common.Address
	To      common.Address
	TokenID *big.Int
}

// approveArgs are the RLP arguments of SigApprove.
type approveArgs struct {
	Spender common.Address
	TokenID *big.Int
}

// Invoke implements Contract over the collection's closed signature set.
func (n *NFTCollection) Invoke(caller common.Address, value *big.Int, signature string, data []byte) error {
	switch signature {
	case SigTransferFrom:
		var args transferFromArgs
		if err := rlp.DecodeBytes(data, &args); err != nil {
			return fmt.Errorf("%w: decoding %s args: %w", types.ErrState, signature, err)
		}
		return n.TransferFrom(caller, args.From, args.To, args.TokenID)

	case SigApprove:
		var args approveArgs
		if err := rlp.DecodeBytes(data, &args); err != nil {
			return fmt.Errorf("%w: decoding %s args: %w", types.ErrState, signature, err)
		}
		return n.Approve(caller, args.Spender, args.TokenID)

	default:
		return fmt.Errorf("%w: %w: %q", types.ErrState, ErrUnknownSignature, signature)
	}
}

// PackTransferFrom encodes SigTransferFrom arguments.
func PackTransferFrom(from, to common.Address, id *big.Int) []byte {
	return mustEncode(transferFromArgs{From: from, To: to, TokenID: id})
}

// PackApprove encodes SigApprove arguments.
func PackApprove(spender common.Address, id *big.Int) []byte {
	return mustEncode(approveArgs{Spender: spender, TokenID: id})
}

func mustEncode(v any) []byte {
	enc, err := rlp.EncodeToBytes(v)
	if err != nil {
		panic("chain: argument encoding failed: " + err.Error())
	}
	return enc
}

// collectionSnapshot is the Snapshotter state of a collection.
type collectionSnapshot struct {
	owners    map[string]common.Address
	approvals map[string]common.Address
}

// Snapshot implements Snapshotter.
func (n *NFTCollection) Snapshot() any {
	snap := collectionSnapshot{
		owners:    make(map[string]common.Address, len(n.owners)),
		approvals: make(map[string]common.Address, len(n.approvals)),
	}
	for k, v := range n.owners {
		snap.owners[k] = v
	}
	for k, v := range n.approvals {
		snap.approvals[k] = v
	}
	return snap
}

// Restore implements Snapshotter.
func (n *NFTCollection) Restore(snap any) {
	s := snap.(collectionSnapshot)
	n.owners = make(map[string]common.Address, len(s.owners))
	n.approvals = make(map[string]common.Address, len(s.approvals))
	for k, v := range s.owners {
		n.owners[k] = v
	}
	for k, v := range s.approvals {
		n.approvals[k] = v
	}
}
