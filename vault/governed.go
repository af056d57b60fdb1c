package vault

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/alchemydao/alchemist/chain"
	"github.com/alchemydao/alchemist/types"
)

// Governance-lane operation signatures. This set is closed: the timelock can
// dispatch exactly these and nothing else.
const (
	SigMintSharesForSale  = "mintSharesForSale(uint256)"
	SigBurnSharesForSale  = "burnSharesForSale(uint256)"
	SigChangeBuyoutPrice  = "changeBuyoutPrice(uint256)"
	SigAddNft             = "addNft(address,uint256)"
	SigSetNftSale         = "setNftSale(uint256,uint256,bool)"
	SigReturnNft          = "returnNft()"
	SigExecuteTransaction = "executeTransaction(address,uint256,string,bytes)"
)

var ErrUnknownSignature = fmt.Errorf("%w: unknown operation signature", types.ErrState)

type amountArgs struct {
	Amount *big.Int
}

type addNftArgs struct {
	Collection common.Address
	TokenID    *big.Int
}

type setNftSaleArgs struct {
	Index   uint64
	Price   *big.Int
	ForSale bool
}

type execArgs struct {
	Target    common.Address
	Value     *big.Int
	Signature string
	Data      []byte
}

// PackMintSharesForSale encodes arguments for mintSharesForSale.
func PackMintSharesForSale(amount *big.Int) []byte { return packAmount(amount) }

// PackBurnSharesForSale encodes arguments for burnSharesForSale.
func PackBurnSharesForSale(amount *big.Int) []byte { return packAmount(amount) }

// PackChangeBuyoutPrice encodes arguments for changeBuyoutPrice.
func PackChangeBuyoutPrice(price *big.Int) []byte { return packAmount(price) }

// PackAddNft encodes arguments for addNft.
func PackAddNft(collection common.Address, tokenID *big.Int) []byte {
	return mustEncode(&addNftArgs{Collection: collection, TokenID: tokenID})
}

// PackSetNftSale encodes arguments for setNftSale.
func PackSetNftSale(index uint64, price *big.Int, forSale bool) []byte {
	return mustEncode(&setNftSaleArgs{Index: index, Price: price, ForSale: forSale})
}

// PackExecuteTransaction encodes arguments for the delegated-call operation.
func PackExecuteTransaction(target common.Address, value *big.Int, signature string, data []byte) []byte {
	if value == nil {
		value = new(big.Int)
	}
	return mustEncode(&execArgs{Target: target, Value: value, Signature: signature, Data: data})
}

func packAmount(amount *big.Int) []byte {
	if amount == nil {
		amount = new(big.Int)
	}
	return mustEncode(&amountArgs{Amount: amount})
}

func mustEncode(v any) []byte {
	enc, err := rlp.EncodeToBytes(v)
	if err != nil {
		panic("vault: argument encoding failed: " + err.Error())
	}
	return enc
}

// Invoke dispatches a governance-lane operation. The only accepted caller is
// the timelock wired at deployment; every other caller is rejected before the
// signature is even examined.
func (v *Vault) Invoke(caller common.Address, value *big.Int, signature string, data []byte) error {
	if err := v.guard.Enter(); err != nil {
		return err
	}
	defer v.guard.Exit()
	if !v.initialized {
		return ErrNotInitialized
	}
	if caller != v.timelockAddr || v.timelockAddr == (common.Address{}) {
		return ErrNotTimelock
	}

	switch signature {
	case SigMintSharesForSale:
		var args amountArgs
		if err := rlp.DecodeBytes(data, &args); err != nil {
			return fmt.Errorf("%w: bad arguments: %w", types.ErrState, err)
		}
		return v.mintSharesForSale(args.Amount)
	case SigBurnSharesForSale:
		var args amountArgs
		if err := rlp.DecodeBytes(data, &args); err != nil {
			return fmt.Errorf("%w: bad arguments: %w", types.ErrState, err)
		}
		return v.burnSharesForSale(args.Amount)
	case SigChangeBuyoutPrice:
		var args amountArgs
		if err := rlp.DecodeBytes(data, &args); err != nil {
			return fmt.Errorf("%w: bad arguments: %w", types.ErrState, err)
		}
		return v.changeBuyoutPrice(args.Amount)
	case SigAddNft:
		var args addNftArgs
		if err := rlp.DecodeBytes(data, &args); err != nil {
			return fmt.Errorf("%w: bad arguments: %w", types.ErrState, err)
		}
		return v.addNft(args.Collection, args.TokenID)
	case SigSetNftSale:
		var args setNftSaleArgs
		if err := rlp.DecodeBytes(data, &args); err != nil {
			return fmt.Errorf("%w: bad arguments: %w", types.ErrState, err)
		}
		return v.setNftSale(args.Index, args.Price, args.ForSale)
	case SigReturnNft:
		return v.returnNft()
	case SigExecuteTransaction:
		var args execArgs
		if err := rlp.DecodeBytes(data, &args); err != nil {
			return fmt.Errorf("%w: bad arguments: %w", types.ErrState, err)
		}
		return v.executeTransaction(args.Target, args.Value, args.Signature, args.Data)
	}
	return fmt.Errorf("%w: %s", ErrUnknownSignature, signature)
}

// mintSharesForSale grows both the total supply and the for-sale pool. The
// new shares sit unowned until buyShares fills them.
func (v *Vault) mintSharesForSale(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: amount must be positive", types.ErrEconomic)
	}
	if err := v.shares.MintSupply(amount); err != nil {
		return err
	}
	v.sharesForSale.Add(v.sharesForSale, amount)
	if v.sharesForSale.Cmp(v.shares.TotalSupply()) > 0 {
		return ErrSaleExceedsSupply
	}
	v.jrnl.Append(types.SharesForSaleMinted{Amount: new(big.Int).Set(amount)})
	return nil
}

// burnSharesForSale shrinks the unsold pool without touching total supply.
// Shares already bought are out of reach; only the unfilled remainder can be
// withdrawn from sale.
func (v *Vault) burnSharesForSale(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: amount must be positive", types.ErrEconomic)
	}
	if amount.Cmp(v.sharesForSale) > 0 {
		return ErrInsufficientSale
	}
	v.sharesForSale.Sub(v.sharesForSale, amount)
	v.jrnl.Append(types.SharesForSaleBurned{Amount: new(big.Int).Set(amount)})
	return nil
}

func (v *Vault) changeBuyoutPrice(price *big.Int) error {
	if price == nil || price.Sign() <= 0 {
		return ErrZeroPrice
	}
	old := v.buyoutPrice
	v.buyoutPrice = new(big.Int).Set(price)
	v.jrnl.Append(types.BuyoutPriceChanged{
		OldPrice: old,
		NewPrice: new(big.Int).Set(price),
	})
	return nil
}

// addNft registers an asset the vault already owns. The transfer must have
// happened beforehand; registration never moves tokens.
func (v *Vault) addNft(collection common.Address, tokenID *big.Int) error {
	c, ok := v.reg.Lookup(collection)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotCollection, collection.Hex())
	}
	nft, ok := c.(*chain.NFTCollection)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotCollection, collection.Hex())
	}
	owner, err := nft.OwnerOf(tokenID)
	if err != nil {
		return err
	}
	if owner != v.addr {
		return ErrAssetNotHeld
	}
	v.nfts = append(v.nfts, types.Asset{
		Collection: collection,
		TokenID:    new(big.Int).Set(tokenID),
		Price:      new(big.Int),
	})
	v.jrnl.Append(types.NftAdded{
		Collection: collection,
		TokenID:    new(big.Int).Set(tokenID),
	})
	return nil
}

func (v *Vault) setNftSale(index uint64, price *big.Int, forSale bool) error {
	if index >= uint64(len(v.nfts)) {
		return ErrBadIndex
	}
	if price == nil {
		price = new(big.Int)
	}
	v.nfts[index].Price = new(big.Int).Set(price)
	v.nfts[index].ForSale = forSale
	v.jrnl.Append(types.NftSaleSet{
		Index:   index,
		Price:   new(big.Int).Set(price),
		ForSale: forSale,
	})
	return nil
}

// returnNft hands every remaining asset back to the original depositor.
// The transfers land all or not at all.
func (v *Vault) returnNft() error {
	snaps := v.reg.SnapshotAll()
	for _, a := range v.nfts {
		if err := v.reg.Invoke(v.addr, a.Collection, nil, chain.SigTransferFrom,
			chain.PackTransferFrom(v.addr, v.owner, a.TokenID)); err != nil {
			v.reg.RestoreAll(snaps)
			return err
		}
	}
	v.nfts = v.nfts[:0]
	v.jrnl.Append(types.NftReturned{Recipient: v.owner})
	return nil
}

// executeTransaction invokes an operation on another contract with the vault
// as caller. The target still dispatches over its own closed signature set.
func (v *Vault) executeTransaction(target common.Address, value *big.Int, signature string, data []byte) error {
	if value != nil && value.Sign() > 0 {
		if err := v.bank.Transfer(v.addr, target, value); err != nil {
			return err
		}
	}
	if err := v.reg.Invoke(v.addr, target, value, signature, data); err != nil {
		return err
	}
	if value == nil {
		value = new(big.Int)
	}
	v.jrnl.Append(types.CustomCallExecuted{
		Target:    target,
		Value:     new(big.Int).Set(value),
		Signature: signature,
	})
	return nil
}

var _ chain.Contract = (*Vault)(nil)
