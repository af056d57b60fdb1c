package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Asset is a non-fungible asset held by a share vault: the collection contract
// it belongs to, its identifier inside the collection, and its direct-sale
// listing state. The held-asset array only grows through governance-approved
// addition and only shrinks through a direct sale or a full buyout.
type Asset struct {
	Collection common.Address
	TokenID    *big.Int
	ForSale    bool
	Price      *big.Int
}

// Copy returns a deep copy of the asset.
func (a Asset) Copy() Asset {
	c := Asset{
		Collection: a.Collection,
		ForSale:    a.ForSale,
	}
	if a.TokenID != nil {
		c.TokenID = new(big.Int).Set(a.TokenID)
	}
	if a.Price != nil {
		c.Price = new(big.Int).Set(a.Price)
	}
	return c
}
