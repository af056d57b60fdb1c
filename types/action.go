package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// LockedSentinel marks a template contract as permanently uninitializable.
// A clone factory writes it into the ownership slot of every template it
// registers so only fresh clones can ever be initialized.
var LockedSentinel = common.HexToAddress("0x0000000000000000000000000000000000000001")

// Action is a single governed call: a target contract, an attached payment
// value, the signature of the operation to dispatch and its RLP-encoded
// arguments. Proposals carry an ordered list of actions; the timelock queues
// and executes them one at a time.
type Action struct {
	Target    common.Address
	Value     *big.Int
	Signature string
	Data      []byte
}

// actionEnvelope is the canonical hashing form of an action. Eta is included
// so re-queuing the same action at a different execution time yields a
// distinct pending-set key.
type actionEnvelope struct {
	Target    common.Address
	Value     *big.Int
	Signature string
	Data      []byte
	Eta       uint64
}

// ActionHash returns the content hash keying an action in the timelock's
// pending set. Identical (target, value, signature, data, eta) tuples always
// hash identically; a nil value is normalized to zero first.
func ActionHash(a Action, eta uint64) common.Hash {
	env := actionEnvelope{
		Target:    a.Target,
		Value:     valueOrZero(a.Value),
		Signature: a.Signature,
		Data:      a.Data,
		Eta:       eta,
	}
	enc, err := rlp.EncodeToBytes(&env)
	if err != nil {
		// All envelope fields are RLP-encodable; failure here is a defect.
		panic("types: action hash encoding failed: " + err.Error())
	}
	return crypto.Keccak256Hash(enc)
}

func valueOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
