package signing

import (
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// HashPayload returns the digest that gets signed: the keccak256 of the payload,
// wrapped in the "\x19Ethereum Signed Message:\n32" personal message envelope and
// hashed again.
func HashPayload(payload []byte) common.Hash {
	payloadHash := crypto.Keccak256(payload)
	return common.BytesToHash(accounts.TextHash(payloadHash))
}
