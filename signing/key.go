package signing

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	privateKeyLength = 32
	addressLength    = common.AddressLength
)

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

// ParsePrivateKey decodes a hex secp256k1 scalar with an optional 0x prefix.
func ParsePrivateKey(keyHex string) (*ecdsa.PrivateKey, error) {
	raw, err := hex.DecodeString(trimHexPrefix(strings.TrimSpace(keyHex)))
	if err != nil {
		return nil, &InvalidKeyError{Reason: "not valid hex"}
	}
	defer zeroBytes(raw)

	if len(raw) != privateKeyLength {
		return nil, &InvalidKeyError{Reason: fmt.Sprintf("expected %d bytes, got %d", privateKeyLength, len(raw))}
	}

	key, err := crypto.ToECDSA(raw)
	if err != nil {
		return nil, &InvalidKeyError{Reason: "scalar outside the secp256k1 curve order"}
	}
	return key, nil
}

// ParseAddress decodes a 20-byte hex address with an optional 0x prefix. field
// names the credential in the returned error.
func ParseAddress(field, value string) (common.Address, error) {
	raw, err := hex.DecodeString(trimHexPrefix(value))
	if err != nil {
		return common.Address{}, &InvalidAddressError{Field: field, Value: value, Reason: "not valid hex"}
	}
	if len(raw) != addressLength {
		return common.Address{}, &InvalidAddressError{
			Field:  field,
			Value:  value,
			Reason: fmt.Sprintf("expected %d bytes, got %d", addressLength, len(raw)),
		}
	}
	return common.BytesToAddress(raw), nil
}

// SignHash produces the 65-byte r || s || v signature over hash. vOffset is added
// to the recovery id, 0 keeps it at 0/1 and 27 gives the 27/28 wallet form.
func SignHash(hash common.Hash, key *ecdsa.PrivateKey, vOffset byte) ([]byte, error) {
	sig, err := crypto.Sign(hash.Bytes(), key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign: %w", err)
	}
	sig[crypto.RecoveryIDOffset] += vOffset
	return sig, nil
}

// Recover returns the address that produced sigHex over hash. Both recovery id
// forms are accepted.
func Recover(hash common.Hash, sigHex string) (common.Address, error) {
	sig, err := hexutil.Decode("0x" + trimHexPrefix(sigHex))
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to decode signature: %w", err)
	}
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("signature must be %d bytes, got %d", crypto.SignatureLength, len(sig))
	}
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(hash.Bytes(), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover public key: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// Verify reports whether sigHex over hash was produced by signer.
func Verify(hash common.Hash, sigHex string, signer common.Address) bool {
	addr, err := Recover(hash, sigHex)
	if err != nil {
		return false
	}
	return addr == signer
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func zeroKey(key *ecdsa.PrivateKey) {
	if key == nil || key.D == nil {
		return
	}
	words := key.D.Bits()
	for i := range words {
		words[i] = 0
	}
	key.D.SetInt64(0)
}
