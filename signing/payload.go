package signing

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
)

const (
	wordSize = 32

	// bodyOffset is the offset word that leads every payload. It points past the
	// four head words and is part of the fixed layout the server hashes.
	bodyOffset = 4 * wordSize
)

// wordBuilder is an append-only writer of 32-byte big-endian words.
type wordBuilder struct {
	buf []byte
}

func newWordBuilder(size int) *wordBuilder {
	return &wordBuilder{buf: make([]byte, 0, size)}
}

func (w *wordBuilder) uint64(v uint64) *wordBuilder {
	w.buf = append(w.buf, math.U256Bytes(new(big.Int).SetUint64(v))...)
	return w
}

// address writes a left zero-padded 20-byte address.
func (w *wordBuilder) address(a common.Address) *wordBuilder {
	w.buf = append(w.buf, common.LeftPadBytes(a.Bytes(), wordSize)...)
	return w
}

// bytes writes the length word, the raw bytes and zero padding up to the next
// word boundary.
func (w *wordBuilder) bytes(b []byte) *wordBuilder {
	w.uint64(uint64(len(b)))
	w.buf = append(w.buf, b...)
	w.buf = append(w.buf, make([]byte, padLen(len(b)))...)
	return w
}

func (w *wordBuilder) build() []byte {
	return w.buf
}

func padLen(n int) int {
	return (wordSize - n%wordSize) % wordSize
}

// BuildPayload lays out the bytes that get hashed and signed:
//
//	[offset=128][user][signer][nonce][len(body)][body][zero pad]
//
// Every integer is a 32-byte big-endian word. The layout is a wire contract.
func BuildPayload(body []byte, user, signer common.Address, nonce uint64) []byte {
	size := 5*wordSize + len(body) + padLen(len(body))
	return newWordBuilder(size).
		uint64(bodyOffset).
		address(user).
		address(signer).
		uint64(nonce).
		bytes(body).
		build()
}
