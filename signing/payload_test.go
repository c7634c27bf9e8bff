package signing

import (
	"bytes"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testUser   = common.HexToAddress("0xbcd72a4206dfF98bF64D6563Fa29b5Ac45D4095d")
	testSigner = common.HexToAddress("0x8a50BF4Ad95E01981479bdcd47D5cCdd0946eC6e")
)

func word(t *testing.T, payload []byte, i int) []byte {
	t.Helper()
	require.GreaterOrEqual(t, len(payload), (i+1)*wordSize)
	return payload[i*wordSize : (i+1)*wordSize]
}

func TestBuildPayload_Layout(t *testing.T) {
	body := []byte(`{"recvWindow":"5000","timestamp":"1700000000000"}`)
	nonce := uint64(1700000000000123)

	payload := BuildPayload(body, testUser, testSigner, nonce)

	assert.Equal(t, int64(128), new(big.Int).SetBytes(word(t, payload, 0)).Int64())

	userWord := word(t, payload, 1)
	assert.Equal(t, make([]byte, 12), userWord[:12])
	assert.Equal(t, testUser.Bytes(), userWord[12:])

	signerWord := word(t, payload, 2)
	assert.Equal(t, make([]byte, 12), signerWord[:12])
	assert.Equal(t, testSigner.Bytes(), signerWord[12:])

	assert.Equal(t, nonce, new(big.Int).SetBytes(word(t, payload, 3)).Uint64())
	assert.Equal(t, uint64(len(body)), new(big.Int).SetBytes(word(t, payload, 4)).Uint64())

	assert.Equal(t, body, payload[5*wordSize:5*wordSize+len(body)])
	assert.Equal(t, 0, len(payload)%wordSize)
	for _, b := range payload[5*wordSize+len(body):] {
		assert.Zero(t, b)
	}
}

func TestBuildPayload_Padding(t *testing.T) {
	tests := []struct {
		name    string
		bodyLen int
		wantPad int
	}{
		{"empty", 0, 0},
		{"one byte", 1, 31},
		{"exact word", 32, 0},
		{"word plus one", 33, 31},
		{"two words minus one", 63, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := []byte(strings.Repeat("x", tt.bodyLen))
			payload := BuildPayload(body, testUser, testSigner, 1)

			assert.Equal(t, tt.wantPad, padLen(tt.bodyLen))
			assert.Equal(t, 5*wordSize+tt.bodyLen+tt.wantPad, len(payload))
			assert.Zero(t, len(payload)%wordSize)
		})
	}
}

func TestBuildPayload_Deterministic(t *testing.T) {
	body := []byte(`{"a":"1"}`)
	first := BuildPayload(body, testUser, testSigner, 42)
	second := BuildPayload(body, testUser, testSigner, 42)
	assert.Equal(t, first, second)
}

func TestBuildPayload_EveryInputIsBound(t *testing.T) {
	body := []byte(`{"a":"1"}`)
	base := BuildPayload(body, testUser, testSigner, 42)

	variants := map[string][]byte{
		"body":   BuildPayload([]byte(`{"a":"2"}`), testUser, testSigner, 42),
		"user":   BuildPayload(body, testSigner, testSigner, 42),
		"signer": BuildPayload(body, testUser, testUser, 42),
		"nonce":  BuildPayload(body, testUser, testSigner, 43),
	}
	for name, v := range variants {
		assert.False(t, bytes.Equal(base, v), "changing %s must change the payload", name)
	}
}

func TestHashPayload(t *testing.T) {
	payload := BuildPayload([]byte(`{"a":"1"}`), testUser, testSigner, 7)

	inner := crypto.Keccak256(payload)
	prefix := append([]byte("\x19Ethereum Signed Message:\n32"), inner...)
	want := crypto.Keccak256(prefix)

	assert.Equal(t, want, HashPayload(payload).Bytes())
	assert.Equal(t, HashPayload(payload), HashPayload(payload))
	assert.NotEqual(t, HashPayload(payload), HashPayload(append(payload, 0)))
}
