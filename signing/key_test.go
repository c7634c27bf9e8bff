package signing

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKeyHex = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func TestParsePrivateKey(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{"plain hex", testKeyHex, false},
		{"0x prefix", "0x" + testKeyHex, false},
		{"upper 0X prefix", "0X" + strings.ToUpper(testKeyHex), false},
		{"31 bytes", testKeyHex[:62], true},
		{"33 bytes", testKeyHex + "00", true},
		{"odd length", testKeyHex[:63], true},
		{"not hex", strings.Repeat("zz", 32), true},
		{"empty", "", true},
		{"zero scalar", strings.Repeat("00", 32), true},
		{"curve order", "fffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364141", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := ParsePrivateKey(tt.in)
			if tt.wantErr {
				var keyErr *InvalidKeyError
				require.ErrorAs(t, err, &keyErr)
				if tt.in != "" {
					assert.NotContains(t, err.Error(), tt.in)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, testKeyHex, common.Bytes2Hex(crypto.FromECDSA(key)))
		})
	}
}

func TestParseAddress(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{"checksummed", "0xbcd72a4206dfF98bF64D6563Fa29b5Ac45D4095d", false},
		{"no prefix", "bcd72a4206dff98bf64d6563fa29b5ac45d4095d", false},
		{"19 bytes", "0xbcd72a4206dfF98bF64D6563Fa29b5Ac45D409", true},
		{"21 bytes", "0xbcd72a4206dfF98bF64D6563Fa29b5Ac45D4095d00", true},
		{"not hex", "0xnothex", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, err := ParseAddress("user", tt.in)
			if tt.wantErr {
				var addrErr *InvalidAddressError
				require.ErrorAs(t, err, &addrErr)
				assert.Equal(t, "user", addrErr.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, testUser, addr)
		})
	}
}

func TestSignHash_RecoverAndVerify(t *testing.T) {
	key, err := ParsePrivateKey(testKeyHex)
	require.NoError(t, err)
	addr := crypto.PubkeyToAddress(key.PublicKey)
	hash := HashPayload([]byte("payload"))

	for _, offset := range []byte{0, 27} {
		sig, err := SignHash(hash, key, offset)
		require.NoError(t, err)
		require.Len(t, sig, crypto.SignatureLength)

		v := sig[crypto.RecoveryIDOffset]
		assert.True(t, v == offset || v == offset+1, "unexpected recovery id %d", v)

		sigHex := common.Bytes2Hex(sig)
		recovered, err := Recover(hash, sigHex)
		require.NoError(t, err)
		assert.Equal(t, addr, recovered)
		assert.True(t, Verify(hash, "0x"+sigHex, addr))

		pub := crypto.FromECDSAPub(&key.PublicKey)
		assert.True(t, crypto.VerifySignature(pub, hash.Bytes(), sig[:64]))
	}
}

func TestVerify_WrongHash(t *testing.T) {
	key, err := ParsePrivateKey(testKeyHex)
	require.NoError(t, err)
	addr := crypto.PubkeyToAddress(key.PublicKey)

	sig, err := SignHash(HashPayload([]byte("a")), key, 0)
	require.NoError(t, err)

	assert.False(t, Verify(HashPayload([]byte("b")), common.Bytes2Hex(sig), addr))
	assert.False(t, Verify(HashPayload([]byte("a")), "0x1234", addr))
}

func TestZeroKey(t *testing.T) {
	key, err := ParsePrivateKey(testKeyHex)
	require.NoError(t, err)

	zeroKey(key)
	assert.Zero(t, key.D.Sign())
	assert.NotPanics(t, func() { zeroKey(nil) })
}
