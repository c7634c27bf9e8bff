package signing

import (
	"asterctl/logger"
	"net/url"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const (
	ParamTimestamp  = "timestamp"
	ParamRecvWindow = "recvWindow"
	ParamNonce      = "nonce"
	ParamUser       = "user"
	ParamSigner     = "signer"
	ParamSignature  = "signature"

	DefaultRecvWindow = 5000
)

var reservedParams = []string{ParamNonce, ParamUser, ParamSigner, ParamSignature}

// Credentials identify the account a request acts for. PrivateKey belongs to
// the signer address and is only decoded for the duration of one Sign call.
type Credentials struct {
	UserAddress   string
	SignerAddress string
	PrivateKey    string
}

// Config controls a Signer. The zero value is usable.
type Config struct {
	// Clock defaults to SystemClock.
	Clock Clock
	// RecvWindow is injected when the caller does not supply one. Defaults to 5000.
	RecvWindow int64
	// VOffset is added to the signature recovery id.
	VOffset byte
	Logger  *logger.Logger
}

// Signer turns request parameters into an authenticated parameter set. It holds
// no key material and is safe for concurrent use.
type Signer struct {
	clock      Clock
	recvWindow int64
	vOffset    byte
	log        *logger.Logger
}

func NewSigner(cfg Config) *Signer {
	s := &Signer{
		clock:      cfg.Clock,
		recvWindow: cfg.RecvWindow,
		vOffset:    cfg.VOffset,
		log:        cfg.Logger,
	}
	if s.clock == nil {
		s.clock = SystemClock
	}
	if s.recvWindow <= 0 {
		s.recvWindow = DefaultRecvWindow
	}
	if s.log == nil {
		s.log = logger.Nop()
	}
	return s
}

var defaultSigner = NewSigner(Config{})

// Sign signs params with the default signer.
func Sign(params Params, creds Credentials) (Signed, error) {
	return defaultSigner.Sign(params, creds)
}

// Result carries the intermediate artefacts of one signing call.
type Result struct {
	Params    Signed
	Body      []byte
	Payload   []byte
	Hash      common.Hash
	Nonce     uint64
	Signature []byte
}

// Sign returns the canonical parameters merged with nonce, user, signer and
// signature. Reserved keys supplied by the caller are overwritten.
func (s *Signer) Sign(params Params, creds Credentials) (Signed, error) {
	res, err := s.SignDetailed(params, creds)
	if err != nil {
		return nil, err
	}
	return res.Params, nil
}

// SignDetailed is Sign but also returns the payload and hash that were signed.
func (s *Signer) SignDetailed(params Params, creds Credentials) (*Result, error) {
	user, err := ParseAddress(ParamUser, creds.UserAddress)
	if err != nil {
		return nil, err
	}
	signer, err := ParseAddress(ParamSigner, creds.SignerAddress)
	if err != nil {
		return nil, err
	}
	key, err := ParsePrivateKey(creds.PrivateKey)
	if err != nil {
		return nil, err
	}
	defer zeroKey(key)

	now := s.clock.Now()
	canonical, err := s.Canonicalize(params, now)
	if err != nil {
		return nil, err
	}

	nonce := uint64(now.UnixMicro())
	body := canonical.JSON()
	payload := BuildPayload(body, user, signer, nonce)
	hash := HashPayload(payload)

	sig, err := SignHash(hash, key, s.vOffset)
	if err != nil {
		return nil, err
	}

	signed := Signed(canonical.Clone())
	for _, k := range reservedParams {
		if _, ok := signed[k]; ok {
			s.log.Warn("reserved_param_overridden", "param", k)
		}
	}
	signed[ParamNonce] = strconv.FormatUint(nonce, 10)
	signed[ParamUser] = withHexPrefix(creds.UserAddress)
	signed[ParamSigner] = withHexPrefix(creds.SignerAddress)
	signed[ParamSignature] = hexutil.Encode(sig)

	return &Result{
		Params:    signed,
		Body:      body,
		Payload:   payload,
		Hash:      hash,
		Nonce:     nonce,
		Signature: sig,
	}, nil
}

// Canonicalize injects the freshness defaults at the given instant and
// normalizes the result.
func (s *Signer) Canonicalize(params Params, now time.Time) (Canonical, error) {
	withDefaults := make(Params, len(params)+2)
	for k, v := range params {
		withDefaults[k] = v
	}
	if _, ok := withDefaults[ParamTimestamp]; !ok {
		withDefaults[ParamTimestamp] = now.UnixMilli()
	}
	if _, ok := withDefaults[ParamRecvWindow]; !ok {
		withDefaults[ParamRecvWindow] = s.recvWindow
	}
	return Normalize(withDefaults)
}

// withHexPrefix always emits a lowercase "0x" so servers that only accept
// that form see the same address that was hashed.
func withHexPrefix(addr string) string {
	return "0x" + trimHexPrefix(addr)
}

// Signed is the complete authenticated parameter set.
type Signed map[string]string

// Values converts the parameters for use with net/http.
func (s Signed) Values() url.Values {
	v := make(url.Values, len(s))
	for k, val := range s {
		v.Set(k, val)
	}
	return v
}

// Encode returns the key-sorted, URL encoded query string.
func (s Signed) Encode() string {
	return s.Values().Encode()
}
