package client

import (
	"asterctl/signing"
	"fmt"
	"net/http"
)

// AuthProvider applies authentication to an HTTP request.
// Implementations can add headers, query params, or signatures
// depending on the target API requirements.
type AuthProvider interface {
	Apply(req *http.Request) error
}

// KeyFunc returns the signer's private key in hex. It is called once per
// request so the key is never held by the client.
type KeyFunc func() (string, error)

// SignatureAuth authenticates requests with a wallet signature over the query
// parameters. The signed set replaces the query string and the signer address
// is sent as the API key header.
type SignatureAuth struct {
	Signer        *signing.Signer
	UserAddress   string
	SignerAddress string
	Key           KeyFunc
}

const apiKeyHeader = "X-MBX-APIKEY"

func (a SignatureAuth) Apply(req *http.Request) error {
	if a.Key == nil {
		return fmt.Errorf("no private key source configured")
	}

	query := req.URL.Query()
	params := make(signing.Params, len(query))
	for k := range query {
		params[k] = query.Get(k)
	}

	key, err := a.Key()
	if err != nil {
		return err
	}

	signer := a.Signer
	if signer == nil {
		signer = signing.NewSigner(signing.Config{})
	}

	signed, err := signer.Sign(params, signing.Credentials{
		UserAddress:   a.UserAddress,
		SignerAddress: a.SignerAddress,
		PrivateKey:    key,
	})
	if err != nil {
		return err
	}

	req.URL.RawQuery = signed.Encode()
	req.Header.Set(apiKeyHeader, a.SignerAddress)
	return nil
}
