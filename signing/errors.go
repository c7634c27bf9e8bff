package signing

import "fmt"

// EncodingError reports a parameter value that has no canonical text form.
type EncodingError struct {
	Key    string
	Reason string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("cannot encode parameter %q: %s", e.Key, e.Reason)
}

// InvalidKeyError reports a private key that is not a 32-byte secp256k1 scalar.
// The key text itself is never included.
type InvalidKeyError struct {
	Reason string
}

func (e *InvalidKeyError) Error() string {
	return "invalid private key: " + e.Reason
}

// InvalidAddressError reports an identity address that is not 20 bytes of hex.
type InvalidAddressError struct {
	Field  string
	Value  string
	Reason string
}

func (e *InvalidAddressError) Error() string {
	return fmt.Sprintf("invalid %s address %q: %s", e.Field, e.Value, e.Reason)
}
