package commands

import (
	"asterctl/signing"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func newSignCmd() *cobra.Command {
	var (
		verify      bool
		showPayload bool
	)

	cmd := &cobra.Command{
		Use:   "sign key=value ...",
		Short: "Sign a parameter set and print the authenticated request parameters",
		Long: `Sign builds the exact parameter set a signed request would carry, for the
selected account. Values are sent as text. Nothing is sent to the API.`,
		Example: "  asterctl sign symbol=BTCUSDT limit=10 --verify",
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseParams(args)
			if err != nil {
				return err
			}

			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			acct, err := a.cfg.Account(accountID)
			if err != nil {
				return err
			}
			key, err := acct.PrivateKey()
			if err != nil {
				return err
			}

			res, err := a.signer.SignDetailed(params, signing.Credentials{
				UserAddress:   acct.UserAddress,
				SignerAddress: acct.SignerAddress,
				PrivateKey:    key,
			})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			printSigned(w, res.Params)

			if showPayload {
				fmt.Fprintf(w, "\nbody:    %s\n", res.Body)
				fmt.Fprintf(w, "payload: %s\n", hex.EncodeToString(res.Payload))
				fmt.Fprintf(w, "hash:    %s\n", res.Hash.Hex())
			}

			if verify {
				return verifySigned(w, res, acct.SignerAddress)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&verify, "verify", false, "recover the signer from the signature and compare it with the account's signer")
	cmd.Flags().BoolVar(&showPayload, "payload", false, "also print the canonical body, payload and hash")
	return cmd
}

// parseParams turns key=value arguments into request parameters. Values keep
// any further '=' characters.
func parseParams(args []string) (signing.Params, error) {
	params := make(signing.Params, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("invalid parameter %q: expected key=value", arg)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("invalid parameter %q: empty key", arg)
		}
		if _, dup := params[key]; dup {
			return nil, fmt.Errorf("duplicate parameter %q", key)
		}
		params[key] = value
	}
	return params, nil
}

func printSigned(w io.Writer, signed signing.Signed) {
	canonical := signing.Canonical(signed)
	for _, k := range canonical.Keys() {
		fmt.Fprintf(w, "%s=%s\n", k, signed[k])
	}
	fmt.Fprintf(w, "\nquery: %s\n", signed.Encode())
}

func verifySigned(w io.Writer, res *signing.Result, signerAddress string) error {
	expected, err := signing.ParseAddress(signing.ParamSigner, signerAddress)
	if err != nil {
		return err
	}
	recovered, err := signing.Recover(res.Hash, res.Params[signing.ParamSignature])
	if err != nil {
		return fmt.Errorf("recovering signer: %w", err)
	}
	if recovered != expected {
		fmt.Fprintf(w, "%s recovered %s, expected %s\n", red("✗"), recovered.Hex(), expected.Hex())
		return fmt.Errorf("signature does not match signer %s", expected.Hex())
	}
	fmt.Fprintf(w, "%s signature recovers to signer %s\n", green("✓"), recovered.Hex())
	return nil
}
