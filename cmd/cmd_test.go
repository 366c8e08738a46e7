package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	out := &bytes.Buffer{}
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCalculateWithoutChains(t *testing.T) {
	out, err := execute(t, "calculate", "--data-dir", t.TempDir(), "--log-level", "error")
	require.NoError(t, err)
	require.Contains(t, out, "{}")
}

func TestVerifyRejectsMalformedClaim(t *testing.T) {
	_, err := execute(t, "verify", "{not json")
	require.ErrorContains(t, err, "decode claim")
}

func TestVerifyReportsInvalidSignature(t *testing.T) {
	t.Setenv("SERVER_WALLET_PRIVATE_KEY", "0x289c2857d4598e37fb9647507e47a309d6133539bf21a8b9cb6df88fd5232032")
	claim := `{"userAddress":"0x970E8128AB834E8EAC17Ab8E3812F010678CF791","amount":"250","epoch":474609,"proof":"0x` +
		`00000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000` + `1b"}`
	out, err := execute(t, "verify", claim, "--data-dir", t.TempDir())
	require.Error(t, err)
	require.Contains(t, out, `"valid":false`)
}
