package e2e_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var binaryPath string

func TestMain(m *testing.M) {
	// Build the binary before all E2E tests.
	tmp, err := os.MkdirTemp("", "earnusdc-e2e-test")
	if err != nil {
		panic(err)
	}

	binaryPath = filepath.Join(tmp, "earnusdc")
	// Build from the module root (two levels up from test/e2e/).
	moduleRoot, err := filepath.Abs(filepath.Join("..", ".."))
	if err != nil {
		panic(err)
	}
	cmd := exec.Command("go", "build", "-o", binaryPath, ".")
	cmd.Dir = moduleRoot
	if out, err := cmd.CombinedOutput(); err != nil {
		panic("build failed: " + string(out))
	}

	code := m.Run()
	os.RemoveAll(tmp)
	os.Exit(code)
}

func command(configDir string, args ...string) *exec.Cmd {
	cmd := exec.Command(binaryPath, args...)
	cmd.Env = append(os.Environ(), "EARN_CONFIG_DIR="+configDir, "EARN_PRIVATE_KEY=")
	return cmd
}

func runCLI(t *testing.T, configDir string, args ...string) (string, error) {
	t.Helper()
	out, err := command(configDir, args...).CombinedOutput()
	return string(out), err
}

func TestVersionFlag(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), "--version")
	require.NoError(t, err)
	assert.Equal(t, "earnusdc 0.1.0\n", out)
}

func TestHelpCommand(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), "--help")
	require.NoError(t, err)
	for _, sub := range []string{"status", "deposit", "withdraw", "claim", "referral", "dashboard", "wallet", "config", "contracts"} {
		assert.Contains(t, out, sub)
	}
	assert.Contains(t, out, "--testnet")
	assert.Contains(t, out, "--yes")
}

func TestDepositHelpShowsFlags(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), "deposit", "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "--referral")
	assert.Contains(t, out, "--resume")
	assert.Contains(t, out, "--max")
	assert.Contains(t, out, "--mainnet")
}

func TestWalletAddAndList(t *testing.T) {
	dir := t.TempDir()

	out, err := runCLI(t, dir, "wallet", "add", "watcher", "0x1234567890abcdef1234567890abcdef12345678")
	require.NoError(t, err, out)

	out, err = runCLI(t, dir, "wallet", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "watcher")
	assert.Contains(t, out, "0x1234")
	assert.Contains(t, out, "1 wallet(s) configured")

	_, err = os.Stat(filepath.Join(dir, "wallets.json"))
	assert.NoError(t, err)
}

func TestWalletAddRejectsBadAddress(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), "wallet", "add", "bad", "0x1234")
	assert.Error(t, err)
	assert.NotEmpty(t, out)
}

func TestWalletRemoveConfirmed(t *testing.T) {
	dir := t.TempDir()
	_, err := runCLI(t, dir, "wallet", "add", "w1", "0x1234567890abcdef1234567890abcdef12345678")
	require.NoError(t, err)

	// Answer the confirmation prompt on stdin.
	cmd := command(dir, "wallet", "remove", "w1")
	cmd.Stdin = strings.NewReader("y\n")
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))

	out2, err := runCLI(t, dir, "wallet", "list")
	require.NoError(t, err)
	assert.NotContains(t, out2, "w1")
}

func TestWalletRemoveWithYes(t *testing.T) {
	dir := t.TempDir()
	_, err := runCLI(t, dir, "wallet", "add", "w2", "0x1234567890abcdef1234567890abcdef12345678")
	require.NoError(t, err)

	out, err := runCLI(t, dir, "--yes", "wallet", "remove", "w2")
	require.NoError(t, err)
	assert.Contains(t, out, "removed")
}

func TestConfigShow(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "default_network")
	assert.Contains(t, out, "rpc_algorithm")
	assert.Contains(t, out, "0x3038")
}

func TestConfigSetPersists(t *testing.T) {
	dir := t.TempDir()
	_, err := runCLI(t, dir, "config", "set", "rpc_algorithm", "round-robin")
	require.NoError(t, err)

	out, err := runCLI(t, dir, "config", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "round-robin")
}

func TestConfigSetInvalid(t *testing.T) {
	dir := t.TempDir()
	_, err := runCLI(t, dir, "config", "set", "network_mode", "devnet")
	assert.Error(t, err)

	_, err = runCLI(t, dir, "config", "set", "no_such_key", "1")
	assert.Error(t, err)
}

func TestConfigAddRPC(t *testing.T) {
	dir := t.TempDir()
	_, err := runCLI(t, dir, "config", "add-rpc", "https://custom.rpc.url")
	require.NoError(t, err)

	out, err := runCLI(t, dir, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "custom.rpc.url")
}

func TestTestnetFlagOverridesAtRuntime(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), "config", "show", "--testnet")
	require.NoError(t, err)
	assert.Contains(t, out, `"network_mode": "testnet"`)
}

func TestTestnetMainnetMutuallyExclusive(t *testing.T) {
	_, err := runCLI(t, t.TempDir(), "--testnet", "--mainnet", "config", "show")
	assert.Error(t, err)
}

func TestContractsListsSelectors(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), "contracts")
	require.NoError(t, err)
	assert.Contains(t, out, "0x61638ed5")
	assert.Contains(t, out, "depositFunds(uint256,uint256)")
	assert.Contains(t, out, "0x095ea7b3")
}

func TestDepositOnUnknownNetworkFails(t *testing.T) {
	dir := t.TempDir()
	// An unknown network fails before any RPC is contacted.
	_, err := runCLI(t, dir, "config", "set", "default_network", "ethereum")
	require.NoError(t, err)
	out, err := runCLI(t, dir, "deposit", "1")
	assert.Error(t, err)
	assert.Contains(t, out, "unknown network")
}

func TestUnknownCommandShowsError(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), "unknowncommand")
	assert.Error(t, err)
	assert.Contains(t, strings.ToLower(out), "unknown command")
}
