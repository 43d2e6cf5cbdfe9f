package installer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureRunner struct {
	calls [][]string
	err   error
}

func (r *captureRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	r.calls = append(r.calls, append([]string{name}, args...))
	return []byte("output"), r.err
}

func TestMSIPackageManager(t *testing.T) {
	runner := &captureRunner{}
	m := &MSIPackageManager{runner: runner}

	require.NoError(t, m.Install(context.Background(), `C:\Temp\pkg.msi`))
	require.NoError(t, m.Uninstall(context.Background(), "Cloud Drive Client"))

	require.Len(t, runner.calls, 2)
	assert.Equal(t, []string{"msiexec", "/i", `C:\Temp\pkg.msi`, "/qn", "/norestart"}, runner.calls[0])
	assert.Equal(t, []string{"msiexec", "/x", "Cloud Drive Client", "/qn", "/norestart"}, runner.calls[1])
}

func TestNetshFirewallRule(t *testing.T) {
	runner := &captureRunner{}
	f := &NetshFirewall{runner: runner, RulePrefix: "drivemapper client"}

	require.NoError(t, f.OpenInbound(context.Background(), "tcp", 33001))

	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{
		"netsh", "advfirewall", "firewall", "add", "rule",
		"name=drivemapper client (TCP 33001)",
		"dir=in",
		"action=allow",
		"protocol=TCP",
		"localport=33001",
	}, runner.calls[0])
}
