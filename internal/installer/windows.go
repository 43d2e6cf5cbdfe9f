package installer

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// commandRunner mirrors the runner shape used elsewhere so tests can
// capture the msiexec/netsh invocations.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execCommandRunner struct{}

func (execCommandRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// MSIPackageManager installs and uninstalls through msiexec in quiet mode.
type MSIPackageManager struct {
	runner commandRunner
}

// NewMSIPackageManager creates the msiexec-backed PackageManager.
func NewMSIPackageManager() *MSIPackageManager {
	return &MSIPackageManager{runner: execCommandRunner{}}
}

func (m *MSIPackageManager) Install(ctx context.Context, packagePath string) error {
	out, err := m.runner.Run(ctx, "msiexec", "/i", packagePath, "/qn", "/norestart")
	if err != nil {
		return fmt.Errorf("msiexec install: %w: %s", err, strings.TrimSpace(string(out)))
	}

	return nil
}

func (m *MSIPackageManager) Uninstall(ctx context.Context, productName string) error {
	out, err := m.runner.Run(ctx, "msiexec", "/x", productName, "/qn", "/norestart")
	if err != nil {
		return fmt.Errorf("msiexec uninstall: %w: %s", err, strings.TrimSpace(string(out)))
	}

	return nil
}

// NetshFirewall opens inbound rules through netsh advfirewall.
type NetshFirewall struct {
	runner commandRunner

	// RulePrefix names the created rules, e.g. "drivemapper client".
	RulePrefix string
}

// NewNetshFirewall creates the netsh-backed Firewall.
func NewNetshFirewall(rulePrefix string) *NetshFirewall {
	return &NetshFirewall{runner: execCommandRunner{}, RulePrefix: rulePrefix}
}

func (f *NetshFirewall) OpenInbound(ctx context.Context, proto string, port int) error {
	name := fmt.Sprintf("%s (%s %d)", f.RulePrefix, strings.ToUpper(proto), port)

	out, err := f.runner.Run(ctx, "netsh", "advfirewall", "firewall", "add", "rule",
		"name="+name,
		"dir=in",
		"action=allow",
		"protocol="+strings.ToUpper(proto),
		"localport="+strconv.Itoa(port),
	)
	if err != nil {
		return fmt.Errorf("netsh add rule: %w: %s", err, strings.TrimSpace(string(out)))
	}

	return nil
}
