package installer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePkg struct {
	installs   []string
	uninstalls []string
	installErr error
}

func (p *fakePkg) Install(_ context.Context, packagePath string) error {
	p.installs = append(p.installs, packagePath)
	return p.installErr
}

func (p *fakePkg) Uninstall(_ context.Context, productName string) error {
	p.uninstalls = append(p.uninstalls, productName)
	return nil
}

type fakeFirewall struct {
	opened []string
}

func (f *fakeFirewall) OpenInbound(_ context.Context, proto string, port int) error {
	f.opened = append(f.opened, fmt.Sprintf("%s/%d", proto, port))
	return nil
}

// fakeDownloader serves the download page and the package from memory.
type fakeDownloader struct {
	page []byte
	pkg  []byte
	errs map[string]error
}

func (d *fakeDownloader) Download(_ context.Context, url string) ([]byte, error) {
	if err := d.errs[url]; err != nil {
		return nil, err
	}

	if strings.HasSuffix(url, ".msi") {
		return d.pkg, nil
	}

	return d.page, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fixture struct {
	ins      *Installer
	pkg      *fakePkg
	firewall *fakeFirewall
	marker   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	pkg := &fakePkg{}
	firewall := &fakeFirewall{}
	marker := filepath.Join(t.TempDir(), "installed-version")

	downloader := &fakeDownloader{
		page: []byte(downloadPageHTML),
		pkg:  []byte("msi bytes"),
		errs: map[string]error{},
	}

	ins := New(Config{
		DownloadPage: "https://downloads.example.com/client/",
		MarkerPath:   marker,
		ProductName:  "Cloud Drive Client",
		FirewallTCP:  33001,
		FirewallUDP:  33001,
	}, pkg, firewall, downloader, quietLogger())

	return &fixture{ins: ins, pkg: pkg, firewall: firewall, marker: marker}
}

func (f *fixture) writeMarker(t *testing.T, version string) {
	t.Helper()
	require.NoError(t, os.WriteFile(f.marker, []byte(version+"\n"), 0o644))
}

func (f *fixture) readMarker(t *testing.T) string {
	t.Helper()

	data, err := os.ReadFile(f.marker)
	require.NoError(t, err)

	return strings.TrimSpace(string(data))
}

func TestEnsureCurrentInstallsWhenAbsent(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.ins.EnsureCurrent(context.Background()))

	require.Len(t, f.pkg.installs, 1)
	assert.Empty(t, f.pkg.uninstalls)
	assert.Equal(t, []string{"tcp/33001", "udp/33001"}, f.firewall.opened)
	assert.Equal(t, "4.12.0.233", f.readMarker(t))
}

func TestEnsureCurrentUpgradesWhenOutdated(t *testing.T) {
	f := newFixture(t)
	f.writeMarker(t, "4.11.2")

	require.NoError(t, f.ins.EnsureCurrent(context.Background()))

	// Upgrade goes through uninstall-then-install.
	assert.Equal(t, []string{"Cloud Drive Client"}, f.pkg.uninstalls)
	require.Len(t, f.pkg.installs, 1)
	assert.Equal(t, "4.12.0.233", f.readMarker(t))
}

func TestEnsureCurrentUpToDateSkipsInstall(t *testing.T) {
	f := newFixture(t)
	f.writeMarker(t, "4.12.0.233")

	require.NoError(t, f.ins.EnsureCurrent(context.Background()))

	assert.Empty(t, f.pkg.installs)
	assert.Empty(t, f.pkg.uninstalls)

	// Firewall rules are ensured even when nothing was installed.
	assert.Equal(t, []string{"tcp/33001", "udp/33001"}, f.firewall.opened)
}

func TestEnsureCurrentNewerThanPageSkipsInstall(t *testing.T) {
	f := newFixture(t)
	f.writeMarker(t, "4.13.0")

	require.NoError(t, f.ins.EnsureCurrent(context.Background()))
	assert.Empty(t, f.pkg.installs)
}

func TestEnsureCurrentCorruptMarkerReinstalls(t *testing.T) {
	f := newFixture(t)
	f.writeMarker(t, "not a version")

	require.NoError(t, f.ins.EnsureCurrent(context.Background()))

	require.Len(t, f.pkg.installs, 1)
	assert.Equal(t, "4.12.0.233", f.readMarker(t))
}

func TestEnsureCurrentDownloadPageFailureAborts(t *testing.T) {
	f := newFixture(t)
	f.ins.downloader.(*fakeDownloader).errs["https://downloads.example.com/client/"] = errors.New("dns failure")

	err := f.ins.EnsureCurrent(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetching download page")
	assert.Empty(t, f.pkg.installs)
	assert.Empty(t, f.firewall.opened)
}

func TestEnsureCurrentInstallFailureAborts(t *testing.T) {
	f := newFixture(t)
	f.pkg.installErr = errors.New("msiexec exited 1603")

	err := f.ins.EnsureCurrent(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "installing package")

	// Marker is only written after a successful flow.
	_, statErr := os.Stat(f.marker)
	assert.True(t, os.IsNotExist(statErr))
}
