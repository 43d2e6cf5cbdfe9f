// Package installer keeps the mount backend client software present and
// current: it compares the installed-version marker against the vendor
// download page, silently installs or upgrades through the platform package
// installer, and opens the client's inbound firewall ports. The reconciler
// never calls into this package; it only depends on the precondition
// "backend present and responding" that a successful EnsureCurrent
// establishes.
package installer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Collaborator interfaces. Package/installer mechanics, firewall rule
// internals, and download internals stay behind these; the flow logic here
// is what gets tested.

// PackageManager installs and uninstalls the client package.
type PackageManager interface {
	Install(ctx context.Context, packagePath string) error
	Uninstall(ctx context.Context, productName string) error
}

// Firewall opens inbound ports for the client's network component.
type Firewall interface {
	OpenInbound(ctx context.Context, proto string, port int) error
}

// Downloader fetches a URL's contents.
type Downloader interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

// Config parameterizes the install flow.
type Config struct {
	// DownloadPage is the vendor page carrying the latest version string
	// and package link.
	DownloadPage string

	// MarkerPath records the installed version between runs.
	MarkerPath string

	// ProductName is the installed-product name passed to Uninstall on
	// upgrade.
	ProductName string

	// FirewallTCP and FirewallUDP are the client's inbound ports.
	FirewallTCP int
	FirewallUDP int
}

// Installer runs the ensure-present-and-current flow.
type Installer struct {
	cfg        Config
	pkg        PackageManager
	firewall   Firewall
	downloader Downloader
	logger     *slog.Logger
}

// New creates an Installer with the given collaborators.
func New(cfg Config, pkg PackageManager, firewall Firewall, downloader Downloader, logger *slog.Logger) *Installer {
	if logger == nil {
		logger = slog.Default()
	}

	return &Installer{
		cfg:        cfg,
		pkg:        pkg,
		firewall:   firewall,
		downloader: downloader,
		logger:     logger,
	}
}

// EnsureCurrent installs the client if absent or upgrades it if the vendor
// page advertises a newer version, then opens the firewall ports. The whole
// flow is pass/fail: any error aborts setup (but never a reconciliation
// run, which only checks backend presence).
func (ins *Installer) EnsureCurrent(ctx context.Context) error {
	latest, pkgURL, err := ins.latestVersion(ctx)
	if err != nil {
		return err
	}

	installed, err := ins.installedVersion()
	if err != nil {
		return err
	}

	switch {
	case installed == nil:
		ins.logger.Info("client not installed, installing",
			slog.String("version", latest.String()),
		)

		if err := ins.install(ctx, pkgURL); err != nil {
			return err
		}

	case installed.Compare(latest) < 0:
		ins.logger.Info("client outdated, upgrading",
			slog.String("installed", installed.String()),
			slog.String("latest", latest.String()),
		)

		// The vendor package does not upgrade in place.
		if err := ins.pkg.Uninstall(ctx, ins.cfg.ProductName); err != nil {
			return fmt.Errorf("installer: uninstalling old version: %w", err)
		}

		if err := ins.install(ctx, pkgURL); err != nil {
			return err
		}

	default:
		ins.logger.Info("client up to date",
			slog.String("version", installed.String()),
		)
	}

	if err := ins.openFirewall(ctx); err != nil {
		return err
	}

	return ins.writeMarker(latest)
}

// latestVersion fetches and parses the vendor download page.
func (ins *Installer) latestVersion(ctx context.Context) (Version, string, error) {
	page, err := ins.downloader.Download(ctx, ins.cfg.DownloadPage)
	if err != nil {
		return nil, "", fmt.Errorf("installer: fetching download page: %w", err)
	}

	return ParseDownloadPage(page)
}

// installedVersion reads the marker file. A missing marker means the client
// was never installed by this agent.
func (ins *Installer) installedVersion() (Version, error) {
	data, err := os.ReadFile(ins.cfg.MarkerPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("installer: reading version marker: %w", err)
	}

	v, err := ParseVersion(strings.TrimSpace(string(data)))
	if err != nil {
		// A corrupt marker is treated as not-installed; the install is
		// idempotent and rewrites it.
		ins.logger.Warn("corrupt version marker, reinstalling",
			slog.String("path", ins.cfg.MarkerPath),
			slog.String("error", err.Error()),
		)

		return nil, nil
	}

	return v, nil
}

// install downloads the package to a temp file and runs the silent install.
func (ins *Installer) install(ctx context.Context, pkgURL string) error {
	data, err := ins.downloader.Download(ctx, pkgURL)
	if err != nil {
		return fmt.Errorf("installer: downloading package: %w", err)
	}

	tmp, err := os.CreateTemp("", "drivemapper-pkg-*"+filepath.Ext(pkgURL))
	if err != nil {
		return fmt.Errorf("installer: creating temp package file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("installer: writing package: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("installer: closing package file: %w", err)
	}

	if err := ins.pkg.Install(ctx, tmp.Name()); err != nil {
		return fmt.Errorf("installer: installing package: %w", err)
	}

	return nil
}

// openFirewall opens the client's inbound TCP and UDP ports.
func (ins *Installer) openFirewall(ctx context.Context) error {
	if ins.cfg.FirewallTCP > 0 {
		if err := ins.firewall.OpenInbound(ctx, "tcp", ins.cfg.FirewallTCP); err != nil {
			return fmt.Errorf("installer: opening tcp port: %w", err)
		}
	}

	if ins.cfg.FirewallUDP > 0 {
		if err := ins.firewall.OpenInbound(ctx, "udp", ins.cfg.FirewallUDP); err != nil {
			return fmt.Errorf("installer: opening udp port: %w", err)
		}
	}

	return nil
}

// writeMarker records the now-installed version.
func (ins *Installer) writeMarker(v Version) error {
	if err := os.MkdirAll(filepath.Dir(ins.cfg.MarkerPath), 0o755); err != nil {
		return fmt.Errorf("installer: creating marker directory: %w", err)
	}

	if err := os.WriteFile(ins.cfg.MarkerPath, []byte(v.String()+"\n"), 0o644); err != nil {
		return fmt.Errorf("installer: writing version marker: %w", err)
	}

	return nil
}

// HTTPDownloader is the production Downloader.
type HTTPDownloader struct {
	Client *http.Client
}

// maxPackageBytes caps package downloads (vendor MSIs run ~100 MB).
const maxPackageBytes = 512 << 20

func (d HTTPDownloader) Download(ctx context.Context, url string) ([]byte, error) {
	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, url)
	}

	return io.ReadAll(io.LimitReader(resp.Body, maxPackageBytes))
}
