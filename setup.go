package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/drivemapper/drivemapper/internal/installer"
)

func newSetupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Install or update the mount backend client",
		Long: "Compares the installed client version against the vendor download\n" +
			"page, silently installs or upgrades as needed, and opens the client's\n" +
			"inbound firewall ports. Run with machine admin rights (typically from\n" +
			"the deployment system, not per user).",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := buildLogger()
			ctx := shutdownContext(cmd.Context(), logger)

			if resolvedCfg.Install.DownloadPage == "" {
				return fmt.Errorf("install.download_page is not configured")
			}

			ins := installer.New(
				installer.Config{
					DownloadPage: resolvedCfg.Install.DownloadPage,
					MarkerPath:   resolvedCfg.Install.MarkerPath,
					ProductName:  resolvedCfg.Backend.Binary,
					FirewallTCP:  resolvedCfg.Install.FirewallTCP,
					FirewallUDP:  resolvedCfg.Install.FirewallUDP,
				},
				installer.NewMSIPackageManager(),
				installer.NewNetshFirewall("drivemapper client"),
				installer.HTTPDownloader{Client: defaultHTTPClient()},
				logger,
			)

			if err := ins.EnsureCurrent(ctx); err != nil {
				return err
			}

			// Setup only succeeds if the client it installed actually resolves.
			return buildBackend(resolvedCfg, logger).Ping(ctx)
		},
	}
}
