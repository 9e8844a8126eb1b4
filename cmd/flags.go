package cmd

import (
	"time"

	"github.com/ThomasCrouzet/dockship/internal/config"
	"github.com/spf13/cobra"
)

// addConnectionFlags registers the flags shared by deploy and cleanup.
func addConnectionFlags(cmd *cobra.Command) {
	fs := cmd.PersistentFlags()
	fs.String("ssh-user", "", "remote user")
	fs.String("server-ip", "", "remote host address")
	fs.String("ssh-key", "", "path to the SSH private key")
	fs.Int("ssh-port", 0, "remote SSH port (default: 22)")
	fs.String("project", "", "project name (default: derived from the repository URL)")
	fs.String("remote-dir", "", "remote application directory (default: app)")
	fs.Bool("strict-host-key", false, "verify the host key against known_hosts")
	fs.String("known-hosts", "", "known_hosts file (default: ~/.ssh/known_hosts)")
	fs.Bool("sudo", true, "prefix privileged remote commands with sudo")
}

// applyFlagOverrides copies explicitly set flags over file and environment
// values.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	fs := cmd.Flags()

	str := func(name string, dst *string) {
		if fs.Changed(name) {
			*dst, _ = fs.GetString(name)
		}
	}
	str("git-url", &cfg.GitURL)
	str("git-token", &cfg.GitToken)
	str("branch", &cfg.Branch)
	str("ssh-user", &cfg.SSHUser)
	str("server-ip", &cfg.ServerIP)
	str("ssh-key", &cfg.SSHKey)
	str("app-port", &cfg.AppPort)
	str("work-dir", &cfg.WorkDir)
	str("project", &cfg.Project)
	str("remote-dir", &cfg.RemoteDir)
	str("known-hosts", &cfg.KnownHosts)

	if fs.Changed("ssh-port") {
		cfg.SSHPort, _ = fs.GetInt("ssh-port")
	}
	if fs.Changed("strict-host-key") {
		cfg.StrictHostKey, _ = fs.GetBool("strict-host-key")
	}
	if fs.Changed("sudo") {
		cfg.Sudo, _ = fs.GetBool("sudo")
	}
	if fs.Changed("grace-period") {
		var d time.Duration
		d, _ = fs.GetDuration("grace-period")
		cfg.GracePeriod = d
	}

	if logDir != "" {
		cfg.LogDir = logDir
	}
	if metricsFile != "" {
		cfg.MetricsFile = metricsFile
	}
}

// loadConfig reads the configuration and applies flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	applyFlagOverrides(cmd, cfg)
	return cfg, nil
}
