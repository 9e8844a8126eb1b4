package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultBranch is used when no branch is configured.
const DefaultBranch = "main"

// Config is the raw, possibly incomplete, operator input.
type Config struct {
	GitURL        string        `mapstructure:"git_url"`
	GitToken      string        `mapstructure:"git_token"`
	Branch        string        `mapstructure:"branch"`
	SSHUser       string        `mapstructure:"ssh_user"`
	ServerIP      string        `mapstructure:"server_ip"`
	SSHKey        string        `mapstructure:"ssh_key"`
	AppPort       string        `mapstructure:"app_port"`
	SSHPort       int           `mapstructure:"ssh_port"`
	WorkDir       string        `mapstructure:"work_dir"`
	RemoteDir     string        `mapstructure:"remote_dir"`
	Project       string        `mapstructure:"project"`
	LogDir        string        `mapstructure:"log_dir"`
	MetricsFile   string        `mapstructure:"metrics_file"`
	StrictHostKey bool          `mapstructure:"strict_host_key"`
	KnownHosts    string        `mapstructure:"known_hosts"`
	GracePeriod   time.Duration `mapstructure:"grace_period"`
	Sudo          bool          `mapstructure:"sudo"`
}

// envAliases lists the environment variables accepted for each key, in
// priority order.
var envAliases = map[string][]string{
	"git_url":         {"DOCKSHIP_GIT_URL", "GIT_URL"},
	"git_token":       {"DOCKSHIP_GIT_TOKEN", "GIT_TOKEN"},
	"branch":          {"DOCKSHIP_BRANCH", "BRANCH"},
	"ssh_user":        {"DOCKSHIP_SSH_USER", "SSH_USER"},
	"server_ip":       {"DOCKSHIP_SERVER_IP", "SERVER_IP"},
	"ssh_key":         {"DOCKSHIP_SSH_KEY", "SSH_KEY_PATH"},
	"app_port":        {"DOCKSHIP_APP_PORT", "APP_PORT"},
	"ssh_port":        {"DOCKSHIP_SSH_PORT"},
	"work_dir":        {"DOCKSHIP_WORK_DIR"},
	"remote_dir":      {"DOCKSHIP_REMOTE_DIR"},
	"project":         {"DOCKSHIP_PROJECT"},
	"log_dir":         {"DOCKSHIP_LOG_DIR"},
	"metrics_file":    {"DOCKSHIP_METRICS_FILE"},
	"strict_host_key": {"DOCKSHIP_STRICT_HOST_KEY"},
	"known_hosts":     {"DOCKSHIP_KNOWN_HOSTS"},
	"grace_period":    {"DOCKSHIP_GRACE_PERIOD"},
	"sudo":            {"DOCKSHIP_SUDO"},
}

// BindEnv registers every config key and its environment aliases on v.
func BindEnv(v *viper.Viper) {
	for key, envs := range envAliases {
		args := append([]string{key}, envs...)
		_ = v.BindEnv(args...)
	}
}

// Load reads the configuration from the global viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads the configuration from v, applying defaults first.
func LoadFrom(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		SSHPort:     22,
		WorkDir:     ".",
		RemoteDir:   "app",
		LogDir:      ".",
		KnownHosts:  "~/.ssh/known_hosts",
		GracePeriod: 10 * time.Second,
		Sudo:        true,
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	cfg.trim()
	return cfg, nil
}

func (c *Config) trim() {
	c.GitURL = strings.TrimSpace(c.GitURL)
	c.GitToken = strings.TrimSpace(c.GitToken)
	c.Branch = strings.TrimSpace(c.Branch)
	c.SSHUser = strings.TrimSpace(c.SSHUser)
	c.ServerIP = strings.TrimSpace(c.ServerIP)
	c.SSHKey = strings.TrimSpace(c.SSHKey)
	c.AppPort = strings.TrimSpace(c.AppPort)
}

// Deployment is the validated, immutable input of a deploy run.
type Deployment struct {
	GitURL        string
	GitToken      string
	Branch        string
	SSHUser       string
	ServerIP      string
	SSHKey        string
	AppPort       int
	SSHPort       int
	WorkDir       string
	RemoteDir     string
	Project       string
	KnownHosts    string
	StrictHostKey bool
	GracePeriod   time.Duration
	Sudo          bool
}

// Target returns the remote connection parameters of the deployment.
func (d Deployment) Target() Target {
	return Target{
		SSHUser:       d.SSHUser,
		ServerIP:      d.ServerIP,
		SSHKey:        d.SSHKey,
		SSHPort:       d.SSHPort,
		KnownHosts:    d.KnownHosts,
		StrictHostKey: d.StrictHostKey,
		RemoteDir:     d.RemoteDir,
		Project:       d.Project,
		Sudo:          d.Sudo,
	}
}

// Target is the subset of configuration needed to reach the remote host
// and find what was deployed there.
type Target struct {
	SSHUser       string
	ServerIP      string
	SSHKey        string
	SSHPort       int
	KnownHosts    string
	StrictHostKey bool
	RemoteDir     string
	Project       string
	Sudo          bool
}

// Address returns host:port for the SSH connection.
func (t Target) Address() string {
	port := t.SSHPort
	if port == 0 {
		port = 22
	}
	return fmt.Sprintf("%s:%d", t.ServerIP, port)
}

// requiredField pairs a config key with its accessor.
type requiredField struct {
	key   string
	value func(*Config) string
}

// Order matters: the first empty field is the one reported.
var requiredFields = []requiredField{
	{"git_url", func(c *Config) string { return c.GitURL }},
	{"git_token", func(c *Config) string { return c.GitToken }},
	{"branch", func(c *Config) string { return c.Branch }},
	{"ssh_user", func(c *Config) string { return c.SSHUser }},
	{"server_ip", func(c *Config) string { return c.ServerIP }},
	{"ssh_key", func(c *Config) string { return c.SSHKey }},
	{"app_port", func(c *Config) string { return c.AppPort }},
}

// MissingFields returns the keys of every empty required field.
func (c *Config) MissingFields() []string {
	var missing []string
	for _, f := range requiredFields {
		if f.key == "branch" {
			continue
		}
		if f.value(c) == "" {
			missing = append(missing, f.key)
		}
	}
	return missing
}

// Deployment validates the configuration and returns the immutable
// deployment value. The returned error is a *FieldError.
func (c *Config) Deployment() (Deployment, error) {
	if c.Branch == "" {
		c.Branch = DefaultBranch
	}

	for _, f := range requiredFields {
		if f.value(c) == "" {
			return Deployment{}, &FieldError{Field: f.key, Message: "is required"}
		}
	}

	port, err := ParsePort(c.AppPort)
	if err != nil {
		return Deployment{}, &FieldError{Field: "app_port", Message: err.Error()}
	}

	keyPath := ExpandPath(c.SSHKey)
	if err := checkReadable(keyPath); err != nil {
		return Deployment{}, &FieldError{Field: "ssh_key", Message: err.Error()}
	}

	project := c.Project
	if project == "" {
		project = ProjectName(c.GitURL)
	}
	if project == "" {
		return Deployment{}, &FieldError{Field: "git_url", Message: "cannot derive a project name from " + c.GitURL}
	}

	workDir, err := filepath.Abs(ExpandPath(c.WorkDir))
	if err != nil {
		return Deployment{}, &FieldError{Field: "work_dir", Message: err.Error()}
	}

	return Deployment{
		GitURL:        c.GitURL,
		GitToken:      c.GitToken,
		Branch:        c.Branch,
		SSHUser:       c.SSHUser,
		ServerIP:      c.ServerIP,
		SSHKey:        keyPath,
		AppPort:       port,
		SSHPort:       c.SSHPort,
		WorkDir:       workDir,
		RemoteDir:     c.RemoteDir,
		Project:       project,
		KnownHosts:    ExpandPath(c.KnownHosts),
		StrictHostKey: c.StrictHostKey,
		GracePeriod:   c.GracePeriod,
		Sudo:          c.Sudo,
	}, nil
}

// TeardownTarget validates only what cleanup needs: the connection
// parameters and a project name.
func (c *Config) TeardownTarget() (Target, error) {
	for _, key := range []string{"ssh_user", "server_ip", "ssh_key"} {
		for _, f := range requiredFields {
			if f.key == key && f.value(c) == "" {
				return Target{}, &FieldError{Field: key, Message: "is required"}
			}
		}
	}

	keyPath := ExpandPath(c.SSHKey)
	if err := checkReadable(keyPath); err != nil {
		return Target{}, &FieldError{Field: "ssh_key", Message: err.Error()}
	}

	project := c.Project
	if project == "" {
		project = ProjectName(c.GitURL)
	}
	if project == "" {
		return Target{}, &FieldError{Field: "project", Message: "is required (set project or git_url)"}
	}

	return Target{
		SSHUser:       c.SSHUser,
		ServerIP:      c.ServerIP,
		SSHKey:        keyPath,
		SSHPort:       c.SSHPort,
		KnownHosts:    ExpandPath(c.KnownHosts),
		StrictHostKey: c.StrictHostKey,
		RemoteDir:     c.RemoteDir,
		Project:       project,
		Sudo:          c.Sudo,
	}, nil
}

// ParsePort accepts decimal integers in [1,65535].
func ParsePort(s string) (int, error) {
	port, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("%d is outside the valid range 1-65535", port)
	}
	return port, nil
}

// ProjectName derives the project identifier from a repository URL: the
// last path element without its .git suffix.
func ProjectName(repoURL string) string {
	s := strings.TrimSpace(repoURL)
	s = strings.TrimRight(s, "/")
	if i := strings.LastIndexAny(s, "/:"); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSuffix(s, ".git")
}

// ExpandPath replaces a leading ~ with the user's home directory.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

func checkReadable(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("file not found: %s", path)
		}
		return fmt.Errorf("cannot read %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return nil
}
