package wizard

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// DetectionResult holds what was auto-detected on the system.
type DetectionResult struct {
	GitAvailable bool
	GitURL       string // origin of the repository in the working directory
	Branch       string // its current branch
	SSHKeys      []string
}

// Detector abstracts filesystem, path and git lookups for testing.
type Detector interface {
	LookPath(name string) (string, error)
	Stat(path string) (os.FileInfo, error)
	Glob(pattern string) ([]string, error)
	Git(args ...string) (string, error)
}

// OSDetector uses the real OS for detection.
type OSDetector struct{}

func (OSDetector) LookPath(name string) (string, error) { return exec.LookPath(name) }
func (OSDetector) Stat(path string) (os.FileInfo, error) { return os.Stat(path) }
func (OSDetector) Glob(pattern string) ([]string, error) { return filepath.Glob(pattern) }

func (OSDetector) Git(args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, "git", args...).Output()
	return strings.TrimSpace(string(out)), err
}

// Preferred key names, checked before any other id_* file.
var preferredKeys = []string{"id_ed25519", "id_ecdsa", "id_rsa"}

// Detect scans the environment for a repository origin and SSH keys.
func Detect(d Detector) DetectionResult {
	if d == nil {
		d = OSDetector{}
	}

	result := DetectionResult{}

	if _, err := d.LookPath("git"); err == nil {
		result.GitAvailable = true
		if url, err := d.Git("config", "--get", "remote.origin.url"); err == nil {
			result.GitURL = url
		}
		if branch, err := d.Git("rev-parse", "--abbrev-ref", "HEAD"); err == nil && branch != "HEAD" {
			result.Branch = branch
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return result
	}
	sshDir := filepath.Join(home, ".ssh")

	seen := map[string]bool{}
	for _, name := range preferredKeys {
		p := filepath.Join(sshDir, name)
		if info, err := d.Stat(p); err == nil && !info.IsDir() {
			result.SSHKeys = append(result.SSHKeys, p)
			seen[p] = true
		}
	}

	// Other private keys, e.g. id_deploy or *.pem.
	var others []string
	for _, pattern := range []string{"id_*", "*.pem"} {
		matches, _ := d.Glob(filepath.Join(sshDir, pattern))
		for _, m := range matches {
			if seen[m] || strings.HasSuffix(m, ".pub") {
				continue
			}
			seen[m] = true
			others = append(others, m)
		}
	}
	sort.Strings(others)
	result.SSHKeys = append(result.SSHKeys, others...)

	return result
}
