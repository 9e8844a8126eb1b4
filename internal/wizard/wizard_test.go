package wizard

import (
	"testing"

	"github.com/ThomasCrouzet/dockship/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestValidators(t *testing.T) {
	assert.NoError(t, validatePort("8080"))
	assert.Error(t, validatePort("0"))
	assert.Error(t, validatePort("http"))

	assert.NoError(t, validateHost("203.0.113.5"))
	assert.NoError(t, validateHost("2001:db8::1"))
	assert.NoError(t, validateHost("app.example.com"))
	assert.Error(t, validateHost(""))
	assert.Error(t, validateHost("root@host"))

	assert.Error(t, required("  "))
	assert.NoError(t, required("x"))
}

func TestPromptFieldDefaults(t *testing.T) {
	detection := DetectionResult{
		GitURL:  "https://github.com/org/app.git",
		SSHKeys: []string{"/home/me/.ssh/id_ed25519", "/home/me/.ssh/id_rsa"},
	}

	cfg := &config.Config{}
	for _, key := range []string{"git_url", "git_token", "branch", "ssh_user", "server_ip", "ssh_key", "app_port", "project"} {
		assert.NotNil(t, promptField(cfg, key, detection), key)
	}
	assert.Nil(t, promptField(cfg, "unknown", detection))

	assert.Equal(t, "https://github.com/org/app.git", cfg.GitURL)
	assert.Equal(t, "main", cfg.Branch)
	assert.Equal(t, "/home/me/.ssh/id_ed25519", cfg.SSHKey)
}

func TestPromptNothingMissing(t *testing.T) {
	assert.NoError(t, Prompt(&config.Config{}, nil, DetectionResult{}))
}
