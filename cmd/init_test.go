package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ThomasCrouzet/dockship/internal/wizard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubInit(t *testing.T, prompt bool, confirm func(string) (bool, error)) {
	t.Helper()
	oldPrompt, oldConfirm, oldWizard, oldForce, oldCfg := canPrompt, confirmOverwrite, runWizard, initForce, cfgFile
	t.Cleanup(func() {
		canPrompt, confirmOverwrite, runWizard, initForce, cfgFile = oldPrompt, oldConfirm, oldWizard, oldForce, oldCfg
	})

	canPrompt = func() bool { return prompt }
	confirmOverwrite = confirm
	runWizard = func() (*wizard.WizardAnswers, error) {
		return &wizard.WizardAnswers{
			GitURL:   "https://example.com/org/app.git",
			SSHUser:  "deploy",
			ServerIP: "203.0.113.5",
			SSHKey:   "~/.ssh/id_ed25519",
			AppPort:  "8080",
		}, nil
	}
	initForce = false
}

func neverAsked(t *testing.T) func(string) (bool, error) {
	return func(string) (bool, error) {
		t.Fatal("overwrite prompt shown")
		return false, nil
	}
}

func TestInitWritesConfig(t *testing.T) {
	stubInit(t, false, neverAsked(t))
	cfgFile = filepath.Join(t.TempDir(), "conf", "dockship.yml")

	require.NoError(t, runInit(initCmd, nil))

	info, err := os.Stat(cfgFile)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	data, err := os.ReadFile(cfgFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "203.0.113.5")
	assert.NotContains(t, string(data), "git_token")
}

func TestInitExistingConfig(t *testing.T) {
	existing := func(t *testing.T) string {
		path := filepath.Join(t.TempDir(), "dockship.yml")
		require.NoError(t, os.WriteFile(path, []byte("server_ip: 198.51.100.1\n"), 0o600))
		return path
	}
	contents := func(t *testing.T, path string) string {
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		return string(data)
	}

	t.Run("kept when declined", func(t *testing.T) {
		asked := ""
		stubInit(t, true, func(path string) (bool, error) {
			asked = path
			return false, nil
		})
		cfgFile = existing(t)

		require.NoError(t, runInit(initCmd, nil))
		assert.Equal(t, cfgFile, asked)
		assert.Equal(t, "server_ip: 198.51.100.1\n", contents(t, cfgFile))
	})

	t.Run("replaced when confirmed", func(t *testing.T) {
		stubInit(t, true, func(string) (bool, error) { return true, nil })
		cfgFile = existing(t)

		require.NoError(t, runInit(initCmd, nil))
		assert.Contains(t, contents(t, cfgFile), "203.0.113.5")
	})

	t.Run("refused without a terminal", func(t *testing.T) {
		stubInit(t, false, neverAsked(t))
		cfgFile = existing(t)

		err := runInit(initCmd, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--force")
		assert.Equal(t, "server_ip: 198.51.100.1\n", contents(t, cfgFile))
	})

	t.Run("replaced with force", func(t *testing.T) {
		stubInit(t, false, neverAsked(t))
		initForce = true
		cfgFile = existing(t)

		require.NoError(t, runInit(initCmd, nil))
		assert.Contains(t, contents(t, cfgFile), "203.0.113.5")
	})

	t.Run("prompt error", func(t *testing.T) {
		stubInit(t, true, func(string) (bool, error) { return false, errors.New("user aborted") })
		cfgFile = existing(t)

		assert.Error(t, runInit(initCmd, nil))
	})
}
