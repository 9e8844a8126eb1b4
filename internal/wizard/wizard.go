package wizard

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/ThomasCrouzet/dockship/internal/config"
	"github.com/charmbracelet/huh"
)

// Run executes the init wizard and returns the user's answers.
func Run(detection DetectionResult) (*WizardAnswers, error) {
	answers := &WizardAnswers{
		GitURL:    detection.GitURL,
		Branch:    detection.Branch,
		SSHPort:   "22",
		AppPort:   "8080",
		RemoteDir: "app",
	}
	if answers.Branch == "" {
		answers.Branch = config.DefaultBranch
	}

	var hints []string
	if detection.GitURL != "" {
		hints = append(hints, fmt.Sprintf("Repository origin: %s", detection.GitURL))
	}
	if len(detection.SSHKeys) > 0 {
		hints = append(hints, fmt.Sprintf("SSH keys found: %s", strings.Join(detection.SSHKeys, ", ")))
	}

	desc := "Where does the application come from?"
	if len(hints) > 0 {
		desc += "\n\nAuto-detected:\n  " + strings.Join(hints, "\n  ")
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Repository URL").
				Description(desc).
				Value(&answers.GitURL).
				Validate(required),
			huh.NewInput().
				Title("Branch").
				Value(&answers.Branch),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Server IP or hostname").
				Value(&answers.ServerIP).
				Validate(validateHost),
			huh.NewInput().
				Title("SSH user").
				Placeholder("ubuntu").
				Value(&answers.SSHUser).
				Validate(required),
			sshKeyField(detection, &answers.SSHKey),
			huh.NewInput().
				Title("SSH port").
				Value(&answers.SSHPort).
				Validate(validatePort),
			huh.NewConfirm().
				Title("Verify the host key against known_hosts?").
				Value(&answers.StrictHostKey),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Application port").
				Description("The port the application listens on inside its container").
				Value(&answers.AppPort).
				Validate(validatePort),
			huh.NewInput().
				Title("Remote directory").
				Description("Relative to the SSH user's home unless absolute").
				Value(&answers.RemoteDir).
				Validate(required),
		),
	)

	if err := form.Run(); err != nil {
		return nil, err
	}
	return answers, nil
}

// Prompt asks for every field in missing and stores the answers in cfg.
func Prompt(cfg *config.Config, missing []string, detection DetectionResult) error {
	if len(missing) == 0 {
		return nil
	}

	var fields []huh.Field
	for _, key := range missing {
		f := promptField(cfg, key, detection)
		if f == nil {
			return fmt.Errorf("no prompt for %s", key)
		}
		fields = append(fields, f)
	}

	return huh.NewForm(huh.NewGroup(fields...)).Run()
}

func promptField(cfg *config.Config, key string, detection DetectionResult) huh.Field {
	switch key {
	case "git_url":
		if cfg.GitURL == "" {
			cfg.GitURL = detection.GitURL
		}
		return huh.NewInput().Title("Repository URL").Value(&cfg.GitURL).Validate(required)
	case "git_token":
		return huh.NewInput().
			Title("Access token").
			Description("Personal access token with read access to the repository").
			EchoMode(huh.EchoModePassword).
			Value(&cfg.GitToken).
			Validate(required)
	case "branch":
		cfg.Branch = config.DefaultBranch
		return huh.NewInput().Title("Branch").Value(&cfg.Branch)
	case "ssh_user":
		return huh.NewInput().Title("SSH user").Placeholder("ubuntu").Value(&cfg.SSHUser).Validate(required)
	case "server_ip":
		return huh.NewInput().Title("Server IP or hostname").Value(&cfg.ServerIP).Validate(validateHost)
	case "ssh_key":
		return sshKeyField(detection, &cfg.SSHKey)
	case "app_port":
		return huh.NewInput().Title("Application port").Value(&cfg.AppPort).Validate(validatePort)
	case "project":
		return huh.NewInput().Title("Project name").Value(&cfg.Project).Validate(required)
	}
	return nil
}

// sshKeyField offers detected keys as choices, or a free-form path.
func sshKeyField(detection DetectionResult, value *string) huh.Field {
	if len(detection.SSHKeys) == 0 {
		return huh.NewInput().
			Title("SSH private key path").
			Placeholder("~/.ssh/id_ed25519").
			Value(value).
			Validate(required)
	}

	opts := make([]huh.Option[string], 0, len(detection.SSHKeys))
	for _, k := range detection.SSHKeys {
		opts = append(opts, huh.NewOption(k, k))
	}
	if *value == "" {
		*value = detection.SSHKeys[0]
	}
	return huh.NewSelect[string]().
		Title("SSH private key").
		Options(opts...).
		Value(value)
}

func required(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("required")
	}
	return nil
}

func validatePort(s string) error {
	_, err := config.ParsePort(s)
	return err
}

func validateHost(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return errors.New("required")
	}
	if net.ParseIP(s) != nil {
		return nil
	}
	if strings.ContainsAny(s, " /:@") {
		return fmt.Errorf("%q is not an IP address or hostname", s)
	}
	return nil
}
