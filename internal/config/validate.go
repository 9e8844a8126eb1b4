package config

import "fmt"

// FieldError reports the configuration field that stopped the run.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// ValidationError reports a config problem with a suggested fix.
type ValidationError struct {
	Field      string
	Message    string
	Suggestion string
}

var suggestions = map[string]string{
	"git_url":   "pass --git-url or set GIT_URL",
	"git_token": "pass --git-token or set GIT_TOKEN",
	"ssh_user":  "pass --ssh-user or set SSH_USER",
	"server_ip": "pass --server-ip or set SERVER_IP",
	"ssh_key":   "pass --ssh-key with the path to a private key",
	"app_port":  "use the port your container listens on, e.g. 8080",
	"project":   "set project, or git_url so the name can be derived",
}

// Validate reports every problem at once, for the validate command.
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError

	for _, key := range c.MissingFields() {
		errs = append(errs, ValidationError{
			Field:      key,
			Message:    "is required",
			Suggestion: suggestions[key],
		})
	}

	if c.AppPort != "" {
		if _, err := ParsePort(c.AppPort); err != nil {
			errs = append(errs, ValidationError{
				Field:      "app_port",
				Message:    err.Error(),
				Suggestion: suggestions["app_port"],
			})
		}
	}

	if c.SSHKey != "" {
		if err := checkReadable(ExpandPath(c.SSHKey)); err != nil {
			errs = append(errs, ValidationError{
				Field:      "ssh_key",
				Message:    err.Error(),
				Suggestion: suggestions["ssh_key"],
			})
		}
	}

	if c.SSHPort < 1 || c.SSHPort > 65535 {
		errs = append(errs, ValidationError{
			Field:      "ssh_port",
			Message:    fmt.Sprintf("%d is outside the valid range 1-65535", c.SSHPort),
			Suggestion: "leave unset to use 22",
		})
	}

	if c.GitURL != "" && c.Project == "" && ProjectName(c.GitURL) == "" {
		errs = append(errs, ValidationError{
			Field:      "project",
			Message:    "cannot derive a project name from git_url",
			Suggestion: suggestions["project"],
		})
	}

	return errs
}

// Suggestion returns how to fix a problem with field, or "".
func Suggestion(field string) string {
	return suggestions[field]
}
