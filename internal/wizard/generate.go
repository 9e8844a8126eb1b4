package wizard

import (
	"bytes"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// WizardAnswers holds all user responses from the init wizard.
type WizardAnswers struct {
	// Repository
	GitURL string
	Branch string

	// Remote host
	SSHUser       string
	ServerIP      string
	SSHKey        string
	SSHPort       string
	StrictHostKey bool

	// Application
	AppPort   string
	RemoteDir string
}

const configTemplate = `# dockship configuration
# The access token is never written here: pass it with --git-token or
# the DOCKSHIP_GIT_TOKEN environment variable.

git_url: {{ yaml .GitURL }}
branch: {{ yaml .Branch }}

ssh_user: {{ yaml .SSHUser }}
server_ip: {{ yaml .ServerIP }}
ssh_key: {{ yaml .SSHKey }}
{{- if ne .SSHPort "22" }}
ssh_port: {{ .SSHPort }}
{{- end }}
strict_host_key: {{ if .StrictHostKey }}true{{ else }}false{{ end }}

app_port: {{ yaml .AppPort }}
{{- if ne .RemoteDir "app" }}
remote_dir: {{ yaml .RemoteDir }}
{{- end }}
`

var funcs = template.FuncMap{
	// yaml renders a scalar, quoting it only when needed.
	"yaml": func(s string) (string, error) {
		out, err := yaml.Marshal(s)
		if err != nil {
			return "", err
		}
		return strings.TrimSuffix(string(out), "\n"), nil
	},
}

// GenerateConfig renders dockship.yml from wizard answers.
func GenerateConfig(answers WizardAnswers) (string, error) {
	// Set defaults
	if answers.Branch == "" {
		answers.Branch = "main"
	}
	if answers.SSHPort == "" {
		answers.SSHPort = "22"
	}
	if answers.RemoteDir == "" {
		answers.RemoteDir = "app"
	}

	tmpl, err := template.New("config").Funcs(funcs).Parse(configTemplate)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, answers); err != nil {
		return "", err
	}

	return buf.String(), nil
}
