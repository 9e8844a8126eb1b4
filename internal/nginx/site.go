// Package nginx models and renders the reverse-proxy site of a deployment.
package nginx

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

const (
	// SitesAvailable is where site files are written.
	SitesAvailable = "/etc/nginx/sites-available"
	// SitesEnabled holds the symlinks nginx actually loads.
	SitesEnabled = "/etc/nginx/sites-enabled"
)

// Header is a proxy_set_header directive.
type Header struct {
	Name  string
	Value string
}

// StandardHeaders forwards the original host, client address, forwarding
// chain and scheme.
var StandardHeaders = []Header{
	{"Host", "$host"},
	{"X-Real-IP", "$remote_addr"},
	{"X-Forwarded-For", "$proxy_add_x_forwarded_for"},
	{"X-Forwarded-Proto", "$scheme"},
}

// Upstream is where a route forwards to.
type Upstream struct {
	Host string
	Port int
}

func (u Upstream) String() string {
	return fmt.Sprintf("http://%s:%d", u.Host, u.Port)
}

// Route maps a public port and path to an upstream.
type Route struct {
	ListenPort int
	Path       string
	Upstream   Upstream
	Headers    []Header
}

// Site is one file under sites-available.
type Site struct {
	Name        string
	ServerNames []string
	Routes      []Route
	// TLSHost is used in the commented-out certificate paths.
	TLSHost string
}

// NewAppSite routes port 80 on serverIP to the application on localhost.
func NewAppSite(name, serverIP string, appPort int) Site {
	return Site{
		Name:        name,
		ServerNames: []string{serverIP, "_"},
		TLSHost:     serverIP,
		Routes: []Route{
			{
				ListenPort: 80,
				Path:       "/",
				Upstream:   Upstream{Host: "127.0.0.1", Port: appPort},
				Headers:    StandardHeaders,
			},
		},
	}
}

// AvailablePath is the site file location.
func (s Site) AvailablePath() string {
	return SitesAvailable + "/" + s.Name
}

// EnabledPath is the symlink location.
func (s Site) EnabledPath() string {
	return SitesEnabled + "/" + s.Name
}

// listenPorts groups routes by port, keeping first-seen order.
func (s Site) listenPorts() []serverBlock {
	var blocks []serverBlock
	index := map[int]int{}
	for _, r := range s.Routes {
		i, ok := index[r.ListenPort]
		if !ok {
			i = len(blocks)
			index[r.ListenPort] = i
			blocks = append(blocks, serverBlock{Port: r.ListenPort})
		}
		blocks[i].Routes = append(blocks[i].Routes, r)
	}
	return blocks
}

type serverBlock struct {
	Port   int
	Routes []Route
}

const siteTemplate = `# Managed by dockship. Changes are overwritten on the next deploy.
{{- range .Blocks }}
server {
    listen {{ .Port }};
    listen [::]:{{ .Port }};
    server_name {{ $.ServerNames }};
{{ range .Routes }}
    location {{ .Path }} {
        proxy_pass {{ .Upstream }};
        proxy_http_version 1.1;
{{- range .Headers }}
        proxy_set_header {{ .Name }} {{ .Value }};
{{- end }}
    }
{{ end }}
    # listen 443 ssl;
    # listen [::]:443 ssl;
    # ssl_certificate /etc/letsencrypt/live/{{ $.TLSHost }}/fullchain.pem;
    # ssl_certificate_key /etc/letsencrypt/live/{{ $.TLSHost }}/privkey.pem;
    # include /etc/letsencrypt/options-ssl-nginx.conf;
    # ssl_dhparam /etc/letsencrypt/ssl-dhparams.pem;
}
{{- end }}
`

var tmpl = template.Must(template.New("site").Parse(siteTemplate))

// Render produces the site file content.
func (s Site) Render() (string, error) {
	if len(s.Routes) == 0 {
		return "", fmt.Errorf("site %s has no routes", s.Name)
	}
	for _, r := range s.Routes {
		if r.Upstream.Port < 1 || r.Upstream.Port > 65535 {
			return "", fmt.Errorf("route %s: invalid upstream port %d", r.Path, r.Upstream.Port)
		}
	}

	names := strings.Join(s.ServerNames, " ")
	if names == "" {
		names = "_"
	}
	tlsHost := s.TLSHost
	if tlsHost == "" {
		tlsHost = "example.com"
	}

	data := struct {
		ServerNames string
		TLSHost     string
		Blocks      []serverBlock
	}{names, tlsHost, s.listenPorts()}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String() + "\n", nil
}
