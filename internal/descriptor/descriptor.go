// Package descriptor finds and inspects the build descriptor of a working
// copy.
package descriptor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ThomasCrouzet/dockship/internal/model"
	"github.com/ThomasCrouzet/dockship/internal/ui"
	"github.com/compose-spec/compose-go/v2/cli"
	composetypes "github.com/compose-spec/compose-go/v2/types"
	yamlv3 "gopkg.in/yaml.v3"
)

// Dockerfile is the single-container descriptor.
const Dockerfile = "Dockerfile"

// ComposeFiles are the multi-container descriptors, in lookup order.
var ComposeFiles = []string{
	"docker-compose.yml",
	"docker-compose.yaml",
	"compose.yml",
	"compose.yaml",
}

// ErrNoDescriptor means neither a Dockerfile nor a compose file was found.
var ErrNoDescriptor = errors.New("no Dockerfile or compose file found")

// Detect looks for a build descriptor in dir. A compose file takes
// precedence over a Dockerfile. Services are filled for compose files when
// they can be parsed; a parse failure is not an error here.
func Detect(ctx context.Context, dir, project string) (model.Descriptor, error) {
	for _, name := range ComposeFiles {
		if isFile(filepath.Join(dir, name)) {
			d := model.Descriptor{Kind: model.DescriptorCompose, Path: name}
			services, err := ParseCompose(ctx, filepath.Join(dir, name), project)
			if err != nil {
				ui.Warn(fmt.Sprintf("could not parse %s: %v", name, err))
			}
			d.Services = services
			return d, nil
		}
	}

	if isFile(filepath.Join(dir, Dockerfile)) {
		return model.Descriptor{
			Kind: model.DescriptorDockerfile,
			Path: Dockerfile,
			Services: []*model.Service{
				{Name: project, Build: true},
			},
		}, nil
	}

	return model.Descriptor{Kind: model.DescriptorNone}, ErrNoDescriptor
}

// Listing returns a directory listing of dir for diagnostics.
func Listing(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Sprintf("cannot list %s: %v", dir, err)
	}

	var b strings.Builder
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		b.WriteString(name)
		b.WriteString("\n")
	}
	return b.String()
}

// ParseCompose lists the services of a compose file with compose-go,
// falling back to a raw YAML parse when compose-go rejects the file.
func ParseCompose(ctx context.Context, path, project string) ([]*model.Service, error) {
	opts, err := cli.NewProjectOptions(
		[]string{path},
		cli.WithWorkingDirectory(filepath.Dir(path)),
		cli.WithName(model.ComposeProject(project)),
		cli.WithOsEnv,
		cli.WithDotEnv,
	)
	if err != nil {
		return parseFallback(path)
	}

	p, err := cli.ProjectFromOptions(ctx, opts)
	if err != nil {
		return parseFallback(path)
	}

	return projectToServices(p), nil
}

func projectToServices(p *composetypes.Project) []*model.Service {
	var services []*model.Service
	for _, svc := range p.Services {
		service := &model.Service{
			Name:  svc.Name,
			Image: svc.Image,
			Build: svc.Build != nil,
		}
		for _, port := range svc.Ports {
			hostPort, _ := strconv.Atoi(port.Published)
			service.Ports = append(service.Ports, model.PortMapping{
				HostIP:        port.HostIP,
				HostPort:      hostPort,
				ContainerPort: int(port.Target),
				Protocol:      port.Protocol,
			})
		}
		services = append(services, service)
	}
	sortServices(services)
	return services
}

// parseFallback uses raw YAML parsing when compose-go fails.
func parseFallback(path string) ([]*model.Service, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw map[string]interface{}
	if err := yamlv3.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("yaml parse: %w", err)
	}

	servicesMap, ok := raw["services"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("no services defined")
	}

	var services []*model.Service
	for name, svcData := range servicesMap {
		svcMap, ok := svcData.(map[string]interface{})
		if !ok {
			continue
		}

		svc := &model.Service{
			Name:  name,
			Image: toString(svcMap["image"]),
		}
		_, svc.Build = svcMap["build"]

		if portsRaw, ok := svcMap["ports"].([]interface{}); ok {
			for _, p := range portsRaw {
				pm := model.ParsePortMapping(fmt.Sprintf("%v", p))
				if pm.HostPort > 0 {
					svc.Ports = append(svc.Ports, pm)
				}
			}
		}

		services = append(services, svc)
	}
	sortServices(services)
	return services, nil
}

func sortServices(services []*model.Service) {
	sort.Slice(services, func(i, j int) bool { return services[i].Name < services[j].Name })
}

func toString(v interface{}) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
