package model

import (
	"fmt"
	"strings"

	"github.com/ThomasCrouzet/dockship/internal/util"
)

// DescriptorKind tells how the application is built and run.
type DescriptorKind string

const (
	DescriptorNone       DescriptorKind = "none"
	DescriptorDockerfile DescriptorKind = "dockerfile"
	DescriptorCompose    DescriptorKind = "compose"
)

// Descriptor is the build descriptor found in a working copy.
type Descriptor struct {
	Kind     DescriptorKind
	Path     string // relative to the working copy
	Services []*Service
}

// IsCompose reports whether the multi-container path applies.
func (d Descriptor) IsCompose() bool {
	return d.Kind == DescriptorCompose
}

// PublishesPort reports whether any compose service publishes port.
func (d Descriptor) PublishesPort(port int) bool {
	for _, s := range d.Services {
		if s.Publishes(port) {
			return true
		}
	}
	return false
}

// ContainerName is the image and container name of a single-container
// deployment.
func ContainerName(project string) string {
	return ComposeProject(project) + "-app"
}

// ComposeProject is the compose project name of a multi-container
// deployment. It also names the nginx site and the project label value.
func ComposeProject(project string) string {
	return util.ComposeName(project)
}

// ProjectLabel marks containers started for a project.
const ProjectLabel = "dockship.project"

// ComposeLabel is set by compose on the containers and images of a stack.
const ComposeLabel = "com.docker.compose.project"

// ContainerSelectors are docker filters that each match containers of the
// project and nothing else. Docker ANDs filters within one query, so each
// selector is queried on its own.
func ContainerSelectors(project string) []string {
	name := ComposeProject(project)
	return []string{
		"label=" + ProjectLabel + "=" + name,
		"label=" + ComposeLabel + "=" + name,
		"name=^/?" + ContainerName(project) + "$",
	}
}

// ImageSelectors match the images built for the project.
func ImageSelectors(project string) []string {
	return []string{
		"reference=" + ContainerName(project),
		"label=" + ComposeLabel + "=" + ComposeProject(project),
	}
}

// Identity is what gets persisted on the remote host after a launch.
type Identity struct {
	Kind  DescriptorKind
	Value string // container ID or compose project
}

// String renders the identity in its persisted form.
func (i Identity) String() string {
	if i.Kind == DescriptorCompose {
		return "compose:" + i.Value
	}
	return i.Value
}

// ParseIdentity reads the persisted form back.
func ParseIdentity(s string) (Identity, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Identity{}, fmt.Errorf("empty identity")
	}
	if v, ok := strings.CutPrefix(s, "compose:"); ok {
		return Identity{Kind: DescriptorCompose, Value: v}, nil
	}
	return Identity{Kind: DescriptorDockerfile, Value: s}, nil
}
