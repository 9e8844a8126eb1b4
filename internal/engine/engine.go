// Package engine talks to the remote Docker daemon through the SSH
// connection.
package engine

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
)

// Socket is the daemon socket on the remote host.
const Socket = "/var/run/docker.sock"

// Dialer opens connections from the remote host.
type Dialer interface {
	DialContext(ctx context.Context, network, addr string) (net.Conn, error)
}

// Container is a running container as seen by the daemon.
type Container struct {
	ID     string
	Name   string
	Image  string
	State  string
	Status string
	Ports  []string
}

// Client wraps the Docker SDK client.
type Client struct {
	inner *client.Client
}

// New creates a Docker client whose connections are tunnelled through d
// to the remote daemon socket.
func New(d Dialer) (*Client, error) {
	inner, err := client.NewClientWithOpts(
		client.WithHost("unix://"+Socket),
		client.WithDialContext(func(ctx context.Context, _, _ string) (net.Conn, error) {
			return d.DialContext(ctx, "unix", Socket)
		}),
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	return &Client{inner: inner}, nil
}

// Ping validates connectivity to the Docker daemon.
func (c *Client) Ping(ctx context.Context) error {
	ping, err := c.inner.Ping(ctx)
	if err != nil {
		return fmt.Errorf("docker ping: %w", err)
	}
	if ping.APIVersion == "" {
		return fmt.Errorf("docker ping returned empty API version")
	}
	return nil
}

// Running lists the running containers matched by any of the selectors.
// A selector is a "key=value" filter such as "label=app=web".
func (c *Client) Running(ctx context.Context, selectors ...string) ([]Container, error) {
	var list []types.Container
	seen := map[string]bool{}
	for _, sel := range selectors {
		key, value, ok := strings.Cut(sel, "=")
		if !ok {
			return nil, fmt.Errorf("invalid selector %q", sel)
		}
		found, err := c.inner.ContainerList(ctx, container.ListOptions{
			Filters: filters.NewArgs(filters.Arg(key, value)),
		})
		if err != nil {
			return nil, fmt.Errorf("list containers: %w", err)
		}
		for _, ct := range found {
			if !seen[ct.ID] {
				seen[ct.ID] = true
				list = append(list, ct)
			}
		}
	}

	out := make([]Container, 0, len(list))
	for _, ct := range list {
		name := ""
		if len(ct.Names) > 0 {
			name = strings.TrimPrefix(ct.Names[0], "/")
		}
		var ports []string
		for _, p := range ct.Ports {
			if p.PublicPort == 0 {
				continue
			}
			ports = append(ports, fmt.Sprintf("%d:%d/%s", p.PublicPort, p.PrivatePort, p.Type))
		}
		out = append(out, Container{
			ID:     shortID(ct.ID),
			Name:   name,
			Image:  ct.Image,
			State:  ct.State,
			Status: ct.Status,
			Ports:  ports,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Close releases resources held by the Docker client.
func (c *Client) Close() error {
	if c.inner == nil {
		return nil
	}
	return c.inner.Close()
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
