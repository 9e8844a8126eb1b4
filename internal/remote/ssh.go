package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/ThomasCrouzet/dockship/internal/config"
	"github.com/ThomasCrouzet/dockship/internal/util"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

// ConnectTimeout bounds the TCP connect and SSH handshake.
const ConnectTimeout = 10 * time.Second

// CancelGrace bounds the wait for a killed remote command to wind down.
const CancelGrace = 2 * time.Second

// SSHClient is an Executor over a single SSH connection.
type SSHClient struct {
	client *ssh.Client
	// Stdout and Stderr receive streamed remote output.
	Stdout io.Writer
	Stderr io.Writer
}

// Dial connects to the target with public-key auth.
func Dial(ctx context.Context, target config.Target) (*SSHClient, error) {
	auth, err := authMethods(target.SSHKey)
	if err != nil {
		return nil, err
	}

	hostKey, err := hostKeyCallback(target)
	if err != nil {
		return nil, err
	}

	cfg := &ssh.ClientConfig{
		User:            target.SSHUser,
		Auth:            auth,
		HostKeyCallback: hostKey,
		Timeout:         ConnectTimeout,
	}

	ctx, cancel := context.WithTimeout(ctx, ConnectTimeout)
	defer cancel()

	addr := target.Address()
	d := net.Dialer{Timeout: ConnectTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	// The handshake has no context of its own.
	deadline, _ := ctx.Deadline()
	_ = conn.SetDeadline(deadline)
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ssh handshake with %s: %w", addr, err)
	}
	_ = conn.SetDeadline(time.Time{})

	return &SSHClient{
		client: ssh.NewClient(c, chans, reqs),
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}, nil
}

func authMethods(keyPath string) ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod

	key, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("read ssh key: %w", err)
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		var missing *ssh.PassphraseMissingError
		if !errors.As(err, &missing) {
			return nil, fmt.Errorf("parse ssh key %s: %w", keyPath, err)
		}
		// Encrypted key: rely on a running agent.
		if sock := os.Getenv("SSH_AUTH_SOCK"); sock != "" {
			if agentConn, err := net.Dial("unix", sock); err == nil {
				methods = append(methods, ssh.PublicKeysCallback(agent.NewClient(agentConn).Signers))
				return methods, nil
			}
		}
		return nil, fmt.Errorf("ssh key %s is passphrase protected; load it into ssh-agent first", keyPath)
	}

	methods = append(methods, ssh.PublicKeys(signer))
	return methods, nil
}

func hostKeyCallback(target config.Target) (ssh.HostKeyCallback, error) {
	if !target.StrictHostKey {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	cb, err := knownhosts.New(target.KnownHosts)
	if err != nil {
		return nil, fmt.Errorf("load known hosts %s: %w", target.KnownHosts, err)
	}
	return cb, nil
}

// Exec runs req.Command through sh on the remote host.
func (c *SSHClient) Exec(ctx context.Context, req Request) Result {
	start := time.Now()
	res := Result{Name: req.Name, Command: req.Command}

	session, err := c.client.NewSession()
	if err != nil {
		res.Err = fmt.Errorf("open session: %w", err)
		res.ExitStatus = -1
		return res
	}
	defer session.Close()

	var stdout, stderr syncBuffer
	session.Stdout = &stdout
	session.Stderr = &stderr
	if !req.Quiet {
		session.Stdout = io.MultiWriter(&stdout, c.Stdout)
		session.Stderr = io.MultiWriter(&stderr, c.Stderr)
	}
	if req.Stdin != nil {
		session.Stdin = req.Stdin
	}

	done := make(chan error, 1)
	go func() {
		done <- session.Run("sh -c " + util.ShellQuote(req.Command))
	}()

	select {
	case err = <-done:
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		_ = session.Close()
		// Let the output copiers drain before the buffers are read.
		select {
		case <-done:
		case <-time.After(CancelGrace):
		}
		err = ctx.Err()
	}

	res.Stdout = stdout.String()
	res.Stderr = stderr.String()
	res.Duration = time.Since(start)

	var exitErr *ssh.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		res.ExitStatus = exitErr.ExitStatus()
	default:
		res.Err = err
		res.ExitStatus = -1
	}
	return res
}

// DialContext opens a connection from the remote host, e.g. to a unix
// socket there.
func (c *SSHClient) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	return c.client.DialContext(ctx, network, addr)
}

// Close closes the connection.
func (c *SSHClient) Close() error {
	return c.client.Close()
}

// syncBuffer is a bytes.Buffer that the session's output copiers and the
// caller may use concurrently.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
