package protoplugins

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/neo6systems/neo6/internal/pluginabi"
)

// gatewayRunner dispatches a transaction over an SSH session, standing in
// for the LU6.2/JCA gateway link — the mainframe-side wire format of those
// protocols is out of scope (§1) and delegated to whatever real gateway a
// deployment points this plugin at. Grounded on the teacher's SSHRunner.
type gatewayRunner struct {
	User                        string
	KeyPath                     string
	KnownHostsPath              string
	InsecureSkipHostKeyChecking bool
	Timeout                     time.Duration
}

type gatewayConfig struct {
	User                        string `json:"user"`
	KeyPath                     string `json:"key_path"`
	KnownHostsPath              string `json:"known_hosts_path"`
	InsecureSkipHostKeyChecking bool   `json:"insecure_skip_host_key_checking"`
	TimeoutMS                   int64  `json:"timeout_ms"`
}

func (r gatewayRunner) dial(ctx context.Context, address string) (*ssh.Client, error) {
	cfg, err := r.clientConfig()
	if err != nil {
		return nil, err
	}
	dialer := net.Dialer{Timeout: r.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	clientConn, chans, reqs, err := ssh.NewClientConn(conn, address, cfg)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return ssh.NewClient(clientConn, chans, reqs), nil
}

func (r gatewayRunner) clientConfig() (*ssh.ClientConfig, error) {
	if r.User == "" {
		return nil, fmt.Errorf("gateway: ssh user is required")
	}
	signer, err := r.signer()
	if err != nil {
		return nil, err
	}
	var hostKeyCallback ssh.HostKeyCallback
	if r.InsecureSkipHostKeyChecking {
		hostKeyCallback = ssh.InsecureIgnoreHostKey()
	} else {
		cb, err := r.knownHostsCallback()
		if err != nil {
			return nil, err
		}
		hostKeyCallback = cb
	}
	return &ssh.ClientConfig{
		User:            r.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: hostKeyCallback,
		Timeout:         r.Timeout,
	}, nil
}

func (r gatewayRunner) signer() (ssh.Signer, error) {
	if r.KeyPath == "" {
		return nil, fmt.Errorf("gateway: ssh key path is required")
	}
	privateKey, err := os.ReadFile(r.KeyPath)
	if err != nil {
		return nil, err
	}
	return ssh.ParsePrivateKey(privateKey)
}

func (r gatewayRunner) knownHostsCallback() (ssh.HostKeyCallback, error) {
	path := strings.TrimSpace(r.KnownHostsPath)
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("gateway: known hosts path not set and home dir unavailable")
		}
		path = filepath.Join(home, ".ssh", "known_hosts")
	}
	return knownhosts.New(path)
}

func shellEscape(value string) string {
	if value == "" {
		return "''"
	}
	return "'" + strings.ReplaceAll(value, "'", `'"'"'`) + "'"
}

type sshHandle struct {
	runner gatewayRunner
}

// gatewayVTable is shared by both the lu62 and jca registrations: both are
// SSH-transport-backed stand-ins for their respective mainframe gateway
// links, differing only in the registry name they present.
func gatewayVTable(name string) *pluginabi.VTable {
	return &pluginabi.VTable{
		Version: pluginabi.InterfaceVersion,
		Name:    name,
		Create: func(configJSON []byte) (pluginabi.Handle, error) {
			cfg := gatewayConfig{TimeoutMS: 10000}
			_ = json.Unmarshal(configJSON, &cfg)
			return &sshHandle{runner: gatewayRunner{
				User:                        cfg.User,
				KeyPath:                     cfg.KeyPath,
				KnownHostsPath:              cfg.KnownHostsPath,
				InsecureSkipHostKeyChecking: cfg.InsecureSkipHostKeyChecking,
				Timeout:                     time.Duration(cfg.TimeoutMS) * time.Millisecond,
			}}, nil
		},
		Destroy: func(pluginabi.Handle) {},
		Invoke: func(ctx context.Context, h pluginabi.Handle, transactionID string, params []byte) ([]byte, pluginabi.ErrorKind) {
			sh := h.(*sshHandle)

			var envelope struct {
				Endpoint   string          `json:"endpoint"`
				Parameters json.RawMessage `json:"parameters"`
			}
			if err := json.Unmarshal(params, &envelope); err != nil || envelope.Endpoint == "" {
				return nil, pluginabi.InvalidArgs
			}

			client, err := sh.runner.dial(ctx, envelope.Endpoint)
			if err != nil {
				return nil, pluginabi.BackendUnavailable
			}
			defer client.Close()

			session, err := client.NewSession()
			if err != nil {
				return nil, pluginabi.BackendUnavailable
			}
			defer session.Close()

			command := "neo6-gateway-invoke " + shellEscape(transactionID) + " " + shellEscape(string(envelope.Parameters))

			type sshResult struct {
				out []byte
				err error
			}
			resultCh := make(chan sshResult, 1)
			go func() {
				out, err := session.CombinedOutput(command)
				resultCh <- sshResult{out: out, err: err}
			}()

			select {
			case <-ctx.Done():
				if ctx.Err() == context.DeadlineExceeded {
					return nil, pluginabi.Timeout
				}
				return nil, pluginabi.BackendUnavailable
			case res := <-resultCh:
				if res.err != nil {
					return nil, pluginabi.ProtocolError
				}
				return res.out, pluginabi.OK
			}
		},
		SetLogLevel: func(pluginabi.Handle, string) error { return nil },
	}
}

// LU62VTable is the built-in lu62 protocol plugin.
func LU62VTable() *pluginabi.VTable { return gatewayVTable("lu62") }

// JCAVTable is the built-in jca protocol plugin.
func JCAVTable() *pluginabi.VTable { return gatewayVTable("jca") }
