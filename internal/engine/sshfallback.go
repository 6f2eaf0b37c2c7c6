package engine

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/theoddden/terradev-broker/internal/adapter"
)

// sshFallback runs command over SSH against an instance's discovered
// public IP when the owning Adapter has no native run-command
// facility. The host key is always verified against the configured
// known_hosts file; this never disables host-key checking, per
// §4.1's explicit requirement.
func (e *Engine) sshFallback(ctx context.Context, a adapter.Adapter, instanceID, command string) (adapter.CommandResult, error) {
	info, err := a.Status(ctx, instanceID)
	if err != nil {
		return adapter.CommandResult{}, fmt.Errorf("ssh fallback: resolve instance: %w", err)
	}
	if info.PublicIP == "" {
		return adapter.CommandResult{}, fmt.Errorf("ssh fallback: %s has no discoverable public IP", instanceID)
	}
	if e.sshKeyPath == "" || e.sshKnownHostsPath == "" {
		return adapter.CommandResult{}, fmt.Errorf("ssh fallback: no SSH key/known_hosts configured")
	}

	keyBytes, err := os.ReadFile(e.sshKeyPath)
	if err != nil {
		return adapter.CommandResult{}, fmt.Errorf("ssh fallback: read key: %w", err)
	}
	signer, err := ssh.ParsePrivateKey(keyBytes)
	if err != nil {
		return adapter.CommandResult{}, fmt.Errorf("ssh fallback: parse key: %w", err)
	}
	hostKeyCallback, err := knownhosts.New(e.sshKnownHostsPath)
	if err != nil {
		return adapter.CommandResult{}, fmt.Errorf("ssh fallback: load known_hosts: %w", err)
	}

	user := e.sshUser
	if user == "" {
		user = "root"
	}

	client, err := ssh.Dial("tcp", info.PublicIP+":22", &ssh.ClientConfig{
		User:            user,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: hostKeyCallback,
	})
	if err != nil {
		return adapter.CommandResult{}, fmt.Errorf("ssh fallback: dial: %w", err)
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return adapter.CommandResult{}, fmt.Errorf("ssh fallback: session: %w", err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	exitCode := 0
	if err := session.Run(command); err != nil {
		if exitErr, ok := err.(*ssh.ExitError); ok {
			exitCode = exitErr.ExitStatus()
		} else {
			return adapter.CommandResult{}, fmt.Errorf("ssh fallback: run: %w", err)
		}
	}

	return adapter.CommandResult{
		ExitCode: exitCode,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}, nil
}
