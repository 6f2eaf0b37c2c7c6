package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// SCPBackend stages chunks onto a fixed staging host over SFTP when no
// cloud-native bucket applies to the target region. The host key is
// always verified against a pinned known_hosts file; this backend
// never falls back to ssh.InsecureIgnoreHostKey.
type SCPBackend struct {
	client     *ssh.Client
	sftpClient *sftp.Client
	remoteRoot string
}

// NewSCPBackend dials host using the private key at keyPath, verifying
// the server against knownHostsPath.
func NewSCPBackend(host, user, keyPath, knownHostsPath, remoteRoot string) (*SCPBackend, error) {
	keyBytes, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("scp backend: read key: %w", err)
	}
	signer, err := ssh.ParsePrivateKey(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("scp backend: parse key: %w", err)
	}

	hostKeyCallback, err := knownhosts.New(knownHostsPath)
	if err != nil {
		return nil, fmt.Errorf("scp backend: load known_hosts: %w", err)
	}

	sshClient, err := ssh.Dial("tcp", host, &ssh.ClientConfig{
		User:            user,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: hostKeyCallback,
	})
	if err != nil {
		return nil, fmt.Errorf("scp backend: dial: %w", err)
	}

	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		sshClient.Close()
		return nil, fmt.Errorf("scp backend: sftp session: %w", err)
	}

	if remoteRoot == "" {
		remoteRoot = "/data/terradev-staging"
	}
	return &SCPBackend{client: sshClient, sftpClient: sftpClient, remoteRoot: remoteRoot}, nil
}

func (b *SCPBackend) Name() string { return "scp" }

func (b *SCPBackend) Upload(ctx context.Context, region, key string, r io.Reader) error {
	remotePath := path.Join(b.remoteRoot, region, key)
	if err := b.sftpClient.MkdirAll(path.Dir(remotePath)); err != nil {
		return err
	}
	f, err := b.sftpClient.Create(remotePath)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(f, r)
	return err
}

func (b *SCPBackend) Close() error {
	b.sftpClient.Close()
	return b.client.Close()
}
