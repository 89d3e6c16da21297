package sshserver

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/ssh"
)

// HostKey is the server's identity.
type HostKey struct {
	Signer      ssh.Signer
	Fingerprint string
	// Created is set when the key was generated by this call.
	Created bool
}

// LoadOrCreateHostKey reads the ed25519 host key at path, generating it on
// first start.
func LoadOrCreateHostKey(path string) (HostKey, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return HostKey{}, errors.New("ssh host key path is required")
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		signer, err := ssh.ParsePrivateKey(data)
		if err != nil {
			return HostKey{}, fmt.Errorf("parse host key %s: %w", path, err)
		}
		return newHostKey(signer, false), nil
	case !errors.Is(err, fs.ErrNotExist):
		return HostKey{}, fmt.Errorf("read host key: %w", err)
	}

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return HostKey{}, fmt.Errorf("generate host key: %w", err)
	}
	block, err := ssh.MarshalPrivateKey(priv, "tabforge host key")
	if err != nil {
		return HostKey{}, fmt.Errorf("marshal host key: %w", err)
	}
	if err := writeNewFile(path, pem.EncodeToMemory(block)); err != nil {
		return HostKey{}, err
	}
	signer, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		return HostKey{}, err
	}
	return newHostKey(signer, true), nil
}

func newHostKey(signer ssh.Signer, created bool) HostKey {
	return HostKey{
		Signer:      signer,
		Fingerprint: ssh.FingerprintSHA256(signer.PublicKey()),
		Created:     created,
	}
}

// writeNewFile refuses to replace a key another process wrote first.
func writeNewFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create host key dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("create host key: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		_ = file.Close()
		_ = os.Remove(path)
		return fmt.Errorf("write host key: %w", err)
	}
	return file.Close()
}
