package encryption

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"filippo.io/age"

	"sharevault/internal/config"
	"sharevault/internal/sv"
)

// AgeKeyProtector seals object keys to an X25519 key pair kept on disk. The
// recipient file is plaintext; the identity file is scrypt-encrypted under a
// passphrase and only read by Unlock.
type AgeKeyProtector struct {
	publicKeyPath  string
	privateKeyPath string
}

var _ sv.KeyProtector = (*AgeKeyProtector)(nil)

func NewAgeKeyProtector(cfg config.KeyProtectionConfig) *AgeKeyProtector {
	return &AgeKeyProtector{
		publicKeyPath:  cfg.PublicKeyPath,
		privateKeyPath: cfg.PrivateKeyPath,
	}
}

// Setup creates a fresh key pair. The identity file is written before the
// recipient file, so IsConfigured never sees half a pair.
func (p *AgeKeyProtector) Setup(passphrase string) error {
	if passphrase == "" {
		return errors.New("passphrase must not be empty")
	}
	id, err := age.GenerateX25519Identity()
	if err != nil {
		return fmt.Errorf("generating key pair: %w", err)
	}
	lock, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return fmt.Errorf("deriving passphrase key: %w", err)
	}

	var sealed bytes.Buffer
	if err := sealTo(&sealed, lock, []byte(id.String()+"\n")); err != nil {
		return fmt.Errorf("encrypting identity: %w", err)
	}
	if err := writeKeyFile(p.privateKeyPath, sealed.Bytes(), 0o600); err != nil {
		return err
	}
	return writeKeyFile(p.publicKeyPath, []byte(id.Recipient().String()+"\n"), 0o644)
}

// Seal encrypts material to the stored recipient. It needs no passphrase.
func (p *AgeKeyProtector) Seal(material []byte) ([]byte, error) {
	r, err := p.recipient()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := sealTo(&buf, r, material); err != nil {
		return nil, fmt.Errorf("sealing key material: %w", err)
	}
	return buf.Bytes(), nil
}

// Unlock decrypts the identity file with passphrase.
func (p *AgeKeyProtector) Unlock(passphrase string) (sv.KeyOpener, error) {
	f, err := os.Open(p.privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("opening private key: %w", err)
	}
	defer f.Close()

	lock, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return nil, fmt.Errorf("deriving passphrase key: %w", err)
	}
	raw, err := openWith(f, lock)
	if err != nil {
		return nil, fmt.Errorf("decrypting private key: %w", err)
	}
	defer clear(raw)

	ids, err := age.ParseIdentities(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}
	return &AgeKeyOpener{identity: ids[0]}, nil
}

// IsConfigured reports whether both halves of the key pair exist.
func (p *AgeKeyProtector) IsConfigured() bool {
	for _, path := range []string{p.privateKeyPath, p.publicKeyPath} {
		if _, err := os.Stat(path); err != nil {
			return false
		}
	}
	return true
}

// PublicKey returns the age1... recipient string.
func (p *AgeKeyProtector) PublicKey() (string, error) {
	data, err := os.ReadFile(p.publicKeyPath)
	if err != nil {
		return "", fmt.Errorf("reading public key: %w", err)
	}
	pub := strings.TrimSpace(string(data))
	if _, err := parseRecipient(pub); err != nil {
		return "", err
	}
	return pub, nil
}

func (p *AgeKeyProtector) recipient() (age.Recipient, error) {
	data, err := os.ReadFile(p.publicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("reading public key: %w", err)
	}
	return parseRecipient(string(data))
}

// AgeKeyOpener holds an unlocked identity.
type AgeKeyOpener struct {
	identity age.Identity
}

var _ sv.KeyOpener = (*AgeKeyOpener)(nil)

func (o *AgeKeyOpener) Open(sealed []byte) ([]byte, error) {
	material, err := openWith(bytes.NewReader(sealed), o.identity)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sv.ErrInvalidKeyMaterial, err)
	}
	return material, nil
}

func sealTo(dst io.Writer, r age.Recipient, data []byte) error {
	w, err := age.Encrypt(dst, r)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	return w.Close()
}

func openWith(src io.Reader, id age.Identity) ([]byte, error) {
	r, err := age.Decrypt(src, id)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}

func writeKeyFile(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating key directory: %w", err)
	}
	if err := os.WriteFile(path, data, perm); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return nil
}
