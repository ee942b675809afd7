package encryption

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sharevault/internal/config"
	"sharevault/internal/sv"
)

func newTestAgeKeyProtector(t *testing.T) *AgeKeyProtector {
	t.Helper()
	dir := t.TempDir()
	cfg := config.KeyProtectionConfig{
		Type:           "age",
		PublicKeyPath:  filepath.Join(dir, "keys", "sv.pub"),
		PrivateKeyPath: filepath.Join(dir, "keys", "sv.key"),
	}
	return NewAgeKeyProtector(cfg)
}

func TestAgeKeyProtector_IsConfigured_BeforeSetup(t *testing.T) {
	t.Parallel()
	p := newTestAgeKeyProtector(t)
	if p.IsConfigured() {
		t.Error("IsConfigured() = true before Setup, want false")
	}
}

func TestAgeKeyProtector_Setup(t *testing.T) {
	t.Parallel()
	p := newTestAgeKeyProtector(t)

	if err := p.Setup("test-passphrase"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if !p.IsConfigured() {
		t.Error("IsConfigured() = false after Setup, want true")
	}

	info, err := os.Stat(p.privateKeyPath)
	if err != nil {
		t.Fatalf("Stat(private key) error = %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("private key mode = %o, want 600", perm)
	}

	priv, err := os.ReadFile(p.privateKeyPath)
	if err != nil {
		t.Fatalf("ReadFile(private key) error = %v", err)
	}
	if bytes.Contains(priv, []byte("AGE-SECRET-KEY")) {
		t.Error("private key file contains an unencrypted secret key")
	}

	pub, err := p.PublicKey()
	if err != nil {
		t.Fatalf("PublicKey() error = %v", err)
	}
	if !strings.HasPrefix(pub, "age1") {
		t.Errorf("PublicKey() = %q, want age1 prefix", pub)
	}
}

func TestAgeKeyProtector_Setup_EmptyPassphrase(t *testing.T) {
	t.Parallel()
	p := newTestAgeKeyProtector(t)
	if err := p.Setup(""); err == nil {
		t.Fatal("Setup(\"\") error = nil, want error")
	}
	if p.IsConfigured() {
		t.Error("IsConfigured() = true after failed Setup")
	}
}

func TestAgeKeyProtector_SealOpenRoundTrip(t *testing.T) {
	t.Parallel()

	passphrase := "test-passphrase"
	p := newTestAgeKeyProtector(t)
	if err := p.Setup(passphrase); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	opener, err := p.Unlock(passphrase)
	if err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}

	tests := []struct {
		name     string
		material []byte
	}{
		{name: "aes-256 key", material: bytes.Repeat([]byte{0x42}, 32)},
		{name: "binary", material: []byte{0x00, 0xff, 0x01, 0xfe}},
		{name: "empty", material: []byte{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sealed, err := p.Seal(tt.material)
			if err != nil {
				t.Fatalf("Seal() error = %v", err)
			}
			if len(tt.material) > 0 && bytes.Contains(sealed, tt.material) {
				t.Error("sealed output contains the raw key material")
			}

			got, err := opener.Open(sealed)
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			if !bytes.Equal(got, tt.material) {
				t.Errorf("Open() = %x, want %x", got, tt.material)
			}
		})
	}
}

func TestAgeKeyProtector_Seal_BeforeSetup(t *testing.T) {
	t.Parallel()
	p := newTestAgeKeyProtector(t)
	if _, err := p.Seal([]byte("key")); err == nil {
		t.Fatal("Seal() before Setup error = nil, want error")
	}
}

func TestAgeKeyProtector_Unlock_WrongPassphrase(t *testing.T) {
	t.Parallel()
	p := newTestAgeKeyProtector(t)
	if err := p.Setup("correct-passphrase"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	if _, err := p.Unlock("wrong-passphrase"); err == nil {
		t.Fatal("Unlock() with wrong passphrase error = nil, want error")
	}
}

func TestAgeKeyOpener_Open_Tampered(t *testing.T) {
	t.Parallel()
	passphrase := "test-passphrase"
	p := newTestAgeKeyProtector(t)
	if err := p.Setup(passphrase); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	opener, err := p.Unlock(passphrase)
	if err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}

	sealed, err := p.Seal(bytes.Repeat([]byte{0x07}, 32))
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}
	sealed[len(sealed)-1] ^= 0xff

	_, err = opener.Open(sealed)
	if !errors.Is(err, sv.ErrInvalidKeyMaterial) {
		t.Fatalf("Open(tampered) error = %v, want ErrInvalidKeyMaterial", err)
	}
}

func TestAgeKeyProtector_KeysFromDifferentSetupDoNotOpen(t *testing.T) {
	t.Parallel()
	a := newTestAgeKeyProtector(t)
	b := newTestAgeKeyProtector(t)
	for _, p := range []*AgeKeyProtector{a, b} {
		if err := p.Setup("pass"); err != nil {
			t.Fatalf("Setup() error = %v", err)
		}
	}

	sealed, err := a.Seal([]byte("object key"))
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}
	opener, err := b.Unlock("pass")
	if err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
	if _, err := opener.Open(sealed); err == nil {
		t.Fatal("Open() with a different identity error = nil, want error")
	}
}

func TestAgeKeyProtector_HalfPair(t *testing.T) {
	t.Parallel()
	p := newTestAgeKeyProtector(t)
	if err := p.Setup("pw"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if err := os.Remove(p.privateKeyPath); err != nil {
		t.Fatal(err)
	}
	if p.IsConfigured() {
		t.Error("IsConfigured() = true without the private key")
	}
}

func TestAgeKeyProtector_PublicKey_Corrupt(t *testing.T) {
	t.Parallel()
	p := newTestAgeKeyProtector(t)
	if err := writeKeyFile(p.publicKeyPath, []byte("not-a-recipient\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := p.PublicKey(); err == nil {
		t.Error("PublicKey() error = nil for a corrupt key file")
	}
	if _, err := p.Seal([]byte("k")); err == nil {
		t.Error("Seal() error = nil for a corrupt key file")
	}
}
