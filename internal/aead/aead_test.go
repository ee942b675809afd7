package aead

import (
	"bytes"
	"errors"
	"testing"

	"sharevault/internal/keys"
)

var suites = []Suite{AES256GCM, ChaCha20Poly1305}

func newKey(t *testing.T) keys.Key {
	t.Helper()
	k, err := keys.NewManager().GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}
	return k
}

func newEngine(t *testing.T, suite Suite) *Engine {
	t.Helper()
	e, err := NewEngine(suite)
	if err != nil {
		t.Fatalf("NewEngine(%s) error = %v", suite, err)
	}
	return e
}

func newNonce(t *testing.T, e *Engine) Nonce {
	t.Helper()
	n, err := e.GenerateNonce()
	if err != nil {
		t.Fatalf("GenerateNonce() error = %v", err)
	}
	return n
}

func TestEngine_EncryptDecrypt_RoundTrip(t *testing.T) {
	t.Parallel()

	inputs := []struct {
		name  string
		input []byte
	}{
		{name: "empty", input: []byte{}},
		{name: "short", input: []byte("hello")},
		{name: "one block", input: bytes.Repeat([]byte{0x42}, 16)},
		{name: "larger than block", input: bytes.Repeat([]byte("abcdef"), 10000)},
	}

	for _, suite := range suites {
		for _, tt := range inputs {
			t.Run(string(suite)+"/"+tt.name, func(t *testing.T) {
				t.Parallel()
				e := newEngine(t, suite)
				key := newKey(t)
				nonce := newNonce(t, e)

				ct, err := e.Encrypt(tt.input, key, nonce)
				if err != nil {
					t.Fatalf("Encrypt() error = %v", err)
				}
				if len(tt.input) > 0 && bytes.Contains(ct, tt.input) {
					t.Error("ciphertext contains the plaintext")
				}

				pt, err := e.Decrypt(ct, key, nonce)
				if err != nil {
					t.Fatalf("Decrypt() error = %v", err)
				}
				if !bytes.Equal(pt, tt.input) {
					t.Errorf("Decrypt() returned %d bytes differing from the input", len(pt))
				}
			})
		}
	}
}

func TestEngine_Decrypt_Tampering(t *testing.T) {
	t.Parallel()

	for _, suite := range suites {
		t.Run(string(suite), func(t *testing.T) {
			t.Parallel()
			e := newEngine(t, suite)
			key := newKey(t)
			nonce := newNonce(t, e)
			ct, err := e.Encrypt([]byte("attack at dawn"), key, nonce)
			if err != nil {
				t.Fatalf("Encrypt() error = %v", err)
			}

			for i := range ct {
				tampered := append([]byte(nil), ct...)
				tampered[i] ^= 0x01
				pt, err := e.Decrypt(tampered, key, nonce)
				if !errors.Is(err, ErrAuthenticationFailure) {
					t.Errorf("ciphertext byte %d: error = %v, want ErrAuthenticationFailure", i, err)
				}
				if pt != nil {
					t.Errorf("ciphertext byte %d: partial plaintext returned", i)
				}
			}

			for i := range nonce {
				tampered := append(Nonce(nil), nonce...)
				tampered[i] ^= 0x80
				if _, err := e.Decrypt(ct, key, tampered); !errors.Is(err, ErrAuthenticationFailure) {
					t.Errorf("nonce byte %d: error = %v, want ErrAuthenticationFailure", i, err)
				}
			}

			material := keys.NewManager().ExportKey(key)
			for i := range material {
				flipped := append([]byte(nil), material...)
				flipped[i] ^= 0x10
				wrongKey, err := keys.NewManager().ImportKey(flipped)
				if err != nil {
					t.Fatalf("ImportKey() error = %v", err)
				}
				if _, err := e.Decrypt(ct, wrongKey, nonce); !errors.Is(err, ErrAuthenticationFailure) {
					t.Errorf("key byte %d: error = %v, want ErrAuthenticationFailure", i, err)
				}
			}
		})
	}
}

func TestEngine_Decrypt_Truncated(t *testing.T) {
	t.Parallel()
	e := newEngine(t, AES256GCM)
	key := newKey(t)
	nonce := newNonce(t, e)

	if _, err := e.Decrypt([]byte{1, 2, 3}, key, nonce); !errors.Is(err, ErrAuthenticationFailure) {
		t.Errorf("Decrypt(short ciphertext) error = %v, want ErrAuthenticationFailure", err)
	}
	if _, err := e.Decrypt(nil, key, nonce[:4]); !errors.Is(err, ErrAuthenticationFailure) {
		t.Errorf("Decrypt(short nonce) error = %v, want ErrAuthenticationFailure", err)
	}
}

func TestEngine_Encrypt_InvalidInputs(t *testing.T) {
	t.Parallel()
	e := newEngine(t, ChaCha20Poly1305)

	if _, err := e.Encrypt([]byte("x"), newKey(t), make(Nonce, 8)); !errors.Is(err, ErrInvalidNonce) {
		t.Errorf("Encrypt(short nonce) error = %v, want ErrInvalidNonce", err)
	}
	if _, err := e.Encrypt([]byte("x"), keys.Key{}, make(Nonce, NonceSize)); !errors.Is(err, keys.ErrInvalidKeyMaterial) {
		t.Errorf("Encrypt(zero key) error = %v, want ErrInvalidKeyMaterial", err)
	}
}

func TestEngine_SuitesAreNotInterchangeable(t *testing.T) {
	t.Parallel()
	gcm := newEngine(t, AES256GCM)
	chacha := newEngine(t, ChaCha20Poly1305)

	key := newKey(t)
	nonce := newNonce(t, gcm)
	ct, err := gcm.Encrypt([]byte("payload"), key, nonce)
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	if _, err := chacha.Decrypt(ct, key, nonce); !errors.Is(err, ErrAuthenticationFailure) {
		t.Errorf("cross-suite Decrypt() error = %v, want ErrAuthenticationFailure", err)
	}
}

func TestEngine_GenerateNonce_Unique(t *testing.T) {
	t.Parallel()
	e := newEngine(t, AES256GCM)

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		n := newNonce(t, e)
		if len(n) != NonceSize {
			t.Fatalf("len(nonce) = %d, want %d", len(n), NonceSize)
		}
		if seen[string(n)] {
			t.Fatalf("duplicate nonce after %d draws", i)
		}
		seen[string(n)] = true
	}
}

func TestParseSuite(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Suite
		wantErr bool
	}{
		{in: "", want: AES256GCM},
		{in: "aes-256-gcm", want: AES256GCM},
		{in: "chacha20-poly1305", want: ChaCha20Poly1305},
		{in: "rot13", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseSuite(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrUnknownSuite) {
				t.Errorf("ParseSuite(%q) error = %v, want ErrUnknownSuite", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseSuite(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSuite(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
