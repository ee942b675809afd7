package identity

import (
	"errors"
	"strings"
	"testing"

	"sharevault/internal/config"
	"sharevault/internal/sv"
)

func TestAptos(t *testing.T) {
	t.Parallel()

	valid := "0x" + strings.Repeat("a1", 32)

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "full address", input: valid},
		{name: "upper hex", input: "0x" + strings.Repeat("AB", 32), wantErr: true},
		{name: "mixed case", input: "0x" + strings.Repeat("aB", 32), wantErr: true},
		{name: "upper prefix", input: "0X" + strings.Repeat("a1", 32), wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "no prefix", input: strings.Repeat("a1", 32), wantErr: true},
		{name: "short", input: "0x1", wantErr: true},
		{name: "too long", input: valid + "0", wantErr: true},
		{name: "non hex", input: "0x" + strings.Repeat("zz", 32), wantErr: true},
		{name: "trailing newline", input: valid + "\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := Aptos.Validate(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, sv.ErrInvalidIdentity) {
				t.Errorf("Validate(%q) error = %v, want ErrInvalidIdentity", tt.input, err)
			}
		})
	}
}

func TestAny(t *testing.T) {
	t.Parallel()
	if err := Any.Validate("alice"); err != nil {
		t.Errorf("Validate(alice) error = %v", err)
	}
	for _, bad := range []string{"", "   "} {
		if err := Any.Validate(bad); !errors.Is(err, sv.ErrInvalidIdentity) {
			t.Errorf("Validate(%q) error = %v, want ErrInvalidIdentity", bad, err)
		}
	}
}

func TestPattern(t *testing.T) {
	t.Parallel()

	p, err := NewPattern(`[a-z]+@example\.com`)
	if err != nil {
		t.Fatalf("NewPattern() error = %v", err)
	}

	tests := []struct {
		input   string
		wantErr bool
	}{
		{input: "alice@example.com"},
		{input: "alice@example.com.evil", wantErr: true},
		{input: "x-alice@example.com", wantErr: true},
		{input: "", wantErr: true},
	}
	for _, tt := range tests {
		err := p.Validate(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("Validate(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, sv.ErrInvalidIdentity) {
			t.Errorf("Validate(%q) error = %v, want ErrInvalidIdentity", tt.input, err)
		}
	}
}

func TestNewPattern_Invalid(t *testing.T) {
	t.Parallel()
	for _, expr := range []string{"", "(unclosed"} {
		if _, err := NewPattern(expr); err == nil {
			t.Errorf("NewPattern(%q) error = nil, want error", expr)
		}
	}
}

func TestNewValidatorFromConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     config.IdentityConfig
		accept  string
		reject  string
		wantErr bool
	}{
		{name: "default", cfg: config.IdentityConfig{}, accept: "bob", reject: ""},
		{name: "any", cfg: config.IdentityConfig{Type: "any"}, accept: "bob", reject: " "},
		{name: "aptos", cfg: config.IdentityConfig{Type: "aptos"}, accept: "0x" + strings.Repeat("0", 64), reject: "bob"},
		{name: "pattern", cfg: config.IdentityConfig{Type: "pattern", Pattern: "user-[0-9]+"}, accept: "user-7", reject: "bob"},
		{name: "pattern missing", cfg: config.IdentityConfig{Type: "pattern"}, wantErr: true},
		{name: "unknown", cfg: config.IdentityConfig{Type: "ldap"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			v, err := NewValidatorFromConfig(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("NewValidatorFromConfig() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewValidatorFromConfig() error = %v", err)
			}
			if err := v.Validate(tt.accept); err != nil {
				t.Errorf("Validate(%q) error = %v", tt.accept, err)
			}
			if err := v.Validate(tt.reject); err == nil {
				t.Errorf("Validate(%q) error = nil, want error", tt.reject)
			}
		})
	}
}
