package encryption

import (
	"bytes"
	"fmt"
	"strings"

	"filippo.io/age"
	"filippo.io/age/armor"

	"sharevault/internal/sv"
)

// AgeRecipientSealer wraps object keys to a grantee's age public key. The
// result is ASCII armored so it can be pasted or mailed.
type AgeRecipientSealer struct{}

var _ sv.RecipientSealer = AgeRecipientSealer{}

// ParseRecipient validates a single age recipient string.
func (AgeRecipientSealer) ParseRecipient(recipient string) error {
	_, err := parseRecipient(recipient)
	return err
}

// SealFor encrypts material to recipient.
func (AgeRecipientSealer) SealFor(recipient string, material []byte) (string, error) {
	return SealForRecipient(recipient, material)
}

// SealForRecipient age-encrypts material to recipient and returns the
// armored ciphertext.
func SealForRecipient(recipient string, material []byte) (string, error) {
	r, err := parseRecipient(recipient)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	aw := armor.NewWriter(&buf)
	if err := sealTo(aw, r, material); err != nil {
		return "", fmt.Errorf("sealing key material: %w", err)
	}
	if err := aw.Close(); err != nil {
		return "", fmt.Errorf("finalizing armor: %w", err)
	}
	return buf.String(), nil
}

// OpenFromRecipient reverses SealForRecipient with the matching identity.
func OpenFromRecipient(identity age.Identity, armored string) ([]byte, error) {
	material, err := openWith(armor.NewReader(strings.NewReader(armored)), identity)
	if err != nil {
		return nil, fmt.Errorf("opening sealed key: %w", err)
	}
	return material, nil
}

func parseRecipient(recipient string) (age.Recipient, error) {
	recipient = strings.TrimSpace(recipient)
	if recipient == "" || strings.ContainsAny(recipient, "\n\r") {
		return nil, fmt.Errorf("expected exactly one age recipient")
	}
	recipients, err := age.ParseRecipients(strings.NewReader(recipient))
	if err != nil {
		return nil, fmt.Errorf("parsing age recipient: %w", err)
	}
	if len(recipients) != 1 {
		return nil, fmt.Errorf("expected exactly one age recipient, got %d", len(recipients))
	}
	return recipients[0], nil
}
