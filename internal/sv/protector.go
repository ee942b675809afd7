package sv

// KeyProtector seals exported object keys before they reach the database.
// Sealing needs no user interaction; opening sealed keys requires Unlock,
// which may ask for a passphrase.
type KeyProtector interface {
	// Setup performs one-time key generation. Called during `sv keys setup`.
	Setup(passphrase string) error

	// Seal protects raw key material for storage.
	Seal(material []byte) ([]byte, error)

	// Unlock returns a KeyOpener for the session.
	// Returns an error if the passphrase is incorrect.
	Unlock(passphrase string) (KeyOpener, error)

	// IsConfigured reports whether Setup has been run.
	IsConfigured() bool
}

// KeyOpener recovers raw key material sealed by a KeyProtector. It holds any
// unlocked private key in memory only.
type KeyOpener interface {
	Open(sealed []byte) ([]byte, error)
}

// RecipientSealer wraps raw key material for an external recipient, so a
// grantee can hold an object's key without access to the store.
type RecipientSealer interface {
	// ParseRecipient validates a recipient public key string.
	ParseRecipient(recipient string) error

	// SealFor encrypts material to recipient and returns it ASCII armored.
	SealFor(recipient string, material []byte) (string, error)
}
