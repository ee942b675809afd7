package sv

import (
	"context"
	"fmt"

	"sharevault/internal/model"
)

// RegisterRecipient records the public key that SealedKeyFor wraps object
// keys to for identity. A later registration replaces the earlier one.
func (s *ObjectStore) RegisterRecipient(ctx context.Context, identity, publicKey string) error {
	err := s.registerRecipient(ctx, identity, publicKey)
	s.emit(ctx, Event{Op: OpRegisterRecipient, Identity: identity, Err: err})
	return err
}

func (s *ObjectStore) registerRecipient(ctx context.Context, identity, publicKey string) error {
	if err := s.identity.Validate(identity); err != nil {
		return err
	}
	if s.sealer == nil {
		return fmt.Errorf("no recipient sealer configured")
	}
	if err := s.sealer.ParseRecipient(publicKey); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedInput, err)
	}

	recipient := &model.Recipient{
		Identity:  identity,
		PublicKey: publicKey,
		CreatedAt: s.clock.Now(),
	}
	if err := s.database.PutRecipient(ctx, recipient); err != nil {
		return fmt.Errorf("recording recipient: %w", err)
	}
	s.logger.Info("recipient registered", "identity", identity)
	return nil
}

// SealedKeyFor returns the object's key wrapped to the caller's registered
// recipient, ASCII armored. The caller must be allowed to Get the object.
func (s *ObjectStore) SealedKeyFor(ctx context.Context, caller, id string) (string, error) {
	sealed, err := s.sealedKeyFor(ctx, caller, id)
	s.emit(ctx, Event{Op: OpSealedKey, ObjectID: id, Identity: caller, Err: err})
	return sealed, err
}

func (s *ObjectStore) sealedKeyFor(ctx context.Context, caller, id string) (string, error) {
	if s.sealer == nil {
		return "", fmt.Errorf("no recipient sealer configured")
	}

	unlock := s.locks.RLock(id)
	defer unlock()

	obj, err := s.load(ctx, id)
	if err != nil {
		return "", err
	}
	if !s.access.Authorize(caller, obj) {
		return "", ErrAccessDenied
	}

	recipient, err := s.database.FindRecipient(ctx, caller)
	if err != nil {
		return "", fmt.Errorf("finding recipient: %w", err)
	}
	if recipient == nil {
		return "", fmt.Errorf("%w: %s", ErrNoRecipient, caller)
	}

	key, err := s.openKey(obj.Key)
	if err != nil {
		return "", err
	}
	defer key.Destroy()

	material := s.keys.ExportKey(key)
	defer clear(material)
	armored, err := s.sealer.SealFor(recipient.PublicKey, material)
	if err != nil {
		return "", fmt.Errorf("sealing key for recipient: %w", err)
	}
	return armored, nil
}
