package testutil

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"time"

	"sharevault/internal/model"
	"sharevault/internal/sv"
)

// ErrInjected is returned by the fault-injecting wrappers.
var ErrInjected = errors.New("injected failure")

// FaultyVault wraps a vault and fails selected operations.
type FaultyVault struct {
	sv.Vault
	FailPut    atomic.Bool
	FailDelete atomic.Bool
	// BeforePut runs before every PutBlob. Tests use it to cancel contexts
	// mid-operation.
	BeforePut func()
}

func NewFaultyVault(inner sv.Vault) *FaultyVault {
	return &FaultyVault{Vault: inner}
}

func (v *FaultyVault) PutBlob(ctx context.Context, id string, r io.Reader, size int64) error {
	if v.BeforePut != nil {
		v.BeforePut()
	}
	if v.FailPut.Load() {
		return ErrInjected
	}
	return v.Vault.PutBlob(ctx, id, r, size)
}

func (v *FaultyVault) DeleteBlob(ctx context.Context, id string) error {
	if v.FailDelete.Load() {
		return ErrInjected
	}
	return v.Vault.DeleteBlob(ctx, id)
}

// FaultyDatabase wraps a database and fails selected writes.
type FaultyDatabase struct {
	sv.Database
	FailCreate   atomic.Bool
	FailAddGrant atomic.Bool
	FailDelete   atomic.Bool
}

func NewFaultyDatabase(inner sv.Database) *FaultyDatabase {
	return &FaultyDatabase{Database: inner}
}

func (d *FaultyDatabase) CreateObject(ctx context.Context, record *model.ObjectRecord, entry *model.KeyEntry) error {
	if d.FailCreate.Load() {
		return ErrInjected
	}
	return d.Database.CreateObject(ctx, record, entry)
}

func (d *FaultyDatabase) AddGrant(ctx context.Context, objectID, grantee string, at time.Time) error {
	if d.FailAddGrant.Load() {
		return ErrInjected
	}
	return d.Database.AddGrant(ctx, objectID, grantee, at)
}

func (d *FaultyDatabase) DeleteObject(ctx context.Context, id string, erase bool) error {
	if d.FailDelete.Load() {
		return ErrInjected
	}
	return d.Database.DeleteObject(ctx, id, erase)
}
