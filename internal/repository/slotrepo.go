// Package repository defines storage interfaces implemented by concrete backends.
package repository

import "context"

// UpdateFunc receives the current slot value (found=false when absent) and
// returns the value to store. Returning a nil value deletes the slot.
type UpdateFunc func(cur []byte, found bool) ([]byte, error)

// SlotRepository is a named-slot key-value store for session state.
// Every write replaces the whole value of a slot in one operation.
type SlotRepository interface {
	// Get returns the slot value or errs.ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put replaces the slot value.
	Put(ctx context.Context, key string, value []byte) error
	// Update performs an atomic read-modify-write of one slot.
	Update(ctx context.Context, key string, fn UpdateFunc) error
	// Delete removes the slot; deleting an absent slot is not an error.
	Delete(ctx context.Context, key string) error
	// Clear removes every slot of this store.
	Clear(ctx context.Context) error
}
