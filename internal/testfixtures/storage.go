package testfixtures

import (
	"context"
	"errors"
	"sync"

	"github.com/example/ticketdesk/internal/persistence"
	"github.com/example/ticketdesk/internal/persistence/memory"
)

// ErrInjected is the default failure returned by a FlakyStore.
var ErrInjected = errors.New("testfixtures: injected storage failure")

// FlakyStore wraps an in-memory store and fails selected operations on demand.
type FlakyStore struct {
	inner *memory.Store

	mu        sync.Mutex
	getErr    error
	setErr    error
	removeErr error
	sets      map[string]int
	removes   map[string]int
}

var _ persistence.KeyValueStore = (*FlakyStore)(nil)

// NewFlakyStore returns a FlakyStore that behaves like memory.Store until a
// failure is injected.
func NewFlakyStore() *FlakyStore {
	return &FlakyStore{
		inner:   memory.New(),
		sets:    make(map[string]int),
		removes: make(map[string]int),
	}
}

// FailGet makes every Get return err. A nil err clears the failure.
func (f *FlakyStore) FailGet(err error) {
	f.mu.Lock()
	f.getErr = err
	f.mu.Unlock()
}

// FailSet makes every Set return err without storing anything.
func (f *FlakyStore) FailSet(err error) {
	f.mu.Lock()
	f.setErr = err
	f.mu.Unlock()
}

// FailRemove makes every Remove return err without removing anything.
func (f *FlakyStore) FailRemove(err error) {
	f.mu.Lock()
	f.removeErr = err
	f.mu.Unlock()
}

// Seed writes a raw record, bypassing injected failures and counters.
func (f *FlakyStore) Seed(key, value string) {
	_ = f.inner.Set(context.Background(), key, value)
}

// Raw reads a record, bypassing injected failures. ok is false when absent.
func (f *FlakyStore) Raw(key string) (value string, ok bool) {
	value, err := f.inner.Get(context.Background(), key)
	return value, err == nil
}

// Keys lists the stored record keys in lexical order.
func (f *FlakyStore) Keys() []string {
	return f.inner.Keys()
}

// SetCalls reports how many successful Set calls targeted key.
func (f *FlakyStore) SetCalls(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sets[key]
}

// RemoveCalls reports how many successful Remove calls targeted key.
func (f *FlakyStore) RemoveCalls(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.removes[key]
}

func (f *FlakyStore) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	err := f.getErr
	f.mu.Unlock()
	if err != nil {
		return "", err
	}
	return f.inner.Get(ctx, key)
}

func (f *FlakyStore) Set(ctx context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	if err := f.inner.Set(ctx, key, value); err != nil {
		return err
	}
	f.sets[key]++
	return nil
}

func (f *FlakyStore) Remove(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.removeErr != nil {
		return f.removeErr
	}
	if err := f.inner.Remove(ctx, key); err != nil {
		return err
	}
	f.removes[key]++
	return nil
}

func (f *FlakyStore) Close() error {
	return f.inner.Close()
}
