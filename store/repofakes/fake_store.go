package repofakes

import (
	"sync"

	"github.com/jrsteele09/go-auth-client/store"
)

var _ store.Repo = (*FakeStore)(nil)

// FakeStore is an in-memory store.Repo for tests. Errors can be injected
// per operation via the exported error fields.
type FakeStore struct {
	lock   sync.RWMutex
	values map[string]string

	GetErr    error
	SetErr    error
	DeleteErr error
}

func NewFakeStore() *FakeStore {
	return &FakeStore{
		values: make(map[string]string),
	}
}

func (fs *FakeStore) Get(key string) (string, error) {
	fs.lock.RLock()
	defer fs.lock.RUnlock()

	if fs.GetErr != nil {
		return "", fs.GetErr
	}
	value, ok := fs.values[key]
	if !ok {
		return "", store.ErrNotFound
	}
	return value, nil
}

func (fs *FakeStore) Set(key, value string) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	if fs.SetErr != nil {
		return fs.SetErr
	}
	fs.values[key] = value
	return nil
}

func (fs *FakeStore) Delete(key string) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	if fs.DeleteErr != nil {
		return fs.DeleteErr
	}
	delete(fs.values, key)
	return nil
}

// Len returns the number of stored keys.
func (fs *FakeStore) Len() int {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	return len(fs.values)
}
