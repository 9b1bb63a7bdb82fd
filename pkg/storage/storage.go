package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/raf924/rocketchat/pkg/config/rocketchat"
)

// ErrNotFound is returned by Load when nothing has been saved yet.
var ErrNotFound = errors.New("nothing stored")

// Storage keeps a single JSON encoded value.
type Storage interface {
	Save(ctx context.Context, v interface{}) error
	Load(ctx context.Context, v interface{}) error
	Close() error
}

type fsStorage struct {
	filename string
	m        *sync.Mutex
}

func (f *fsStorage) Save(ctx context.Context, v interface{}) error {
	f.m.Lock()
	defer f.m.Unlock()
	file, err := os.OpenFile(f.filename, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(file).Encode(v); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

func (f *fsStorage) Load(ctx context.Context, v interface{}) error {
	f.m.Lock()
	defer f.m.Unlock()
	file, err := os.Open(f.filename)
	if errors.Is(err, os.ErrNotExist) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	defer file.Close()
	err = json.NewDecoder(file).Decode(v)
	if errors.Is(err, io.EOF) {
		return ErrNotFound
	}
	return err
}

func (f *fsStorage) Close() error {
	return nil
}

type noOpStorage struct {
}

func (n *noOpStorage) Save(ctx context.Context, v interface{}) error {
	return nil
}

func (n *noOpStorage) Load(ctx context.Context, v interface{}) error {
	return ErrNotFound
}

func (n *noOpStorage) Close() error {
	return nil
}

func NewFileStorage(filename string) (Storage, error) {
	file, err := os.OpenFile(filename, os.O_CREATE, 0o600)
	if err != nil {
		return nil, err
	}
	_ = file.Close()
	return &fsStorage{
		filename: filename,
		m:        &sync.Mutex{},
	}, nil
}

func NewNoOpStorage() Storage {
	return &noOpStorage{}
}

// New builds the storage described by config.
func New(config rocketchat.StorageConfig) (Storage, error) {
	switch config.Type {
	case "", rocketchat.StorageNone:
		return NewNoOpStorage(), nil
	case rocketchat.StorageFile:
		return NewFileStorage(config.Location)
	case rocketchat.StorageEtcd:
		return NewEtcdStorage(config.Endpoints, config.Location)
	default:
		return nil, fmt.Errorf("unknown storage %q", config.Type)
	}
}
