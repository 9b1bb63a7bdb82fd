package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

const defaultEtcdKey = "/rocketchat/v1/session"

type etcdStorage struct {
	client *clientv3.Client
	key    string
}

// NewEtcdStorage stores the value under key in the etcd cluster at endpoints.
// The caller must call Close when finished.
func NewEtcdStorage(endpoints []string, key string) (Storage, error) {
	client, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("etcd dial: %w", err)
	}
	if key == "" {
		key = defaultEtcdKey
	}
	return &etcdStorage{client: client, key: key}, nil
}

func (e *etcdStorage) Save(ctx context.Context, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if _, err := e.client.Put(ctx, e.key, string(data)); err != nil {
		return fmt.Errorf("etcd put %q: %w", e.key, err)
	}
	return nil
}

func (e *etcdStorage) Load(ctx context.Context, v interface{}) error {
	resp, err := e.client.Get(ctx, e.key)
	if err != nil {
		return fmt.Errorf("etcd get %q: %w", e.key, err)
	}
	if len(resp.Kvs) == 0 {
		return ErrNotFound
	}
	if err := json.Unmarshal(resp.Kvs[0].Value, v); err != nil {
		return fmt.Errorf("unmarshal %q: %w", e.key, err)
	}
	return nil
}

func (e *etcdStorage) Close() error {
	return e.client.Close()
}
