package cache

import (
	"context"
	"errors"
	"time"

	"github.com/valkey-io/valkey-go"
)

// ValkeyConfig holds connection parameters for the Valkey server.
type ValkeyConfig struct {
	Addr     string
	Username string
	Password string
}

// ValkeyProvider implements Provider on top of a Valkey/Redis-compatible server.
type ValkeyProvider struct {
	client valkey.Client
}

// NewValkeyProvider connects to the configured server and pings it to fail
// fast when connectivity or credentials are wrong.
func NewValkeyProvider(cfg ValkeyConfig) (*ValkeyProvider, error) {
	if cfg.Addr == "" {
		return nil, errors.New("valkey addr is required")
	}

	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{cfg.Addr},
		Username:    cfg.Username,
		Password:    cfg.Password,
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, err
	}

	return &ValkeyProvider{client: client}, nil
}

// Get fetches bytes by key, returning ErrCacheMiss when the key is absent.
func (p *ValkeyProvider) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := p.client.Do(ctx, p.client.B().Get().Key(key).Build()).AsBytes()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}
	return data, nil
}

// Set stores bytes with the provided TTL.
func (p *ValkeyProvider) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	cmd := p.client.B().Set().Key(key).Value(valkey.BinaryString(value))
	if ttl > 0 {
		return p.client.Do(ctx, cmd.Ex(ttl).Build()).Error()
	}
	return p.client.Do(ctx, cmd.Build()).Error()
}

// Close releases the underlying client.
func (p *ValkeyProvider) Close() error {
	p.client.Close()
	return nil
}
