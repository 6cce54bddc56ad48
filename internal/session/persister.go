package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/dropDatabas3/creatorverse/internal/cache"
	"github.com/dropDatabas3/creatorverse/internal/domain/types"
	"github.com/dropDatabas3/creatorverse/internal/security/secretbox"
	"github.com/dropDatabas3/creatorverse/internal/util/atomicwrite"
)

// Persister keeps the session across restarts. Load returns (nil, nil) when
// nothing is stored.
type Persister interface {
	Load(ctx context.Context) (*types.Session, error)
	Save(ctx context.Context, s *types.Session) error
	Clear(ctx context.Context) error
}

const boxPurpose = "creatorverse/session/v1"

// codec serializes sessions, sealing them when a key is configured.
type codec struct{ box *secretbox.Box }

func newCodec(masterKey []byte) (codec, error) {
	if len(masterKey) == 0 {
		return codec{}, nil
	}
	b, err := secretbox.New(masterKey, boxPurpose)
	if err != nil {
		return codec{}, err
	}
	return codec{box: b}, nil
}

func (c codec) encode(s *types.Session) ([]byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	if c.box == nil {
		return b, nil
	}
	sealed, err := c.box.Seal(b)
	if err != nil {
		return nil, err
	}
	return []byte(sealed), nil
}

func (c codec) decode(data []byte) (*types.Session, error) {
	if c.box != nil {
		pt, err := c.box.Open(string(data))
		if err != nil {
			return nil, err
		}
		data = pt
	}
	var s types.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	if s.AccessToken == "" {
		return nil, errors.New("stored session has no access token")
	}
	return &s, nil
}

// FilePersister stores the session in a 0600 file, sealed with AES-GCM when a
// master key is given.
type FilePersister struct {
	path  string
	codec codec
}

func NewFilePersister(path string, masterKey []byte) (*FilePersister, error) {
	c, err := newCodec(masterKey)
	if err != nil {
		return nil, err
	}
	return &FilePersister{path: path, codec: c}, nil
}

func (p *FilePersister) Load(context.Context) (*types.Session, error) {
	b, err := os.ReadFile(p.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s, err := p.codec.decode(b)
	if err != nil {
		return nil, fmt.Errorf("session file %s: %w", p.path, err)
	}
	return s, nil
}

func (p *FilePersister) Save(_ context.Context, s *types.Session) error {
	b, err := p.codec.encode(s)
	if err != nil {
		return err
	}
	return atomicwrite.WriteFile(p.path, b, 0o600)
}

func (p *FilePersister) Clear(context.Context) error { return atomicwrite.Remove(p.path) }

// CachePersister stores the session under one key of a cache.Client (memory or redis).
type CachePersister struct {
	client cache.Client
	key    string
	codec  codec
}

func NewCachePersister(client cache.Client, key string, masterKey []byte) (*CachePersister, error) {
	c, err := newCodec(masterKey)
	if err != nil {
		return nil, err
	}
	if key == "" {
		key = "session:current"
	}
	return &CachePersister{client: client, key: key, codec: c}, nil
}

func (p *CachePersister) Load(ctx context.Context) (*types.Session, error) {
	v, err := p.client.Get(ctx, p.key)
	if cache.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p.codec.decode([]byte(v))
}

func (p *CachePersister) Save(ctx context.Context, s *types.Session) error {
	b, err := p.codec.encode(s)
	if err != nil {
		return err
	}
	// el refresh token vive más que el access token; 30d como techo
	return p.client.Set(ctx, p.key, string(b), 30*24*time.Hour)
}

func (p *CachePersister) Clear(ctx context.Context) error { return p.client.Delete(ctx, p.key) }

// MemoryPersister keeps the session in process memory only.
type MemoryPersister struct {
	mu sync.Mutex
	s  *types.Session
}

func (p *MemoryPersister) Load(context.Context) (*types.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.s.Clone(), nil
}

func (p *MemoryPersister) Save(_ context.Context, s *types.Session) error {
	p.mu.Lock()
	p.s = s.Clone()
	p.mu.Unlock()
	return nil
}

func (p *MemoryPersister) Clear(context.Context) error {
	p.mu.Lock()
	p.s = nil
	p.mu.Unlock()
	return nil
}
