package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appErrors "github.com/orbitlearn/student-portal-api/pkg/errors"
)

type mockCacheRepo struct {
	entries map[string][]byte
	deleted []string
	getErr  error
	setErr  error
}

func (m *mockCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	if m.getErr != nil {
		return m.getErr
	}
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *mockCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if m.entries == nil {
		m.entries = map[string][]byte{}
	}
	m.entries[key] = raw
	return nil
}

func (m *mockCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	m.deleted = append(m.deleted, pattern)
	delete(m.entries, pattern)
	return nil
}

func TestCacheServiceMissThenHit(t *testing.T) {
	repo := &mockCacheRepo{}
	svc := NewCacheService(repo, nil, time.Minute, zap.NewNop(), true)

	var out map[string]string
	hit, err := svc.Get(context.Background(), "progress:u1", &out)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, svc.Set(context.Background(), "progress:u1", map[string]string{"k": "v"}, 0))

	hit, err = svc.Get(context.Background(), "progress:u1", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "v", out["k"])
}

func TestCacheServiceInvalidate(t *testing.T) {
	repo := &mockCacheRepo{entries: map[string][]byte{"progress:u1": []byte(`{}`)}}
	svc := NewCacheService(repo, nil, time.Minute, zap.NewNop(), true)

	require.NoError(t, svc.Invalidate(context.Background(), "progress:u1"))
	assert.Equal(t, []string{"progress:u1"}, repo.deleted)

	var out map[string]string
	hit, err := svc.Get(context.Background(), "progress:u1", &out)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCacheServiceDisabled(t *testing.T) {
	svc := NewCacheService(nil, nil, 0, nil, false)
	assert.False(t, svc.Enabled())

	var out map[string]string
	hit, err := svc.Get(context.Background(), "progress:u1", &out)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.NoError(t, svc.Set(context.Background(), "progress:u1", out, 0))
	assert.NoError(t, svc.Invalidate(context.Background(), "progress:u1"))
}

func TestCacheServiceNilReceiver(t *testing.T) {
	var svc *CacheService
	assert.False(t, svc.Enabled())
}
