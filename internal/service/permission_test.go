package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kehila/community-auth/internal/config"
	"github.com/kehila/community-auth/internal/model"
)

var cacheOn = config.GrantCacheConfig{Enabled: true, TTL: 5 * time.Minute, Prefix: "grants"}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestPermissionResolver_ResolveRole(t *testing.T) {
	p := NewPermissionResolver(&mockGrantStore{}, nil, cacheOn, discardLogger())

	assert.Equal(t, model.RoleSysAdmin, p.ResolveRole(100))
	assert.Equal(t, model.RoleSuperior, p.ResolveRole(101))
	assert.Equal(t, model.RoleUser, p.ResolveRole(1))
	assert.Equal(t, model.RoleUser, p.ResolveRole(0))
	assert.Equal(t, model.RoleUser, p.ResolveRole(-7))
}

func TestPermissionResolver_DeduplicatesInFirstSeenOrder(t *testing.T) {
	store := &mockGrantStore{}
	store.On("ListByRole", mock.Anything, model.RoleSysAdmin).Return([]model.Grant{
		{Resource: "users", Scope: "read"},
		{Resource: "payments", Scope: "write"},
		{Resource: "users", Scope: "read"},
		{Resource: "users", Scope: "delete"},
	}, nil)
	p := NewPermissionResolver(store, nil, cacheOn, discardLogger())

	set, err := p.AllowedResources(context.Background(), 100)

	require.NoError(t, err)
	assert.Equal(t, []model.Grant{
		{Resource: "users", Scope: "read"},
		{Resource: "payments", Scope: "write"},
		{Resource: "users", Scope: "delete"},
	}, set.List())
	assert.True(t, set.Has("users", "delete"))
	assert.False(t, set.Has("users", "write"))
}

func TestPermissionResolver_EmptyRoleIsNotAnError(t *testing.T) {
	store := &mockGrantStore{}
	store.On("ListByRole", mock.Anything, model.RoleUser).Return([]model.Grant{}, nil)
	p := NewPermissionResolver(store, nil, cacheOn, discardLogger())

	set, err := p.AllowedResources(context.Background(), 1)

	require.NoError(t, err)
	assert.Equal(t, 0, set.Len())
	assert.NotNil(t, set.List())
}

func TestPermissionResolver_StoreFailure(t *testing.T) {
	store := &mockGrantStore{}
	store.On("ListByRole", mock.Anything, model.RoleUser).Return(nil, errors.New("connection refused"))
	p := NewPermissionResolver(store, nil, cacheOn, discardLogger())

	_, err := p.AllowedResources(context.Background(), 1)

	assert.Error(t, err)
}

func TestPermissionResolver_CachesPerRole(t *testing.T) {
	mr, rdb := newRedis(t)
	store := &mockGrantStore{}
	store.On("ListByRole", mock.Anything, model.RoleSuperior).
		Return([]model.Grant{{Resource: "payments", Scope: "write"}}, nil).Once()
	p := NewPermissionResolver(store, rdb, cacheOn, discardLogger())

	first, err := p.AllowedResources(context.Background(), 101)
	require.NoError(t, err)
	second, err := p.AllowedResources(context.Background(), 101)
	require.NoError(t, err)

	assert.Equal(t, first.List(), second.List())
	store.AssertNumberOfCalls(t, "ListByRole", 1)
	assert.True(t, mr.Exists("grants:superior"))
	assert.Equal(t, 5*time.Minute, mr.TTL("grants:superior"))
}

func TestPermissionResolver_CacheExpiryReloads(t *testing.T) {
	mr, rdb := newRedis(t)
	store := &mockGrantStore{}
	store.On("ListByRole", mock.Anything, model.RoleUser).
		Return([]model.Grant{{Resource: "payments", Scope: "read"}}, nil).Once()
	store.On("ListByRole", mock.Anything, model.RoleUser).
		Return([]model.Grant{{Resource: "payments", Scope: "write"}}, nil).Once()
	p := NewPermissionResolver(store, rdb, cacheOn, discardLogger())

	_, err := p.AllowedResources(context.Background(), 1)
	require.NoError(t, err)
	mr.FastForward(6 * time.Minute)
	set, err := p.AllowedResources(context.Background(), 1)
	require.NoError(t, err)

	assert.True(t, set.Has("payments", "write"))
	assert.False(t, set.Has("payments", "read"))
}

func TestPermissionResolver_RedisDownFallsBackToStore(t *testing.T) {
	mr, rdb := newRedis(t)
	mr.Close()
	store := &mockGrantStore{}
	store.On("ListByRole", mock.Anything, model.RoleUser).
		Return([]model.Grant{{Resource: "payments", Scope: "read"}}, nil)
	p := NewPermissionResolver(store, rdb, cacheOn, discardLogger())

	set, err := p.AllowedResources(context.Background(), 1)

	require.NoError(t, err)
	assert.True(t, set.Has("payments", "read"))
}

func TestPermissionResolver_CorruptEntryIsIgnored(t *testing.T) {
	mr, rdb := newRedis(t)
	require.NoError(t, mr.Set("grants:user", "{not json"))
	store := &mockGrantStore{}
	store.On("ListByRole", mock.Anything, model.RoleUser).
		Return([]model.Grant{{Resource: "payments", Scope: "read"}}, nil)
	p := NewPermissionResolver(store, rdb, cacheOn, discardLogger())

	set, err := p.AllowedResources(context.Background(), 1)

	require.NoError(t, err)
	assert.Equal(t, 1, set.Len())
}

func TestPermissionResolver_DisabledCacheAlwaysQueries(t *testing.T) {
	mr, rdb := newRedis(t)
	store := &mockGrantStore{}
	store.On("ListByRole", mock.Anything, model.RoleUser).Return([]model.Grant{}, nil)
	off := cacheOn
	off.Enabled = false
	p := NewPermissionResolver(store, rdb, off, discardLogger())

	_, _ = p.AllowedResources(context.Background(), 1)
	_, _ = p.AllowedResources(context.Background(), 1)

	store.AssertNumberOfCalls(t, "ListByRole", 2)
	assert.False(t, mr.Exists("grants:user"))
}

func TestPermissionResolver_AllowedResourcesTx_ReadsOnTransaction(t *testing.T) {
	db, dbMock := newMockDB(t)
	dbMock.ExpectBegin()
	dbMock.ExpectRollback()
	tx, err := db.Begin()
	require.NoError(t, err)
	t.Cleanup(func() { _ = tx.Rollback() })

	store := &mockTxGrantStore{}
	store.On("ListByRoleTx", mock.Anything, tx, model.RoleSysAdmin).
		Return([]model.Grant{{Resource: "users", Scope: "delete"}}, nil)
	p := NewPermissionResolver(store, nil, cacheOn, discardLogger())

	set, err := p.AllowedResourcesTx(context.Background(), tx, 100)

	require.NoError(t, err)
	assert.True(t, set.Has("users", "delete"))
	store.AssertNotCalled(t, "ListByRole", mock.Anything, mock.Anything)
}

func TestPermissionResolver_AllowedResourcesTx_CacheHitSkipsStore(t *testing.T) {
	_, rdb := newRedis(t)
	store := &mockTxGrantStore{}
	store.On("ListByRole", mock.Anything, model.RoleUser).
		Return([]model.Grant{{Resource: "payments", Scope: "read"}}, nil).Once()
	p := NewPermissionResolver(store, rdb, cacheOn, discardLogger())

	_, err := p.AllowedResources(context.Background(), 1)
	require.NoError(t, err)
	set, err := p.AllowedResourcesTx(context.Background(), nil, 1)

	require.NoError(t, err)
	assert.True(t, set.Has("payments", "read"))
	store.AssertNumberOfCalls(t, "ListByRole", 1)
	store.AssertNotCalled(t, "ListByRoleTx", mock.Anything, mock.Anything, mock.Anything)
}

func TestPermissionResolver_AllowedResourcesTx_PlainStore(t *testing.T) {
	store := &mockGrantStore{}
	store.On("ListByRole", mock.Anything, model.RoleUser).
		Return([]model.Grant{{Resource: "payments", Scope: "read"}}, nil)
	p := NewPermissionResolver(store, nil, cacheOn, discardLogger())

	set, err := p.AllowedResourcesTx(context.Background(), nil, 1)

	require.NoError(t, err)
	assert.Equal(t, 1, set.Len())
}
