package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/kehila/community-auth/internal/config"
	"github.com/kehila/community-auth/internal/model"
)

// GrantStore lists the (resource, scope) grants of a role in storage order.
type GrantStore interface {
	ListByRole(ctx context.Context, role model.RoleName) ([]model.Grant, error)
}

// txGrantStore is a GrantStore that can also read on an open transaction.
type txGrantStore interface {
	ListByRoleTx(ctx context.Context, tx *sql.Tx, role model.RoleName) ([]model.Grant, error)
}

// PermissionResolver maps role levels to role names and role names to their
// grant sets.  Grant lists are cached in Redis per role name when a client
// is configured; a Redis failure falls back to the store.
type PermissionResolver struct {
	store  GrantStore
	rdb    *redis.Client
	cache  config.GrantCacheConfig
	logger *slog.Logger
}

// NewPermissionResolver creates a resolver.  rdb may be nil.
func NewPermissionResolver(store GrantStore, rdb *redis.Client, cache config.GrantCacheConfig, logger *slog.Logger) *PermissionResolver {
	return &PermissionResolver{store: store, rdb: rdb, cache: cache, logger: logger}
}

// ResolveRole maps a role level to its role name.
func (p *PermissionResolver) ResolveRole(roleID int) model.RoleName {
	return model.ResolveRole(roleID)
}

// AllowedResources returns the deduplicated grants of the role behind
// roleID.  A role without rows yields an empty set, not an error.
func (p *PermissionResolver) AllowedResources(ctx context.Context, roleID int) (model.GrantSet, error) {
	return p.allowed(ctx, roleID, p.store.ListByRole)
}

// AllowedResourcesTx is AllowedResources for callers holding tx.  A cache
// miss is read on tx so the caller never waits for a second connection.
func (p *PermissionResolver) AllowedResourcesTx(ctx context.Context, tx *sql.Tx, roleID int) (model.GrantSet, error) {
	load := p.store.ListByRole
	if ts, ok := p.store.(txGrantStore); ok && tx != nil {
		load = func(ctx context.Context, role model.RoleName) ([]model.Grant, error) {
			return ts.ListByRoleTx(ctx, tx, role)
		}
	}
	return p.allowed(ctx, roleID, load)
}

func (p *PermissionResolver) allowed(
	ctx context.Context,
	roleID int,
	load func(context.Context, model.RoleName) ([]model.Grant, error),
) (model.GrantSet, error) {
	role := p.ResolveRole(roleID)

	if grants, ok := p.cached(ctx, role); ok {
		return model.NewGrantSet(grants...), nil
	}

	grants, err := load(ctx, role)
	if err != nil {
		return model.GrantSet{}, fmt.Errorf("list grants for %s: %w", role, err)
	}
	set := model.NewGrantSet(grants...)
	p.remember(ctx, role, set.List())
	return set, nil
}

func (p *PermissionResolver) cacheOn() bool {
	return p.rdb != nil && p.cache.Enabled && p.cache.TTL > 0
}

func (p *PermissionResolver) key(role model.RoleName) string {
	return p.cache.Prefix + ":" + string(role)
}

func (p *PermissionResolver) cached(ctx context.Context, role model.RoleName) ([]model.Grant, bool) {
	if !p.cacheOn() {
		return nil, false
	}
	raw, err := p.rdb.Get(ctx, p.key(role)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		p.logger.WarnContext(ctx, "grant cache read failed",
			slog.String("role", string(role)), slog.String("error", err.Error()))
		return nil, false
	}
	var grants []model.Grant
	if err := json.Unmarshal(raw, &grants); err != nil {
		p.logger.WarnContext(ctx, "grant cache entry corrupt",
			slog.String("role", string(role)), slog.String("error", err.Error()))
		return nil, false
	}
	return grants, true
}

func (p *PermissionResolver) remember(ctx context.Context, role model.RoleName, grants []model.Grant) {
	if !p.cacheOn() {
		return
	}
	raw, err := json.Marshal(grants)
	if err != nil {
		return
	}
	if err := p.rdb.Set(ctx, p.key(role), raw, p.cache.TTL).Err(); err != nil {
		p.logger.WarnContext(ctx, "grant cache write failed",
			slog.String("role", string(role)), slog.String("error", err.Error()))
	}
}
