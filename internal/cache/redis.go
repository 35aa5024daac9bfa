package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"lancebill-backend/internal/config"
)

// Dashboard cache keys
const dashboardKeyFmt = "dashboard:summary:%d"

var client *redis.Client

// Init initializes the Redis connection. The cache degrades gracefully: a
// nil client turns every helper into a no-op.
func Init(cfg *config.Config) error {
	client = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		client = nil
		return err
	}
	return nil
}

// hashCredentials creates a hash of email+password for cache key
func hashCredentials(email, password string) string {
	h := sha256.New()
	h.Write([]byte(email + ":" + password))
	return "auth:" + hex.EncodeToString(h.Sum(nil))[:32]
}

// GetCachedAuth checks if credentials are cached and valid
func GetCachedAuth(ctx context.Context, email, password string) (int64, bool) {
	if client == nil {
		return 0, false
	}
	key := hashCredentials(email, password)
	accountID, err := client.Get(ctx, key).Int64()
	if err != nil {
		return 0, false
	}
	return accountID, true
}

// CacheAuth caches valid credentials for 15 minutes
func CacheAuth(ctx context.Context, email, password string, accountID int64) {
	if client == nil {
		return
	}
	key := hashCredentials(email, password)
	client.Set(ctx, key, accountID, 15*time.Minute)
}

// InvalidateAuth removes cached auth for an account (on password change)
func InvalidateAuth(ctx context.Context, email, password string) {
	if client == nil {
		return
	}
	key := hashCredentials(email, password)
	client.Del(ctx, key)
}

// GetCachedDashboard returns the cached dashboard summary JSON if available
func GetCachedDashboard(ctx context.Context, ownerID int) ([]byte, bool) {
	if client == nil {
		return nil, false
	}
	data, err := client.Get(ctx, fmt.Sprintf(dashboardKeyFmt, ownerID)).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

// CacheDashboard caches the dashboard summary for 60 seconds
func CacheDashboard(ctx context.Context, ownerID int, data []byte) {
	if client == nil {
		return
	}
	client.Set(ctx, fmt.Sprintf(dashboardKeyFmt, ownerID), data, 60*time.Second)
}

// InvalidateDashboard drops the cached summary after a ledger mutation
func InvalidateDashboard(ctx context.Context, ownerID int) {
	if client == nil {
		return
	}
	client.Del(ctx, fmt.Sprintf(dashboardKeyFmt, ownerID))
}
