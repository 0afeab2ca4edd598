package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Domenick1991/garagebooking/config"
	"github.com/Domenick1991/garagebooking/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RedisCache holds visitor-scoped service selections and registry answers.
type RedisCache struct {
	client       *redis.Client
	selectionTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, selectionTTL time.Duration) *RedisCache {
	return NewRedisCacheWithClient(
		redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		selectionTTL,
	)
}

func NewRedisCacheWithClient(client *redis.Client, selectionTTL time.Duration) *RedisCache {
	return &RedisCache{client: client, selectionTTL: selectionTTL}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// StageSelection replaces the visitor's staged selection. The key expires
// with the visitor session.
func (c *RedisCache) StageSelection(ctx context.Context, visitorID string, sel domain.ServiceSelection) error {
	if visitorID == "" {
		return errors.New("visitor id is required")
	}
	key := selectionKey(visitorID)
	combo := "0"
	if sel.Combo {
		combo = "1"
	}
	pipe := c.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key,
		"service", sel.ServiceKey,
		"combo", combo,
		"unit_price", strconv.FormatInt(sel.UnitPrice.MinorUnits(), 10),
		"total_price", strconv.FormatInt(sel.TotalPrice.MinorUnits(), 10),
		"timestamp", strconv.FormatInt(sel.StagedAt.Unix(), 10),
	)
	pipe.Expire(ctx, key, c.selectionTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// GetSelection returns nil without error when nothing is staged.
func (c *RedisCache) GetSelection(ctx context.Context, visitorID string) (*domain.ServiceSelection, error) {
	if visitorID == "" {
		return nil, nil
	}
	fields, err := c.client.HGetAll(ctx, selectionKey(visitorID)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 || fields["service"] == "" {
		return nil, nil
	}

	sel := &domain.ServiceSelection{
		ServiceKey: fields["service"],
		Combo:      fields["combo"] == "1",
	}
	if sel.UnitPrice, err = parseMoney(fields["unit_price"]); err != nil {
		return nil, fmt.Errorf("selection unit_price: %w", err)
	}
	if sel.TotalPrice, err = parseMoney(fields["total_price"]); err != nil {
		return nil, fmt.Errorf("selection total_price: %w", err)
	}
	if ts := fields["timestamp"]; ts != "" {
		unix, err := strconv.ParseInt(ts, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("selection timestamp: %w", err)
		}
		sel.StagedAt = time.Unix(unix, 0).UTC()
	}
	return sel, nil
}

func (c *RedisCache) ClearSelection(ctx context.Context, visitorID string) error {
	if visitorID == "" {
		return nil
	}
	return c.client.Del(ctx, selectionKey(visitorID)).Err()
}

func (c *RedisCache) GetVehicle(ctx context.Context, registration string) (*domain.VehicleAttributes, error) {
	data, err := c.client.Get(ctx, vehicleKey(registration)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var v domain.VehicleAttributes
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *RedisCache) SetVehicle(ctx context.Context, v domain.VehicleAttributes, ttl time.Duration) error {
	if v.UsingMockData {
		return nil
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, vehicleKey(v.Registration), payload, ttl).Err()
}

func parseMoney(s string) (domain.Money, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return domain.Money(v), nil
}

func selectionKey(visitorID string) string {
	return "garage:selection:" + visitorID
}

func vehicleKey(registration string) string {
	return "garage:vehicle:" + domain.NormalizeRegistration(registration)
}
