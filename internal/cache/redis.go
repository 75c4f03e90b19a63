package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"animaaz/internal/config"
	"animaaz/internal/logging"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

var client *redis.Client

func InitRedis(cfg *config.Config) error {
	c := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return fmt.Errorf("redis ping: %w", err)
	}

	client = c
	logging.Info().Str("addr", cfg.RedisAddr).Msg("redis connected")
	return nil
}

// Client exposes the shared client; nil until InitRedis succeeds.
func Client() *redis.Client {
	return client
}

func Ping(ctx context.Context) error {
	if client == nil {
		return errors.New("redis not initialised")
	}
	return client.Ping(ctx).Err()
}

func Close() error {
	if client == nil {
		return nil
	}
	return client.Close()
}

func getJSON(ctx context.Context, c redis.UniversalClient, key string, dest any) (bool, error) {
	if c == nil {
		return false, nil
	}

	val, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := json.Unmarshal(val, dest); err != nil {
		return false, err
	}
	return true, nil
}

// setIfGen stores value under key only while genKey still holds gen. A
// missing genKey reads as generation 0.
var setIfGen = redis.NewScript(`
local cur = redis.call('GET', KEYS[2]) or '0'
if cur ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

func setJSONIfGen(ctx context.Context, c redis.UniversalClient, key, genKey string, gen uint64, value any, ttl time.Duration) (bool, error) {
	if c == nil {
		return false, nil
	}

	b, err := json.Marshal(value)
	if err != nil {
		return false, err
	}
	n, err := setIfGen.Run(ctx, c, []string{key, genKey}, strconv.FormatUint(gen, 10), b, ttl.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func generation(ctx context.Context, c redis.UniversalClient, genKey string) (uint64, error) {
	if c == nil {
		return 0, nil
	}
	gen, err := c.Get(ctx, genKey).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func deletePrefix(ctx context.Context, c redis.UniversalClient, prefix string) (int64, error) {
	if c == nil {
		return 0, nil
	}

	var deleted int64
	iter := c.Scan(ctx, 0, prefix+"*", 100).Iterator()
	batch := make([]string, 0, 100)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := c.Del(ctx, batch...).Result()
		deleted += n
		batch = batch[:0]
		return err
	}

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := flush(); err != nil {
				return deleted, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, err
	}
	return deleted, flush()
}
