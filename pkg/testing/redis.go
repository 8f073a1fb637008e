package testing

import (
	"context"
	"net"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/require"
)

// RedisAddr returns the address of a redis instance to run tests against.
// REDIS_HOST (and optionally REDIS_PORT) point to an already running one,
// otherwise a throwaway redis container is started and removed on cleanup.
func RedisAddr(t *testing.T) string {
	t.Helper()

	if redisHost := os.Getenv("REDIS_HOST"); redisHost != "" {
		redisPort := os.Getenv("REDIS_PORT")
		if redisPort == "" {
			redisPort = "6379"
		}
		t.Logf("using redis host: [%s:%s]", redisHost, redisPort)
		return net.JoinHostPort(redisHost, redisPort)
	}

	dockerPool, err := dockertest.NewPool("")
	require.NoError(t, err, "could not create new dockertest pool")
	require.NoError(t, dockerPool.Client.Ping(), "could not ping docker")

	redisResource, err := dockerPool.RunWithOptions(&dockertest.RunOptions{
		Repository: "redis",
		Tag:        "7.2",
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{
			Name: "no",
		}
	})
	require.NoError(t, err, "run redis container")
	t.Cleanup(func() {
		if err := dockerPool.Purge(redisResource); err != nil {
			t.Logf("redis teardown: %s", err)
		}
	})

	addr := net.JoinHostPort("localhost", redisResource.GetPort("6379/tcp"))
	require.NoError(t, dockerPool.Retry(func() error {
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		defer rdb.Close()
		return rdb.Ping(context.Background()).Err()
	}))

	t.Logf("redis container listening on: [%s]", addr)
	return addr
}

func GetRedisClientAndCtx(t *testing.T) (context.Context, *redis.Client) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	redisPass := os.Getenv("REDIS_PASS")
	if redisPass == "<remove>" {
		redisPass = ""
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     RedisAddr(t),
		Password: redisPass,
		DB:       0, // use default DB
	})
	t.Cleanup(func() {
		_ = rdb.Close()
	})

	pingRes, err := rdb.Ping(ctx).Result()
	require.NoError(t, err)
	t.Logf("redis ping res: %s", pingRes)

	return ctx, rdb
}
