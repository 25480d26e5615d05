package util

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// RedisCacheTestSuite тестовый suite для кеша списков
type RedisCacheTestSuite struct {
	suite.Suite
	miniRedis *miniredis.Miniredis
	client    *redis.Client
	cache     *RedisCache
}

func TestRedisCacheSuite(t *testing.T) {
	suite.Run(t, new(RedisCacheTestSuite))
}

func (s *RedisCacheTestSuite) SetupSuite() {
	var err error
	s.miniRedis, err = miniredis.Run()
	require.NoError(s.T(), err)

	s.client = redis.NewClient(&redis.Options{Addr: s.miniRedis.Addr()})
	s.cache = NewRedisCache(s.client)
}

func (s *RedisCacheTestSuite) SetupTest() {
	s.miniRedis.FlushAll()
}

func (s *RedisCacheTestSuite) TearDownSuite() {
	s.client.Close()
	s.miniRedis.Close()
}

func (s *RedisCacheTestSuite) TestGet_Miss() {
	data, err := s.cache.Get(context.Background(), "products:all")

	s.NoError(err)
	s.Nil(data)
}

func (s *RedisCacheTestSuite) TestSetThenGet() {
	ctx := context.Background()

	s.Require().NoError(s.cache.Set(ctx, "categories:all", []byte(`[{"name":"Books"}]`), 2*time.Minute))

	data, err := s.cache.Get(ctx, "categories:all")
	s.NoError(err)
	s.JSONEq(`[{"name":"Books"}]`, string(data))
	s.Equal(2*time.Minute, s.miniRedis.TTL("categories:all"))
}

func (s *RedisCacheTestSuite) TestSet_ExpiresAfterTTL() {
	ctx := context.Background()
	s.Require().NoError(s.cache.Set(ctx, "products:all", []byte(`[]`), 60*time.Second))

	s.miniRedis.FastForward(61 * time.Second)

	data, err := s.cache.Get(ctx, "products:all")
	s.NoError(err)
	s.Nil(data)
}

func (s *RedisCacheTestSuite) TestDelete() {
	ctx := context.Background()
	s.Require().NoError(s.cache.Set(ctx, "products:all", []byte(`[]`), time.Minute))

	s.NoError(s.cache.Delete(ctx, "products:all"))

	s.False(s.miniRedis.Exists("products:all"))
}

func (s *RedisCacheTestSuite) TestDelete_MissingKeyIsNotError() {
	s.NoError(s.cache.Delete(context.Background(), "products:all"))
}

func (s *RedisCacheTestSuite) TestGet_ServerDown() {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	defer client.Close()

	_, err := NewRedisCache(client).Get(context.Background(), "products:all")

	s.Error(err)
	s.Contains(err.Error(), "failed to get products:all from cache")
}

func (s *RedisCacheTestSuite) TestKeyPrefix() {
	s.Equal("products", keyPrefix("products:all"))
	s.Equal("plain", keyPrefix("plain"))
}
