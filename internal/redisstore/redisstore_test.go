package redisstore

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/classpoints/internal/model"
)

// newTestStore connects to CLASSPOINTS_TEST_REDIS_ADDR under a unique prefix
// and removes the keys it wrote when the test ends.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	addr := os.Getenv("CLASSPOINTS_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("CLASSPOINTS_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	prefix := fmt.Sprintf("classpoints-test:%d:", time.Now().UnixNano())
	s, err := Open(ctx, Config{Addr: addr, Prefix: prefix})
	require.NoError(t, err)
	t.Cleanup(func() {
		keys, _ := s.client.Keys(ctx, prefix+"*").Result()
		if len(keys) > 0 {
			s.client.Del(ctx, keys...)
		}
		s.Close()
	})
	return s
}

func TestNewDefaultPrefix(t *testing.T) {
	s := New(redis.NewClient(&redis.Options{Addr: "localhost:0"}), "")
	defer s.Close()
	assert.Equal(t, "classpoints:students", s.key("students"))
}

func TestLoadMissing(t *testing.T) {
	s := newTestStore(t)
	var groups []model.Group
	found, err := s.Load(context.Background(), "groups", &groups)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSaveAllAndLoad(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveAll(ctx, map[string]any{
		"groups":    []model.Group{{ID: "g1", Name: "Red"}},
		"shopGoods": []model.ShopItem{{ID: "i1", Name: "Pen", PointsCost: 5, Stock: 2}},
	}))

	var groups []model.Group
	found, err := s.Load(ctx, "groups", &groups)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []model.Group{{ID: "g1", Name: "Red"}}, groups)

	require.NoError(t, s.Save(ctx, "groups", []model.Group{}))
	groups = nil
	_, err = s.Load(ctx, "groups", &groups)
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestPing(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.Ping(context.Background()))
}
