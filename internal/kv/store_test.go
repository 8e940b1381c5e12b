package kv

import (
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stores(t *testing.T, quota int) map[string]Store {
	t.Helper()

	fileStore, err := NewFile(t.TempDir(), int64(quota))
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return map[string]Store{
		"memory": NewMemory(quota),
		"file":   fileStore,
		"redis":  NewRedis(client, "angple:", quota),
	}
}

func TestStore_RoundTrip(t *testing.T) {
	for name, s := range stores(t, 0) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := s.Get("queue")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.Set("queue", []byte(`[1,2]`)))
			v, ok, err := s.Get("queue")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, `[1,2]`, string(v))

			require.NoError(t, s.Set("queue", []byte(`[3]`)))
			v, _, _ = s.Get("queue")
			assert.Equal(t, `[3]`, string(v))

			require.NoError(t, s.Remove("queue"))
			_, ok, err = s.Get("queue")
			require.NoError(t, err)
			assert.False(t, ok)

			assert.NoError(t, s.Remove("queue"), "removing a missing key is fine")
		})
	}
}

func TestStore_Quota(t *testing.T) {
	for name, s := range stores(t, 64) {
		t.Run(name, func(t *testing.T) {
			err := s.Set("queue", []byte(strings.Repeat("x", 128)))
			assert.ErrorIs(t, err, ErrQuotaExceeded)

			require.NoError(t, s.Set("queue", []byte(strings.Repeat("x", 16))))
			// overwriting the same key only counts the new value
			require.NoError(t, s.Set("queue", []byte(strings.Repeat("y", 32))))
		})
	}
}

func TestMemory_CopiesValues(t *testing.T) {
	m := NewMemory(0)
	buf := []byte("abc")
	require.NoError(t, m.Set("k", buf))
	buf[0] = 'z'

	v, _, _ := m.Get("k")
	assert.Equal(t, "abc", string(v))
	v[1] = 'z'
	v2, _, _ := m.Get("k")
	assert.Equal(t, "abc", string(v2))
	assert.Equal(t, len("k")+3, m.Used())
}

func TestFile_KeysAreIsolated(t *testing.T) {
	f, err := NewFile(t.TempDir(), 0)
	require.NoError(t, err)

	require.NoError(t, f.Set("a/b", []byte("1")))
	require.NoError(t, f.Set("a:b", []byte("2")))

	v1, _, _ := f.Get("a/b")
	v2, _, _ := f.Get("a:b")
	assert.Equal(t, "1", string(v1))
	assert.Equal(t, "2", string(v2))
}
