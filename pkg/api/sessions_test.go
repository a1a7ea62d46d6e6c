package api

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/bffhd/pkg/session"
)

func TestSessionRegistryPutGetDelete(t *testing.T) {
	reg := NewSessionRegistry()
	sess := session.New("alice", nil, nil)

	token, err := reg.Put(sess)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	got, ok := reg.Get(token)
	require.True(t, ok)
	assert.Equal(t, sess, got)

	reg.Delete(token)
	_, ok = reg.Get(token)
	assert.False(t, ok)
}

func TestSessionRegistryUnknownToken(t *testing.T) {
	reg := NewSessionRegistry()
	_, ok := reg.Get("does-not-exist")
	assert.False(t, ok)
}

func TestSessionRegistryConcurrentAccess(t *testing.T) {
	reg := NewSessionRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := reg.Put(session.New("alice", nil, nil))
			require.NoError(t, err)
			_, ok := reg.Get(token)
			assert.True(t, ok)
			reg.Delete(token)
		}()
	}
	wg.Wait()
}
