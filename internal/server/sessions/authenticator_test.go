package sessions

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/filesmanager/internal/common"
	"github.com/dmitrijs2005/filesmanager/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCache struct {
	values map[string]string
	err    error
	keys   []string
}

func (f *fakeCache) Get(ctx context.Context, key string) (string, error) {
	f.keys = append(f.keys, key)
	if f.err != nil {
		return "", f.err
	}
	v, ok := f.values[key]
	if !ok {
		return "", common.ErrCacheMiss
	}
	return v, nil
}

func TestAuthenticate_OK(t *testing.T) {
	c := &fakeCache{values: map[string]string{"auth_tok": "user-1"}}
	a := NewAuthenticator(c, logging.Nop{})

	userID, err := a.Authenticate(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
	assert.Equal(t, []string{"auth_tok"}, c.keys)
}

func TestAuthenticate_Failures(t *testing.T) {
	tests := []struct {
		name  string
		token string
		cache *fakeCache
	}{
		{name: "empty token", token: "", cache: &fakeCache{}},
		{name: "unknown token", token: "nope", cache: &fakeCache{values: map[string]string{}}},
		{name: "empty user id", token: "tok", cache: &fakeCache{values: map[string]string{"auth_tok": ""}}},
		{name: "cache down", token: "tok", cache: &fakeCache{err: errors.New("connection refused")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAuthenticator(tt.cache, logging.Nop{})
			userID, err := a.Authenticate(context.Background(), tt.token)
			assert.Empty(t, userID)
			assert.ErrorIs(t, err, common.ErrUnauthorized)
		})
	}
}

func TestAuthenticate_EmptyTokenSkipsCache(t *testing.T) {
	c := &fakeCache{}
	a := NewAuthenticator(c, logging.Nop{})

	_, _ = a.Authenticate(context.Background(), "")
	assert.Empty(t, c.keys)
}
