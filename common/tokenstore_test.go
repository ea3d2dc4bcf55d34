package common_test

import (
	"testing"

	"golang.org/x/oauth2"

	"github.com/Darlykn/ClockIn/common"
)

func TestMemoryTokenStore(t *testing.T) {
	store := common.NewMemoryTokenStore()

	if _, ok := store.Get(); ok {
		t.Error("expected empty store")
	}

	store.Set(&oauth2.Token{AccessToken: "abc", TokenType: "bearer"})
	token, ok := store.Get()
	if !ok {
		t.Fatal("expected a token after Set")
	}
	if token.AccessToken != "abc" {
		t.Errorf("expected 'abc', got %q", token.AccessToken)
	}

	store.Clear()
	if _, ok := store.Get(); ok {
		t.Error("expected empty store after Clear")
	}
}

func TestMemoryTokenStore_EmptyAccessTokenIsAbsent(t *testing.T) {
	store := common.NewMemoryTokenStore()
	store.Set(&oauth2.Token{})
	if _, ok := store.Get(); ok {
		t.Error("a token without an access token should not count as present")
	}
}
