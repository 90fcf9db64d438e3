package login

import (
	"sync"
	"testing"
	"time"
)

func TestTokenRoundtrip(t *testing.T) {
	token, exp := signToken("doc@example.com", time.Hour)
	if exp <= time.Now().Unix() {
		t.Fatalf("expiry %d not in the future", exp)
	}
	tp, ok := parseToken(token)
	if !ok {
		t.Fatal("freshly signed token did not parse")
	}
	if tp.Email != "doc@example.com" {
		t.Errorf("email = %q", tp.Email)
	}
	if email, ok := GetEmailFromToken(token); !ok || email != "doc@example.com" {
		t.Errorf("GetEmailFromToken = %q, %v", email, ok)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	token, _ := signToken("doc@example.com", -time.Minute)
	if _, ok := parseToken(token); ok {
		t.Error("expired token accepted")
	}
}

func TestTamperedTokenRejected(t *testing.T) {
	token, _ := signToken("doc@example.com", time.Hour)
	if _, ok := parseToken(token + "x"); ok {
		t.Error("tampered signature accepted")
	}
}

func TestBlacklistedTokenRejected(t *testing.T) {
	token, exp := signToken("doc@example.com", time.Hour)
	blacklistToken(token, exp)
	defer func() {
		blacklistMu.Lock()
		delete(blacklist, token)
		blacklistMu.Unlock()
	}()
	if _, ok := parseToken(token); ok {
		t.Error("blacklisted token accepted")
	}
}

func TestBlacklistConcurrentAccess(t *testing.T) {
	// Concurrent logouts and session checks must not race on the
	// blacklist map.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		token, exp := signToken("doc@example.com", time.Hour)
		wg.Add(2)
		go func() {
			defer wg.Done()
			blacklistToken(token, exp)
		}()
		go func() {
			defer wg.Done()
			parseToken(token)
		}()
	}
	wg.Wait()
	blacklistMu.Lock()
	blacklist = map[string]int64{}
	blacklistMu.Unlock()
}

func TestIdentityTokenParsing(t *testing.T) {
	if _, err := parseIdentityToken("not-a-jwt", "android"); err == nil {
		t.Error("malformed identity token accepted")
	}
}
