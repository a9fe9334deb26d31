package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func idemRouter(opts IdempotencyOptions, lookup IdempotencyLookup, final gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(IdempotencyValidator(opts, lookup))
	r.PUT("/x", final)
	return r
}

func putWithKey(r *gin.Engine, key string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/x", nil)
	if key != "" {
		req.Header.Set(HeaderIdempotencyKey, key)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestIdempotencyValidator_NoHeader_NoOp(t *testing.T) {
	called := false
	r := idemRouter(IdempotencyOptions{}, nil, func(c *gin.Context) {
		called = true
		if _, ok := GetIdempotencyKey(c); ok {
			t.Fatal("no key should be stashed")
		}
		if IsReplay(c) {
			t.Fatal("no replay without a key")
		}
		c.Status(http.StatusOK)
	})
	if w := putWithKey(r, ""); w.Code != http.StatusOK || !called {
		t.Fatalf("no-op path: code=%d called=%v", w.Code, called)
	}
}

func TestIdempotencyValidator_RejectsBadKeys(t *testing.T) {
	r := idemRouter(IdempotencyOptions{}, nil, func(c *gin.Context) {
		t.Fatal("handler must not run for a rejected key")
	})

	for _, key := range []string{
		"has spaces",
		"emoji-éè",
		strings.Repeat("a", 201),
	} {
		w := putWithKey(r, key)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("key %q -> %d, want 400", key, w.Code)
		}
		if !strings.Contains(w.Body.String(), "bad_idempotency_key") {
			t.Fatalf("key %q body = %s", key, w.Body.String())
		}
	}
}

func TestIdempotencyValidator_StashesKey(t *testing.T) {
	r := idemRouter(IdempotencyOptions{}, nil, func(c *gin.Context) {
		k, ok := GetIdempotencyKey(c)
		if !ok || k != "tok-1.2:3" {
			t.Fatalf("stashed key = %q ok=%v", k, ok)
		}
		c.Status(http.StatusOK)
	})
	if w := putWithKey(r, "tok-1.2:3"); w.Code != http.StatusOK {
		t.Fatalf("code = %d", w.Code)
	}
}

func TestIdempotencyValidator_ReplayDetection(t *testing.T) {
	lookup := func(ctx context.Context, userID, key string, now time.Time) (bool, error) {
		if userID != "demo-user" {
			t.Fatalf("unexpected user %q", userID)
		}
		return key == "seen-before", nil
	}

	r := idemRouter(IdempotencyOptions{}, lookup, func(c *gin.Context) {
		if !IsReplay(c) {
			t.Fatal("expected replay flag")
		}
		c.Status(http.StatusOK)
	})
	if w := putWithKey(r, "seen-before"); w.Code != http.StatusOK {
		t.Fatalf("replay -> %d", w.Code)
	}

	r2 := idemRouter(IdempotencyOptions{}, lookup, func(c *gin.Context) {
		if IsReplay(c) {
			t.Fatal("fresh key must not be a replay")
		}
		c.Status(http.StatusOK)
	})
	if w := putWithKey(r2, "fresh-key"); w.Code != http.StatusOK {
		t.Fatalf("fresh -> %d", w.Code)
	}
}

func TestIdempotencyValidator_LookupErrorDoesNotBlock(t *testing.T) {
	lookup := func(context.Context, string, string, time.Time) (bool, error) {
		return false, errors.New("ledger down")
	}
	r := idemRouter(IdempotencyOptions{}, lookup, func(c *gin.Context) {
		if IsReplay(c) {
			t.Fatal("lookup failure must not mark replay")
		}
		c.Status(http.StatusOK)
	})
	if w := putWithKey(r, "tok"); w.Code != http.StatusOK {
		t.Fatalf("lookup error -> %d, want request to proceed", w.Code)
	}
}

func TestIdempotencyValidator_CustomLimits(t *testing.T) {
	r := idemRouter(IdempotencyOptions{MaxLen: 5}, nil, func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	if w := putWithKey(r, "12345"); w.Code != http.StatusOK {
		t.Fatalf("len 5 -> %d", w.Code)
	}
	if w := putWithKey(r, "123456"); w.Code != http.StatusBadRequest {
		t.Fatalf("len 6 -> %d", w.Code)
	}
}
