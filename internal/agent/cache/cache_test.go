package cache

import (
	"context"
	"testing"
	"time"
)

func TestNormalizeQuestion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"What is the CRM about?", "what is the crm about?"},
		{"  What is   the CRM about?  ", "what is the crm about?"},
		{"WHAT IS THE CRM ABOUT?", "what is the crm about?"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeQuestion(tt.in); got != tt.want {
			t.Errorf("NormalizeQuestion(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestKeyDistinguishesUserAndPage(t *testing.T) {
	t.Parallel()

	base := Key("u1", "open pipeline", "/dashboard")
	if Key("u2", "open pipeline", "/dashboard") == base {
		t.Error("keys for different users collide")
	}
	if Key("u1", "open pipeline", "/contacts") == base {
		t.Error("keys for different pages collide")
	}
	if Key("u1", "  OPEN   pipeline ", "/dashboard") != base {
		t.Error("normalized phrasings should share a key")
	}
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := NewMemoryCache(time.Minute)

	got, err := c.Get(ctx, "u1", "hello", "/")
	if err != nil || got != nil {
		t.Fatalf("Get on empty cache = %v, %v; want nil, nil", got, err)
	}

	want := CachedResponse{Response: "Hi there.", Model: "gemini-2.5-flash", CreatedAt: time.Now()}
	if err := c.Put(ctx, "u1", "hello", "/", want); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err = c.Get(ctx, "u1", "  Hello ", "/")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || got.Response != want.Response || got.Model != want.Model {
		t.Fatalf("Get = %+v, want %+v", got, want)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := NewMemoryCache(time.Millisecond)

	if err := c.Put(ctx, "u1", "hello", "/", CachedResponse{Response: "hi"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	got, err := c.Get(ctx, "u1", "hello", "/")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Fatalf("expired entry still returned: %+v", got)
	}
}
