package storage

import "testing"

func TestLogoKey(t *testing.T) {
	got := LogoKey("3f8b2a10-0000-0000-0000-000000000000", ".png")
	want := "branding/3f8b2a10-0000-0000-0000-000000000000/logo.png"
	if got != want {
		t.Fatalf("LogoKey = %q, want %q", got, want)
	}
}

func TestKeyFromURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"object url", "https://acme-branding.s3.eu-west-1.amazonaws.com/branding/abc/logo.png", "branding/abc/logo.png"},
		{"no path", "https://acme-branding.s3.eu-west-1.amazonaws.com", ""},
		{"unparseable", "://not-a-url", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KeyFromURL(tt.url); got != tt.want {
				t.Fatalf("KeyFromURL(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestKeyFromURLRoundTripsLogoKey(t *testing.T) {
	key := LogoKey("tenant-1", ".webp")
	url := "https://bucket.s3.us-east-1.amazonaws.com/" + key
	if got := KeyFromURL(url); got != key {
		t.Fatalf("round trip = %q, want %q", got, key)
	}
}
