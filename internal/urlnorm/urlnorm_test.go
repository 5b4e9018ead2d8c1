package urlnorm_test

import (
	"testing"

	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/urlnorm"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases host", "http://Example.COM/Path", "http://example.com/Path"},
		{"strips trailing slash", "http://example.com/path/", "http://example.com/path"},
		{"keeps root", "https://example.com/", "https://example.com/"},
		{"adds root for empty path", "https://example.com", "https://example.com/"},
		{"drops fragment", "https://example.com/a#section", "https://example.com/a"},
		{"keeps query", "https://example.com/a/?q=1", "https://example.com/a?q=1"},
		{"drops default https port", "https://example.com:443/x", "https://example.com/x"},
		{"drops default http port", "http://example.com:80/x", "http://example.com/x"},
		{"keeps custom port", "http://localhost:8080/x/", "http://localhost:8080/x"},
		{"lowercases scheme", "HTTPS://example.com/a", "https://example.com/a"},
		{"ipv6 host", "http://[::1]:9000/", "http://[::1]:9000/"},
		{"fallback for relative", "Not A URL/", "not a url"},
		{"fallback for bad escape", "http://exa mple.com/%zz/", "http://exa mple.com/%zz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := urlnorm.Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalize_Deterministic(t *testing.T) {
	inputs := []string{
		"http://Example.com/Path/",
		"https://example.com/path",
		"ftp://files.example.com:21/pub/",
		"garbage input",
	}
	for _, in := range inputs {
		first := urlnorm.Normalize(in)
		for i := 0; i < 5; i++ {
			if got := urlnorm.Normalize(in); got != first {
				t.Fatalf("Normalize(%q) not stable: %q vs %q", in, got, first)
			}
		}
	}
}

func TestNormalize_SchemeDistinguishesKeys(t *testing.T) {
	a := urlnorm.Normalize("http://Example.com/Path/")
	b := urlnorm.Normalize("https://example.com/path")
	if a == b {
		t.Errorf("expected distinct keys, both %q", a)
	}
	if urlnorm.Normalize("http://example.com/path/") != urlnorm.Normalize("http://example.com/path") {
		t.Error("trailing slash variants should collide")
	}
}

func TestIsAllowed(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"https://example.com", true},
		{"obsidian://open?vault=x", true},
		{"file:///tmp/a.html", true},
		{"", false},
		{"   ", false},
		{"javascript:alert(1)", false},
		{"JavaScript:alert(1)", false},
		{"data:text/html;base64,AAAA", false},
		{"java\tscript:alert(1)", false},
	}
	for _, tt := range tests {
		if got := urlnorm.IsAllowed(tt.in); got != tt.want {
			t.Errorf("IsAllowed(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestDomain(t *testing.T) {
	if got := urlnorm.Domain("https://API.GitHub.com:443/x"); got != "api.github.com" {
		t.Errorf("unexpected domain %q", got)
	}
}
