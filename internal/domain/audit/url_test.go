package audit

import "testing"

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		expected string
	}{
		{"bare host", "shop.example.com", "https://shop.example.com"},
		{"https passthrough", "https://shop.example.com", "https://shop.example.com"},
		{"http passthrough", "http://shop.example.com", "http://shop.example.com"},
		{"surrounding whitespace", "  shop.example.com  ", "https://shop.example.com"},
		{"empty", "", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeURL(tc.in); got != tc.expected {
				t.Errorf("NormalizeURL(%q) = %q, want %q", tc.in, got, tc.expected)
			}
		})
	}
}

func TestNormalizeURLIdempotent(t *testing.T) {
	inputs := []string{"shop.example.com", "https://shop.example.com", "http://shop.example.com/path"}
	for _, in := range inputs {
		once := NormalizeURL(in)
		if twice := NormalizeURL(once); twice != once {
			t.Errorf("NormalizeURL not idempotent for %q: %q != %q", in, twice, once)
		}
	}
}
