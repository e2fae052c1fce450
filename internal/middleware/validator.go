package middleware

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Input validation and sanitization utilities

// ValidatePageType checks the page type against the four audited categories
func ValidatePageType(pageType string) error {
	allowed := map[string]bool{
		"homepage":   true,
		"collection": true,
		"product":    true,
		"cart":       true,
	}

	if !allowed[strings.ToLower(pageType)] {
		return fmt.Errorf("invalid page type: %s (allowed: homepage, collection, product, cart)", pageType)
	}
	return nil
}

// ValidateStoreURL validates and sanitizes store URLs. A bare host without a
// scheme is accepted; the pipeline prefixes https:// before dialing.
func ValidateStoreURL(rawURL string) error {
	if strings.TrimSpace(rawURL) == "" {
		return fmt.Errorf("URL cannot be empty")
	}

	candidate := rawURL
	if !strings.HasPrefix(candidate, "http://") && !strings.HasPrefix(candidate, "https://") {
		candidate = "https://" + candidate
	}

	u, err := url.Parse(candidate)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: %s (allowed: http, https)", u.Scheme)
	}
	if u.Hostname() == "" {
		return fmt.Errorf("URL has no host")
	}

	// Check for localhost/internal IPs (SSRF protection)
	host := strings.ToLower(u.Hostname())
	blocked := []string{"localhost", "127.0.0.1", "0.0.0.0", "[::]", "::1"}
	for _, b := range blocked {
		if strings.Contains(host, b) {
			return fmt.Errorf("localhost/internal IPs are not allowed")
		}
	}

	// Block private IP ranges (basic check)
	if strings.HasPrefix(host, "10.") ||
		strings.HasPrefix(host, "192.168.") ||
		strings.HasPrefix(host, "172.16.") ||
		strings.HasPrefix(host, "172.31.") {
		return fmt.Errorf("private IP ranges are not allowed")
	}

	return nil
}

// ValidateSlug validates report slug format
func ValidateSlug(slug string) error {
	if slug == "" {
		return fmt.Errorf("slug cannot be empty")
	}

	// UUID with page-type or "full" suffix: uuid-homepage, uuid-full, ...
	pattern := `^[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}-[a-z]+$`
	matched, _ := regexp.MatchString(pattern, slug)
	if !matched {
		return fmt.Errorf("invalid slug format")
	}

	return nil
}

// ValidateCategory validates the optional industry/category parameter
func ValidateCategory(category string) error {
	if category == "" {
		return nil // Optional field
	}

	pattern := `^[a-zA-Z0-9 &_-]{1,64}$`
	matched, _ := regexp.MatchString(pattern, category)
	if !matched {
		return fmt.Errorf("invalid category format (alphanumeric, space, dash, underscore only, max 64 chars)")
	}

	return nil
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	// Remove control characters
	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20 // default
	}
	if limit > 100 {
		return 100 // max limit
	}
	return limit
}

// ValidateDays validates days parameter
func ValidateDays(days int) int {
	if days <= 0 {
		return 7 // default
	}
	if days > 365 {
		return 365 // max 1 year
	}
	return days
}
