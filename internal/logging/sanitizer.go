package logging

import (
	"regexp"
	"sort"
	"strings"
	"sync"
)

// Sanitizer redacts credential material from log messages.
type Sanitizer struct {
	patterns []*regexp.Regexp
	redacted string

	mu       sync.RWMutex
	literals map[string]string
	ordered  []string
}

// NewSanitizer creates a sanitizer with default patterns.
func NewSanitizer() *Sanitizer {
	return &Sanitizer{
		patterns: defaultPatterns(),
		redacted: "[REDACTED]",
	}
}

func defaultPatterns() []*regexp.Regexp {
	patterns := []string{
		// JWT access tokens (Entra ID, managed identity endpoint)
		`eyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}`,
		// Generic Bearer tokens
		`(?i)bearer\s+[a-zA-Z0-9._-]{20,}`,
		// HashiCorp Vault service, batch and recovery tokens
		`hv[sbr]\.[A-Za-z0-9_-]{20,}`,
		// Azure storage / service bus connection string keys
		`(?i)(AccountKey|SharedAccessKey)=[A-Za-z0-9+/=]{20,}`,
		// Azure AD client secrets
		`[A-Za-z0-9_~.-]{3}8Q~[A-Za-z0-9_~.-]{31,34}`,
		// Key Vault / SAS signatures
		`(?i)sig=[A-Za-z0-9%+/=]{20,}`,
		// Generic secrets
		`(?i)(client[_-]?)?secret["'\s:=]+[a-zA-Z0-9_~.-]{20,}`,
		// Generic passwords
		`(?i)password["'\s:=]+[^\s"']{8,}`,
		// Generic tokens
		`(?i)token["'\s:=]+[a-zA-Z0-9_.-]{20,}`,
	}

	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		compiled = append(compiled, regexp.MustCompile(p))
	}
	return compiled
}

// Sanitize redacts sensitive information from a string.
func (s *Sanitizer) Sanitize(input string) string {
	result := input
	s.mu.RLock()
	for _, lit := range s.ordered {
		result = strings.ReplaceAll(result, lit, s.redacted)
	}
	s.mu.RUnlock()
	for _, pattern := range s.patterns {
		result = pattern.ReplaceAllString(result, s.redacted)
	}
	return result
}

// SanitizeMap redacts values in a map.
func (s *Sanitizer) SanitizeMap(m map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{})
	for k, v := range m {
		switch val := v.(type) {
		case string:
			result[k] = s.Sanitize(val)
		case map[string]interface{}:
			result[k] = s.SanitizeMap(val)
		default:
			result[k] = v
		}
	}
	return result
}

// AddPattern adds a custom pattern.
func (s *Sanitizer) AddPattern(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	s.patterns = append(s.patterns, re)
	return nil
}

// SetLiteral redacts every occurrence of value, such as a secret that was
// just fetched, and forgets the value previously registered under key.
// Values shorter than four bytes only clear the key.
func (s *Sanitizer) SetLiteral(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.literals == nil {
		s.literals = make(map[string]string)
	}
	if len(value) < 4 {
		delete(s.literals, key)
	} else {
		s.literals[key] = value
	}

	seen := make(map[string]bool, len(s.literals))
	s.ordered = s.ordered[:0]
	for _, v := range s.literals {
		if !seen[v] {
			seen[v] = true
			s.ordered = append(s.ordered, v)
		}
	}
	// Longest first so a value containing another is redacted whole.
	sort.Slice(s.ordered, func(i, j int) bool { return len(s.ordered[i]) > len(s.ordered[j]) })
}

// SetRedactedPlaceholder sets the placeholder text for redacted content.
func (s *Sanitizer) SetRedactedPlaceholder(placeholder string) {
	s.redacted = placeholder
}
