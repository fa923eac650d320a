package redact

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

// Level controls how much user content reaches the logs.
type Level string

const (
	// LevelNone drops the content entirely.
	LevelNone Level = "none"
	// LevelHashed keeps the text but hashes emails, addresses and tokens.
	LevelHashed Level = "hashed"
	// LevelFull logs the content untouched.
	LevelFull Level = "full"
)

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	ipv4Pattern  = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)
	jwtPattern   = regexp.MustCompile(`\beyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]*`)
	bearerToken  = regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9._~+/=-]+`)
)

// Redactor scrubs chat utterances and replies before they are logged.
// Part numbers are left alone so lookups stay traceable.
type Redactor struct {
	level Level
	salt  string
}

// ParseLevel maps a configuration value to a Level, defaulting to hashed.
func ParseLevel(raw string) Level {
	switch Level(strings.ToLower(strings.TrimSpace(raw))) {
	case LevelNone:
		return LevelNone
	case LevelFull:
		return LevelFull
	default:
		return LevelHashed
	}
}

func New(level Level, salt string) *Redactor {
	return &Redactor{level: level, salt: salt}
}

// Text applies the configured level to free text.
func (r *Redactor) Text(input string) string {
	if r == nil {
		return input
	}
	switch r.level {
	case LevelNone:
		if input == "" {
			return ""
		}
		return "[REDACTED]"
	case LevelFull:
		return input
	default:
		return r.hashSensitive(input)
	}
}

// Identifier hashes a session or user identifier unless full logging is enabled.
func (r *Redactor) Identifier(id string) string {
	if id == "" {
		return ""
	}
	if r == nil || r.level == LevelFull {
		return id
	}
	return r.hash(id)
}

func (r *Redactor) hashSensitive(input string) string {
	result := jwtPattern.ReplaceAllString(input, "[TOKEN:REDACTED]")
	result = bearerToken.ReplaceAllString(result, "Bearer [TOKEN:REDACTED]")
	result = emailPattern.ReplaceAllStringFunc(result, func(match string) string {
		return fmt.Sprintf("[EMAIL:%s]", r.hash(match))
	})
	result = ipv4Pattern.ReplaceAllStringFunc(result, func(match string) string {
		return fmt.Sprintf("[IP:%s]", r.hash(match))
	})
	return result
}

func (r *Redactor) hash(data string) string {
	h := sha256.Sum256([]byte(data + r.salt))
	return hex.EncodeToString(h[:])[:8]
}
