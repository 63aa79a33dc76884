package usecase

import (
	"crypto/sha256"
	"encoding/hex"
	netmail "net/mail"
	"sort"
	"strings"
)

var subjectPrefixes = []string{"re:", "fwd:", "fw:"}

// deriveThreadID builds a stable conversation key for providers that do not
// supply one: a hash over the normalized subject and the participant set.
// The same inputs always produce the same key, so re-syncs attach messages
// to the same thread.
func deriveThreadID(subject, sender string, recipients, cc []string) string {
	participants := make([]string, 0, len(recipients)+len(cc)+1)
	if addr := normalizeAddress(sender); addr != "" {
		participants = append(participants, addr)
	}
	for _, r := range recipients {
		if addr := normalizeAddress(r); addr != "" {
			participants = append(participants, addr)
		}
	}
	for _, r := range cc {
		if addr := normalizeAddress(r); addr != "" {
			participants = append(participants, addr)
		}
	}
	sort.Strings(participants)
	participants = dedupe(participants)

	key := normalizeSubject(subject) + "|" + strings.Join(participants, ",")
	sum := sha256.Sum256([]byte(key))
	return "t-" + hex.EncodeToString(sum[:])[:16]
}

// normalizeSubject lowercases and strips reply/forward prefixes, repeatedly,
// so "Re: Fwd: Hello" and "hello" land in the same thread.
func normalizeSubject(subject string) string {
	s := strings.ToLower(strings.TrimSpace(subject))
	for {
		stripped := false
		for _, prefix := range subjectPrefixes {
			if strings.HasPrefix(s, prefix) {
				s = strings.TrimSpace(strings.TrimPrefix(s, prefix))
				stripped = true
			}
		}
		if !stripped {
			break
		}
	}
	return s
}

func normalizeAddress(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if addr, err := netmail.ParseAddress(raw); err == nil {
		return strings.ToLower(addr.Address)
	}
	return strings.ToLower(raw)
}

func dedupe(sorted []string) []string {
	out := sorted[:0]
	for i, v := range sorted {
		if i == 0 || sorted[i-1] != v {
			out = append(out, v)
		}
	}
	return out
}
