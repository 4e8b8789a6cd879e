package recon

import (
	"strings"
	"unicode"
)

// NormalizeHeader lowercases and strips everything but ASCII letters and
// digits, so "Worker ID", "worker_id" and "WorkerID" compare equal.
func NormalizeHeader(value string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(value) {
		if ('a' <= r && r <= 'z') || ('0' <= r && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeText trims, collapses internal whitespace and lowercases.
// Used for service lines and task descriptions.
func NormalizeText(value string) string {
	return strings.ToLower(strings.Join(strings.Fields(value), " "))
}

// NormalizeName canonicalizes a person name:
//
//	"Doe, Jane"   -> "jane doe"
//	"  O'Neil,  Pat R." -> "pat r o neil"
//
// A comma means "Last, First ..."; everything after the first comma is moved
// to the front. Non-letters become spaces. The result is idempotent.
func NormalizeName(value string) string {
	text := strings.TrimSpace(value)
	if text == "" {
		return ""
	}
	if strings.Contains(text, ",") {
		parts := strings.Split(text, ",")
		last := strings.TrimSpace(parts[0])
		rest := strings.TrimSpace(strings.Join(parts[1:], " "))
		if rest != "" {
			text = rest + " " + last
		}
	}
	mapped := strings.Map(func(r rune) rune {
		if ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, text)
	return strings.ToLower(strings.Join(strings.Fields(mapped), " "))
}

// NormalizeWorkerID keeps digits only and strips leading zeros.
// "0007" -> "7", "0000" -> "0", "abc" -> "".
func NormalizeWorkerID(value string) string {
	var b strings.Builder
	for _, r := range value {
		if '0' <= r && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return ""
	}
	if trimmed := strings.TrimLeft(digits, "0"); trimmed != "" {
		return trimmed
	}
	return "0"
}

// EmployeeKey derives the identity used across assignments, time entries and
// attestation events.
func EmployeeKey(workerIDKey, nameNorm string) string {
	if workerIDKey != "" {
		return "id:" + workerIDKey
	}
	return "name:" + nameNorm
}
