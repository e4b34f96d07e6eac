package domain

import "strings"

// ValidateQuestion trims the question and rejects an empty one.
func ValidateQuestion(q string) (string, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return "", NewValidationError("question", ErrMissingQuestion)
	}
	return q, nil
}

// ValidateDocuments rejects an empty ingestion batch.
func ValidateDocuments(docs []Document) error {
	if len(docs) == 0 {
		return NewValidationError("documents", ErrNoDocuments)
	}
	return nil
}

// ResolveTenant returns the trimmed tenant, or fallback when empty.
func ResolveTenant(tenant, fallback string) string {
	if t := strings.TrimSpace(tenant); t != "" {
		return t
	}
	return strings.TrimSpace(fallback)
}
