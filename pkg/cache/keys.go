package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
)

// fingerprint hashes the canonical JSON encoding of inputs. Go's
// encoding/json marshals struct fields in declaration order, so passing a
// struct (rather than a map) makes the encoding deterministic without any
// extra key-sorting step — the "canonical_json" of spec §4.1.
func fingerprint(inputs any) string {
	b, err := json.Marshal(inputs)
	if err != nil {
		// Inputs are always JSON-marshalable plain data built by this
		// package's callers; a marshal failure means a programming error,
		// not a runtime condition to recover from gracefully.
		panic("cache: fingerprint inputs not marshalable: " + err.Error())
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// lmResponseInputs mirrors spec §4.1's "(system_prompt, user_prompt,
// temperature, model_id)" for the lm_response namespace.
type lmResponseInputs struct {
	SystemPrompt string  `json:"system_prompt"`
	UserPrompt   string  `json:"user_prompt"`
	Temperature  float64 `json:"temperature"`
	ModelID      string  `json:"model_id"`
}

// LMResponseKey derives the lm_response cache key.
func LMResponseKey(systemPrompt, userPrompt string, temperature float64, modelID string) string {
	return fingerprint(lmResponseInputs{
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
		Temperature:  temperature,
		ModelID:      modelID,
	})
}

// answerInputs mirrors spec §4.1's "(normalized_question,
// session_history_digest)" for the answer namespace.
type answerInputs struct {
	NormalizedQuestion  string `json:"normalized_question"`
	SessionHistoryDigest string `json:"session_history_digest"`
}

// AnswerKey derives the answer cache key.
func AnswerKey(normalizedQuestion, sessionHistoryDigest string) string {
	return fingerprint(answerInputs{
		NormalizedQuestion:   normalizedQuestion,
		SessionHistoryDigest: sessionHistoryDigest,
	})
}

// SchemaKey returns the schema cache key: the table name itself, per spec
// §4.1 ("For schema, the key is the table name").
func SchemaKey(tableName string) string {
	return tableName
}

// suggestionInputs mirrors spec §4.1's "(question, formatted_answer_digest)".
type suggestionInputs struct {
	Question              string `json:"question"`
	FormattedAnswerDigest string `json:"formatted_answer_digest"`
}

// SuggestionKey derives the suggestion cache key.
func SuggestionKey(question, formattedAnswerDigest string) string {
	return fingerprint(suggestionInputs{
		Question:              question,
		FormattedAnswerDigest: formattedAnswerDigest,
	})
}

// NormalizeQuestion canonicalizes question text for cache-key purposes:
// trims surrounding whitespace, lower-cases, and collapses internal
// whitespace runs, so that "How many users?" and "  how many users? "
// hit the same answer-cache entry.
func NormalizeQuestion(question string) string {
	fields := strings.Fields(strings.ToLower(question))
	return strings.Join(fields, " ")
}

// Digest hashes an ordered list of strings into a single digest, used both
// for the session_history_digest (hash of the last N Q/A pairs) and for
// formatted_answer_digest.
func Digest(parts ...string) string {
	return fingerprint(parts)
}
