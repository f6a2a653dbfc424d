// Package reasoner defines the external language-reasoning capability and the
// hardening helpers for consuming its output. The Reasoner is treated as an
// untrusted oracle: every structured response is validated, tolerating
// markdown code fences, surrounding prose and partially usable text, before
// callers fall back to hard-coded defaults.
//
// Provider adapters live in the openai and anthropic subpackages. Mock is a
// scripted in-memory implementation for tests and examples.
package reasoner
