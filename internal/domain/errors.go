package domain

import "errors"

var (
	// ErrAuth is returned when the catalog credential endpoint is unreachable, rejects the
	// client credentials, or answers with a malformed body
	ErrAuth = errors.New("catalog authentication failed")

	// ErrUpstream is returned when the catalog or recipe API answers with a non-success status
	// or a payload that cannot be decoded
	ErrUpstream = errors.New("upstream API request failed")

	// ErrQuotaExhausted is returned when every recipe API key was rejected for quota reasons
	ErrQuotaExhausted = errors.New("all API keys exhausted")

	// ErrEmptyResult is returned when an upstream answered successfully but with nothing to process
	ErrEmptyResult = errors.New("upstream returned no results")

	// ErrPersistence is returned when the document store rejects a write
	ErrPersistence = errors.New("failed to persist products")

	// ErrConnection is returned when the document store cannot be reached
	ErrConnection = errors.New("document store unreachable")

	// ErrRunInProgress is returned when a scrape run is requested while another is still running
	ErrRunInProgress = errors.New("scrape run already in progress")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrCacheMiss is returned when a credential is not found in the credential store
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheUnavailable is returned when the credential store cannot be reached
	ErrCacheUnavailable = errors.New("cache service unavailable")
)
