/*
Copyright 2024 SolaCRM Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package model

import "time"

// Status constants representing the aggregate outcome of a registration
// across all configured providers.
const (
	StatusPending        = "pending"         // Record created, no provider attempted yet.
	StatusBothSuccess    = "both_success"    // Every configured provider registered successfully.
	StatusPartialFailure = "partial_failure" // At least one provider succeeded, at least one failed.
	StatusDBOnly         = "db_only"         // Initial reconciliation: zero providers succeeded.
	StatusFailed         = "failed"          // Retry reconciliation: zero providers succeeded.
)

// MaxRetries bounds how many times a registration may be retried. Once
// reached, retry calls are rejected without contacting any provider.
const MaxRetries = 3

// Contact holds the intake payload for a webinar registration.
// FirstName, LastName and Email are required; the rest are optional
// marketing attribution fields.
type Contact struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	Company   string `json:"company,omitempty"`
	Role      string `json:"role,omitempty"`
	Source    string `json:"source,omitempty"`
}

// ProviderResult records the outcome of one provider registration attempt.
// A provider once marked Registered is never re-attempted or overwritten.
type ProviderResult struct {
	Registered   bool       `json:"registered"`
	ExternalID   string     `json:"external_id,omitempty"`
	JoinURL      string     `json:"join_url,omitempty"`
	RegisteredAt *time.Time `json:"registered_at,omitempty"`
}

// ErrorLogEntry is one append-only entry in a registration's error log.
// RetryAttempt is 0 for failures during intake and retryCount+1 for
// failures during the Nth retry.
type ErrorLogEntry struct {
	Service      string    `json:"service"`
	Message      string    `json:"message"`
	Timestamp    time.Time `json:"timestamp"`
	RetryAttempt int       `json:"retry_attempt"`
}

// Registration is the persisted record for a single webinar registration.
type Registration struct {
	RegistrationID  string                    `json:"registration_id"`
	Contact         Contact                   `json:"contact"`
	RegisteredAt    time.Time                 `json:"registered_at"`
	ProviderResults map[string]ProviderResult `json:"provider_results"`
	ErrorLog        []ErrorLogEntry           `json:"error_log"`
	RetryCount      int                       `json:"retry_count"`
	Status          string                    `json:"registration_status"`
	MetaData        map[string]interface{}    `json:"meta_data,omitempty"`
}

// Registered reports whether the named provider has already registered
// this contact. Absent entries are treated as not yet attempted.
func (r *Registration) Registered(provider string) bool {
	if r.ProviderResults == nil {
		return false
	}
	return r.ProviderResults[provider].Registered
}

// PendingProviders returns the configured providers that have not yet
// registered successfully, preserving the order of configured.
func (r *Registration) PendingProviders(configured []string) []string {
	var pending []string
	for _, p := range configured {
		if !r.Registered(p) {
			pending = append(pending, p)
		}
	}
	return pending
}

// AppendError appends a provider failure to the error log. The log is
// append-only; entries are never truncated or rewritten.
func (r *Registration) AppendError(service, message string, retryAttempt int) {
	r.ErrorLog = append(r.ErrorLog, ErrorLogEntry{
		Service:      service,
		Message:      message,
		Timestamp:    time.Now(),
		RetryAttempt: retryAttempt,
	})
}

// ComputeStatus derives the aggregate registration status from the current
// provider results. It is a pure function of its inputs: all configured
// providers succeeded -> both_success; some -> partial_failure; none ->
// db_only on the initial pass and failed on retries.
func ComputeStatus(results map[string]ProviderResult, configured []string, isRetry bool) string {
	succeeded := 0
	for _, p := range configured {
		if results[p].Registered {
			succeeded++
		}
	}

	switch {
	case len(configured) > 0 && succeeded == len(configured):
		return StatusBothSuccess
	case succeeded > 0:
		return StatusPartialFailure
	case isRetry:
		return StatusFailed
	default:
		return StatusDBOnly
	}
}

// Retryable reports whether a record in the given status can be retried.
func Retryable(status string) bool {
	switch status {
	case StatusPartialFailure, StatusDBOnly, StatusFailed, StatusPending:
		return true
	default:
		return false
	}
}
