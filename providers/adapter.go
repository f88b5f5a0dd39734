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

package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/solacrm/registrar/config"
	"github.com/solacrm/registrar/model"
)

// Provider names as persisted in provider results and error logs.
const (
	Zoom        = "zoom"
	GoToWebinar = "gotowebinar"
	MailerLite  = "mailerlite"
)

// callTimeout bounds a single provider registration call, including any
// token handshake it performs.
const callTimeout = 15 * time.Second

// Result is the provider-specific success payload of a registration call.
type Result struct {
	ExternalID   string
	JoinURL      string
	RegisteredAt time.Time
}

// Error is returned by an adapter when a registration attempt fails. It
// carries the provider name and an opaque upstream error string. Adapters
// never retry internally; retry policy belongs to the caller.
type Error struct {
	Provider string
	Message  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// NewError builds a provider error for the given provider.
func NewError(provider, format string, args ...interface{}) *Error {
	return &Error{Provider: provider, Message: fmt.Sprintf(format, args...)}
}

// Adapter registers a contact with one external provider. Each adapter is
// independent: a failure in one must never block or be reported by another.
type Adapter interface {
	Name() string
	Register(ctx context.Context, contact model.Contact) (*Result, error)
}

// ConfiguredAdapters returns the full adapter set in a stable order. A
// provider with incomplete credentials still gets an adapter; its Register
// fails fast with a configuration error so the failure is recorded like any
// other provider error instead of crashing the workflow.
func ConfiguredAdapters(conf *config.Configuration) []Adapter {
	return []Adapter{
		NewZoomAdapter(conf.Providers.Zoom),
		NewGoToWebinarAdapter(conf.Providers.GoToWebinar),
		NewMailerLiteAdapter(conf.Providers.MailerLite),
	}
}

// AllNames returns every provider name the service integrates with, in the
// same order ConfiguredAdapters builds them.
func AllNames() []string {
	return []string{Zoom, GoToWebinar, MailerLite}
}

// Names returns the provider names for a set of adapters.
func Names(adapters []Adapter) []string {
	names := make([]string, 0, len(adapters))
	for _, a := range adapters {
		names = append(names, a.Name())
	}
	return names
}
