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

package registrar

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	"github.com/solacrm/registrar/internal/apierror"
	redlock "github.com/solacrm/registrar/internal/lock"
	"github.com/solacrm/registrar/internal/notification"
	"github.com/solacrm/registrar/model"
	"github.com/solacrm/registrar/providers"
)

// providerOutcome carries the result of one provider call back over the
// fan-out join channel.
type providerOutcome struct {
	provider string
	result   *providers.Result
	err      error
}

// RecordRegistration validates intake by persisting the contact first, then
// reconciles the record against all configured providers and persists the
// outcome as a single update. A duplicate email aborts before any provider
// is contacted, leaving no partial record behind.
func (r *Registrar) RecordRegistration(ctx context.Context, contact model.Contact) (*model.Registration, error) {
	ctx, span := otel.Tracer("registrar.registrations").Start(ctx, "RecordRegistration")
	defer span.End()

	registration := &model.Registration{
		Contact:         contact,
		ProviderResults: map[string]model.ProviderResult{},
		ErrorLog:        []model.ErrorLogEntry{},
		Status:          model.StatusPending,
	}

	registration, err := r.datasource.CreateRegistration(ctx, registration)
	if err != nil {
		return nil, err
	}

	r.reconcile(ctx, registration, 0, false)

	if err := r.datasource.UpdateRegistrationOutcome(ctx, registration); err != nil {
		logrus.Errorf("ERROR saving registration outcome to db. %s", err)
		return nil, err
	}

	r.cacheRegistration(ctx, registration)
	r.postRegistrationActions(ctx, registration)
	return registration, nil
}

// RetryRegistration re-runs reconciliation for the providers that have not
// yet succeeded. Successful providers are never re-contacted. A record that
// already succeeded everywhere is returned unchanged without consuming a
// retry. Retries are capped at model.MaxRetries.
func (r *Registrar) RetryRegistration(ctx context.Context, id string) (*model.Registration, error) {
	ctx, span := otel.Tracer("registrar.registrations").Start(ctx, "RetryRegistration")
	defer span.End()

	locker, err := r.acquireLock(ctx, id)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrConflict, "A retry for this registration is already in progress", err)
	}
	defer func(locker *redlock.Locker, ctx context.Context) {
		if err := locker.Unlock(ctx); err != nil {
			logrus.Error(err)
		}
	}(locker, ctx)

	registration, err := r.datasource.GetRegistrationByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !model.Retryable(registration.Status) {
		return registration, nil
	}

	if registration.RetryCount >= model.MaxRetries {
		return nil, apierror.NewAPIError(apierror.ErrMaxRetries, "Maximum retry attempts reached for this registration",
			map[string]interface{}{"retry_count": registration.RetryCount})
	}

	expectedRetryCount := registration.RetryCount
	registration.RetryCount++

	r.reconcile(ctx, registration, registration.RetryCount, true)

	// provider calls may have consumed most of the lock ttl; push it out so
	// the conditional update below still runs under the lock
	if err := locker.ExtendLock(ctx, time.Minute); err != nil {
		logrus.Warn(err)
	}

	if err := r.datasource.UpdateRetryOutcome(ctx, registration, expectedRetryCount); err != nil {
		logrus.Errorf("ERROR saving retry outcome to db. %s", err)
		return nil, err
	}

	r.cacheRegistration(ctx, registration)
	r.postRetryActions(ctx, registration)
	return registration, nil
}

// GetRegistration retrieves a registration by id, serving from cache when
// a fresh copy is available.
func (r *Registrar) GetRegistration(ctx context.Context, id string) (*model.Registration, error) {
	var registration model.Registration
	if err := r.cache.Get(ctx, registrationCacheKey(id), &registration); err == nil && registration.RegistrationID != "" {
		return &registration, nil
	}

	fetched, err := r.datasource.GetRegistrationByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.cacheRegistration(ctx, fetched)
	return fetched, nil
}

// GetRegistrationByEmail retrieves a registration by contact email.
func (r *Registrar) GetRegistrationByEmail(ctx context.Context, email string) (*model.Registration, error) {
	return r.datasource.GetRegistrationByEmail(ctx, email)
}

// GetAllRegistrations retrieves registrations in a paginated manner.
func (r *Registrar) GetAllRegistrations(ctx context.Context, limit, offset int) ([]model.Registration, error) {
	return r.datasource.GetAllRegistrations(ctx, limit, offset)
}

// reconcile fans out one registration call per pending provider, joins the
// results and folds them into the record. Providers already marked
// registered are skipped. Failures are appended to the error log tagged
// with the retry attempt; the aggregate status is recomputed at the end.
func (r *Registrar) reconcile(ctx context.Context, registration *model.Registration, retryAttempt int, isRetry bool) {
	configured := providers.Names(r.adapters)
	pending := registration.PendingProviders(configured)
	if registration.ProviderResults == nil {
		registration.ProviderResults = map[string]model.ProviderResult{}
	}

	outcomes := make(chan providerOutcome, len(pending))
	var wg sync.WaitGroup

	for _, adapter := range r.adapters {
		if registration.Registered(adapter.Name()) {
			continue
		}
		wg.Add(1)
		go func(adapter providers.Adapter) {
			defer wg.Done()
			result, err := adapter.Register(ctx, registration.Contact)
			outcomes <- providerOutcome{provider: adapter.Name(), result: result, err: err}
		}(adapter)
	}

	wg.Wait()
	close(outcomes)

	for outcome := range outcomes {
		if outcome.err != nil {
			logrus.Warnf("provider %s registration failed for %s: %v", outcome.provider, registration.RegistrationID, outcome.err)
			registration.AppendError(outcome.provider, outcome.err.Error(), retryAttempt)
			continue
		}
		registeredAt := outcome.result.RegisteredAt
		registration.ProviderResults[outcome.provider] = model.ProviderResult{
			Registered:   true,
			ExternalID:   outcome.result.ExternalID,
			JoinURL:      outcome.result.JoinURL,
			RegisteredAt: &registeredAt,
		}
	}

	registration.Status = model.ComputeStatus(registration.ProviderResults, configured, isRetry)
}

func (r *Registrar) acquireLock(ctx context.Context, registrationID string) (*redlock.Locker, error) {
	locker := redlock.NewLocker(r.redis, "retry:"+registrationID, model.GenerateUUIDWithSuffix("loc"))
	err := locker.Lock(ctx, time.Minute)
	if err != nil {
		return nil, err
	}
	return locker, nil
}

func (r *Registrar) cacheRegistration(ctx context.Context, registration *model.Registration) {
	if err := r.cache.Set(ctx, registrationCacheKey(registration.RegistrationID), registration, 5*time.Minute); err != nil {
		logrus.Error(err)
	}
}

func registrationCacheKey(id string) string {
	return "registration:" + id
}

func (r *Registrar) postRegistrationActions(_ context.Context, registration *model.Registration) {
	go func() {
		err := r.SendWebhook(NewWebhook{
			Event:   getEventFromStatus(registration.Status),
			Payload: registration,
		})
		if err != nil {
			notification.NotifyError(err)
		}
	}()
}

func (r *Registrar) postRetryActions(_ context.Context, registration *model.Registration) {
	go func() {
		err := r.SendWebhook(NewWebhook{
			Event:   "registration.retried",
			Payload: registration,
		})
		if err != nil {
			notification.NotifyError(err)
		}
	}()
}
