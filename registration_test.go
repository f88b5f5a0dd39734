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
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/solacrm/registrar/config"
	"github.com/solacrm/registrar/database/mocks"
	"github.com/solacrm/registrar/internal/apierror"
	"github.com/solacrm/registrar/model"
	"github.com/solacrm/registrar/providers"
)

// fakeAdapter is an in-memory provider adapter that records whether it was
// called and returns a canned outcome.
type fakeAdapter struct {
	name   string
	result *providers.Result
	err    error

	mu     sync.Mutex
	called bool
}

func (f *fakeAdapter) Name() string {
	return f.name
}

func (f *fakeAdapter) Register(_ context.Context, _ model.Contact) (*providers.Result, error) {
	f.mu.Lock()
	f.called = true
	f.mu.Unlock()
	return f.result, f.err
}

func (f *fakeAdapter) wasCalled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.called
}

func succeedingAdapter(name string) *fakeAdapter {
	return &fakeAdapter{name: name, result: &providers.Result{ExternalID: gofakeit.UUID(), JoinURL: "https://example.com/join", RegisteredAt: time.Now()}}
}

func failingAdapter(name string) *fakeAdapter {
	return &fakeAdapter{name: name, err: providers.NewError(name, "upstream returned status 500")}
}

func newTestRegistrar(t *testing.T) (*Registrar, *mocks.MockDataSource, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	config.MockConfig(&config.Configuration{
		Redis: config.RedisConfig{Dns: mr.Addr()},
	})

	mockDS := new(mocks.MockDataSource)
	registrar, err := NewRegistrar(mockDS)
	assert.NoError(t, err)
	return registrar, mockDS, mr
}

func testContact() model.Contact {
	return model.Contact{
		FirstName: gofakeit.FirstName(),
		LastName:  gofakeit.LastName(),
		Email:     gofakeit.Email(),
	}
}

func TestRecordRegistration_AllProvidersSucceed(t *testing.T) {
	registrar, mockDS, _ := newTestRegistrar(t)
	registrar.adapters = []providers.Adapter{
		succeedingAdapter(providers.Zoom),
		succeedingAdapter(providers.GoToWebinar),
		succeedingAdapter(providers.MailerLite),
	}

	contact := testContact()
	created := &model.Registration{
		RegistrationID:  "reg_123",
		Contact:         contact,
		ProviderResults: map[string]model.ProviderResult{},
		ErrorLog:        []model.ErrorLogEntry{},
		Status:          model.StatusPending,
	}

	mockDS.On("CreateRegistration", mock.Anything, mock.Anything).Return(created, nil)
	mockDS.On("UpdateRegistrationOutcome", mock.Anything, created).Return(nil)

	registration, err := registrar.RecordRegistration(context.Background(), contact)
	assert.NoError(t, err)
	assert.Equal(t, model.StatusBothSuccess, registration.Status)
	assert.Len(t, registration.ProviderResults, 3)
	assert.Empty(t, registration.ErrorLog)
	assert.True(t, registration.Registered(providers.Zoom))
	assert.True(t, registration.Registered(providers.GoToWebinar))
	assert.True(t, registration.Registered(providers.MailerLite))

	mockDS.AssertExpectations(t)
}

func TestRecordRegistration_PartialFailure(t *testing.T) {
	registrar, mockDS, _ := newTestRegistrar(t)
	registrar.adapters = []providers.Adapter{
		succeedingAdapter(providers.Zoom),
		failingAdapter(providers.GoToWebinar),
		succeedingAdapter(providers.MailerLite),
	}

	contact := testContact()
	created := &model.Registration{
		RegistrationID:  "reg_123",
		Contact:         contact,
		ProviderResults: map[string]model.ProviderResult{},
		ErrorLog:        []model.ErrorLogEntry{},
		Status:          model.StatusPending,
	}

	mockDS.On("CreateRegistration", mock.Anything, mock.Anything).Return(created, nil)
	mockDS.On("UpdateRegistrationOutcome", mock.Anything, created).Return(nil)

	registration, err := registrar.RecordRegistration(context.Background(), contact)
	assert.NoError(t, err)
	assert.Equal(t, model.StatusPartialFailure, registration.Status)
	assert.True(t, registration.Registered(providers.Zoom))
	assert.False(t, registration.Registered(providers.GoToWebinar))

	assert.Len(t, registration.ErrorLog, 1)
	assert.Equal(t, providers.GoToWebinar, registration.ErrorLog[0].Service)
	assert.Equal(t, 0, registration.ErrorLog[0].RetryAttempt)
}

func TestRecordRegistration_AllProvidersFail(t *testing.T) {
	registrar, mockDS, _ := newTestRegistrar(t)
	registrar.adapters = []providers.Adapter{
		failingAdapter(providers.Zoom),
		failingAdapter(providers.GoToWebinar),
		failingAdapter(providers.MailerLite),
	}

	contact := testContact()
	created := &model.Registration{
		RegistrationID:  "reg_123",
		Contact:         contact,
		ProviderResults: map[string]model.ProviderResult{},
		ErrorLog:        []model.ErrorLogEntry{},
		Status:          model.StatusPending,
	}

	mockDS.On("CreateRegistration", mock.Anything, mock.Anything).Return(created, nil)
	mockDS.On("UpdateRegistrationOutcome", mock.Anything, created).Return(nil)

	registration, err := registrar.RecordRegistration(context.Background(), contact)
	assert.NoError(t, err)
	assert.Equal(t, model.StatusDBOnly, registration.Status)
	assert.Empty(t, registration.ProviderResults)
	assert.Len(t, registration.ErrorLog, 3)
}

func TestRecordRegistration_DuplicateEmail(t *testing.T) {
	registrar, mockDS, _ := newTestRegistrar(t)
	registrar.adapters = []providers.Adapter{succeedingAdapter(providers.Zoom)}

	mockDS.On("CreateRegistration", mock.Anything, mock.Anything).
		Return(nil, apierror.NewAPIError(apierror.ErrDuplicateEmail, "A registration with this email already exists", nil))

	registration, err := registrar.RecordRegistration(context.Background(), testContact())
	assert.Nil(t, registration)
	assert.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	assert.True(t, ok)
	assert.Equal(t, apierror.ErrDuplicateEmail, apiErr.Code)

	// no provider call and no outcome update may happen on duplicate intake
	mockDS.AssertNotCalled(t, "UpdateRegistrationOutcome", mock.Anything, mock.Anything)
	assert.False(t, registrar.adapters[0].(*fakeAdapter).wasCalled())
}

func TestRetryRegistration_OnlyPendingProvidersCalled(t *testing.T) {
	registrar, mockDS, _ := newTestRegistrar(t)
	zoom := succeedingAdapter(providers.Zoom)
	g2w := succeedingAdapter(providers.GoToWebinar)
	mailerlite := succeedingAdapter(providers.MailerLite)
	registrar.adapters = []providers.Adapter{zoom, g2w, mailerlite}

	registeredAt := time.Now()
	stored := &model.Registration{
		RegistrationID: "reg_123",
		Contact:        testContact(),
		ProviderResults: map[string]model.ProviderResult{
			providers.Zoom: {Registered: true, ExternalID: "857460", RegisteredAt: &registeredAt},
		},
		ErrorLog:   []model.ErrorLogEntry{{Service: providers.GoToWebinar, Message: "boom", RetryAttempt: 0}},
		RetryCount: 1,
		Status:     model.StatusPartialFailure,
	}

	mockDS.On("GetRegistrationByID", mock.Anything, "reg_123").Return(stored, nil)
	mockDS.On("UpdateRetryOutcome", mock.Anything, stored, 1).Return(nil)

	registration, err := registrar.RetryRegistration(context.Background(), "reg_123")
	assert.NoError(t, err)
	assert.Equal(t, model.StatusBothSuccess, registration.Status)
	assert.Equal(t, 2, registration.RetryCount)

	assert.False(t, zoom.wasCalled())
	assert.True(t, g2w.wasCalled())
	assert.True(t, mailerlite.wasCalled())

	// the prior error log survives the retry untouched
	assert.Len(t, registration.ErrorLog, 1)
	mockDS.AssertExpectations(t)
}

func TestRetryRegistration_NoOpWhenAlreadyComplete(t *testing.T) {
	registrar, mockDS, _ := newTestRegistrar(t)
	zoom := succeedingAdapter(providers.Zoom)
	registrar.adapters = []providers.Adapter{zoom}

	stored := &model.Registration{
		RegistrationID: "reg_123",
		RetryCount:     1,
		Status:         model.StatusBothSuccess,
	}

	mockDS.On("GetRegistrationByID", mock.Anything, "reg_123").Return(stored, nil)

	registration, err := registrar.RetryRegistration(context.Background(), "reg_123")
	assert.NoError(t, err)
	assert.Equal(t, model.StatusBothSuccess, registration.Status)
	assert.Equal(t, 1, registration.RetryCount)

	assert.False(t, zoom.wasCalled())
	mockDS.AssertNotCalled(t, "UpdateRetryOutcome", mock.Anything, mock.Anything, mock.Anything)
}

func TestRetryRegistration_MaxRetriesExceeded(t *testing.T) {
	registrar, mockDS, _ := newTestRegistrar(t)
	zoom := succeedingAdapter(providers.Zoom)
	registrar.adapters = []providers.Adapter{zoom}

	stored := &model.Registration{
		RegistrationID: "reg_123",
		RetryCount:     model.MaxRetries,
		Status:         model.StatusPartialFailure,
	}

	mockDS.On("GetRegistrationByID", mock.Anything, "reg_123").Return(stored, nil)

	registration, err := registrar.RetryRegistration(context.Background(), "reg_123")
	assert.Nil(t, registration)
	assert.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	assert.True(t, ok)
	assert.Equal(t, apierror.ErrMaxRetries, apiErr.Code)
	assert.Equal(t, map[string]interface{}{"retry_count": model.MaxRetries}, apiErr.Details)

	assert.False(t, zoom.wasCalled())
}

func TestRetryRegistration_NoOpWinsOverMaxRetries(t *testing.T) {
	registrar, mockDS, _ := newTestRegistrar(t)
	zoom := succeedingAdapter(providers.Zoom)
	registrar.adapters = []providers.Adapter{zoom}

	// a record that completed on its last allowed retry stays reachable:
	// completion is reported instead of a retry budget error
	stored := &model.Registration{
		RegistrationID: "reg_123",
		RetryCount:     model.MaxRetries,
		Status:         model.StatusBothSuccess,
	}

	mockDS.On("GetRegistrationByID", mock.Anything, "reg_123").Return(stored, nil)

	registration, err := registrar.RetryRegistration(context.Background(), "reg_123")
	assert.NoError(t, err)
	assert.Equal(t, model.StatusBothSuccess, registration.Status)
	assert.Equal(t, model.MaxRetries, registration.RetryCount)

	assert.False(t, zoom.wasCalled())
	mockDS.AssertNotCalled(t, "UpdateRetryOutcome", mock.Anything, mock.Anything, mock.Anything)
}

func TestRetryRegistration_AllFailMarksFailed(t *testing.T) {
	registrar, mockDS, _ := newTestRegistrar(t)
	registrar.adapters = []providers.Adapter{
		failingAdapter(providers.Zoom),
		failingAdapter(providers.GoToWebinar),
		failingAdapter(providers.MailerLite),
	}

	stored := &model.Registration{
		RegistrationID:  "reg_123",
		Contact:         testContact(),
		ProviderResults: map[string]model.ProviderResult{},
		ErrorLog:        []model.ErrorLogEntry{},
		RetryCount:      0,
		Status:          model.StatusDBOnly,
	}

	mockDS.On("GetRegistrationByID", mock.Anything, "reg_123").Return(stored, nil)
	mockDS.On("UpdateRetryOutcome", mock.Anything, stored, 0).Return(nil)

	registration, err := registrar.RetryRegistration(context.Background(), "reg_123")
	assert.NoError(t, err)
	assert.Equal(t, model.StatusFailed, registration.Status)
	assert.Equal(t, 1, registration.RetryCount)
	assert.Len(t, registration.ErrorLog, 3)
	for _, entry := range registration.ErrorLog {
		assert.Equal(t, 1, entry.RetryAttempt)
	}
}

func TestRetryRegistration_NotFound(t *testing.T) {
	registrar, mockDS, _ := newTestRegistrar(t)
	registrar.adapters = []providers.Adapter{succeedingAdapter(providers.Zoom)}

	mockDS.On("GetRegistrationByID", mock.Anything, "reg_missing").
		Return(nil, apierror.NewAPIError(apierror.ErrNotFound, "Registration not found", nil))

	registration, err := registrar.RetryRegistration(context.Background(), "reg_missing")
	assert.Nil(t, registration)
	assert.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	assert.True(t, ok)
	assert.Equal(t, apierror.ErrNotFound, apiErr.Code)
}

func TestRetryRegistration_ConcurrentRetryBlocked(t *testing.T) {
	registrar, mockDS, mr := newTestRegistrar(t)
	registrar.adapters = []providers.Adapter{succeedingAdapter(providers.Zoom)}

	// another worker already holds the retry lock
	err := mr.Set("retry:reg_123", "someone-else")
	assert.NoError(t, err)

	registration, err := registrar.RetryRegistration(context.Background(), "reg_123")
	assert.Nil(t, registration)
	assert.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	assert.True(t, ok)
	assert.Equal(t, apierror.ErrConflict, apiErr.Code)

	mockDS.AssertNotCalled(t, "GetRegistrationByID", mock.Anything, mock.Anything)
}

func TestGetAllRegistrations(t *testing.T) {
	registrar, mockDS, _ := newTestRegistrar(t)

	expected := []model.Registration{
		{RegistrationID: "reg_1", Status: model.StatusBothSuccess},
		{RegistrationID: "reg_2", Status: model.StatusDBOnly},
	}
	mockDS.On("GetAllRegistrations", mock.Anything, 20, 0).Return(expected, nil)

	registrations, err := registrar.GetAllRegistrations(context.Background(), 20, 0)
	assert.NoError(t, err)
	assert.Equal(t, expected, registrations)
}
