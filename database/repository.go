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

package database

import (
	"context"

	"github.com/solacrm/registrar/model"
)

// IDataSource defines the interface for data source operations, grouping related functionalities.
type IDataSource interface {
	registration // Interface for registration-related operations
}

// registration defines methods for handling webinar registrations.
type registration interface {
	CreateRegistration(ctx context.Context, registration *model.Registration) (*model.Registration, error)               // Persists a new registration record
	GetRegistrationByID(ctx context.Context, id string) (*model.Registration, error)                                     // Retrieves a registration by ID
	GetRegistrationByEmail(ctx context.Context, email string) (*model.Registration, error)                               // Retrieves a registration by email
	GetAllRegistrations(ctx context.Context, limit, offset int) ([]model.Registration, error)                            // Retrieves registrations in a paginated manner
	UpdateRegistrationOutcome(ctx context.Context, registration *model.Registration) error                               // Persists a reconciliation outcome
	UpdateRetryOutcome(ctx context.Context, registration *model.Registration, expectedRetryCount int) error              // Persists a retry outcome guarded by the expected retry count
}
