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
	"database/sql"
	"encoding/json"
	"time"

	"github.com/lib/pq"

	"github.com/solacrm/registrar/internal/apierror"
	"github.com/solacrm/registrar/model"
)

// CreateRegistration persists a new registration record. A duplicate email
// is rejected with ErrDuplicateEmail and leaves no partial record behind.
func (d Datasource) CreateRegistration(ctx context.Context, registration *model.Registration) (*model.Registration, error) {
	providerResultsJSON, err := json.Marshal(registration.ProviderResults)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal provider results", err)
	}
	errorLogJSON, err := json.Marshal(registration.ErrorLog)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal error log", err)
	}
	metaDataJSON, err := json.Marshal(registration.MetaData)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal metadata", err)
	}

	registration.RegistrationID = model.GenerateUUIDWithSuffix("reg")
	registration.RegisteredAt = time.Now()

	_, err = d.Conn.ExecContext(ctx, `
		INSERT INTO registrations (registration_id, first_name, last_name, email, phone, company, role, source, provider_results, error_log, retry_count, registration_status, registered_at, meta_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, registration.RegistrationID, registration.Contact.FirstName, registration.Contact.LastName,
		registration.Contact.Email, registration.Contact.Phone, registration.Contact.Company,
		registration.Contact.Role, registration.Contact.Source, providerResultsJSON, errorLogJSON,
		registration.RetryCount, registration.Status, registration.RegisteredAt, metaDataJSON)

	if err != nil {
		pqErr, ok := err.(*pq.Error)
		if ok {
			switch pqErr.Code.Name() {
			case "unique_violation":
				return nil, apierror.NewAPIError(apierror.ErrDuplicateEmail, "A registration with this email already exists", err)
			default:
				return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Database error occurred", err)
			}
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create registration", err)
	}

	return registration, nil
}

// GetRegistrationByID retrieves a registration by its registration id.
func (d Datasource) GetRegistrationByID(ctx context.Context, id string) (*model.Registration, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT registration_id, first_name, last_name, email, phone, company, role, source, provider_results, error_log, retry_count, registration_status, registered_at, meta_data
		FROM registrations
		WHERE registration_id = $1
	`, id)

	registration, err := scanRegistration(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, "Registration not found", err)
		}
		return nil, err
	}
	return registration, nil
}

// GetRegistrationByEmail retrieves a registration by contact email.
func (d Datasource) GetRegistrationByEmail(ctx context.Context, email string) (*model.Registration, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT registration_id, first_name, last_name, email, phone, company, role, source, provider_results, error_log, retry_count, registration_status, registered_at, meta_data
		FROM registrations
		WHERE email = $1
	`, email)

	registration, err := scanRegistration(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, "Registration not found", err)
		}
		return nil, err
	}
	return registration, nil
}

// GetAllRegistrations retrieves registrations newest first.
func (d Datasource) GetAllRegistrations(ctx context.Context, limit, offset int) ([]model.Registration, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT registration_id, first_name, last_name, email, phone, company, role, source, provider_results, error_log, retry_count, registration_status, registered_at, meta_data
		FROM registrations
		ORDER BY registered_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve registrations", err)
	}
	defer rows.Close()

	registrations := []model.Registration{}
	for rows.Next() {
		registration, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		registrations = append(registrations, *registration)
	}

	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over registrations", err)
	}

	return registrations, nil
}

// UpdateRegistrationOutcome persists the outcome of an initial
// reconciliation as a single update: provider results, error log and status
// land together.
func (d Datasource) UpdateRegistrationOutcome(ctx context.Context, registration *model.Registration) error {
	providerResultsJSON, err := json.Marshal(registration.ProviderResults)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal provider results", err)
	}
	errorLogJSON, err := json.Marshal(registration.ErrorLog)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal error log", err)
	}

	result, err := d.Conn.ExecContext(ctx, `
		UPDATE registrations
		SET provider_results = $2, error_log = $3, registration_status = $4
		WHERE registration_id = $1
	`, registration.RegistrationID, providerResultsJSON, errorLogJSON, registration.Status)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update registration", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to check update result", err)
	}
	if rowsAffected == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, "Registration not found", nil)
	}
	return nil
}

// UpdateRetryOutcome persists the outcome of a retry pass. The update is
// guarded by the retry count read at the start of the retry; a concurrent
// retry that commits first makes this one fail with a conflict instead of
// silently clobbering its results.
func (d Datasource) UpdateRetryOutcome(ctx context.Context, registration *model.Registration, expectedRetryCount int) error {
	providerResultsJSON, err := json.Marshal(registration.ProviderResults)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal provider results", err)
	}
	errorLogJSON, err := json.Marshal(registration.ErrorLog)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal error log", err)
	}

	result, err := d.Conn.ExecContext(ctx, `
		UPDATE registrations
		SET provider_results = $2, error_log = $3, registration_status = $4, retry_count = $5
		WHERE registration_id = $1 AND retry_count = $6
	`, registration.RegistrationID, providerResultsJSON, errorLogJSON, registration.Status,
		registration.RetryCount, expectedRetryCount)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update registration", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to check update result", err)
	}
	if rowsAffected == 0 {
		return apierror.NewAPIError(apierror.ErrConflict, "Registration was modified by a concurrent retry", nil)
	}
	return nil
}

// rowScanner lets scanRegistration work for both QueryRow and Query rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRegistration(row rowScanner) (*model.Registration, error) {
	registration := model.Registration{}
	var providerResultsJSON, errorLogJSON []byte
	var metaDataJSON sql.NullString

	err := row.Scan(&registration.RegistrationID, &registration.Contact.FirstName,
		&registration.Contact.LastName, &registration.Contact.Email, &registration.Contact.Phone,
		&registration.Contact.Company, &registration.Contact.Role, &registration.Contact.Source,
		&providerResultsJSON, &errorLogJSON, &registration.RetryCount, &registration.Status,
		&registration.RegisteredAt, &metaDataJSON)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan registration data", err)
	}

	if err := json.Unmarshal(providerResultsJSON, &registration.ProviderResults); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to unmarshal provider results", err)
	}
	if err := json.Unmarshal(errorLogJSON, &registration.ErrorLog); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to unmarshal error log", err)
	}
	if metaDataJSON.Valid && metaDataJSON.String != "" {
		if err := json.Unmarshal([]byte(metaDataJSON.String), &registration.MetaData); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to unmarshal metadata", err)
		}
	}

	return &registration, nil
}
