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

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/solacrm/registrar/model"
)

// RecordRegistration is the intake payload of the public registration form.
type RecordRegistration struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Company   string `json:"company"`
	Role      string `json:"role"`
	Source    string `json:"source"`
}

// RetryRegistration is the payload of the retry endpoint.
type RetryRegistration struct {
	RegistrationID string `json:"registrationId"`
}

func (r *RecordRegistration) ValidateRecordRegistration() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.FirstName, validation.Required),
		validation.Field(&r.LastName, validation.Required),
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

func (r *RetryRegistration) ValidateRetryRegistration() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.RegistrationID, validation.Required),
	)
}

func (r *RecordRegistration) ToContact() model.Contact {
	return model.Contact{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
		Phone:     r.Phone,
		Company:   r.Company,
		Role:      r.Role,
		Source:    r.Source,
	}
}
