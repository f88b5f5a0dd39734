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
	"net/http"
	"time"

	"github.com/solacrm/registrar/config"
	"github.com/solacrm/registrar/internal/request"
	"github.com/solacrm/registrar/model"
)

const mailerLiteSubscribersURL = "https://connect.mailerlite.com/api/subscribers"

// MailerLiteAdapter subscribes contacts to the configured MailerLite group.
// MailerLite has no join URL; a successful call only yields a subscriber id.
type MailerLiteAdapter struct {
	conf config.MailerLiteConfig
}

func NewMailerLiteAdapter(conf config.MailerLiteConfig) *MailerLiteAdapter {
	return &MailerLiteAdapter{conf: conf}
}

func (m *MailerLiteAdapter) Name() string {
	return MailerLite
}

type mailerLiteSubscriberResponse struct {
	Data struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"data"`
}

// Register upserts the contact as a subscriber in the configured group.
// MailerLite returns 200 for an updated subscriber and 201 for a new one;
// both count as registered.
func (m *MailerLiteAdapter) Register(ctx context.Context, contact model.Contact) (*Result, error) {
	if !m.conf.Configured() {
		return nil, NewError(MailerLite, "missing credentials: api key and group id are required")
	}

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	payload, err := request.ToJsonReq(map[string]interface{}{
		"email": contact.Email,
		"fields": map[string]string{
			"name":      contact.FirstName,
			"last_name": contact.LastName,
			"company":   contact.Company,
			"phone":     contact.Phone,
		},
		"groups": []string{m.conf.GroupID},
	})
	if err != nil {
		return nil, NewError(MailerLite, "encoding subscriber payload: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, mailerLiteSubscribersURL, payload)
	if err != nil {
		return nil, NewError(MailerLite, "building subscriber request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.conf.APIKey)

	var subscriber mailerLiteSubscriberResponse
	resp, err := request.Call(req, &subscriber)
	if err != nil {
		return nil, NewError(MailerLite, "subscriber request failed: %v", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, NewError(MailerLite, "subscriber request returned status %d", resp.StatusCode)
	}

	return &Result{
		ExternalID:   subscriber.Data.ID,
		RegisteredAt: time.Now(),
	}, nil
}
