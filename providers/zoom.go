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
	"net/http"
	"net/url"
	"time"

	"github.com/solacrm/registrar/config"
	"github.com/solacrm/registrar/internal/request"
	"github.com/solacrm/registrar/model"
)

const (
	zoomTokenURL = "https://zoom.us/oauth/token"
	zoomAPIBase  = "https://api.zoom.us/v2"
)

// ZoomAdapter registers contacts as webinar registrants through the Zoom
// API using server-to-server OAuth.
type ZoomAdapter struct {
	conf config.ZoomConfig
}

func NewZoomAdapter(conf config.ZoomConfig) *ZoomAdapter {
	return &ZoomAdapter{conf: conf}
}

func (z *ZoomAdapter) Name() string {
	return Zoom
}

type zoomTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type zoomRegistrantResponse struct {
	ID      interface{} `json:"id"`
	JoinURL string      `json:"join_url"`
	Topic   string      `json:"topic"`
}

// Register obtains a short-lived access token for the configured account
// and creates a webinar registrant. It performs exactly one registration
// attempt; failures are returned as *Error for the caller to record.
func (z *ZoomAdapter) Register(ctx context.Context, contact model.Contact) (*Result, error) {
	if !z.conf.Configured() {
		return nil, NewError(Zoom, "missing credentials: account id, client id/secret and webinar id are required")
	}

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	token, err := z.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := request.ToJsonReq(map[string]interface{}{
		"first_name": contact.FirstName,
		"last_name":  contact.LastName,
		"email":      contact.Email,
		"phone":      contact.Phone,
		"org":        contact.Company,
		"job_title":  contact.Role,
	})
	if err != nil {
		return nil, NewError(Zoom, "encoding registrant payload: %v", err)
	}

	endpoint := fmt.Sprintf("%s/webinars/%s/registrants", zoomAPIBase, z.conf.WebinarID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, payload)
	if err != nil {
		return nil, NewError(Zoom, "building registrant request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	var registrant zoomRegistrantResponse
	resp, err := request.Call(req, &registrant)
	if err != nil {
		return nil, NewError(Zoom, "registrant request failed: %v", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, NewError(Zoom, "registrant request returned status %d", resp.StatusCode)
	}

	return &Result{
		ExternalID:   fmt.Sprintf("%v", registrant.ID),
		JoinURL:      registrant.JoinURL,
		RegisteredAt: time.Now(),
	}, nil
}

// accessToken exchanges the account credentials for a short-lived
// server-to-server OAuth token.
func (z *ZoomAdapter) accessToken(ctx context.Context) (string, error) {
	params := url.Values{}
	params.Set("grant_type", "account_credentials")
	params.Set("account_id", z.conf.AccountID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, zoomTokenURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", NewError(Zoom, "building token request: %v", err)
	}
	req.Header.Set("Authorization", "Basic "+request.BasicAuth(z.conf.ClientID, z.conf.ClientSecret))

	var token zoomTokenResponse
	resp, err := request.Call(req, &token)
	if err != nil {
		return "", NewError(Zoom, "token request failed: %v", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", NewError(Zoom, "token request returned status %d", resp.StatusCode)
	}
	if token.AccessToken == "" {
		return "", NewError(Zoom, "token response missing access_token")
	}

	return token.AccessToken, nil
}
