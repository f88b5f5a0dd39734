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
	"strings"
	"time"

	"github.com/solacrm/registrar/config"
	"github.com/solacrm/registrar/internal/request"
	"github.com/solacrm/registrar/model"
)

const (
	g2wTokenURL = "https://authentication.logmeininc.com/oauth/token"
	g2wAPIBase  = "https://api.getgo.com/G2W/rest/v2"
)

// GoToWebinarAdapter registers contacts as webinar registrants through the
// GoToWebinar REST API.
type GoToWebinarAdapter struct {
	conf config.GoToWebinarConfig
}

func NewGoToWebinarAdapter(conf config.GoToWebinarConfig) *GoToWebinarAdapter {
	return &GoToWebinarAdapter{conf: conf}
}

func (g *GoToWebinarAdapter) Name() string {
	return GoToWebinar
}

type g2wTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type g2wRegistrantResponse struct {
	RegistrantKey interface{} `json:"registrantKey"`
	JoinURL       string      `json:"joinUrl"`
	Status        string      `json:"status"`
}

// Register obtains a client-credentials token and creates a registrant for
// the configured organizer and webinar. One attempt only.
func (g *GoToWebinarAdapter) Register(ctx context.Context, contact model.Contact) (*Result, error) {
	if !g.conf.Configured() {
		return nil, NewError(GoToWebinar, "missing credentials: client id/secret, organizer key and webinar key are required")
	}

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	token, err := g.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := request.ToJsonReq(map[string]interface{}{
		"firstName":    contact.FirstName,
		"lastName":     contact.LastName,
		"email":        contact.Email,
		"phone":        contact.Phone,
		"organization": contact.Company,
		"jobTitle":     contact.Role,
		"source":       contact.Source,
	})
	if err != nil {
		return nil, NewError(GoToWebinar, "encoding registrant payload: %v", err)
	}

	endpoint := fmt.Sprintf("%s/organizers/%s/webinars/%s/registrants",
		g2wAPIBase, g.conf.OrganizerKey, g.conf.WebinarKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, payload)
	if err != nil {
		return nil, NewError(GoToWebinar, "building registrant request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	var registrant g2wRegistrantResponse
	resp, err := request.Call(req, &registrant)
	if err != nil {
		return nil, NewError(GoToWebinar, "registrant request failed: %v", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, NewError(GoToWebinar, "registrant request returned status %d", resp.StatusCode)
	}

	return &Result{
		ExternalID:   fmt.Sprintf("%v", registrant.RegistrantKey),
		JoinURL:      registrant.JoinURL,
		RegisteredAt: time.Now(),
	}, nil
}

func (g *GoToWebinarAdapter) accessToken(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g2wTokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", NewError(GoToWebinar, "building token request: %v", err)
	}
	req.Header.Set("Authorization", "Basic "+request.BasicAuth(g.conf.ClientID, g.conf.ClientSecret))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var token g2wTokenResponse
	resp, err := request.Call(req, &token)
	if err != nil {
		return "", NewError(GoToWebinar, "token request failed: %v", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", NewError(GoToWebinar, "token request returned status %d", resp.StatusCode)
	}
	if token.AccessToken == "" {
		return "", NewError(GoToWebinar, "token response missing access_token")
	}

	return token.AccessToken, nil
}
