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

package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	model2 "github.com/solacrm/registrar/api/model"
	"github.com/solacrm/registrar/internal/apierror"
	"github.com/solacrm/registrar/model"
	"github.com/solacrm/registrar/providers"
)

// RegisterWebinar handles the public registration form. The contact is
// persisted first, then reconciled against every provider; the response is
// 200 when all providers succeeded and 207 when the record was saved but
// one or more providers failed.
//
// Responses:
// - 400 Bad Request: If there's an error in binding JSON or validating the payload.
// - 409 Conflict: If a registration with the same email already exists.
// - 200 OK / 207 Multi-Status: The aggregate outcome with per-provider summaries.
func (a Api) RegisterWebinar(c *gin.Context) {
	var newRegistration model2.RecordRegistration
	if err := c.ShouldBindJSON(&newRegistration); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	err := newRegistration.ValidateRecordRegistration()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	resp, err := a.registrar.RecordRegistration(c.Request.Context(), newRegistration.ToContact())
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusOK
	if resp.Status != model.StatusBothSuccess {
		status = http.StatusMultiStatus
	}
	c.JSON(status, registrationSummary(resp))
}

// RetryWebinarRegistration re-runs reconciliation for the providers that
// have not succeeded yet. A record that already completed everywhere is
// reported back unchanged without consuming a retry.
//
// Responses:
// - 400 Bad Request: If the registration id is missing.
// - 404 Not Found: If no record matches the id.
// - 429 Too Many Requests: If the retry budget is exhausted.
// - 200 OK: The aggregate outcome with per-provider summaries and the retry count.
func (a Api) RetryWebinarRegistration(c *gin.Context) {
	var retry model2.RetryRegistration
	if err := c.ShouldBindJSON(&retry); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	err := retry.ValidateRetryRegistration()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	resp, err := a.registrar.RetryRegistration(c.Request.Context(), retry.RegistrationID)
	if err != nil {
		respondError(c, err)
		return
	}

	summary := registrationSummary(resp)
	summary["retry_count"] = resp.RetryCount
	c.JSON(http.StatusOK, summary)
}

// GetWebinarRegistration returns the full stored record, including the
// provider error log. The route sits behind secret-key auth.
func (a Api) GetWebinarRegistration(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	resp, err := a.registrar.GetRegistration(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetWebinarRegistrationByEmail looks up the record for a contact email.
// Support tooling uses this to answer "did my registration go through".
func (a Api) GetWebinarRegistrationByEmail(c *gin.Context) {
	email, passed := c.Params.Get("email")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email is required. pass email in the route /email/:email"})
		return
	}

	resp, err := a.registrar.GetRegistrationByEmail(c.Request.Context(), email)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetAllWebinarRegistrations lists stored records newest first.
func (a Api) GetAllWebinarRegistrations(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid offset"})
		return
	}

	resp, err := a.registrar.GetAllRegistrations(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// registrationSummary flattens a registration into the public response
// shape: one {registered} entry per provider. Upstream error text stays in
// the stored error log and is never echoed to callers.
func registrationSummary(registration *model.Registration) gin.H {
	resp := gin.H{
		"success":        true,
		"registrationId": registration.RegistrationID,
		"status":         registration.Status,
	}

	var failed []string
	for _, name := range providers.AllNames() {
		resp[name] = gin.H{"registered": registration.Registered(name)}
		if !registration.Registered(name) {
			failed = append(failed, name)
		}
	}
	if len(failed) > 0 {
		resp["errors"] = failed
	}
	return resp
}

func respondError(c *gin.Context, err error) {
	apiErr, ok := err.(apierror.APIError)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	body := gin.H{"error": apiErr.Message, "code": apiErr.Code}
	// structured details, like the retry count on a 429, belong in the body
	if details, ok := apiErr.Details.(map[string]interface{}); ok {
		for key, value := range details {
			body[key] = value
		}
	}
	c.JSON(apierror.MapErrorToHTTPStatus(apiErr), body)
}
