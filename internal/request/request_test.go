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

package request_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/solacrm/registrar/internal/request"
)

func TestToJsonReq(t *testing.T) {
	body, err := request.ToJsonReq(map[string]string{"email": "ada@example.com"})
	assert.NoError(t, err)
	assert.JSONEq(t, `{"email": "ada@example.com"}`, body.String())

	// channels cannot be serialized
	body, err = request.ToJsonReq(map[string]interface{}{"bad": make(chan int)})
	assert.Error(t, err)
	assert.Nil(t, body)
}

func TestCallDefaultsContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_, _ = w.Write([]byte(`{"status": "ok"}`))
	}))
	defer server.Close()

	req, err := http.NewRequest("POST", server.URL, strings.NewReader(`{}`))
	assert.NoError(t, err)

	var response map[string]string
	resp, err := request.Call(req, &response)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", response["status"])
}

func TestCallKeepsExplicitContentType(t *testing.T) {
	// token endpoints that take form-encoded bodies must not be overridden
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		_, _ = w.Write([]byte(`{"access_token": "tok"}`))
	}))
	defer server.Close()

	req, err := http.NewRequest("POST", server.URL, strings.NewReader("grant_type=client_credentials"))
	assert.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var response map[string]string
	_, err = request.Call(req, &response)
	assert.NoError(t, err)
	assert.Equal(t, "tok", response["access_token"])
}

func TestCallDecodeFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer server.Close()

	req, err := http.NewRequest("GET", server.URL, nil)
	assert.NoError(t, err)

	var response map[string]string
	resp, err := request.Call(req, &response)
	assert.Error(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestBasicAuth(t *testing.T) {
	assert.Equal(t, "dXNlcjpwYXNz", request.BasicAuth("user", "pass"))
}
