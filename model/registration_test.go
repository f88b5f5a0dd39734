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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

var allProviders = []string{"zoom", "gotowebinar", "mailerlite"}

func TestComputeStatus_AllSucceeded(t *testing.T) {
	results := map[string]ProviderResult{
		"zoom":        {Registered: true},
		"gotowebinar": {Registered: true},
		"mailerlite":  {Registered: true},
	}

	assert.Equal(t, StatusBothSuccess, ComputeStatus(results, allProviders, false))
	assert.Equal(t, StatusBothSuccess, ComputeStatus(results, allProviders, true))
}

func TestComputeStatus_PartialFailure(t *testing.T) {
	results := map[string]ProviderResult{
		"zoom":        {Registered: true},
		"gotowebinar": {Registered: false},
		"mailerlite":  {Registered: true},
	}

	assert.Equal(t, StatusPartialFailure, ComputeStatus(results, allProviders, false))
	assert.Equal(t, StatusPartialFailure, ComputeStatus(results, allProviders, true))
}

func TestComputeStatus_NoneSucceeded(t *testing.T) {
	results := map[string]ProviderResult{
		"zoom":        {Registered: false},
		"gotowebinar": {Registered: false},
		"mailerlite":  {Registered: false},
	}

	assert.Equal(t, StatusDBOnly, ComputeStatus(results, allProviders, false))
	assert.Equal(t, StatusFailed, ComputeStatus(results, allProviders, true))
}

func TestComputeStatus_AbsentEntriesTreatedAsNotAttempted(t *testing.T) {
	results := map[string]ProviderResult{
		"zoom": {Registered: true},
	}

	assert.Equal(t, StatusPartialFailure, ComputeStatus(results, allProviders, false))
}

func TestPendingProviders(t *testing.T) {
	reg := &Registration{
		ProviderResults: map[string]ProviderResult{
			"zoom":       {Registered: true},
			"mailerlite": {Registered: false},
		},
	}

	assert.Equal(t, []string{"gotowebinar", "mailerlite"}, reg.PendingProviders(allProviders))
	assert.True(t, reg.Registered("zoom"))
	assert.False(t, reg.Registered("gotowebinar"))
}

func TestPendingProviders_NilResults(t *testing.T) {
	reg := &Registration{}
	assert.Equal(t, allProviders, reg.PendingProviders(allProviders))
}

func TestAppendError(t *testing.T) {
	reg := &Registration{}
	reg.AppendError("zoom", "token request failed", 0)
	reg.AppendError("zoom", "token request failed", 1)

	assert.Len(t, reg.ErrorLog, 2)
	assert.Equal(t, "zoom", reg.ErrorLog[0].Service)
	assert.Equal(t, 0, reg.ErrorLog[0].RetryAttempt)
	assert.Equal(t, 1, reg.ErrorLog[1].RetryAttempt)
	assert.False(t, reg.ErrorLog[0].Timestamp.IsZero())
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(StatusPartialFailure))
	assert.True(t, Retryable(StatusDBOnly))
	assert.True(t, Retryable(StatusFailed))
	assert.False(t, Retryable(StatusBothSuccess))
}

func TestGenerateUUIDWithSuffix(t *testing.T) {
	id := GenerateUUIDWithSuffix("reg")
	assert.True(t, strings.HasPrefix(id, "reg_"))
	assert.NotEqual(t, id, GenerateUUIDWithSuffix("reg"))
}
