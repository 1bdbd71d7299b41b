// SPDX-FileCopyrightText: 2026 The tenantctl contributors
//
// SPDX-License-Identifier: Apache-2.0

package utils_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/hibiken/asynq"

	"github.com/m365ops/tenantctl/pkg/graph/utils"
)

func TestMaybeSkipRetry(t *testing.T) {
	plainError := errors.New("test error")

	testCases := []struct {
		desc          string
		input         error
		isWantedError func(error) bool
	}{
		{
			desc:  "plain error is not skipped",
			input: plainError,
			isWantedError: func(err error) bool {
				return !errors.Is(err, asynq.SkipRetry)
			},
		},
		{
			desc:  "'Not Found' is skipped",
			input: &azcore.ResponseError{StatusCode: http.StatusNotFound},
			isWantedError: func(err error) bool {
				return errors.Is(err, asynq.SkipRetry)
			},
		},
		{
			desc:  "'Bad Request' is skipped",
			input: &azcore.ResponseError{StatusCode: http.StatusBadRequest},
			isWantedError: func(err error) bool {
				return errors.Is(err, asynq.SkipRetry)
			},
		},
		{
			desc:  "'Too Many Requests' is not skipped",
			input: &azcore.ResponseError{StatusCode: http.StatusTooManyRequests},
			isWantedError: func(err error) bool {
				return !errors.Is(err, asynq.SkipRetry)
			},
		},
		{
			desc:  "'Request Timeout' is not skipped",
			input: &azcore.ResponseError{StatusCode: http.StatusRequestTimeout},
			isWantedError: func(err error) bool {
				return !errors.Is(err, asynq.SkipRetry)
			},
		},
		{
			desc:  "'Internal Server Error' is not skipped",
			input: &azcore.ResponseError{StatusCode: http.StatusInternalServerError},
			isWantedError: func(err error) bool {
				return !errors.Is(err, asynq.SkipRetry)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			outError := utils.MaybeSkipRetry(tc.input)
			if !tc.isWantedError(outError) {
				t.Fatalf("error incorrectly wrapped: %v", outError)
			}
		})
	}
}
