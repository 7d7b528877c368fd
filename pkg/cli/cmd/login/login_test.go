/* Copyright 2025 BobbySync Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package login

import (
	"fmt"
	"testing"

	"github.com/bobbysync/bobbysync/pkg/assert"
	"github.com/bobbysync/bobbysync/pkg/cli/config"
	"github.com/bobbysync/bobbysync/pkg/cli/context"
	"github.com/bobbysync/bobbysync/pkg/server/app"
	"github.com/bobbysync/bobbysync/pkg/server/controllers"
)

func TestGetServerDisplayURL(t *testing.T) {
	testCases := []struct {
		apiEndpoint string
		expected    string
	}{
		{
			apiEndpoint: "https://sync.mydomain.com/v1",
			expected:    "https://sync.mydomain.com",
		},
		{
			apiEndpoint: "http://127.0.0.1:8080/v1",
			expected:    "http://127.0.0.1:8080",
		},
		{
			apiEndpoint: "some-string",
			expected:    "",
		},
		{
			apiEndpoint: "",
			expected:    "",
		},
		{
			apiEndpoint: "https://",
			expected:    "",
		},
		{
			apiEndpoint: "https://abc",
			expected:    "https://abc",
		},
	}

	for _, tc := range testCases {
		t.Run(fmt.Sprintf("for input %s", tc.apiEndpoint), func(t *testing.T) {
			got := getServerDisplayURL(context.BobbyCtx{APIEndpoint: tc.apiEndpoint})
			assert.Equal(t, got, tc.expected, "result mismatch")
		})
	}
}

func TestDo(t *testing.T) {
	a, _ := app.NewTest()
	a.AuthToken = "secret"
	server := controllers.MustNewServer(t, &a)
	defer server.Close()

	ctx := context.InitTestCtx(t)
	ctx.APIEndpoint = server.URL + "/v1"
	ctx.HTTPClient = server.Client()
	if err := config.Write(ctx, config.Default("")); err != nil {
		t.Fatal(err)
	}

	t.Run("rejected", func(t *testing.T) {
		err := Do(ctx, "wrong")

		assert.NotEqual(t, err, nil, "expected an error")
		cf, err := config.Read(ctx)
		if err != nil {
			t.Fatal(err)
		}
		assert.Equal(t, cf.AuthToken, "", "token should not be saved")
	})

	t.Run("accepted", func(t *testing.T) {
		if err := Do(ctx, "secret"); err != nil {
			t.Fatal(err)
		}

		cf, err := config.Read(ctx)
		if err != nil {
			t.Fatal(err)
		}
		assert.Equal(t, cf.AuthToken, "secret", "token mismatch")
		assert.Equal(t, cf.APIEndpoint, ctx.APIEndpoint, "endpoint mismatch")
	})
}
