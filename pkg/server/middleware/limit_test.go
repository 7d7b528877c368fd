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

package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/bobbysync/bobbysync/pkg/assert"
	"golang.org/x/time/rate"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func hit(h http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", "/v1/pull", nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	return w
}

func TestLimit(t *testing.T) {
	h := NewRateLimiter().Limit(http.HandlerFunc(okHandler))

	var blocked *httptest.ResponseRecorder
	for i := 0; i < RateLimitBurst+10; i++ {
		if w := hit(h, "192.168.1.1:1234"); w.Code == http.StatusTooManyRequests {
			blocked = w
		}
	}

	if blocked == nil {
		t.Fatal("expected some requests to be rate limited after the burst")
	}
	assert.Equal(t, blocked.Header().Get("Retry-After"), "1", "Retry-After mismatch")
	assert.Equal(t, blocked.Header().Get("Content-Type"), "application/json", "Content-Type mismatch")

	// other visitors are unaffected
	assert.Equal(t, hit(h, "192.168.1.2:5678").Code, http.StatusOK, "status mismatch for a different IP")
}

func TestGetVisitor_concurrent(t *testing.T) {
	rl := &RateLimiter{visitors: make(map[string]*visitor)}

	const workers, calls = 8, 200
	limiters := make([][]*rate.Limiter, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < calls; j++ {
				limiters[i] = append(limiters[i], rl.getVisitor("1.2.3.4"))
			}
		}(i)
	}
	wg.Wait()

	first := limiters[0][0]
	for i, ls := range limiters {
		for j, l := range ls {
			if l != first {
				t.Fatalf("worker %d call %d got a different limiter", i, j)
			}
		}
	}
	assert.Equal(t, len(rl.visitors), 1, "visitor count mismatch")
	assert.Equal(t, rl.visitors["1.2.3.4"].lastSeen.IsZero(), false, "lastSeen should be set")
}

func TestApplyLimit_disabled(t *testing.T) {
	h := ApplyLimit(okHandler, false)

	for i := 0; i < RateLimitBurst+10; i++ {
		assert.Equal(t, hit(h, "10.0.0.1:1").Code, http.StatusOK, fmt.Sprintf("request %d was limited", i))
	}
}

func TestLookupIP(t *testing.T) {
	testCases := []struct {
		headers    map[string]string
		remoteAddr string
		expected   string
	}{
		{
			headers:    map[string]string{"X-Forwarded-For": "1.1.1.1, 2.2.2.2"},
			remoteAddr: "3.3.3.3:1",
			expected:   "1.1.1.1",
		},
		{
			headers:    map[string]string{"X-Real-IP": "4.4.4.4"},
			remoteAddr: "3.3.3.3:1",
			expected:   "4.4.4.4",
		},
		{
			headers:    map[string]string{},
			remoteAddr: "3.3.3.3:1",
			expected:   "3.3.3.3:1",
		},
	}

	for idx, tc := range testCases {
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = tc.remoteAddr
		for k, v := range tc.headers {
			req.Header.Set(k, v)
		}

		assert.Equal(t, lookupIP(req), tc.expected, fmt.Sprintf("result mismatch for test case %d", idx))
	}
}
