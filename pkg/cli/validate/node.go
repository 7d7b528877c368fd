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

// Package validate checks user input for tree nodes
package validate

import (
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrTitleMultiline is an error for a title that has linebreaks
	ErrTitleMultiline = errors.New("The title contains multiple lines")
	// ErrTitleEmpty is an error for a folder without a title
	ErrTitleEmpty = errors.New("The title is empty")
	// ErrURLInvalid is an error for a bookmark address that is not an absolute URL
	ErrURLInvalid = errors.New("The URL must be absolute, e.g. https://example.com")
)

// Title validates a node title
func Title(title string) error {
	if strings.ContainsAny(title, "\r\n") {
		return ErrTitleMultiline
	}

	return nil
}

// FolderTitle validates the title of a folder, which cannot be blank
func FolderTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return ErrTitleEmpty
	}

	return Title(title)
}

// URL validates the address of a bookmark
func URL(s string) error {
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" {
		return ErrURLInvalid
	}
	if u.Host == "" && u.Opaque == "" {
		return ErrURLInvalid
	}

	return nil
}
