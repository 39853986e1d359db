/*
 * This file is part of VoxStream (https://github.com/voxstream/voxstream).
 * Copyright (C) 2025 VoxStream Labs
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program. If not, see <https://www.gnu.org/licenses/>.
 */

package security

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrInvalidEngineName is returned when an engine name format is invalid
	ErrInvalidEngineName = errors.New("invalid engine name")

	// engineNamePattern validates engine names to only allow safe characters
	engineNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

// SanitizeLogInput removes newline characters to prevent log injection attacks
// This function should be used for all user-controlled data before logging
func SanitizeLogInput(input string) string {
	sanitized := strings.ReplaceAll(input, "\n", "")
	sanitized = strings.ReplaceAll(sanitized, "\r", "")
	return sanitized
}

// ValidateEngineName ensures that a configured engine name contains only safe
// characters and prevents path traversal attacks. Only allows alphanumeric
// ASCII characters, dashes, and underscores.
func ValidateEngineName(name string) error {
	// Check for empty engine name
	if name == "" {
		return ErrInvalidEngineName
	}

	// Check for path separators or parent directory references
	if strings.Contains(name, "/") || strings.Contains(name, "\\") || strings.Contains(name, "..") {
		return ErrInvalidEngineName
	}

	// Validate against allowed character pattern
	if !engineNamePattern.MatchString(name) {
		return ErrInvalidEngineName
	}

	return nil
}
