/*
Copyright 2026 Numtide.

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

// Package names validates and generates service names accepted by the
// control plane.
//
// Strategy:
//  1. A caller-supplied name that already satisfies ServiceConstraints is used
//     verbatim, so that operators can find the service under the name they chose.
//  2. Any other name (too long, invalid characters, bad first character) is
//     rewritten by JoinWithConstraints, which appends a hash of the original
//     input. Truncation therefore never makes two different inputs collide.
package names

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"

	"github.com/numtide/cloudrun-deployer/pkg/deployerr"
)

const (
	// hashBytes is the number of bytes included in the result of Hash().
	// This must never be changed since it would rename existing services.
	hashBytes = 4

	// hashLength is the number of characters in the hex-encoded string returned from Hash().
	hashLength = 2 * hashBytes

	// truncationMark is a special separator used when appending the hash to a
	// truncated name to indicate that truncation occurred.
	truncationMark = "---"

	// minTruncatedLength is the shortest possible length of a name that had to
	// be truncated: one character, the truncationMark, and the hash.
	minTruncatedLength = 1 + len(truncationMark) + hashLength
)

// Constraints specifies rules that the output of JoinWithConstraints must follow.
type Constraints struct {
	// MaxLength is the maximum length of the output, including the hash
	// suffix. If a name has to be truncated, the hash at the end will be
	// preceded by "---" rather than the usual "-".
	//
	// MaxLength must be at least 12. Passing a smaller value panics.
	MaxLength int
	// ValidFirstChar is a function that returns whether the given rune is
	// allowed as the first character in the output.
	ValidFirstChar func(r rune) bool
}

// ServiceConstraints are the name constraints for serverless services: at most
// 49 characters, starting with a lowercase letter.
var ServiceConstraints = Constraints{
	MaxLength:      49,
	ValidFirstChar: isLowercaseLetter,
}

// ServiceName returns the name under which a service called name is created.
// Names that already satisfy ServiceConstraints are returned unchanged.
func ServiceName(name string) (string, error) {
	if name == "" {
		return "", deployerr.Configf("serviceName", "must not be empty")
	}
	if IsValid(ServiceConstraints, name) {
		return name, nil
	}
	return JoinWithConstraints(ServiceConstraints, name), nil
}

// Generate builds a service name from parts, for example a resource prefix,
// the role and a run suffix. Empty parts are skipped.
func Generate(parts ...string) string {
	nonEmpty := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return JoinWithConstraints(ServiceConstraints, nonEmpty...)
}

// IsValid reports whether name can be used as-is under cons.
func IsValid(cons Constraints, name string) bool {
	if name == "" || len(name) > cons.MaxLength {
		return false
	}
	if !cons.ValidFirstChar(rune(name[0])) {
		return false
	}
	if strings.HasSuffix(name, "-") {
		return false
	}
	for _, r := range name {
		if !isLowercaseAlphanumeric(r) && r != '-' {
			return false
		}
	}
	return true
}

// Hash computes a hash suffix for the given name parts.
func Hash(parts []string) string {
	h := md5.New()
	for _, part := range parts {
		h.Write([]byte(part))
		// The separator must differ from '-' so that moving a substring
		// across part boundaries changes the hash.
		h.Write([]byte{0})
	}
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:hashBytes])
}

// JoinWithConstraints builds a name by concatenating parts with '-' as the
// separator, and then enforcing cons on the result while keeping it unique
// and deterministic with respect to the input values.
//
// The hash at the end depends only on the parts supplied, in order. Calling
// the function again with the same parts yields the same name, which makes it
// safe to use for idempotent creates.
//
// For example: JoinWithConstraints(cons, "a-b", "c") != JoinWithConstraints(cons, "a", "b-c")
// Although both will begin with "a-b-c-", the hash at the end will be different.
func JoinWithConstraints(cons Constraints, parts ...string) string {
	if cons.MaxLength < minTruncatedLength {
		panic(
			fmt.Sprintf(
				"MaxLength of %v is invalid; must be at least %v",
				cons.MaxLength,
				minTruncatedLength,
			),
		)
	}

	if len(parts) == 0 {
		return ""
	}

	// Hash the original input so that transformation and truncation below
	// cannot make distinct inputs collide.
	hash := Hash(parts)

	newParts := make([]string, 0, len(parts))
	transform := func(r rune) rune {
		if isLowercaseAlphanumeric(r) || r == '-' {
			return r
		}
		if isUppercaseLetter(r) {
			return unicode.ToLower(r)
		}
		return '-'
	}
	for _, part := range parts {
		newParts = append(newParts, strings.Map(transform, part))
	}

	// newParts is ASCII from here on.

	firstPart := newParts[0]
	if len(firstPart) == 0 || !cons.ValidFirstChar(rune(firstPart[0])) {
		newParts[0] = "x" + firstPart
	}

	partialResult := strings.Join(newParts, "-")
	predictedLength := len(partialResult) + 1 + len(hash)
	if predictedLength <= cons.MaxLength {
		return partialResult + "-" + hash
	}

	// Cut enough to fit MaxLength, plus two more characters for the
	// triple-separator truncation mark.
	cutLength := predictedLength - cons.MaxLength + 2
	partialResult = partialResult[:len(partialResult)-cutLength]
	return partialResult + truncationMark + hash
}

func isLowercaseLetter(r rune) bool {
	return r >= 'a' && r <= 'z'
}

func isUppercaseLetter(r rune) bool {
	return r >= 'A' && r <= 'Z'
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isLowercaseAlphanumeric(r rune) bool {
	return isLowercaseLetter(r) || isDigit(r)
}
