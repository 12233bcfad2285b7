// Package validator holds small composable checks used by the Validate
// methods of configuration and template descriptors.
package validator

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"
)

// All returns the first non-nil error.
func All(errors ...error) error {
	for _, err := range errors {
		if err != nil {
			return err
		}
	}
	return nil
}

type Validatable interface {
	Validate() error
}

func Each[T Validatable](items []T) error {
	for i, item := range items {
		if err := item.Validate(); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
	}
	return nil
}

func Map[T any](items []T, f func(T, string) error, description string) error {
	for i, item := range items {
		if err := f(item, fmt.Sprintf("%s[%d]", description, i)); err != nil {
			return err
		}
	}
	return nil
}

// MapDict applies f to every entry in key order, so the reported error does
// not depend on map iteration.
func MapDict[T any](items map[string]T, f func(string, T) error, description string) error {
	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, key := range keys {
		if err := f(key, items[key]); err != nil {
			return fmt.Errorf("%s: %w", description, err)
		}
	}
	return nil
}

func NotEmpty(field, description string) error {
	if field == "" {
		return fmt.Errorf("%s must not be empty", description)
	}
	return nil
}

func NoDuplicates[T comparable](slice []T, description string) error {
	seen := make(map[T]struct{})
	for _, v := range slice {
		if _, ok := seen[v]; ok {
			return fmt.Errorf("%s contains duplicate value: %v", description, v)
		}
		seen[v] = struct{}{}
	}
	return nil
}

func SliceHasElements[T comparable](slice []T, allowed []T, description string) error {
	for _, v := range slice {
		if err := MatchesAllowed(v, allowed, description); err != nil {
			return err
		}
	}
	return nil
}

func MatchesAllowed[T comparable](field T, allowed []T, description string) error {
	if !slices.Contains(allowed, field) {
		return fmt.Errorf("%s must be one of %v, got %v", description, allowed, field)
	}
	return nil
}

// HasNoDirectives rejects fields that look like template source. Keys and
// names are used verbatim and are never rendered.
func HasNoDirectives(field string, description string) error {
	if strings.Contains(field, "{{") || strings.Contains(field, "}}") {
		return fmt.Errorf("%s must not contain template directives", description)
	}
	return nil
}

// Positive checks that n is greater than the zero value of T.
func Positive[T cmp.Ordered](n T, description string) error {
	var zero T
	if n <= zero {
		return fmt.Errorf("%s must be positive, got %v", description, n)
	}
	return nil
}

// NotBefore checks that end, when set, is not earlier than start.
func NotBefore(start time.Time, end *time.Time, description string) error {
	if end != nil && end.Before(start) {
		return fmt.Errorf("%s: end %s is before start %s", description, end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	return nil
}
