// Package validator holds small helpers for validating configuration values.
package validator

import (
	"fmt"
	"regexp"
	"slices"

	"github.com/hashicorp/go-multierror"
)

// All returns every non-nil error, combined.
func All(errs ...error) error {
	var result *multierror.Error
	for _, err := range errs {
		if err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// Map applies f to every item, naming each one after description and its
// index, and combines the failures.
func Map[T any](items []T, f func(T, string) error, description string) error {
	errs := make([]error, 0, len(items))
	for i, item := range items {
		errs = append(errs, f(item, fmt.Sprintf("%s[%d]", description, i)))
	}
	return All(errs...)
}

// MapDict applies f to every entry in key order.
func MapDict[T any](items map[string]T, f func(string, T) error) error {
	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	errs := make([]error, 0, len(items))
	for _, k := range keys {
		errs = append(errs, f(k, items[k]))
	}
	return All(errs...)
}

func NotEmpty[T any](slice []T, description string) error {
	if len(slice) == 0 {
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

func MatchesAllowed[T comparable](field T, allowed []T, description string) error {
	if !slices.Contains(allowed, field) {
		return fmt.Errorf("%s must be one of %v, got %v", description, allowed, field)
	}
	return nil
}

// MatchesPattern checks every value against re.
func MatchesPattern(values []string, re *regexp.Regexp, description string) error {
	for _, v := range values {
		if !re.MatchString(v) {
			return fmt.Errorf("%s: %q does not match %s", description, v, re)
		}
	}
	return nil
}

// Regexp checks that pattern compiles.
func Regexp(pattern, description string) error {
	if _, err := regexp.Compile(pattern); err != nil {
		return fmt.Errorf("%s: %w", description, err)
	}
	return nil
}
