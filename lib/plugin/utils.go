// Package plugin provides utility functions for the plugin system.
// This file contains helpers for running plugin-supplied code safely.
package plugin

import (
	"fmt"
)

// callHook runs fn and converts a panic into a *HookError so one faulty
// callback cannot take the connection down.
func callHook[T any](name string, fn func() (T, error)) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			result = zero
			err = &HookError{Hook: name, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	result, err = fn()
	if err != nil {
		return result, &HookError{Hook: name, Err: err}
	}
	return result, nil
}

// callNotify runs a hook that returns nothing, recovering panics the same way.
func callNotify(name string, fn func()) error {
	_, err := callHook(name, func() (struct{}, error) {
		fn()
		return struct{}{}, nil
	})
	return err
}
