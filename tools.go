//go:build tools
// +build tools

// Package tools pins the code generators run by go generate, mockgen included,
// so go.mod and go.sum track them.
package swearjar

import (
	_ "go.uber.org/mock/mockgen"
)
