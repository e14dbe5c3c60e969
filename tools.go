//go:build tools
// +build tools

// Pins mockgen in go.mod for the go:generate directive in contract.
package chat_gateway

import (
	_ "go.uber.org/mock/mockgen"
)
