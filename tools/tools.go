//go:build tools

// Package tools pins development tool dependencies so go.mod tracks them
// without pulling them into any production binary.
package tools

// Tools are installed through the Makefile rather than imported here.
