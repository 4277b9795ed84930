// Package types defines the shared error taxonomy and enums used across the
// deepresearch engine. It is dependency-free so every other package can import
// it without cycles.
package types
