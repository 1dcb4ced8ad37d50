// Package shared holds code used across packages that belongs to no single
// layer. Its testutil subpackage captures slog output in tests so log
// assertions can inspect level, message and attributes.
package shared
