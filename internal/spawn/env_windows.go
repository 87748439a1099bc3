//go:build windows

package spawn

import "strings"

// envKey folds case; Windows environment names are case-insensitive
func envKey(key string) string { return strings.ToUpper(key) }
