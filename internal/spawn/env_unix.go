//go:build !windows

package spawn

func envKey(key string) string { return key }
