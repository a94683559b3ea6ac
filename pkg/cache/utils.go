package cache

import "fmt"

// GenerateKeyWithParams creates a cache key from a prefix and parameters joined by ':'.
func GenerateKeyWithParams(prefix string, params ...interface{}) string {
	key := prefix
	for _, param := range params {
		key = fmt.Sprintf("%s:%v", key, param)
	}
	return key
}
