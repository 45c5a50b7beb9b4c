// Package storage keeps uploaded files in object storage or on local disk.
package storage

import "context"

// Store persists uploaded objects under a slash separated key and returns
// the public URL clients use to fetch them
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}
