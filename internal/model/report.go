package model

import "context"

// ReportArchive stores rendered run reports so past runs can be retrieved
// by operational tooling.
type ReportArchive interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}
