package artifacts

import (
	"context"
	"time"
)

// URLTTL is how long a signed retrieval or upload URL stays valid.
// Possession of the URL within the window is sufficient for access;
// no further authorization is re-derived from it.
const URLTTL = 5 * time.Minute

// URLSigner issues time-boxed signed URLs against object storage.
type URLSigner interface {
	PresignGet(ctx context.Context, bucket, key, contentType string) (string, error)
	PresignPut(ctx context.Context, bucket, key, contentType string) (string, error)
}
