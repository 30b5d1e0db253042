package entities

import "time"

// IdempotencyTTL is how long a recorded response stays replayable.
const IdempotencyTTL = 24 * time.Hour

// IdempotencyRecord caches the first response produced for an idempotency
// key. An unexpired record is replayed byte-for-byte without invoking any
// business logic. Path and method are stored for observability; the key
// alone is the replay authority.
type IdempotencyRecord struct {
	ID             int64
	IdempotencyKey string
	RequestPath    string
	RequestMethod  string
	ResponseStatus int
	ResponseBody   []byte
	CreatedAt      time.Time
	ExpiresAt      time.Time
}

// NewIdempotencyRecord builds a record expiring IdempotencyTTL from now.
func NewIdempotencyRecord(key, path, method string, status int, body []byte) *IdempotencyRecord {
	now := time.Now().UTC()
	return &IdempotencyRecord{
		IdempotencyKey: key,
		RequestPath:    path,
		RequestMethod:  method,
		ResponseStatus: status,
		ResponseBody:   body,
		CreatedAt:      now,
		ExpiresAt:      now.Add(IdempotencyTTL),
	}
}

// IsExpired reports whether the record is past its TTL at the given instant.
func (r *IdempotencyRecord) IsExpired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}
