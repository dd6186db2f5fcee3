package store

import (
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a unique constraint rejects a write.
var ErrDuplicate = errors.New("duplicate")

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

func pqErrorCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

func uuidArray(ids []uuid.UUID) pq.StringArray {
	values := make(pq.StringArray, 0, len(ids))
	for _, id := range ids {
		values = append(values, id.String())
	}
	return values
}

func parseUUIDArray(values pq.StringArray) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(values))
	for _, value := range values {
		id, err := uuid.Parse(value)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
