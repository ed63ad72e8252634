// Package repositories implements the data access layer for the AdmitAI API.
// Each repository type encapsulates all database queries for one domain
// entity; handlers never issue SQL directly.
//
// Lookups that find nothing return (nil, nil). Writes that hit a unique
// constraint return ErrDuplicate so handlers can answer 409.
package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// ErrDuplicate is returned when an insert or update violates a unique constraint.
var ErrDuplicate = errors.New("duplicate record")

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = pq.ErrorCode("23505")

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// invalidTextRepresentation is raised when a value cannot be parsed as the
// column type, such as a malformed UUID.
const invalidTextRepresentation = pq.ErrorCode("22P02")

// IsInvalidID reports whether err was caused by an id that is not a valid UUID.
func IsInvalidID(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == invalidTextRepresentation
}

// missing reports whether a single-row lookup found nothing. A malformed id
// cannot match any row, so it counts as missing.
func missing(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || IsInvalidID(err)
}

// translate maps driver errors onto repository sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}

// updateBuilder assembles the SET list of a partial UPDATE.
type updateBuilder struct {
	sets []string
	args []interface{}
}

func (b *updateBuilder) set(column string, value interface{}) {
	b.args = append(b.args, value)
	b.sets = append(b.sets, fmt.Sprintf("%s = $%d", column, len(b.args)))
}

func (b *updateBuilder) empty() bool { return len(b.sets) == 0 }

// build returns "UPDATE table SET ..., updated_at = NOW() WHERE id = $n RETURNING cols".
func (b *updateBuilder) build(table, id, returning string) (string, []interface{}) {
	args := append(b.args, id)
	query := fmt.Sprintf("UPDATE %s SET %s, updated_at = NOW() WHERE id = $%d RETURNING %s",
		table, strings.Join(b.sets, ", "), len(args), returning)
	return query, args
}
