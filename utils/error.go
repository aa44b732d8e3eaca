package utils

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var ErrorRecordNotFound = errors.New("record not found")

func ErrorPanic(err error) {
	if err != nil {
		panic(err)
	}
}

// IsDuplicateKeyError reports whether err is a Postgres unique violation.
// Needed where a uniqueness check races a concurrent insert past validation.
func IsDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
