package dbx

import (
	"github.com/pkg/errors"
)

// CollectRows drains a cursor and maps each row to a value of type T using
// the provided scan function. The cursor is closed before returning.
//
// Example:
//
//	users, err := dbx.CollectRows(rows, func(rows dbx.Rows) (User, error) {
//	    var u User
//	    err := rows.Scan(&u.ID, &u.Name, &u.Status)
//	    return u, err
//	})
func CollectRows[T any](rows Rows, scanFunc func(rows Rows) (T, error)) ([]T, error) {
	defer rows.Close()

	var results []T

	for rows.Next() {
		result, err := scanFunc(rows)
		if err != nil {
			return nil, errors.WithStack(err)
		}

		results = append(results, result)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.WithStack(err)
	}

	return results, nil
}

// CollectRowMaps drains a cursor into column-keyed row maps. The cursor is
// closed before returning.
func CollectRowMaps(rows Rows) ([]Row, error) {
	defer rows.Close()

	var results []Row

	for rows.Next() {
		row, err := rowFromCursor(rows)
		if err != nil {
			return nil, err
		}

		results = append(results, row)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.WithStack(err)
	}

	return results, nil
}
