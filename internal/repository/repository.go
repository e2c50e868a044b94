package repository

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IsNotFound reports whether err is gorm's missing-row error.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// firstOrCreate looks a row up with query and inserts fresh when there is none.
// Losing an insert race to a concurrent writer is resolved by reading the
// winner's row back. created reports whether fresh was inserted.
func firstOrCreate[T any](query func() *gorm.DB, create *gorm.DB, fresh *T) (row *T, created bool, err error) {
	var existing T
	err = query().First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !IsNotFound(err) {
		return nil, false, err
	}

	res := create.Clauses(clause.OnConflict{DoNothing: true}).Create(fresh)
	if res.Error != nil && !errors.Is(res.Error, gorm.ErrDuplicatedKey) {
		return nil, false, res.Error
	}
	if res.Error == nil && res.RowsAffected > 0 {
		return fresh, true, nil
	}

	var winner T
	if err := latestRead(query()).First(&winner).Error; err != nil {
		return nil, false, err
	}
	return &winner, false, nil
}

// latestRead makes q a locking read. Under REPEATABLE READ a plain SELECT
// reuses the snapshot taken by the first lookup and cannot see a row that a
// concurrent transaction committed since; a locking read always sees it.
// The sqlite dialect drops the clause.
func latestRead(q *gorm.DB) *gorm.DB {
	return q.Clauses(clause.Locking{Strength: "SHARE"})
}
