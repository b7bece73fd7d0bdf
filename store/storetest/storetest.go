// Package storetest provides an in-memory database for tests.
package storetest

import (
	"fmt"
	"testing"

	"office-chat/database"
	"office-chat/model"
	"office-chat/store"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// New returns a migrated in-memory SQLite database and a store on top of it.
func New(t testing.TB) (*gorm.DB, *store.Store) {
	t.Helper()

	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	return db, store.New(db)
}

// User inserts an active employee called name.
func User(t testing.TB, db *gorm.DB, name string) model.User {
	t.Helper()

	u := model.User{
		Name:   name,
		Email:  fmt.Sprintf("%s@office.test", name),
		Avatar: fmt.Sprintf("https://cdn.office.test/%s.png", name),
		Role:   model.RoleEmployee,
		Status: model.StatusActive,
	}
	require.NoError(t, db.Create(&u).Error)
	return u
}
