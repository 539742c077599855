package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/cppla/inkblog/config"
	"github.com/cppla/inkblog/models"
	"github.com/cppla/inkblog/utils"
)

func memoryDB(name string) func() (*gorm.DB, error) {
	return func() (*gorm.DB, error) {
		return config.OpenDatabase(config.AppConfig{
			DBDriver:    "sqlite",
			DatabaseURI: "file:" + name + "?mode=memory&cache=shared&_foreign_keys=on",
			LogLevel:    "silent",
		})
	}
}

func TestRunWithoutCommandPrintsUsage(t *testing.T) {
	var out bytes.Buffer
	err := run(nil, &out, memoryDB("manage_usage"))
	assert.True(t, errors.Is(err, errUsage))
	assert.Contains(t, out.String(), "createsuperuser")

	out.Reset()
	err = run([]string{"shell"}, &out, memoryDB("manage_usage"))
	assert.True(t, errors.Is(err, errUsage))
}

func TestRunMigrate(t *testing.T) {
	open := memoryDB("manage_migrate")
	var out bytes.Buffer
	require.NoError(t, run([]string{"migrate"}, &out, open))
	assert.Contains(t, out.String(), "migrations applied")

	db, err := open()
	require.NoError(t, err)
	assert.True(t, db.Migrator().HasTable(&models.Post{}))
	assert.True(t, db.Migrator().HasTable(&models.User{}))
}

func TestRunCreateSuperuser(t *testing.T) {
	open := memoryDB("manage_superuser")
	// keep the shared in-memory database alive between opens
	keep, err := open()
	require.NoError(t, err)

	var out bytes.Buffer
	args := []string{"createsuperuser", "-username", "root", "-password", "s3cret-pass", "-email", "root@example.com"}
	require.NoError(t, run(args, &out, open))
	assert.Contains(t, out.String(), `superuser "root" created`)

	var user models.User
	require.NoError(t, keep.Where("username = ?", "root").First(&user).Error)
	assert.True(t, user.IsStaff)
	assert.Equal(t, "root@example.com", user.Email)
	assert.True(t, utils.CheckPassword(user.PasswordHash, "s3cret-pass"))

	err = run(args, &out, open)
	assert.ErrorContains(t, err, "already exists")
}

func TestCreateSuperuserValidates(t *testing.T) {
	db, err := memoryDB("manage_validate")()
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))

	_, err = createSuperuser(db, "  ", "long-enough", "")
	assert.Error(t, err)
	_, err = createSuperuser(db, "short", "1234", "")
	assert.Error(t, err)
}
