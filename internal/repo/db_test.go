package repo

import (
	"CloudHunter/config"
	"CloudHunter/model"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestOpenDBSqlite(t *testing.T) {
	cfg := config.Config{DBDriver: "sqlite", DBDSN: filepath.Join(t.TempDir(), "test.db")}
	db, err := OpenDB(cfg)
	require.NoError(t, err)
	for _, table := range []string{"account", "users", "files", "upload_incident"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
}

func TestOpenDBTranslatesUniqueViolation(t *testing.T) {
	db, err := OpenDB(config.Config{DBDriver: "sqlite", DBDSN: filepath.Join(t.TempDir(), "dup.db")})
	require.NoError(t, err)

	require.NoError(t, db.Create(&model.Account{Email: "ada@example.com", PasswordHash: "x"}).Error)
	err = db.Create(&model.Account{Email: "ada@example.com", PasswordHash: "y"}).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestDialectorRejectsUnknownDriver(t *testing.T) {
	_, err := Dialector(config.Config{DBDriver: "oracle"})
	assert.Error(t, err)
}

func TestMySQLDSN(t *testing.T) {
	cfg := config.Config{DBUser: "u", DBPass: "p", DBHost: "h", DBPort: "3306"}
	assert.Equal(t, "u:p@tcp(h:3306)/db?charset=utf8mb4&parseTime=True&loc=Local", mysqlDSN(cfg, "db"))
	cfg.DBDSN = "override"
	assert.Equal(t, "override", mysqlDSN(cfg, "db"))
	assert.Equal(t, "`a``b`", quoteMySQLIdentifier("a`b"))
}
