package database

import (
	"testing"

	"github.com/damoang/angple-bugreport/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestConfigure(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, Configure(db, config.DatabaseConfig{MaxIdleConns: 2, MaxOpenConns: 4, ConnMaxLifetime: 60}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 4, sqlDB.Stats().MaxOpenConnections)
	require.NoError(t, Close(db))
}

func TestGetDSN(t *testing.T) {
	dsn := config.DatabaseConfig{User: "u", Password: "p", Host: "db", Port: 3306, DBName: "angple"}.GetDSN()
	assert.Equal(t, "u:p@tcp(db:3306)/angple?charset=utf8mb4&parseTime=True&loc=Local", dsn)
}
