package database

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSNRoundTrips(t *testing.T) {
	dsn := DSN(Options{User: "app", Pass: "p@ss:word", Host: "db.internal", Port: "3307", Name: "seatholds"})
	assert.True(t, strings.Contains(dsn, "charset=utf8mb4"), dsn)

	cfg, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "app", cfg.User)
	assert.Equal(t, "p@ss:word", cfg.Passwd)
	assert.Equal(t, "db.internal:3307", cfg.Addr)
	assert.Equal(t, "seatholds", cfg.DBName)
	assert.True(t, cfg.ParseTime)
	assert.Equal(t, time.UTC, cfg.Loc)
}

func TestOptionsDefaults(t *testing.T) {
	o := Options{MaxOpenConns: 4, MaxIdleConns: 10}.withDefaults()
	assert.Equal(t, 4, o.MaxOpenConns)
	assert.Equal(t, 4, o.MaxIdleConns, "idle never exceeds open")
	assert.Equal(t, 30*time.Minute, o.ConnMaxLifetime)
	assert.Equal(t, 5*time.Second, o.PingTimeout)
}

func TestPrepareAppliesPoolAndPings(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectPing()

	o := Options{MaxOpenConns: 7}.withDefaults()
	require.NoError(t, prepare(context.Background(), db, o))
	assert.Equal(t, 7, db.Stats().MaxOpenConnections)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPrepareClosesOnPingFailure(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	mock.ExpectClose()

	err = prepare(context.Background(), db, Options{}.withDefaults())
	assert.ErrorContains(t, err, "connection refused")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPrepareHonoursPingTimeout(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	mock.ExpectPing().WillDelayFor(time.Second)
	mock.ExpectClose()

	o := Options{PingTimeout: 20 * time.Millisecond}.withDefaults()
	start := time.Now()
	err = prepare(context.Background(), db, o)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}
