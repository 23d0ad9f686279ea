// Copyright 2026 mangarec Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"
)

type SQLiteTestSuite struct {
	baseTestSuite
}

func (suite *SQLiteTestSuite) SetupSuite() {
	var err error
	path := filepath.Join(suite.T().TempDir(), "catalog.db")
	suite.Database, err = Open("sqlite://"+path, "")
	suite.NoError(err)
	suite.NoError(suite.Database.Init())
}

func TestSQLite(t *testing.T) {
	suite.Run(t, new(SQLiteTestSuite))
}

type SQLitePrefixTestSuite struct {
	baseTestSuite
}

func (suite *SQLitePrefixTestSuite) SetupSuite() {
	var err error
	path := filepath.Join(suite.T().TempDir(), "catalog.db")
	suite.Database, err = Open("sqlite://"+path, "mangarec_")
	suite.NoError(err)
	suite.NoError(suite.Database.Init())
}

func TestSQLitePrefix(t *testing.T) {
	suite.Run(t, new(SQLitePrefixTestSuite))
}

type MySQLTestSuite struct {
	baseTestSuite
	dsn string
}

func (suite *MySQLTestSuite) SetupSuite() {
	var err error
	suite.Database, err = Open(suite.dsn, "")
	suite.NoError(err)
	suite.NoError(suite.Database.Init())
}

func TestMySQL(t *testing.T) {
	dsn := os.Getenv("MYSQL_URI")
	if dsn == "" {
		t.Skip("MYSQL_URI is not set")
	}
	suite.Run(t, &MySQLTestSuite{dsn: dsn})
}

type PostgresTestSuite struct {
	baseTestSuite
	dsn string
}

func (suite *PostgresTestSuite) SetupSuite() {
	var err error
	suite.Database, err = Open(suite.dsn, "")
	suite.NoError(err)
	suite.NoError(suite.Database.Init())
}

func TestPostgres(t *testing.T) {
	dsn := os.Getenv("POSTGRES_URI")
	if dsn == "" {
		t.Skip("POSTGRES_URI is not set")
	}
	suite.Run(t, &PostgresTestSuite{dsn: dsn})
}

func TestOpenUnknown(t *testing.T) {
	_, err := Open("redis://127.0.0.1:6379", "")
	if err == nil {
		t.Fatal("expect error for unknown database")
	}
}
