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

package storage

import (
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
)

func TestAppendURLParams(t *testing.T) {
	url, err := AppendURLParams("sqlite:///tmp/catalog.db", []lo.Tuple2[string, string]{
		{A: "_pragma", B: "busy_timeout(10000)"},
		{A: "_pragma", B: "journal_mode(wal)"},
	})
	assert.NoError(t, err)
	assert.Equal(t, "sqlite:///tmp/catalog.db?_pragma=busy_timeout%2810000%29&_pragma=journal_mode%28wal%29", url)
}

func TestAppendMySQLParams(t *testing.T) {
	dsn, err := AppendMySQLParams("mangarec:password@tcp(localhost:3306)/mangarec?sql_mode=ANSI", map[string]string{
		"sql_mode":  "TRADITIONAL",
		"time_zone": "UTC",
	})
	assert.NoError(t, err)
	assert.Contains(t, dsn, "sql_mode=ANSI")
	assert.Contains(t, dsn, "time_zone=UTC")
}

func TestTablePrefix(t *testing.T) {
	prefix := TablePrefix("mangarec_")
	assert.Equal(t, "mangarec_items", prefix.ItemsTable())
	assert.Equal(t, "mangarec_annotations", prefix.AnnotationsTable())
	assert.Len(t, Prefixes(), 6)
}
