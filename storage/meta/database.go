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

package meta

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/juju/errors"
	"github.com/mangarec/mangarec/base/json"
	"github.com/mangarec/mangarec/storage"
	"github.com/samber/lo"
)

const (
	// MODEL is the key of the current model record.
	MODEL = "MODEL"
	// WEIGHTS is the key of the persisted weight profile.
	WEIGHTS = "WEIGHTS"
)

// Model records a trained model artifact.
type Model[T any] struct {
	ID        string
	Type      string
	Positive  int
	Negative  int
	TrainedAt time.Time
	Score     T
	History   []string
}

func (m *Model[T]) ToJSON() string {
	return string(lo.Must1(json.Marshal(m)))
}

func (m *Model[T]) FromJSON(data string) error {
	return json.Unmarshal([]byte(data), m)
}

type Database interface {
	Close() error
	Init() error
	Put(ctx context.Context, key, value string) error
	Get(ctx context.Context, key string) (*string, error)
	Delete(ctx context.Context, key string) error
}

// Open a connection to a database.
func Open(path string) (Database, error) {
	var err error
	if strings.HasPrefix(path, storage.SQLitePrefix) {
		dataSourceName := path[len(storage.SQLitePrefix):]
		// append parameters
		if dataSourceName, err = storage.AppendURLParams(dataSourceName, []lo.Tuple2[string, string]{
			{A: "_pragma", B: "busy_timeout(10000)"},
			{A: "_pragma", B: "journal_mode(wal)"},
		}); err != nil {
			return nil, errors.Trace(err)
		}
		// connect to database
		database := new(SQLite)
		if database.db, err = sql.Open("sqlite", dataSourceName); err != nil {
			return nil, errors.Trace(err)
		}
		return database, nil
	}
	return nil, errors.Errorf("Unknown database: %s", path)
}
