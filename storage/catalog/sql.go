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
	"context"
	"database/sql"
	"time"

	"github.com/juju/errors"
	"github.com/mangarec/mangarec/base/json"
	"github.com/mangarec/mangarec/storage"
	"github.com/samber/lo"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	_ "modernc.org/sqlite"
)

type SQLDriver int

const (
	MySQL SQLDriver = iota
	Postgres
	SQLite
)

func init() {
	Register([]string{storage.MySQLPrefix}, func(path, tablePrefix string, opts ...storage.Option) (Database, error) {
		name := path[len(storage.MySQLPrefix):]
		// append parameters
		name, err := storage.AppendMySQLParams(name, map[string]string{
			"parseTime": "true",
			"charset":   "utf8mb4",
		})
		if err != nil {
			return nil, errors.Trace(err)
		}
		// connect to database
		database := new(SQLDatabase)
		database.driver = MySQL
		database.TablePrefix = storage.TablePrefix(tablePrefix)
		if database.gormDB, err = gorm.Open(mysql.Open(name), storage.NewGORMConfig(tablePrefix)); err != nil {
			return nil, errors.Trace(err)
		}
		if database.client, err = database.gormDB.DB(); err != nil {
			return nil, errors.Trace(err)
		}
		storage.ApplySQLPool(database.client, storage.NewOptions(opts...))
		return database, nil
	})
	Register([]string{storage.PostgresPrefix, storage.PostgreSQLPrefix}, func(path, tablePrefix string, opts ...storage.Option) (Database, error) {
		database := new(SQLDatabase)
		database.driver = Postgres
		database.TablePrefix = storage.TablePrefix(tablePrefix)
		var err error
		if database.gormDB, err = gorm.Open(postgres.Open(path), storage.NewGORMConfig(tablePrefix)); err != nil {
			return nil, errors.Trace(err)
		}
		if database.client, err = database.gormDB.DB(); err != nil {
			return nil, errors.Trace(err)
		}
		storage.ApplySQLPool(database.client, storage.NewOptions(opts...))
		return database, nil
	})
	Register([]string{storage.SQLitePrefix}, func(path, tablePrefix string, opts ...storage.Option) (Database, error) {
		// append parameters
		path, err := storage.AppendURLParams(path, []lo.Tuple2[string, string]{
			{A: "_pragma", B: "busy_timeout(10000)"},
			{A: "_pragma", B: "journal_mode(wal)"},
		})
		if err != nil {
			return nil, errors.Trace(err)
		}
		// connect to database
		name := path[len(storage.SQLitePrefix):]
		database := new(SQLDatabase)
		database.driver = SQLite
		database.TablePrefix = storage.TablePrefix(tablePrefix)
		if database.client, err = sql.Open("sqlite", name); err != nil {
			return nil, errors.Trace(err)
		}
		storage.ApplySQLPool(database.client, storage.NewOptions(opts...))
		if database.gormDB, err = gorm.Open(sqlite.Dialector{Conn: database.client}, storage.NewGORMConfig(tablePrefix)); err != nil {
			return nil, errors.Trace(err)
		}
		return database, nil
	})
}

type SQLItem struct {
	ItemId    string     `gorm:"column:item_id;type:varchar(256);primaryKey"`
	Title     string     `gorm:"column:title;type:text"`
	Genres    string     `gorm:"column:genres;type:text"`
	Type      string     `gorm:"column:type;type:varchar(16)"`
	Chapters  *int       `gorm:"column:chapters"`
	Score     *float64   `gorm:"column:score"`
	Published *time.Time `gorm:"column:published"`
	Synopsis  string     `gorm:"column:synopsis;type:text"`
	ImageURL  string     `gorm:"column:image_url;type:text"`
}

func NewSQLItem(item Item) (SQLItem, error) {
	genres, err := json.Marshal(lo.Ternary(item.Genres == nil, []string{}, item.Genres))
	if err != nil {
		return SQLItem{}, errors.Trace(err)
	}
	var published *time.Time
	if item.Published != nil {
		published = lo.ToPtr(item.Published.UTC())
	}
	return SQLItem{
		ItemId:    item.ItemId,
		Title:     item.Title,
		Genres:    string(genres),
		Type:      item.Type.String(),
		Chapters:  item.Chapters,
		Score:     item.Score,
		Published: published,
		Synopsis:  item.Synopsis,
		ImageURL:  item.ImageURL,
	}, nil
}

func (row SQLItem) toItem() (Item, error) {
	item := Item{
		ItemId:    row.ItemId,
		Title:     row.Title,
		Type:      ParseWorkType(row.Type),
		Chapters:  row.Chapters,
		Score:     row.Score,
		Published: row.Published,
		Synopsis:  row.Synopsis,
		ImageURL:  row.ImageURL,
	}
	if row.Genres != "" {
		if err := json.Unmarshal([]byte(row.Genres), &item.Genres); err != nil {
			return Item{}, errors.Annotatef(err, "genres of item %s", row.ItemId)
		}
	}
	return item, nil
}

type SQLAnnotation struct {
	ItemId    string    `gorm:"column:item_id;type:varchar(256);primaryKey"`
	Interest  string    `gorm:"column:interest;type:varchar(16)"`
	Timestamp time.Time `gorm:"column:time_stamp"`
}

// SQLDatabase stores the catalog in MySQL, Postgres or SQLite.
type SQLDatabase struct {
	storage.TablePrefix
	gormDB *gorm.DB
	client *sql.DB
	driver SQLDriver
}

func (d *SQLDatabase) Init() error {
	return errors.Trace(d.gormDB.AutoMigrate(&SQLItem{}, &SQLAnnotation{}))
}

func (d *SQLDatabase) Close() error {
	return d.client.Close()
}

// Purge deletes all items and annotations.
func (d *SQLDatabase) Purge() error {
	for _, table := range []string{d.ItemsTable(), d.AnnotationsTable()} {
		if err := d.gormDB.Exec("DELETE FROM " + table).Error; err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

func (d *SQLDatabase) ListItems(ctx context.Context) ([]Item, error) {
	var rows []SQLItem
	if err := d.gormDB.WithContext(ctx).Order("item_id").Find(&rows).Error; err != nil {
		return nil, errors.Trace(err)
	}
	items := make([]Item, 0, len(rows))
	for _, row := range rows {
		item, err := row.toItem()
		if err != nil {
			return nil, errors.Trace(err)
		}
		items = append(items, item)
	}
	return items, nil
}

func (d *SQLDatabase) GetItem(ctx context.Context, itemId string) (Item, error) {
	var row SQLItem
	err := d.gormDB.WithContext(ctx).First(&row, "item_id = ?", itemId).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Item{}, errors.Annotate(ErrItemNotExist, itemId)
	} else if err != nil {
		return Item{}, errors.Trace(err)
	}
	return row.toItem()
}

// BatchInsertItems inserts items or overwrites existing items with the same id.
func (d *SQLDatabase) BatchInsertItems(ctx context.Context, items []Item) error {
	if len(items) == 0 {
		return nil
	}
	items = lastByKey(items, func(item Item) string { return item.ItemId })
	rows := make([]SQLItem, 0, len(items))
	for _, item := range items {
		row, err := NewSQLItem(item)
		if err != nil {
			return errors.Trace(err)
		}
		rows = append(rows, row)
	}
	err := d.gormDB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "item_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "genres", "type", "chapters", "score", "published", "synopsis", "image_url"}),
	}).Create(&rows).Error
	return errors.Trace(err)
}

func (d *SQLDatabase) ListAnnotations(ctx context.Context) ([]Annotation, error) {
	var rows []SQLAnnotation
	if err := d.gormDB.WithContext(ctx).Order("item_id").Find(&rows).Error; err != nil {
		return nil, errors.Trace(err)
	}
	annotations := make([]Annotation, 0, len(rows))
	for _, row := range rows {
		interest, err := ParseInterest(row.Interest)
		if err != nil {
			return nil, errors.Annotatef(err, "annotation of item %s", row.ItemId)
		}
		annotations = append(annotations, Annotation{
			ItemId:    row.ItemId,
			Interest:  interest,
			Timestamp: row.Timestamp,
		})
	}
	return annotations, nil
}

// BatchUpsertAnnotations replaces the annotations of the given items.
func (d *SQLDatabase) BatchUpsertAnnotations(ctx context.Context, annotations []Annotation) error {
	if len(annotations) == 0 {
		return nil
	}
	if err := validateAnnotations(annotations); err != nil {
		return errors.Trace(err)
	}
	annotations = lastByKey(annotations, func(a Annotation) string { return a.ItemId })
	rows := lo.Map(annotations, func(a Annotation, _ int) SQLAnnotation {
		return SQLAnnotation{
			ItemId:    a.ItemId,
			Interest:  a.Interest.String(),
			Timestamp: a.Timestamp.UTC(),
		}
	})
	err := d.gormDB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "item_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"interest", "time_stamp"}),
	}).Create(&rows).Error
	return errors.Trace(err)
}

func (d *SQLDatabase) DeleteAnnotation(ctx context.Context, itemId string) error {
	err := d.gormDB.WithContext(ctx).Delete(&SQLAnnotation{}, "item_id = ?", itemId).Error
	return errors.Trace(err)
}
