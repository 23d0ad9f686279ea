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
	"time"

	"github.com/juju/errors"
	"github.com/mangarec/mangarec/storage"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
)

func init() {
	Register([]string{storage.MongoPrefix, storage.MongoSrvPrefix}, func(path, tablePrefix string, opts ...storage.Option) (Database, error) {
		database := new(MongoDB)
		var err error
		if database.client, err = mongo.Connect(context.Background(), options.Client().ApplyURI(path)); err != nil {
			return nil, errors.Trace(err)
		}
		// parse DSN and extract database name
		if cs, err := connstring.ParseAndValidate(path); err != nil {
			return nil, errors.Trace(err)
		} else {
			database.dbName = cs.Database
			database.TablePrefix = storage.TablePrefix(tablePrefix)
		}
		return database, nil
	})
}

type mongoAnnotation struct {
	ItemId    string `bson:"itemid"`
	Interest  string `bson:"interest"`
	Timestamp int64  `bson:"timestamp"`
}

// MongoDB stores the catalog in MongoDB.
type MongoDB struct {
	storage.TablePrefix
	client *mongo.Client
	dbName string
}

// Init collections and indices in MongoDB.
func (db *MongoDB) Init() error {
	ctx := context.Background()
	d := db.client.Database(db.dbName)
	// list collections
	var hasItems, hasAnnotations bool
	collections, err := d.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return errors.Trace(err)
	}
	for _, collectionName := range collections {
		switch collectionName {
		case db.ItemsTable():
			hasItems = true
		case db.AnnotationsTable():
			hasAnnotations = true
		}
	}
	// create collections
	if !hasItems {
		if err = d.CreateCollection(ctx, db.ItemsTable()); err != nil {
			return errors.Trace(err)
		}
	}
	if !hasAnnotations {
		if err = d.CreateCollection(ctx, db.AnnotationsTable()); err != nil {
			return errors.Trace(err)
		}
	}
	// create index
	for _, collectionName := range []string{db.ItemsTable(), db.AnnotationsTable()} {
		if _, err = d.Collection(collectionName).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.M{"itemid": 1},
			Options: options.Index().SetUnique(true),
		}); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

// Close connection to MongoDB.
func (db *MongoDB) Close() error {
	return db.client.Disconnect(context.Background())
}

func (db *MongoDB) Purge() error {
	ctx := context.Background()
	d := db.client.Database(db.dbName)
	for _, collectionName := range []string{db.ItemsTable(), db.AnnotationsTable()} {
		if _, err := d.Collection(collectionName).DeleteMany(ctx, bson.M{}); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

func (db *MongoDB) ListItems(ctx context.Context) ([]Item, error) {
	c := db.client.Database(db.dbName).Collection(db.ItemsTable())
	r, err := c.Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"itemid": 1}))
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer r.Close(ctx)
	var items []Item
	for r.Next(ctx) {
		var item Item
		if err = r.Decode(&item); err != nil {
			return nil, errors.Trace(err)
		}
		items = append(items, item)
	}
	return items, errors.Trace(r.Err())
}

func (db *MongoDB) GetItem(ctx context.Context, itemId string) (Item, error) {
	c := db.client.Database(db.dbName).Collection(db.ItemsTable())
	r := c.FindOne(ctx, bson.M{"itemid": itemId})
	if errors.Is(r.Err(), mongo.ErrNoDocuments) {
		return Item{}, errors.Annotate(ErrItemNotExist, itemId)
	} else if r.Err() != nil {
		return Item{}, errors.Trace(r.Err())
	}
	var item Item
	err := r.Decode(&item)
	return item, errors.Trace(err)
}

func (db *MongoDB) BatchInsertItems(ctx context.Context, items []Item) error {
	if len(items) == 0 {
		return nil
	}
	c := db.client.Database(db.dbName).Collection(db.ItemsTable())
	var models []mongo.WriteModel
	for _, item := range items {
		if item.Published != nil {
			published := item.Published.UTC()
			item.Published = &published
		}
		models = append(models, mongo.NewUpdateOneModel().
			SetUpsert(true).
			SetFilter(bson.M{"itemid": item.ItemId}).
			SetUpdate(bson.M{"$set": item}))
	}
	_, err := c.BulkWrite(ctx, models)
	return errors.Trace(err)
}

func (db *MongoDB) ListAnnotations(ctx context.Context) ([]Annotation, error) {
	c := db.client.Database(db.dbName).Collection(db.AnnotationsTable())
	r, err := c.Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"itemid": 1}))
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer r.Close(ctx)
	var annotations []Annotation
	for r.Next(ctx) {
		var doc mongoAnnotation
		if err = r.Decode(&doc); err != nil {
			return nil, errors.Trace(err)
		}
		interest, err := ParseInterest(doc.Interest)
		if err != nil {
			return nil, errors.Annotatef(err, "annotation of item %s", doc.ItemId)
		}
		annotations = append(annotations, Annotation{
			ItemId:    doc.ItemId,
			Interest:  interest,
			Timestamp: time.UnixMilli(doc.Timestamp).UTC(),
		})
	}
	return annotations, errors.Trace(r.Err())
}

func (db *MongoDB) BatchUpsertAnnotations(ctx context.Context, annotations []Annotation) error {
	if len(annotations) == 0 {
		return nil
	}
	if err := validateAnnotations(annotations); err != nil {
		return errors.Trace(err)
	}
	c := db.client.Database(db.dbName).Collection(db.AnnotationsTable())
	var models []mongo.WriteModel
	for _, annotation := range annotations {
		models = append(models, mongo.NewUpdateOneModel().
			SetUpsert(true).
			SetFilter(bson.M{"itemid": annotation.ItemId}).
			SetUpdate(bson.M{"$set": mongoAnnotation{
				ItemId:    annotation.ItemId,
				Interest:  annotation.Interest.String(),
				Timestamp: annotation.Timestamp.UnixMilli(),
			}}))
	}
	// ordered writes keep the last annotation of duplicated items
	_, err := c.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true))
	return errors.Trace(err)
}

func (db *MongoDB) DeleteAnnotation(ctx context.Context, itemId string) error {
	c := db.client.Database(db.dbName).Collection(db.AnnotationsTable())
	_, err := c.DeleteOne(ctx, bson.M{"itemid": itemId})
	return errors.Trace(err)
}
