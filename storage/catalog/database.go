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
	"sort"
	"strings"
	"time"

	"github.com/juju/errors"
	"github.com/mangarec/mangarec/storage"
)

var ErrItemNotExist = errors.NotFoundf("item")

// WorkType is the publication format of a catalog item.
type WorkType uint8

const (
	Manga WorkType = iota
	Manhwa
	Manhua
	OtherWork
)

// WorkTypes lists all work types in the order they are encoded.
var WorkTypes = []WorkType{Manga, Manhwa, Manhua, OtherWork}

func (t WorkType) String() string {
	switch t {
	case Manga:
		return "manga"
	case Manhwa:
		return "manhwa"
	case Manhua:
		return "manhua"
	default:
		return "other"
	}
}

// ParseWorkType converts a type name to WorkType. Unknown names are OtherWork.
func ParseWorkType(s string) WorkType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "manga":
		return Manga
	case "manhwa":
		return Manhwa
	case "manhua":
		return Manhua
	default:
		return OtherWork
	}
}

// Interest is the user's recorded reaction to an item. Unrated is never stored.
type Interest uint8

const (
	Unrated Interest = iota
	Liked
	Disliked
	ReadNeutral
	Dropped
	NotInterested
)

func (i Interest) String() string {
	switch i {
	case Liked:
		return "liked"
	case Disliked:
		return "disliked"
	case ReadNeutral:
		return "read"
	case Dropped:
		return "dropped"
	case NotInterested:
		return "not_interested"
	default:
		return "unrated"
	}
}

func ParseInterest(s string) (Interest, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "liked", "like":
		return Liked, nil
	case "disliked", "dislike":
		return Disliked, nil
	case "read", "neutral":
		return ReadNeutral, nil
	case "dropped", "drop":
		return Dropped, nil
	case "not_interested", "not-interested":
		return NotInterested, nil
	}
	return Unrated, errors.NotValidf("interest %q", s)
}

// Item is a title in the catalog.
type Item struct {
	ItemId    string     `json:"ItemId"`
	Title     string     `json:"Title"`
	Genres    []string   `json:"Genres"`
	Type      WorkType   `json:"Type"`
	Chapters  *int       `json:"Chapters"`
	Score     *float64   `json:"Score"`
	Published *time.Time `json:"Published"`
	Synopsis  string     `json:"Synopsis"`
	ImageURL  string     `json:"ImageURL"`
}

// Annotation is the latest interest recorded for an item.
type Annotation struct {
	ItemId    string    `json:"ItemId"`
	Interest  Interest  `json:"Interest"`
	Timestamp time.Time `json:"Timestamp"`
}

type Database interface {
	Init() error
	Close() error
	Purge() error
	ListItems(ctx context.Context) ([]Item, error)
	GetItem(ctx context.Context, itemId string) (Item, error)
	BatchInsertItems(ctx context.Context, items []Item) error
	ListAnnotations(ctx context.Context) ([]Annotation, error)
	BatchUpsertAnnotations(ctx context.Context, annotations []Annotation) error
	DeleteAnnotation(ctx context.Context, itemId string) error
}

// Creator creates a database instance.
type Creator func(path, tablePrefix string, opts ...storage.Option) (Database, error)

var creators = make(map[string]Creator)

// Register a database creator.
func Register(prefixes []string, creator Creator) {
	for _, p := range prefixes {
		creators[p] = creator
	}
}

// Open a connection to a database.
func Open(path, tablePrefix string, opts ...storage.Option) (Database, error) {
	for prefix, creator := range creators {
		if strings.HasPrefix(path, prefix) {
			return creator(path, tablePrefix, opts...)
		}
	}
	return nil, errors.Errorf("Unknown database: %s", path)
}

func sortItems(items []Item) {
	sort.Slice(items, func(i, j int) bool {
		return items[i].ItemId < items[j].ItemId
	})
}

// lastByKey keeps the last element for each key, in order of first appearance.
func lastByKey[T any](values []T, key func(T) string) []T {
	index := make(map[string]int, len(values))
	result := make([]T, 0, len(values))
	for _, value := range values {
		if i, exist := index[key(value)]; exist {
			result[i] = value
		} else {
			index[key(value)] = len(result)
			result = append(result, value)
		}
	}
	return result
}

func validateAnnotations(annotations []Annotation) error {
	for _, annotation := range annotations {
		if annotation.ItemId == "" {
			return errors.NotValidf("empty item id")
		}
		if annotation.Interest == Unrated || annotation.Interest > NotInterested {
			return errors.NotValidf("interest %d of item %s", annotation.Interest, annotation.ItemId)
		}
	}
	return nil
}
