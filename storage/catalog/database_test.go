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

	"github.com/jaswdr/faker"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

type baseTestSuite struct {
	suite.Suite
	Database
}

func (suite *baseTestSuite) SetupTest() {
	suite.NoError(suite.Database.Purge())
}

func (suite *baseTestSuite) TearDownSuite() {
	suite.NoError(suite.Database.Close())
}

func (suite *baseTestSuite) assertItem(expected, actual Item) {
	suite.Equal(expected.ItemId, actual.ItemId)
	suite.Equal(expected.Title, actual.Title)
	suite.ElementsMatch(expected.Genres, actual.Genres)
	suite.Equal(expected.Type, actual.Type)
	suite.Equal(expected.Chapters, actual.Chapters)
	suite.Equal(expected.Score, actual.Score)
	suite.Equal(expected.Synopsis, actual.Synopsis)
	suite.Equal(expected.ImageURL, actual.ImageURL)
	if expected.Published == nil {
		suite.Nil(actual.Published)
	} else if suite.NotNil(actual.Published) {
		suite.True(expected.Published.Equal(*actual.Published))
	}
}

func (suite *baseTestSuite) TestItems() {
	ctx := context.Background()
	fake := faker.New()
	published := time.Date(2018, 3, 19, 0, 0, 0, 0, time.UTC)
	items := []Item{
		{
			ItemId:    "2",
			Title:     fake.Lorem().Sentence(3),
			Genres:    []string{"Action", "Fantasy"},
			Type:      Manhwa,
			Chapters:  lo.ToPtr(120),
			Score:     lo.ToPtr(8.75),
			Published: &published,
			Synopsis:  fake.Lorem().Paragraph(2),
			ImageURL:  "https://cdn.myanimelist.net/images/manga/2.jpg",
		},
		{
			ItemId: "1",
			Title:  fake.Lorem().Sentence(3),
			Genres: []string{"Romance"},
			Type:   Manga,
		},
		{
			ItemId: "3",
			Title:  fake.Lorem().Sentence(3),
			Type:   OtherWork,
		},
	}
	err := suite.Database.BatchInsertItems(ctx, items)
	suite.NoError(err)

	// list items ordered by id
	listed, err := suite.Database.ListItems(ctx)
	suite.NoError(err)
	if suite.Len(listed, 3) {
		suite.assertItem(items[1], listed[0])
		suite.assertItem(items[0], listed[1])
		suite.Equal("3", listed[2].ItemId)
		suite.Empty(listed[2].Genres)
	}

	// get item
	item, err := suite.Database.GetItem(ctx, "2")
	suite.NoError(err)
	suite.assertItem(items[0], item)
	_, err = suite.Database.GetItem(ctx, "4")
	suite.True(errors.IsNotFound(err), err)

	// overwrite items, the last duplicate wins
	err = suite.Database.BatchInsertItems(ctx, []Item{
		{ItemId: "1", Title: "first", Genres: []string{"Drama"}, Type: Manhua},
		{ItemId: "1", Title: "second", Genres: []string{"Comedy"}, Type: Manhua},
	})
	suite.NoError(err)
	item, err = suite.Database.GetItem(ctx, "1")
	suite.NoError(err)
	suite.Equal("second", item.Title)
	suite.Equal([]string{"Comedy"}, item.Genres)
	suite.Equal(Manhua, item.Type)
	listed, err = suite.Database.ListItems(ctx)
	suite.NoError(err)
	suite.Len(listed, 3)

	// insert nothing
	suite.NoError(suite.Database.BatchInsertItems(ctx, nil))
}

func (suite *baseTestSuite) TestAnnotations() {
	ctx := context.Background()
	timestamp := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	err := suite.Database.BatchUpsertAnnotations(ctx, []Annotation{
		{ItemId: "2", Interest: Liked, Timestamp: timestamp},
		{ItemId: "1", Interest: Dropped, Timestamp: timestamp},
		{ItemId: "3", Interest: ReadNeutral, Timestamp: timestamp},
	})
	suite.NoError(err)
	annotations, err := suite.Database.ListAnnotations(ctx)
	suite.NoError(err)
	if suite.Len(annotations, 3) {
		suite.Equal("1", annotations[0].ItemId)
		suite.Equal(Dropped, annotations[0].Interest)
		suite.True(timestamp.Equal(annotations[0].Timestamp))
		suite.Equal("2", annotations[1].ItemId)
		suite.Equal(Liked, annotations[1].Interest)
		suite.Equal(ReadNeutral, annotations[2].Interest)
	}

	// the latest annotation overwrites
	later := timestamp.Add(time.Hour)
	err = suite.Database.BatchUpsertAnnotations(ctx, []Annotation{
		{ItemId: "2", Interest: Disliked, Timestamp: later},
	})
	suite.NoError(err)
	annotations, err = suite.Database.ListAnnotations(ctx)
	suite.NoError(err)
	if suite.Len(annotations, 3) {
		suite.Equal(Disliked, annotations[1].Interest)
		suite.True(later.Equal(annotations[1].Timestamp))
	}

	// delete annotation
	err = suite.Database.DeleteAnnotation(ctx, "3")
	suite.NoError(err)
	annotations, err = suite.Database.ListAnnotations(ctx)
	suite.NoError(err)
	suite.Equal([]string{"1", "2"}, lo.Map(annotations, func(a Annotation, _ int) string { return a.ItemId }))

	// unrated is never stored
	err = suite.Database.BatchUpsertAnnotations(ctx, []Annotation{{ItemId: "4", Interest: Unrated, Timestamp: later}})
	suite.Error(err)
	err = suite.Database.BatchUpsertAnnotations(ctx, []Annotation{{Interest: Liked, Timestamp: later}})
	suite.Error(err)
}
