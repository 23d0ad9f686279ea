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
	"strings"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
)

const jikanDump = `[
  {
    "mal_id": 2,
    "title": "Berserk",
    "type": "Manga",
    "score": 9.47,
    "chapters": null,
    "genres": [{"name": "Action"}, {"name": "Adventure"}, {"name": "Action"}],
    "synopsis": "Guts, a former mercenary...",
    "images": {"jpg": {"image_url": "https://cdn.myanimelist.net/images/manga/1/157897.jpg"}},
    "published": {"from": "1989-08-25T00:00:00+00:00"},
    "user_data": {"score": 10, "read": 0}
  },
  {
    "mal_id": 121496,
    "title": "Solo Leveling",
    "type": "Manhwa",
    "score": 8.67,
    "chapters": 201,
    "genres": [{"name": "Action"}, {"name": "Fantasy"}],
    "published": {"from": "2018-03-04"},
    "user_data": {"read": -1}
  },
  {
    "mal_id": 3,
    "title": "Some Light Novel",
    "type": "Light Novel",
    "genres": [{"name": " Romance "}],
    "published": {"from": "not a date"},
    "user_data": {"dropped": 1}
  },
  {
    "mal_id": 4,
    "title": "Unread",
    "type": "Manhua",
    "genres": [{"name": "Drama"}]
  },
  {
    "title": "Broken"
  }
]`

func TestParseJikan(t *testing.T) {
	timestamp := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	items, annotations, err := ParseJikan(strings.NewReader(jikanDump), timestamp)
	assert.NoError(t, err)
	assert.Len(t, items, 4)

	assert.Equal(t, "2", items[0].ItemId)
	assert.Equal(t, "Berserk", items[0].Title)
	assert.Equal(t, Manga, items[0].Type)
	assert.Equal(t, []string{"Action", "Adventure"}, items[0].Genres)
	assert.Nil(t, items[0].Chapters)
	assert.Equal(t, lo.ToPtr(9.47), items[0].Score)
	assert.Equal(t, "https://cdn.myanimelist.net/images/manga/1/157897.jpg", items[0].ImageURL)
	if assert.NotNil(t, items[0].Published) {
		assert.Equal(t, time.Date(1989, 8, 25, 0, 0, 0, 0, time.UTC), *items[0].Published)
	}

	assert.Equal(t, Manhwa, items[1].Type)
	assert.Equal(t, lo.ToPtr(201), items[1].Chapters)
	if assert.NotNil(t, items[1].Published) {
		assert.Equal(t, 2018, items[1].Published.Year())
	}

	assert.Equal(t, OtherWork, items[2].Type)
	assert.Equal(t, []string{"Romance"}, items[2].Genres)
	assert.Nil(t, items[2].Published)
	assert.Equal(t, Manhua, items[3].Type)

	assert.Equal(t, []Annotation{
		{ItemId: "2", Interest: Liked, Timestamp: timestamp},
		{ItemId: "121496", Interest: Liked, Timestamp: timestamp},
		{ItemId: "3", Interest: Dropped, Timestamp: timestamp},
	}, annotations)
}

func TestParseJikanPage(t *testing.T) {
	page := `{"data": [{"mal_id": 1, "title": "Monster", "type": "Manga", "user_data": {"score": 3}}]}`
	items, annotations, err := ParseJikan(strings.NewReader(page), time.Unix(0, 0))
	assert.NoError(t, err)
	assert.Len(t, items, 1)
	if assert.Len(t, annotations, 1) {
		assert.Equal(t, Disliked, annotations[0].Interest)
	}

	_, _, err = ParseJikan(strings.NewReader("{"), time.Unix(0, 0))
	assert.Error(t, err)
}

func TestInterestOf(t *testing.T) {
	score := func(s float64) *float64 { return &s }
	testCases := []struct {
		userData *JikanUserData
		interest Interest
		ok       bool
	}{
		{&JikanUserData{Score: score(9)}, Liked, true},
		{&JikanUserData{Read: -1}, Liked, true},
		{&JikanUserData{Score: score(3)}, Disliked, true},
		{&JikanUserData{Dropped: 1}, Dropped, true},
		{&JikanUserData{NotInterested: 1}, NotInterested, true},
		{&JikanUserData{Score: score(6)}, ReadNeutral, true},
		{&JikanUserData{Read: 12}, ReadNeutral, true},
		{&JikanUserData{Score: score(0)}, Unrated, false},
		{&JikanUserData{}, Unrated, false},
		{nil, Unrated, false},
	}
	for _, tc := range testCases {
		interest, ok := InterestOf(tc.userData)
		assert.Equal(t, tc.interest, interest)
		assert.Equal(t, tc.ok, ok)
	}
}

func TestJikanSchema(t *testing.T) {
	schema, err := JikanSchema()
	assert.NoError(t, err)
	assert.Contains(t, string(schema), "mal_id")
	assert.Contains(t, string(schema), "user_data")
}

func TestParseEnums(t *testing.T) {
	for _, workType := range WorkTypes {
		assert.Equal(t, workType, ParseWorkType(workType.String()))
	}
	assert.Equal(t, OtherWork, ParseWorkType("One-shot"))
	for _, interest := range []Interest{Liked, Disliked, ReadNeutral, Dropped, NotInterested} {
		parsed, err := ParseInterest(interest.String())
		assert.NoError(t, err)
		assert.Equal(t, interest, parsed)
	}
	_, err := ParseInterest("unrated")
	assert.Error(t, err)
}
