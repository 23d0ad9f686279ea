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
	"bytes"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/goccy/go-json"
	"github.com/invopop/jsonschema"
	"github.com/juju/errors"
	"github.com/mangarec/mangarec/base/log"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// JikanGenre is a genre reference of a Jikan manga entry.
type JikanGenre struct {
	Name string `json:"name"`
}

// JikanUserData is the user's list state attached to a manga entry.
type JikanUserData struct {
	Score         *float64 `json:"score,omitempty" jsonschema:"minimum=0,maximum=10"`
	Read          int      `json:"read,omitempty" jsonschema:"description=-1 means finished"`
	Dropped       int      `json:"dropped,omitempty" jsonschema:"enum=0,enum=1"`
	NotInterested int      `json:"not_interested,omitempty" jsonschema:"enum=0,enum=1"`
}

// JikanEntry is a manga entry of the Jikan (MyAnimeList) API with user data.
type JikanEntry struct {
	MalId    int          `json:"mal_id" jsonschema:"required"`
	Title    string       `json:"title" jsonschema:"required"`
	Type     string       `json:"type,omitempty"`
	Score    *float64     `json:"score,omitempty"`
	Chapters *int         `json:"chapters,omitempty"`
	Volumes  *int         `json:"volumes,omitempty"`
	Genres   []JikanGenre `json:"genres,omitempty"`
	Synopsis string       `json:"synopsis,omitempty"`
	Images   struct {
		JPG struct {
			ImageURL string `json:"image_url,omitempty"`
		} `json:"jpg"`
	} `json:"images"`
	Published struct {
		From string `json:"from,omitempty"`
	} `json:"published"`
	UserData *JikanUserData `json:"user_data,omitempty"`
}

type jikanPage struct {
	Data []JikanEntry `json:"data"`
}

// JikanSchema returns the JSON schema of an entry accepted by ParseJikan.
func JikanSchema() ([]byte, error) {
	schema := jsonschema.Reflect(&JikanEntry{})
	return json.MarshalIndent(schema, "", "  ")
}

// ParseJikan reads a Jikan dump, either a JSON array of entries or a page object with a
// "data" array, and converts it to catalog items and annotations stamped with timestamp.
func ParseJikan(r io.Reader, timestamp time.Time) ([]Item, []Annotation, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	var entries []JikanEntry
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var page jikanPage
		if err = json.Unmarshal(trimmed, &page); err != nil {
			return nil, nil, errors.Annotate(err, "parse jikan page")
		}
		entries = page.Data
	} else if err = json.Unmarshal(trimmed, &entries); err != nil {
		return nil, nil, errors.Annotate(err, "parse jikan entries")
	}

	items := make([]Item, 0, len(entries))
	var annotations []Annotation
	for _, entry := range entries {
		if entry.MalId == 0 {
			log.Logger().Warn("skip jikan entry without mal_id", zap.String("title", entry.Title))
			continue
		}
		item := Item{
			ItemId:   strconv.Itoa(entry.MalId),
			Title:    entry.Title,
			Type:     ParseWorkType(entry.Type),
			Chapters: entry.Chapters,
			Score:    entry.Score,
			Synopsis: entry.Synopsis,
			ImageURL: entry.Images.JPG.ImageURL,
		}
		item.Genres = lo.Uniq(lo.FilterMap(entry.Genres, func(g JikanGenre, _ int) (string, bool) {
			name := strings.TrimSpace(g.Name)
			return name, name != ""
		}))
		if entry.Published.From != "" {
			if published, err := dateparse.ParseAny(entry.Published.From); err != nil {
				log.Logger().Warn("failed to parse publication date",
					zap.String("item_id", item.ItemId), zap.String("from", entry.Published.From), zap.Error(err))
			} else {
				published = published.UTC()
				item.Published = &published
			}
		}
		items = append(items, item)
		if interest, ok := InterestOf(entry.UserData); ok {
			annotations = append(annotations, Annotation{
				ItemId:    item.ItemId,
				Interest:  interest,
				Timestamp: timestamp,
			})
		}
	}
	return items, annotations, nil
}

// InterestOf maps list state to an interest. A score of zero means not scored.
func InterestOf(userData *JikanUserData) (Interest, bool) {
	if userData == nil {
		return Unrated, false
	}
	scored := userData.Score != nil && *userData.Score > 0
	switch {
	case scored && *userData.Score >= 8:
		return Liked, true
	case userData.Read == -1:
		return Liked, true
	case userData.Dropped == 1:
		return Dropped, true
	case userData.NotInterested == 1:
		return NotInterested, true
	case scored && *userData.Score <= 4:
		return Disliked, true
	case scored || userData.Read > 0:
		return ReadNeutral, true
	}
	return Unrated, false
}
