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

package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mangarec/mangarec/base/log"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var recommendCommand = &cobra.Command{
	Use:   "recommend",
	Short: "Recommend unrated titles",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		e := openEngine(cmd)
		defer e.Close()
		n, _ := cmd.Flags().GetInt("n")
		if cmd.Flags().Changed("filter") {
			e.Config.Recommend.Filter, _ = cmd.Flags().GetString("filter")
		}
		if cmd.Flags().Changed("ban") {
			banned, _ := cmd.Flags().GetStringSlice("ban")
			e.Config.Recommend.BannedGenres = append(e.Config.Recommend.BannedGenres, banned...)
		}
		recommendations, err := e.Recommend(cmd.Context(), n)
		if err != nil {
			exitIfNotTrained(err)
			log.Logger().Fatal("failed to recommend", zap.Error(err))
		}
		if len(recommendations) == 0 {
			fmt.Println("No unrated titles to recommend.")
			return
		}
		table := tablewriter.NewWriter(os.Stdout)
		table.Header("#", "ID", "Title", "Type", "Genres", "Score")
		for i, r := range recommendations {
			_ = table.Append([]string{
				strconv.Itoa(i + 1),
				r.Item.ItemId,
				r.Item.Title,
				r.Item.Type.String(),
				strings.Join(r.Item.Genres, ", "),
				strconv.FormatFloat(float64(r.Score), 'f', 4, 32),
			})
		}
		_ = table.Render()
	},
}

func init() {
	rootCommand.AddCommand(recommendCommand)
	recommendCommand.Flags().IntP("n", "n", 0, "number of recommendations, 0 uses the configured value")
	recommendCommand.Flags().String("filter", "", "expression over item that recommendations must satisfy")
	recommendCommand.Flags().StringSlice("ban", nil, "additional genres to exclude")
}
