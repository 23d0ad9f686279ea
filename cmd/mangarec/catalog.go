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
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/juju/errors"
	"github.com/mangarec/mangarec/base/log"
	"github.com/mangarec/mangarec/storage/catalog"
	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var importCommand = &cobra.Command{
	Use:   "import [path or URL]",
	Short: "Import titles and list state from a Jikan JSON dump",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if printSchema, _ := cmd.Flags().GetBool("print-schema"); printSchema {
			schema, err := catalog.JikanSchema()
			if err != nil {
				log.Logger().Fatal("failed to generate schema", zap.Error(err))
			}
			fmt.Println(string(schema))
			return
		}
		if len(args) == 0 {
			log.Logger().Fatal("missing path of dump")
		}
		r, err := openDump(args[0])
		if err != nil {
			log.Logger().Fatal("failed to open dump", zap.String("path", args[0]), zap.Error(err))
		}
		defer r.Close()
		e := openEngine(cmd)
		defer e.Close()
		nItems, nAnnotations, err := e.Import(cmd.Context(), r)
		if err != nil {
			log.Logger().Fatal("failed to import dump", zap.Error(err))
		}
		fmt.Printf("Imported %d titles and %d new ratings\n", nItems, nAnnotations)
	},
}

// openDump opens a local file or downloads over HTTP(S) with a progress bar.
func openDump(path string) (io.ReadCloser, error) {
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		return os.Open(path)
	}
	resp, err := http.Get(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, errors.Errorf("download %s: %s", path, resp.Status)
	}
	pbReader := progressbar.NewReader(resp.Body, progressbar.DefaultBytes(
		resp.ContentLength,
		"Downloading dump",
	))
	return readCloser{Reader: &pbReader, Closer: resp.Body}, nil
}

type readCloser struct {
	io.Reader
	io.Closer
}

var rateCommand = &cobra.Command{
	Use:   "rate <item> <liked|disliked|read|dropped|not_interested|unrated>",
	Short: "Record interest in a title",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		interest := catalog.Unrated
		if args[1] != catalog.Unrated.String() {
			var err error
			if interest, err = catalog.ParseInterest(args[1]); err != nil {
				log.Logger().Fatal("invalid interest", zap.Error(err))
			}
		}
		e := openEngine(cmd)
		defer e.Close()
		if err := e.Rate(cmd.Context(), args[0], interest); err != nil {
			log.Logger().Fatal("failed to rate", zap.String("item_id", args[0]), zap.Error(err))
		}
	},
}

var exportCommand = &cobra.Command{
	Use:   "export <path>",
	Short: "Export labeled feature vectors in Parquet format",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		e := openEngine(cmd)
		defer e.Close()
		f, err := os.Create(args[0])
		if err != nil {
			log.Logger().Fatal("failed to create file", zap.Error(err))
		}
		n, err := e.Export(cmd.Context(), f)
		if err != nil {
			_ = f.Close()
			log.Logger().Fatal("failed to export dataset", zap.Error(err))
		}
		if err = f.Close(); err != nil {
			log.Logger().Fatal("failed to close file", zap.Error(err))
		}
		fmt.Printf("Exported %d samples to %s\n", n, args[0])
	},
}

var reportCommand = &cobra.Command{
	Use:   "report",
	Short: "Summarize genre preferences",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		e := openEngine(cmd)
		defer e.Close()
		n, _ := cmd.Flags().GetInt("n")
		report, err := e.GenreReport(cmd.Context(), n)
		if err != nil {
			log.Logger().Fatal("failed to build report", zap.Error(err))
		}
		fmt.Printf("%d positive and %d negative ratings\n", report.Positive, report.Negative)
		table := tablewriter.NewWriter(os.Stdout)
		table.Header("Genre", "Positive", "Negative")
		for _, count := range report.Top {
			_ = table.Append([]string{count.Genre, strconv.Itoa(count.Positive), strconv.Itoa(count.Negative)})
		}
		_ = table.Render()

		if trend, _ := cmd.Flags().GetBool("trend"); trend {
			table = tablewriter.NewWriter(os.Stdout)
			table.Header("Month", "Genre", "Positive", "Negative")
			for _, period := range report.Trend {
				for _, count := range period.Genres {
					_ = table.Append([]string{
						period.Period.Format("2006-01"),
						count.Genre,
						strconv.Itoa(count.Positive),
						strconv.Itoa(count.Negative),
					})
				}
			}
			_ = table.Render()
		}
	},
}

func init() {
	rootCommand.AddCommand(importCommand, rateCommand, exportCommand, reportCommand)
	importCommand.Flags().Bool("print-schema", false, "print JSON schema of dump entries and exit")
	reportCommand.Flags().IntP("n", "n", 10, "number of genres, negative shows all")
	reportCommand.Flags().Bool("trend", false, "show genre counts per month")
}
