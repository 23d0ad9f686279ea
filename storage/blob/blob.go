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

package blob

import (
	"context"
	"io"

	"github.com/juju/errors"
	"github.com/mangarec/mangarec/config"
)

// Store keeps named blobs such as model artifacts.
type Store interface {
	// Open a blob for reading.
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	// Create a blob for writing. The returned channel receives the result of the upload
	// after the writer is closed.
	Create(ctx context.Context, name string) (io.WriteCloser, chan error, error)
	// List names of all blobs.
	List(ctx context.Context) ([]string, error)
	// Remove a blob.
	Remove(ctx context.Context, name string) error
}

// NewStore creates a blob store from the [blob] section.
func NewStore(cfg config.BlobConfig) (Store, error) {
	switch cfg.Type {
	case "", "posix":
		return NewPOSIX(cfg.Dir), nil
	case "s3":
		return NewS3(cfg.S3)
	case "gcs":
		return NewGCS(cfg.GCS)
	case "azure":
		return NewAzureBlob(cfg.Azure)
	}
	return nil, errors.NotSupportedf("blob store %s", cfg.Type)
}

// Write creates a blob and writes data produced by fn into it.
func Write(ctx context.Context, store Store, name string, fn func(w io.Writer) error) error {
	w, done, err := store.Create(ctx, name)
	if err != nil {
		return errors.Trace(err)
	}
	if err = fn(w); err != nil {
		if pw, ok := w.(*io.PipeWriter); ok {
			_ = pw.CloseWithError(err)
		} else {
			_ = w.Close()
		}
		<-done
		return errors.Trace(err)
	}
	if err = w.Close(); err != nil {
		<-done
		return errors.Trace(err)
	}
	return errors.Trace(<-done)
}

// upload runs fn with the reading end of a pipe and reports its result on the done channel.
func upload(fn func(r io.Reader) error) (io.WriteCloser, chan error) {
	pr, pw := io.Pipe()
	done := make(chan error, 1)
	go func() {
		defer close(done)
		err := fn(pr)
		_ = pr.CloseWithError(err)
		done <- err
	}()
	return pw, done
}
