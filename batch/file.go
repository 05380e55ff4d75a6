// Copyright 2024 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

// Package batch implements batch files, the unit of publication: a snappy
// framed stream of RLP encoded announcement rows, named and identified by the
// keccak256 hash of the file.
package batch

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/Liberty30/fandom-example-client/announcement"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/golang/snappy"
)

// Extension is appended to the file hash to form the stored file name.
const Extension = ".batch"

// maxRowSize caps the size of a single encoded row.
const maxRowSize = 64 * 1024

var (
	ErrEmptyBatch      = errors.New("empty batch")
	ErrBatchUnreadable = errors.New("batch file unreadable")
)

// File is an encoded batch file ready for upload.
type File struct {
	Type  announcement.Type // type shared by all rows
	Count int               // number of rows
	Data  []byte            // encoded file contents
	Hash  common.Hash       // keccak256 of Data
}

// Name returns the storage name of the file.
func (f *File) Name() string {
	return f.Hash.Hex() + Extension
}

// Create encodes the announcements, in order, into a batch file. All
// announcements of a file must share the same type.
func Create(anns []*announcement.Announcement) (*File, error) {
	if len(anns) == 0 {
		return nil, ErrEmptyBatch
	}
	var (
		buf = new(bytes.Buffer)
		w   = NewWriter(buf)
		typ = anns[0].Type
	)
	for i, a := range anns {
		if a.Type != typ {
			return nil, fmt.Errorf("mixed announcement types in batch: row %d is %v, want %v", i, a.Type, typ)
		}
		if err := w.Append(a); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	data := buf.Bytes()
	return &File{Type: typ, Count: len(anns), Data: data, Hash: crypto.Keccak256Hash(data)}, nil
}

// Writer streams announcement rows into a batch file.
type Writer struct {
	snappy *snappy.Writer
}

// NewWriter creates a writer emitting the batch file to w. Close must be
// called to flush the final frame.
func NewWriter(w io.Writer) *Writer {
	return &Writer{snappy: snappy.NewBufferedWriter(w)}
}

// Append writes one announcement row.
func (w *Writer) Append(a *announcement.Announcement) error {
	row, err := a.EncodeRow()
	if err != nil {
		return err
	}
	_, err = w.snappy.Write(row)
	return err
}

// Close flushes buffered rows.
func (w *Writer) Close() error {
	return w.snappy.Close()
}

// Reader yields the raw rows of a batch file in file order.
type Reader struct {
	stream *rlp.Stream
	closer io.Closer
	rows   int
}

// NewReader creates a reader over an encoded batch file. If r is an
// io.Closer it is closed by Close.
func NewReader(r io.Reader) *Reader {
	reader := &Reader{stream: rlp.NewStream(snappy.NewReader(r), 0)}
	if c, ok := r.(io.Closer); ok {
		reader.closer = c
	}
	return reader
}

// Next returns the next raw row. It returns io.EOF after the last row and
// an error wrapping ErrBatchUnreadable if the file is corrupt.
func (r *Reader) Next() ([]byte, error) {
	kind, size, err := r.stream.Kind()
	switch {
	case err == io.EOF:
		return nil, io.EOF
	case err != nil:
		return nil, fmt.Errorf("%w: row %d: %v", ErrBatchUnreadable, r.rows, err)
	case kind != rlp.List:
		return nil, fmt.Errorf("%w: row %d is not a list", ErrBatchUnreadable, r.rows)
	case size > maxRowSize:
		return nil, fmt.Errorf("%w: row %d too large (%d bytes)", ErrBatchUnreadable, r.rows, size)
	}
	row, err := r.stream.Raw()
	if err != nil {
		return nil, fmt.Errorf("%w: row %d: %v", ErrBatchUnreadable, r.rows, err)
	}
	r.rows++
	return row, nil
}

// Rows returns the number of rows read so far.
func (r *Reader) Rows() int {
	return r.rows
}

// Close releases the underlying source.
func (r *Reader) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}
