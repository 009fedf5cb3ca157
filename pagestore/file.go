package pagestore

import (
	"io"
	"os"

	"github.com/pkg/errors"
)

// 4 methods -- ReadAt, WriteAt, `Sync() error` and `Close() error`
type syncFile interface {
	io.ReaderAt
	io.WriterAt
	io.Closer
	Sync() error
}

// fileBackend keeps page n at byte offset n*pageSize of a single file.
type fileBackend struct {
	file     syncFile
	pageSize int
}

// OpenFile opens (or creates) a page file. truncate starts from an empty file.
func OpenFile(path string, pageSize int, truncate bool) (*Store, error) {
	flags := os.O_RDWR | os.O_CREATE
	if truncate {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, err
	}
	s, err := New(pageSize, &fileBackend{file: f, pageSize: pageSize})
	if err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

func (b *fileBackend) offset(pageNo int32) int64 {
	return int64(pageNo) * int64(b.pageSize)
}

func (b *fileBackend) ReadPage(pageNo int32, buf []byte) error {
	r := io.NewSectionReader(b.file, b.offset(pageNo), int64(b.pageSize))
	n, err := io.ReadFull(r, buf)
	// A page past the end of the file was never flushed, and the very last page may be
	// short if we crashed while extending the file. Both read as zero-filled, so we
	// disregard io.EOF and io.ErrUnexpectedEOF and treat them as something expected.
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return err
	}
	clear(buf[n:])
	return nil
}

// WritePage writes the page in place and forces a sync of its contents to stable storage
func (b *fileBackend) WritePage(pageNo int32, buf []byte) error {
	if _, err := b.file.WriteAt(buf, b.offset(pageNo)); err != nil {
		return err
	}
	// data is immediately written to disk rather than stuck in the Linux page cache.
	return b.file.Sync()
}

func (b *fileBackend) Close() error {
	err := b.file.Close()
	b.file = nil
	return err
}
