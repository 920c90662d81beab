package delivery

import (
	"bytes"
	"io"
	"os"
)

// archiveSink receives the ZIP stream and hands back a seekable body.
type archiveSink interface {
	io.Writer
	// Finish returns the assembled body positioned at offset zero.
	Finish() (io.ReadSeekCloser, int64, error)
	// Discard releases resources after a failed assembly.
	Discard()
}

// bufferSink keeps the archive in memory.
type bufferSink struct {
	buf bytes.Buffer
}

func (s *bufferSink) Write(p []byte) (int, error) {
	return s.buf.Write(p)
}

func (s *bufferSink) Finish() (io.ReadSeekCloser, int64, error) {
	data := s.buf.Bytes()
	return nopReadSeekCloser{bytes.NewReader(data)}, int64(len(data)), nil
}

func (s *bufferSink) Discard() {
	s.buf.Reset()
}

// fileSink spills the archive to a temp file that is removed on close.
type fileSink struct {
	file *os.File
}

func (s *fileSink) Write(p []byte) (int, error) {
	return s.file.Write(p)
}

func (s *fileSink) Finish() (io.ReadSeekCloser, int64, error) {
	info, err := s.file.Stat()
	if err != nil {
		s.Discard()
		return nil, 0, err
	}
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		s.Discard()
		return nil, 0, err
	}
	return &tempFileBody{file: s.file}, info.Size(), nil
}

func (s *fileSink) Discard() {
	name := s.file.Name()
	s.file.Close()
	os.Remove(name)
}

type tempFileBody struct {
	file *os.File
}

func (b *tempFileBody) Read(p []byte) (int, error)                   { return b.file.Read(p) }
func (b *tempFileBody) Seek(offset int64, whence int) (int64, error) { return b.file.Seek(offset, whence) }

func (b *tempFileBody) Close() error {
	name := b.file.Name()
	err := b.file.Close()
	os.Remove(name)
	return err
}

type nopReadSeekCloser struct {
	*bytes.Reader
}

func (nopReadSeekCloser) Close() error { return nil }
