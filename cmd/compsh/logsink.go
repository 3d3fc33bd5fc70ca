package main

import (
	"net/url"
	"os"

	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"
)

var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

// newCompressedSink opens the zstd:// sink at u.Path. New frames are appended
// to a file that already holds zstd data; any other existing content is
// replaced.
func newCompressedSink(u *url.URL) (zap.Sink, error) {
	filePath := u.Path

	flags := os.O_CREATE | os.O_WRONLY
	if info, err := os.Stat(filePath); err == nil && info.Size() > 0 {
		if hasZstdMagic(filePath) {
			flags |= os.O_APPEND
		} else {
			flags |= os.O_TRUNC
		}
	}

	file, err := os.OpenFile(filePath, flags, 0644)
	if err != nil {
		return nil, err
	}

	encoder, err := zstd.NewWriter(file, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		_ = file.Close()
		return nil, err
	}

	return &compressedSink{
		file:    file,
		encoder: encoder,
	}, nil
}

func hasZstdMagic(filePath string) bool {
	file, err := os.Open(filePath)
	if err != nil {
		return false
	}
	defer func() {
		_ = file.Close()
	}()

	buf := make([]byte, len(zstdMagic))
	n, err := file.Read(buf)
	if err != nil || n < len(zstdMagic) {
		return false
	}
	for i, b := range zstdMagic {
		if buf[i] != b {
			return false
		}
	}
	return true
}

// compressedSink is a zap.Sink writing one zstd stream per session.
type compressedSink struct {
	file    *os.File
	encoder *zstd.Encoder
}

// Write reports len(p) on success, whatever the compressed size.
func (s *compressedSink) Write(p []byte) (int, error) {
	if _, err := s.encoder.Write(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (s *compressedSink) Sync() error {
	if err := s.encoder.Flush(); err != nil {
		return err
	}
	return s.file.Sync()
}

// Close always closes the file, even when finishing the frame fails.
func (s *compressedSink) Close() error {
	encErr := s.encoder.Close()
	fileErr := s.file.Close()

	if encErr != nil {
		return encErr
	}
	return fileErr
}
