package collector

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/klauspost/compress/zstd"
	msgpack "github.com/vmihailenco/msgpack/v5"

	"git.backbone/corpix/stingray/pkg/errors"
)

// FileSink appends hits to an archive where every hit is a msgpack record
// in its own zstd frame, so a torn write only loses the last hit.
type FileSink struct {
	lock       sync.Mutex
	path       string
	file       *os.File
	compressor *zstd.Encoder
}

func (s *FileSink) Write(ctx context.Context, hit Hit) error {
	buf, err := msgpack.Marshal(&hit)
	if err != nil {
		return errors.Wrap(err, "failed to marshal hit")
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	_, err = s.file.Write(s.compressor.EncodeAll(buf, nil))
	if err != nil {
		return errors.Wrapf(err, "failed to append hit to %q", s.path)
	}
	return nil
}

func (s *FileSink) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	err := s.compressor.Close()
	if err != nil {
		return err
	}
	return s.file.Close()
}

func OpenFileSink(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0640)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open file sink %q", path)
	}

	compressor, err := zstd.NewWriter(nil)
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrap(err, "failed to create compressor")
	}

	return &FileSink{
		path:       path,
		file:       f,
		compressor: compressor,
	}, nil
}

//

// ReadFile reads every hit stored in a file sink archive.
func ReadFile(path string) ([]Hit, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %q", path)
	}
	defer f.Close()

	return ReadHits(f)
}

func ReadHits(r io.Reader) ([]Hit, error) {
	decompressor, err := zstd.NewReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create decompressor")
	}
	defer decompressor.Close()

	var (
		hits []Hit
		dec  = msgpack.NewDecoder(decompressor)
	)
	for {
		var hit Hit
		err := dec.Decode(&hit)
		if err == io.EOF {
			return hits, nil
		}
		if err != nil {
			return hits, errors.Wrapf(err, "failed to decode hit #%d", len(hits))
		}
		hits = append(hits, hit)
	}
}
