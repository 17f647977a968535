package collector

import (
	"context"

	"git.backbone/corpix/stingray/pkg/errors"
	"git.backbone/corpix/stingray/pkg/log"
)

// Sink stores hits. Implementations are safe for concurrent use.
type Sink interface {
	Write(ctx context.Context, hit Hit) error
	Close() error
}

//

type LogSink struct {
	log log.Logger
}

func (s *LogSink) Write(ctx context.Context, hit Hit) error {
	evt := s.log.Info().
		Str("id", hit.ID).
		Str("remote_addr", hit.RemoteAddr).
		Str("user_agent", hit.UserAgent).
		Str("referer", hit.Referer)

	data := make(map[string]interface{}, len(hit.Data))
	for k, v := range hit.Data {
		data[k] = v
	}
	evt.Fields(data).Msg("beacon")

	return nil
}

func (s *LogSink) Close() error { return nil }

func NewLogSink(l log.Logger) *LogSink {
	return &LogSink{log: l.With().Str("sink", SinkTypeLog).Logger()}
}

//

func NewSink(c SinkConfig, l log.Logger) (Sink, error) {
	switch c.Type {
	case SinkTypeLog, "":
		return NewLogSink(l), nil
	case SinkTypeFile:
		return OpenFileSink(c.Path)
	case SinkTypeSQLite:
		return OpenSQLiteSink(c.Path)
	default:
		return nil, errors.Errorf("unexpected sink type %q", c.Type)
	}
}
