package emit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/tdevries60/bro/internal/logger"
)

// defaultQueueDepth is the JSONL emitter's buffered handoff depth. When the
// queue is full, records are dropped rather than blocking the analyzer.
const defaultQueueDepth = 1024

// LogEmitter writes records as structured log entries at info level.
// Useful as a default sink and in development.
type LogEmitter struct{}

// NewLogEmitter creates a LogEmitter.
func NewLogEmitter() *LogEmitter {
	return &LogEmitter{}
}

// Emit logs the record.
func (e *LogEmitter) Emit(rec *Record) {
	logger.Info("ftp record",
		logger.KeyConnUID, rec.ConnUID,
		logger.KeyOrigAddr, rec.OrigAddr,
		logger.KeyRespAddr, rec.RespAddr,
		logger.KeyUser, rec.User,
		logger.KeyCommand, rec.Command,
		logger.KeyArg, rec.Arg,
		logger.KeyReplyCode, rec.ReplyCode,
		logger.KeyFileSize, rec.FileSize,
		logger.KeyTags, rec.Tags,
	)
}

// JSONLEmitter appends one JSON object per record to a file. Records are
// handed off through a buffered channel and written by a single background
// goroutine, so Emit never blocks the analyzer.
type JSONLEmitter struct {
	queue   chan *Record
	done    chan struct{}
	file    *os.File
	w       *bufio.Writer
	dropped int

	closeOnce sync.Once
}

// NewJSONLEmitter opens (appending) the given path and starts the writer
// goroutine.
func NewJSONLEmitter(path string) (*JSONLEmitter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open record log %q: %w", path, err)
	}

	e := &JSONLEmitter{
		queue: make(chan *Record, defaultQueueDepth),
		done:  make(chan struct{}),
		file:  f,
		w:     bufio.NewWriter(f),
	}
	go e.run()
	return e, nil
}

// Emit enqueues the record. If the queue is full the record is dropped and
// counted; the analyzer is never blocked by a slow sink.
func (e *JSONLEmitter) Emit(rec *Record) {
	select {
	case e.queue <- rec:
	default:
		e.dropped++
		logger.Warn("record sink queue full, dropping record",
			logger.KeyConnUID, rec.ConnUID,
			logger.KeyCommand, rec.Command)
	}
}

func (e *JSONLEmitter) run() {
	defer close(e.done)
	enc := json.NewEncoder(e.w)
	for rec := range e.queue {
		if err := enc.Encode(rec); err != nil {
			logger.Error("failed to encode record", logger.KeyError, err)
		}
	}
	if err := e.w.Flush(); err != nil {
		logger.Error("failed to flush record log", logger.KeyError, err)
	}
}

// Close drains the queue, flushes and closes the file.
func (e *JSONLEmitter) Close() error {
	var err error
	e.closeOnce.Do(func() {
		close(e.queue)
		<-e.done
		err = e.file.Close()
	})
	return err
}

// MultiEmitter fans a record out to several sinks in order.
type MultiEmitter []Emitter

// Emit forwards the record to every sink.
func (m MultiEmitter) Emit(rec *Record) {
	for _, e := range m {
		e.Emit(rec)
	}
}
