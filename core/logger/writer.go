package logger

import (
	"bufio"
	"io"
	"sync"
)

// asyncWriter decouples the handler from sink latency: records are queued
// and written by one goroutine, so a slow stdout pipe or log file never
// blocks webhook handling. The bot logs to a single combined sink (stdout,
// optionally tee'd into a file via io.MultiWriter).
type asyncWriter struct {
	queue    chan []byte
	flushReq chan chan error
	done     chan struct{}
	once     sync.Once

	mu   sync.Mutex
	sink *bufio.Writer
	err  error
}

func newAsyncWriter(sink io.Writer, bufSize int) *asyncWriter {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	w := &asyncWriter{
		queue:    make(chan []byte, 256),
		flushReq: make(chan chan error),
		done:     make(chan struct{}),
		sink:     bufio.NewWriterSize(sink, bufSize),
	}
	go w.drain()
	return w
}

func (w *asyncWriter) drain() {
	for {
		select {
		case rec, ok := <-w.queue:
			if !ok {
				w.flushSink()
				close(w.done)
				return
			}
			if len(rec) == 0 {
				continue
			}
			if err := w.writeSink(rec); err != nil {
				w.recordErr(err)
			}
		case ack := <-w.flushReq:
			ack <- w.flushSink()
		}
	}
}

// Write copies the record and hands it to the drain goroutine. It blocks
// when the queue is full rather than dropping log lines.
func (w *asyncWriter) Write(p []byte) error {
	if err := w.firstErr(); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}
	rec := make([]byte, len(p))
	copy(rec, p)
	w.queue <- rec
	return nil
}

// Flush blocks until everything queued so far has reached the sink.
func (w *asyncWriter) Flush() error {
	if err := w.firstErr(); err != nil {
		return err
	}
	ack := make(chan error, 1)
	w.flushReq <- ack
	return <-ack
}

// Close drains the queue and reports the first write error, if any.
func (w *asyncWriter) Close() error {
	w.once.Do(func() {
		close(w.queue)
	})
	<-w.done
	return w.firstErr()
}

func (w *asyncWriter) writeSink(p []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.sink.Write(p); err != nil {
		return err
	}
	return w.sink.Flush()
}

func (w *asyncWriter) flushSink() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.sink.Flush()
}

func (w *asyncWriter) firstErr() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

func (w *asyncWriter) recordErr(err error) {
	if err == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err == nil {
		w.err = err
	}
}
