package bulk

import "github.com/joseph-ayodele/invoice-ingest/constants"

// ProgressEvent reports one status transition for one file. Events for a
// file arrive in pipeline order and a terminal status (ADDED or FAILED) is
// the last event that file ever emits.
type ProgressEvent struct {
	FileName string                 `json:"file_name"`
	Status   constants.UploadStatus `json:"status"`
	Message  string                 `json:"message"`
}

// ProgressSink receives ordered progress events. Implementations must not
// block indefinitely; the batch loop publishes synchronously.
type ProgressSink interface {
	Publish(event ProgressEvent)
}

// ProgressFunc adapts a plain function to a ProgressSink.
type ProgressFunc func(event ProgressEvent)

func (f ProgressFunc) Publish(event ProgressEvent) {
	f(event)
}

// ChannelSink buffers events on a bounded channel. There is one writer (the
// batch loop) and the caller drains Events at its own pace. Close after the
// batch call returns.
type ChannelSink struct {
	ch chan ProgressEvent
}

func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{ch: make(chan ProgressEvent, buffer)}
}

func (s *ChannelSink) Publish(event ProgressEvent) {
	s.ch <- event
}

func (s *ChannelSink) Events() <-chan ProgressEvent {
	return s.ch
}

func (s *ChannelSink) Close() {
	close(s.ch)
}
