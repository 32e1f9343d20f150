package bulk_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-ingest/constants"
	"github.com/joseph-ayodele/invoice-ingest/internal/bulk"
	"github.com/joseph-ayodele/invoice-ingest/internal/entity"
	"github.com/joseph-ayodele/invoice-ingest/internal/llm"
	"github.com/joseph-ayodele/invoice-ingest/internal/repository"
)

// fakeStorage keeps blobs in a map and can be told to fail specific files.
type fakeStorage struct {
	mu      sync.Mutex
	blobs   map[string][]byte
	failFor map[string]error // keyed by file name
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{blobs: map[string][]byte{}, failFor: map[string]error{}}
}

func (s *fakeStorage) Store(_ context.Context, r io.Reader, fileName string) (string, error) {
	if err := s.failFor[fileName]; err != nil {
		return "", err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	path := "uploads/invoices/" + fileName
	s.blobs[path] = data
	return path, nil
}

func (s *fakeStorage) Open(_ context.Context, path string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.blobs[path]
	if !ok {
		return nil, errors.New("blob not found")
	}
	return io.NopCloser(strings.NewReader(string(data))), nil
}

func (s *fakeStorage) Exists(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.blobs[path]
	return ok
}

func (s *fakeStorage) Delete(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, path)
	return nil
}

// fakeExtractor returns a canned result (or error) per file name.
type fakeExtractor struct {
	results map[string]*llm.ExtractedInvoice
	errs    map[string]error
}

func (e *fakeExtractor) ExtractInvoiceData(_ context.Context, _ []byte, displayName string) (*llm.ExtractedInvoice, error) {
	if err := e.errs[displayName]; err != nil {
		return nil, err
	}
	return e.results[displayName], nil
}

// fakeInvoiceRepo records created invoices.
type fakeInvoiceRepo struct {
	created   []*repository.CreateInvoiceRequest
	createErr error
}

func (r *fakeInvoiceRepo) CreateWithItems(_ context.Context, req *repository.CreateInvoiceRequest) (*entity.Invoice, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	r.created = append(r.created, req)
	return &entity.Invoice{ID: uuid.New(), PlanID: req.PlanID, Amount: req.Amount, Type: req.Type}, nil
}

func (r *fakeInvoiceRepo) GetByID(context.Context, uuid.UUID) (*entity.Invoice, error) {
	return nil, errors.New("not implemented")
}

func (r *fakeInvoiceRepo) ListByPlan(context.Context, uuid.UUID) ([]*entity.Invoice, error) {
	return nil, errors.New("not implemented")
}

func (r *fakeInvoiceRepo) Delete(context.Context, uuid.UUID) (string, error) {
	return "", errors.New("not implemented")
}

// collectSink appends events in publish order.
type collectSink struct {
	events []bulk.ProgressEvent
}

func (s *collectSink) Publish(e bulk.ProgressEvent) {
	s.events = append(s.events, e)
}

func (s *collectSink) terminal(fileName string) (bulk.ProgressEvent, bool) {
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].FileName == fileName {
			return s.events[i], s.events[i].Status.Terminal()
		}
	}
	return bulk.ProgressEvent{}, false
}

func strPtr(s string) *string { return &s }

func materialInvoice(amount float64, items ...llm.ExtractedInvoiceItem) *llm.ExtractedInvoice {
	return &llm.ExtractedInvoice{
		Serial: strPtr("M-1"),
		Date:   strPtr("2026-02-01"),
		Amount: amount,
		Type:   "Material",
		Items:  items,
	}
}

func newProcessor(store *fakeStorage, ext *fakeExtractor, repo *fakeInvoiceRepo) *bulk.Processor {
	return bulk.NewProcessor(slog.New(slog.DiscardHandler), store, ext, repo)
}

func TestProcessBatch_MixedOutcomes(t *testing.T) {
	t.Parallel()

	// file 1 fails storage, file 2 is a Travel invoice (no items stage, added),
	// file 3 is a Material invoice whose items do not reconcile (failed, blob
	// deleted). Exactly one invoice must be persisted.
	store := newFakeStorage()
	store.failFor["broken.pdf"] = errors.New("disk full")

	ext := &fakeExtractor{
		results: map[string]*llm.ExtractedInvoice{
			"travel.pdf": {Serial: strPtr("T-9"), Amount: 320, Type: "Travel"},
			"material.pdf": materialInvoice(500,
				llm.ExtractedInvoiceItem{Name: "cable", Pretax: 100, Tax: 13},
			),
		},
	}
	repo := &fakeInvoiceRepo{}
	sink := &collectSink{}

	files := []bulk.FileSubmission{
		{FileName: "broken.pdf", Data: []byte("a")},
		{FileName: "travel.pdf", Data: []byte("b")},
		{FileName: "material.pdf", Data: []byte("c")},
	}

	planID := uuid.New()
	err := newProcessor(store, ext, repo).ProcessBatch(context.Background(), files, "payer-1", planID, sink)
	require.NoError(t, err)

	// one terminal event per file, in input order
	ev, ok := sink.terminal("broken.pdf")
	require.True(t, ok)
	assert.Equal(t, constants.StatusFailed, ev.Status)
	assert.Contains(t, ev.Message, "disk full")

	ev, ok = sink.terminal("travel.pdf")
	require.True(t, ok)
	assert.Equal(t, constants.StatusAdded, ev.Status)
	assert.Contains(t, ev.Message, "Travel")
	assert.Contains(t, ev.Message, "320.00")

	ev, ok = sink.terminal("material.pdf")
	require.True(t, ok)
	assert.Equal(t, constants.StatusFailed, ev.Status)
	assert.Contains(t, ev.Message, "113.00")
	assert.Contains(t, ev.Message, "500.00")

	// terminal order matches input order
	var terminalOrder []string
	for _, e := range sink.events {
		if e.Status.Terminal() {
			terminalOrder = append(terminalOrder, e.FileName)
		}
	}
	assert.Equal(t, []string{"broken.pdf", "travel.pdf", "material.pdf"}, terminalOrder)

	// exactly one invoice persisted, and only the successful file's blob remains
	require.Len(t, repo.created, 1)
	assert.Equal(t, planID, repo.created[0].PlanID)
	assert.Equal(t, constants.Travel, repo.created[0].Type)
	assert.True(t, store.Exists("uploads/invoices/travel.pdf"))
	assert.False(t, store.Exists("uploads/invoices/material.pdf"))
}

func TestProcessBatch_StorageFailureSkipsExtraction(t *testing.T) {
	t.Parallel()

	store := newFakeStorage()
	store.failFor["a.pdf"] = errors.New("permission denied")

	extractorCalled := false
	ext := &fakeExtractor{}
	sink := &collectSink{}

	p := bulk.NewProcessor(slog.New(slog.DiscardHandler), store, extractorFunc(func() {
		extractorCalled = true
	}, ext), &fakeInvoiceRepo{})

	err := p.ProcessBatch(context.Background(), []bulk.FileSubmission{{FileName: "a.pdf", Data: []byte("x")}},
		"", uuid.New(), sink)
	require.NoError(t, err)

	assert.False(t, extractorCalled)

	// the status sequence ends at FAILED immediately after UPLOADING
	require.Len(t, sink.events, 2)
	assert.Equal(t, constants.StatusUploading, sink.events[0].Status)
	assert.Equal(t, constants.StatusFailed, sink.events[1].Status)
}

// extractorFunc wraps a fakeExtractor with a call hook.
type hookedExtractor struct {
	hook  func()
	inner *fakeExtractor
}

func extractorFunc(hook func(), inner *fakeExtractor) *hookedExtractor {
	return &hookedExtractor{hook: hook, inner: inner}
}

func (h *hookedExtractor) ExtractInvoiceData(ctx context.Context, data []byte, name string) (*llm.ExtractedInvoice, error) {
	h.hook()
	return h.inner.ExtractInvoiceData(ctx, data, name)
}

func TestProcessBatch_NilExtractionDeletesBlob(t *testing.T) {
	t.Parallel()

	store := newFakeStorage()
	ext := &fakeExtractor{} // returns nil for every file
	sink := &collectSink{}

	err := newProcessor(store, ext, &fakeInvoiceRepo{}).ProcessBatch(context.Background(),
		[]bulk.FileSubmission{{FileName: "scan.pdf", Data: []byte("x")}}, "", uuid.New(), sink)
	require.NoError(t, err)

	ev, ok := sink.terminal("scan.pdf")
	require.True(t, ok)
	assert.Equal(t, constants.StatusFailed, ev.Status)
	assert.Equal(t, "Failed to extract invoice data", ev.Message)
	assert.False(t, store.Exists("uploads/invoices/scan.pdf"))
}

func TestProcessBatch_MaterialWithinToleranceIsPersistedWithItems(t *testing.T) {
	t.Parallel()

	store := newFakeStorage()
	ext := &fakeExtractor{
		results: map[string]*llm.ExtractedInvoice{
			"m.pdf": materialInvoice(113.005,
				llm.ExtractedInvoiceItem{Name: "bolt", Specification: strPtr("M6"), Pretax: 100, Tax: 13},
			),
		},
	}
	repo := &fakeInvoiceRepo{}
	sink := &collectSink{}

	err := newProcessor(store, ext, repo).ProcessBatch(context.Background(),
		[]bulk.FileSubmission{{FileName: "m.pdf", Data: []byte("x")}}, "payer-7", uuid.New(), sink)
	require.NoError(t, err)

	ev, ok := sink.terminal("m.pdf")
	require.True(t, ok)
	assert.Equal(t, constants.StatusAdded, ev.Status)

	require.Len(t, repo.created, 1)
	created := repo.created[0]
	assert.Equal(t, constants.Material, created.Type)
	require.NotNil(t, created.PayerID)
	assert.Equal(t, "payer-7", *created.PayerID)
	require.Len(t, created.Items, 1)
	assert.Equal(t, "bolt", created.Items[0].Name)
	require.NotNil(t, created.Items[0].Specification)
	assert.Equal(t, "M6", *created.Items[0].Specification)
	require.NotNil(t, created.Date)
	assert.Equal(t, "2026-02-01", created.Date.Format("2006-01-02"))
}

func TestProcessBatch_PersistenceErrorCleansUp(t *testing.T) {
	t.Parallel()

	store := newFakeStorage()
	ext := &fakeExtractor{
		results: map[string]*llm.ExtractedInvoice{
			"t.pdf": {Amount: 10, Type: "Others"},
		},
	}
	repo := &fakeInvoiceRepo{createErr: errors.New("unique constraint violated")}
	sink := &collectSink{}

	err := newProcessor(store, ext, repo).ProcessBatch(context.Background(),
		[]bulk.FileSubmission{{FileName: "t.pdf", Data: []byte("x")}}, "", uuid.New(), sink)
	require.NoError(t, err)

	ev, ok := sink.terminal("t.pdf")
	require.True(t, ok)
	assert.Equal(t, constants.StatusFailed, ev.Status)
	assert.Contains(t, ev.Message, "unique constraint violated")
	assert.False(t, store.Exists("uploads/invoices/t.pdf"))
}

func TestProcessBatch_CancelledContextStopsBatch(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := &collectSink{}
	err := newProcessor(newFakeStorage(), &fakeExtractor{}, &fakeInvoiceRepo{}).ProcessBatch(ctx,
		[]bulk.FileSubmission{{FileName: "a.pdf", Data: []byte("x")}}, "", uuid.New(), sink)

	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, sink.events)
}

func TestReadSubmissions_ReadFailureDoesNotAbortRest(t *testing.T) {
	t.Parallel()

	sink := &collectSink{}
	p := newProcessor(newFakeStorage(), &fakeExtractor{}, &fakeInvoiceRepo{})

	inputs := []bulk.UploadInput{
		{FileName: "ok1.pdf", Reader: strings.NewReader("first")},
		{FileName: "bad.pdf", Reader: failingReader{}},
		{FileName: "ok2.pdf", Reader: strings.NewReader("second")},
	}

	subs := p.ReadSubmissions(inputs, sink)

	require.Len(t, subs, 2)
	assert.Equal(t, "ok1.pdf", subs[0].FileName)
	assert.Equal(t, []byte("first"), subs[0].Data)
	assert.Equal(t, "ok2.pdf", subs[1].FileName)

	ev, ok := sink.terminal("bad.pdf")
	require.True(t, ok)
	assert.Equal(t, constants.StatusFailed, ev.Status)
	assert.Contains(t, ev.Message, "Failed to read file")
}

func TestReadSubmissions_EnforcesSizeCap(t *testing.T) {
	t.Parallel()

	sink := &collectSink{}
	p := newProcessor(newFakeStorage(), &fakeExtractor{}, &fakeInvoiceRepo{})

	huge := strings.NewReader(strings.Repeat("x", constants.MaxUploadBytes+1))
	subs := p.ReadSubmissions([]bulk.UploadInput{{FileName: "huge.pdf", Reader: huge}}, sink)

	assert.Empty(t, subs)
	ev, ok := sink.terminal("huge.pdf")
	require.True(t, ok)
	assert.Equal(t, constants.StatusFailed, ev.Status)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("stream reset")
}
