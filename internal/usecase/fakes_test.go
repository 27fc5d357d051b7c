package usecase

import (
	"context"
	"sync"
	"time"

	"StockPulse/internal/domain/models"
)

type fakeMetrics struct {
	mu       sync.Mutex
	errors   map[string]int
	flushes  map[string]int
	ingested map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{errors: map[string]int{}, flushes: map[string]int{}, ingested: map[string]int{}}
}

func (m *fakeMetrics) RecordTradeIngested(symbol string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ingested[symbol]++
}

func (m *fakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[kind]++
}

func (m *fakeMetrics) RecordFlush(trigger string, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flushes[trigger]++
}

func (m *fakeMetrics) RecordLastPrice(string, float64) {}
func (m *fakeMetrics) RecordLatency(string, float64)   {}
func (m *fakeMetrics) RecordBufferDepth(int)           {}

func (m *fakeMetrics) errorCount(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors[kind]
}

func (m *fakeMetrics) flushCount(trigger string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flushes[trigger]
}

// fakeCache is an in-memory InstrumentCache.
type fakeCache struct {
	mu     sync.Mutex
	data   map[string]string
	getErr error
	setErr error
	sets   int
}

func newFakeCache() *fakeCache { return &fakeCache{data: map[string]string{}} }

func (c *fakeCache) Get(_ context.Context, symbol string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return "", false, c.getErr
	}
	v, ok := c.data[symbol]
	return v, ok, nil
}

func (c *fakeCache) Set(_ context.Context, symbol, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	c.sets++
	c.data[symbol] = value
	return nil
}

// fakeInstrumentStore behaves like the unique-symbol table.
type fakeInstrumentStore struct {
	mu        sync.Mutex
	rows      map[string]models.Instrument
	nextID    int64
	creates   int
	finds     int
	defaults  []models.InstrumentDefaults
	createErr error
	findErr   error
}

func newFakeInstrumentStore() *fakeInstrumentStore {
	return &fakeInstrumentStore{rows: map[string]models.Instrument{}, nextID: 1}
}

func (s *fakeInstrumentStore) FindOrCreate(_ context.Context, symbol string, d models.InstrumentDefaults) (*models.Instrument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates++
	if s.createErr != nil {
		return nil, s.createErr
	}
	if inst, ok := s.rows[symbol]; ok {
		return &inst, nil
	}
	s.defaults = append(s.defaults, d)
	inst := models.Instrument{ID: s.nextID, Symbol: symbol, DisplayName: d.DisplayName, Exchange: d.Exchange}
	s.nextID++
	s.rows[symbol] = inst
	return &inst, nil
}

func (s *fakeInstrumentStore) FindBySymbol(_ context.Context, symbol string) (*models.Instrument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finds++
	if s.findErr != nil {
		return nil, s.findErr
	}
	if inst, ok := s.rows[symbol]; ok {
		return &inst, nil
	}
	return nil, nil
}

func (s *fakeInstrumentStore) put(inst models.Instrument) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[inst.Symbol] = inst
	if inst.ID >= s.nextID {
		s.nextID = inst.ID + 1
	}
}

type fakeProfiles struct {
	mu    sync.Mutex
	calls int
	res   models.InstrumentDefaults
	err   error
}

func (p *fakeProfiles) Lookup(context.Context, string) (models.InstrumentDefaults, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return p.res, p.err
}

// fakeTradeStore records bulk inserts and serves range reads.
type fakeTradeStore struct {
	mu        sync.Mutex
	inserts   [][]models.PendingTrade
	insertErr error
	trades    []models.Trade
	rangeErr  error
	gotStart  time.Time
	gotEnd    time.Time
}

func (s *fakeTradeStore) BulkInsert(_ context.Context, batch []models.PendingTrade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	s.inserts = append(s.inserts, append([]models.PendingTrade(nil), batch...))
	return nil
}

func (s *fakeTradeStore) FindInRange(_ context.Context, _ int64, start, end time.Time) ([]models.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gotStart, s.gotEnd = start, end
	if s.rangeErr != nil {
		return nil, s.rangeErr
	}
	return s.trades, nil
}

// fakeWriter records every persisted batch.
type fakeWriter struct {
	mu      sync.Mutex
	batches [][]models.PendingTrade
	err     error
}

func (w *fakeWriter) Persist(_ context.Context, batch []models.PendingTrade) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.batches = append(w.batches, append([]models.PendingTrade(nil), batch...))
	return w.err
}

func (w *fakeWriter) got() [][]models.PendingTrade {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([][]models.PendingTrade(nil), w.batches...)
}

func (w *fakeWriter) total() int {
	n := 0
	for _, b := range w.got() {
		n += len(b)
	}
	return n
}

// staticResolver maps symbols to ids without I/O.
type staticResolver struct {
	ids map[string]int64
	err error
}

func (r staticResolver) Resolve(_ context.Context, symbol string) (int64, error) {
	if r.err != nil {
		return 0, r.err
	}
	if id, ok := r.ids[symbol]; ok {
		return id, nil
	}
	return 1, nil
}

type fakeSink struct {
	name    string
	mu      sync.Mutex
	batches []models.FlushedBatch
	err     error
	closed  bool
}

func (s *fakeSink) Name() string { return s.name }

func (s *fakeSink) Write(_ context.Context, b models.FlushedBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, b)
	return s.err
}

func (s *fakeSink) Close() error {
	s.closed = true
	return nil
}

// recordingIngestor captures ingested events.
type recordingIngestor struct {
	mu     sync.Mutex
	events []models.TradeEvent
	err    error
}

func (r *recordingIngestor) Ingest(_ context.Context, e models.TradeEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, e)
	return nil
}

func (r *recordingIngestor) got() []models.TradeEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.TradeEvent(nil), r.events...)
}

func event(symbol string, price float64, ms int64) models.TradeEvent {
	return models.TradeEvent{Symbol: symbol, Price: price, Volume: 1, TradedAtMillis: ms}
}
