package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/kalambet/shelfbot/internal/logger"
	"github.com/kalambet/shelfbot/internal/storage"
)

// fakeResolver treats every ref as live unless marked gone or broken.
type fakeResolver struct {
	mu     sync.Mutex
	gone   map[storage.SourceRef]bool
	broken bool
	calls  int
}

func (f *fakeResolver) Resolves(_ context.Context, ref storage.SourceRef) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.broken {
		return false, errors.New("transport unavailable")
	}
	return !f.gone[ref], nil
}

func (f *fakeResolver) markGone(ref storage.SourceRef) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gone == nil {
		f.gone = map[storage.SourceRef]bool{}
	}
	f.gone[ref] = true
}

func openTestStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestCatalog(t *testing.T) (*Catalog, *storage.Store, *fakeResolver) {
	t.Helper()
	s := openTestStore(t)
	r := &fakeResolver{}
	return New(s, r, logger.Nop(), Options{DefaultHelp: "default help"}), s, r
}

func ref(msg int) storage.SourceRef {
	return storage.SourceRef{ChatID: -1001234, MessageID: msg}
}

func TestAddEntry_RejectsLiveDuplicate(t *testing.T) {
	c, s, _ := newTestCatalog(t)
	ctx := context.Background()

	if !c.AddEntry(ctx, "X", ref(1), "file-1") {
		t.Fatal("first AddEntry returned false")
	}
	if c.AddEntry(ctx, "X", ref(2), "file-2") {
		t.Error("AddEntry of live duplicate returned true")
	}

	rows, err := s.EntriesByTitle("X")
	if err != nil {
		t.Fatalf("EntriesByTitle: %v", err)
	}
	if len(rows) != 1 || rows[0].Source != ref(1) {
		t.Errorf("rows = %+v, want only the original", rows)
	}
}

func TestAddEntry_ReclaimsStale(t *testing.T) {
	c, s, r := newTestCatalog(t)
	ctx := context.Background()

	c.AddEntry(ctx, "X", ref(1), "file-1")
	r.markGone(ref(1))

	if !c.AddEntry(ctx, "X", ref(2), "file-2") {
		t.Fatal("AddEntry over stale entry returned false")
	}
	rows, err := s.EntriesByTitle("X")
	if err != nil {
		t.Fatalf("EntriesByTitle: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows titled X, want 1", len(rows))
	}
	if rows[0].Source != ref(2) {
		t.Errorf("remaining row source = %+v, want %+v", rows[0].Source, ref(2))
	}
}

func TestInsert_ReturnsExistingOnDuplicate(t *testing.T) {
	c, _, _ := newTestCatalog(t)
	ctx := context.Background()

	first, res := c.Insert(ctx, "Report v2", ref(7), "f")
	if res != AddInserted {
		t.Fatalf("first Insert result = %v, want AddInserted", res)
	}
	dup, res := c.Insert(ctx, "Report v2", ref(8), "g")
	if res != AddDuplicate {
		t.Fatalf("second Insert result = %v, want AddDuplicate", res)
	}
	if dup.ID != first.ID {
		t.Errorf("duplicate points at %d, want %d", dup.ID, first.ID)
	}
}

func TestEntryExists_ReturnsLatest(t *testing.T) {
	c, s, _ := newTestCatalog(t)

	if _, ok := c.EntryExists("Nope"); ok {
		t.Error("EntryExists on empty catalog returned true")
	}
	s.InsertEntry(storage.Entry{Title: "Dup", Source: ref(1)})
	latest, _ := s.InsertEntry(storage.Entry{Title: "Dup", Source: ref(2)})

	got, ok := c.EntryExists("Dup")
	if !ok {
		t.Fatal("EntryExists returned false")
	}
	if got.ID != latest.ID {
		t.Errorf("EntryExists returned id %d, want %d", got.ID, latest.ID)
	}
}

func TestSearch_DropsStaleAndAdjustsTotal(t *testing.T) {
	c, s, r := newTestCatalog(t)
	ctx := context.Background()

	for i := 1; i <= 10; i++ {
		s.InsertEntry(storage.Entry{Title: fmt.Sprintf("Book %02d", i), Source: ref(i)})
	}
	r.markGone(ref(4))

	entries, total := c.Search(ctx, "Book", 1, 10)
	if len(entries) != 9 {
		t.Errorf("got %d entries, want 9", len(entries))
	}
	if total != 9 {
		t.Errorf("total = %d, want 9", total)
	}
	for _, e := range entries {
		if e.Source == ref(4) {
			t.Error("stale entry returned")
		}
	}

	n, _ := s.CountEntries()
	if n != 9 {
		t.Errorf("store holds %d entries after reconciliation, want 9", n)
	}
}

func TestSearch_PageNotBackfilled(t *testing.T) {
	c, s, r := newTestCatalog(t)
	ctx := context.Background()

	for i := 1; i <= 12; i++ {
		s.InsertEntry(storage.Entry{Title: fmt.Sprintf("Vol %02d", i), Source: ref(i)})
	}
	// Newest first: page 1 holds Vol 12..Vol 03.
	r.markGone(ref(12))

	entries, total := c.Search(ctx, "Vol", 1, 10)
	if len(entries) != 9 {
		t.Errorf("got %d entries, want 9 (no backfill)", len(entries))
	}
	if total != 11 {
		t.Errorf("total = %d, want 11", total)
	}
}

func TestSearch_Pagination(t *testing.T) {
	c, s, _ := newTestCatalog(t)
	ctx := context.Background()

	for i := 1; i <= 23; i++ {
		s.InsertEntry(storage.Entry{Title: fmt.Sprintf("Volume %02d", i), Source: ref(i)})
	}

	entries, total := c.Search(ctx, "volume", 3, 10)
	if total != 23 {
		t.Errorf("total = %d, want 23", total)
	}
	if len(entries) != 3 {
		t.Errorf("page 3 has %d entries, want 3", len(entries))
	}

	entries, _ = c.Search(ctx, "volume", 0, 10)
	if len(entries) != 10 || entries[0].Title != "Volume 23" {
		t.Errorf("page 0 should clamp to page 1, got %d entries", len(entries))
	}
}

func TestSearch_ResolverErrorKeepsEntries(t *testing.T) {
	c, s, r := newTestCatalog(t)
	ctx := context.Background()

	s.InsertEntry(storage.Entry{Title: "Fragile", Source: ref(1)})
	r.broken = true

	entries, total := c.Search(ctx, "Fragile", 1, 10)
	if len(entries) != 1 || total != 1 {
		t.Errorf("got %d entries, total %d; want 1, 1", len(entries), total)
	}
	if n, _ := s.CountEntries(); n != 1 {
		t.Errorf("entry deleted on resolver error")
	}
}

func TestMessageResolves_NilResolver(t *testing.T) {
	s := openTestStore(t)
	c := New(s, nil, nil, Options{})
	if !c.MessageResolves(context.Background(), ref(1)) {
		t.Error("nil resolver should treat references as live")
	}
}

func TestRemoveEntry(t *testing.T) {
	c, s, _ := newTestCatalog(t)

	s.InsertEntry(storage.Entry{Title: "A", Source: ref(1)})
	s.InsertEntry(storage.Entry{Title: "B", Source: ref(1)})
	s.InsertEntry(storage.Entry{Title: "C", Source: ref(2)})

	if !c.RemoveEntry(ref(1)) {
		t.Fatal("RemoveEntry returned false")
	}
	if n, _ := s.CountEntries(); n != 1 {
		t.Errorf("CountEntries = %d, want 1", n)
	}
}

func TestAdvertisementLifecycle(t *testing.T) {
	c, _, _ := newTestCatalog(t)

	ad, ok := c.AddAdvertisement("Buy books", "https://example.com")
	if !ok {
		t.Fatal("AddAdvertisement returned false")
	}
	if got, ok := c.GetAdvertisement(ad.ID); !ok || got.Text != "Buy books" {
		t.Errorf("GetAdvertisement = %+v, %v", got, ok)
	}
	if !c.EditAdvertisement(ad.ID, "Buy more", "https://example.org") {
		t.Error("EditAdvertisement on active ad returned false")
	}

	if !c.DeactivateAdvertisement(ad.ID) {
		t.Fatal("DeactivateAdvertisement returned false")
	}
	if _, ok := c.GetAdvertisement(ad.ID); ok {
		t.Error("GetAdvertisement returned a deactivated ad")
	}
	if c.EditAdvertisement(ad.ID, "again", "https://example.net") {
		t.Error("EditAdvertisement on deactivated ad returned true")
	}
	if c.DeactivateAdvertisement(ad.ID) {
		t.Error("second DeactivateAdvertisement returned true")
	}
	if c.DeactivateAdvertisement(9999) {
		t.Error("DeactivateAdvertisement on unknown id returned true")
	}
}

func TestSampleActiveAdvertisements(t *testing.T) {
	c, _, _ := newTestCatalog(t)

	for i := 0; i < 8; i++ {
		c.AddAdvertisement(fmt.Sprintf("ad %d", i), "https://example.com")
	}
	ads := c.SampleActiveAdvertisements(5)
	if len(ads) != 5 {
		t.Fatalf("sampled %d ads, want 5", len(ads))
	}
	seen := map[int64]bool{}
	for _, ad := range ads {
		if seen[ad.ID] {
			t.Errorf("ad %d sampled twice", ad.ID)
		}
		seen[ad.ID] = true
	}
	if got := c.SampleActiveAdvertisements(0); got != nil {
		t.Errorf("limit 0 returned %d ads", len(got))
	}
	if got := c.ListActiveAdvertisements(); len(got) != 8 {
		t.Errorf("ListActiveAdvertisements returned %d, want 8", len(got))
	}
}

func TestHelpMessage(t *testing.T) {
	c, s, _ := newTestCatalog(t)

	if got := c.HelpMessage(); got != "default help" {
		t.Errorf("HelpMessage = %q, want seeded default", got)
	}
	if !c.SetHelpMessage("hi @:bob") {
		t.Fatal("SetHelpMessage returned false")
	}
	if got := c.HelpMessage(); got != "hi @bob" {
		t.Errorf("HelpMessage = %q, want %q", got, "hi @bob")
	}

	// A restart must not overwrite the customized text.
	again := New(s, nil, logger.Nop(), Options{DefaultHelp: "other default"})
	if got := again.HelpMessage(); got != "hi @bob" {
		t.Errorf("HelpMessage after reseed = %q, want %q", got, "hi @bob")
	}
}

func TestNormalizeMentions(t *testing.T) {
	tests := map[string]string{
		"hi @:bob":            "hi @bob",
		"@:a and @:b_2":       "@a and @b_2",
		"mail me@example.com": "mail me@example.com",
		"@:":                  "@:",
		"no mentions":         "no mentions",
	}
	for in, want := range tests {
		if got := NormalizeMentions(in); got != want {
			t.Errorf("NormalizeMentions(%q) = %q, want %q", in, got, want)
		}
	}
}

// faultyRepo fails every call.
type faultyRepo struct{ err error }

func (f faultyRepo) InsertEntry(storage.Entry) (storage.Entry, error) {
	return storage.Entry{}, f.err
}
func (f faultyRepo) LatestEntryByTitle(string) (storage.Entry, error) {
	return storage.Entry{}, f.err
}
func (f faultyRepo) SearchLatest(string, int, int) ([]storage.Entry, int, error) {
	return nil, 0, f.err
}
func (f faultyRepo) DeleteEntriesBySource(storage.SourceRef) (int64, error) {
	return 0, f.err
}
func (f faultyRepo) InsertAdvertisement(string, string) (storage.Advertisement, error) {
	return storage.Advertisement{}, f.err
}
func (f faultyRepo) GetActiveAdvertisement(int64) (storage.Advertisement, error) {
	return storage.Advertisement{}, f.err
}
func (f faultyRepo) ListActiveAdvertisements() ([]storage.Advertisement, error) {
	return nil, f.err
}
func (f faultyRepo) SampleActiveAdvertisements(int) ([]storage.Advertisement, error) {
	return nil, f.err
}
func (f faultyRepo) DeactivateAdvertisement(int64) error {
	return f.err
}
func (f faultyRepo) UpdateAdvertisement(int64, string, string) error {
	return f.err
}
func (f faultyRepo) GetSystemMessage(string) (storage.SystemMessage, error) {
	return storage.SystemMessage{}, f.err
}
func (f faultyRepo) UpsertSystemMessage(string, string) error {
	return f.err
}
func (f faultyRepo) SeedSystemMessage(string, string) error {
	return f.err
}

func TestStorageFaultsBecomeDefaults(t *testing.T) {
	c := New(faultyRepo{err: errors.New("database is locked")}, &fakeResolver{}, logger.Nop(), Options{DefaultHelp: "fallback"})
	ctx := context.Background()

	if _, ok := c.EntryExists("X"); ok {
		t.Error("EntryExists = true on fault")
	}
	if c.AddEntry(ctx, "X", ref(1), "f") {
		t.Error("AddEntry = true on fault")
	}
	if entries, total := c.Search(ctx, "X", 1, 10); entries != nil || total != 0 {
		t.Errorf("Search = %v, %d on fault", entries, total)
	}
	if c.RemoveEntry(ref(1)) {
		t.Error("RemoveEntry = true on fault")
	}
	if _, ok := c.AddAdvertisement("t", "https://x"); ok {
		t.Error("AddAdvertisement = true on fault")
	}
	if c.ListActiveAdvertisements() != nil {
		t.Error("ListActiveAdvertisements non-nil on fault")
	}
	if c.SampleActiveAdvertisements(5) != nil {
		t.Error("SampleActiveAdvertisements non-nil on fault")
	}
	if c.DeactivateAdvertisement(1) || c.EditAdvertisement(1, "t", "u") {
		t.Error("ad writes reported success on fault")
	}
	if _, ok := c.GetAdvertisement(1); ok {
		t.Error("GetAdvertisement = true on fault")
	}
	if got := c.HelpMessage(); got != "fallback" {
		t.Errorf("HelpMessage = %q on fault, want fallback", got)
	}
	if c.SetHelpMessage("x") {
		t.Error("SetHelpMessage = true on fault")
	}
}
