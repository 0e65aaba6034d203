package lidstore

import (
	"path/filepath"
	"testing"

	"github.com/matheus3301/walink/internal/lidcache"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "identity.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrateIdempotent(t *testing.T) {
	db := testDB(t)

	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if result.Changed {
		t.Error("second Migrate() should report Changed=false")
	}
	if result.Version != 2 {
		t.Errorf("version = %d, want 2", result.Version)
	}
}

func TestSaveLoadRoundTripKeepsOrder(t *testing.T) {
	db := testDB(t)

	in := []lidcache.Mapping{
		{LID: "3@lid", PN: "33@s.whatsapp.net"},
		{LID: "1@lid", PN: "11@s.whatsapp.net"},
		{LID: "2@lid", PN: "22@s.whatsapp.net"},
	}
	if err := db.Save(in); err != nil {
		t.Fatal(err)
	}

	out, err := db.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != len(in) {
		t.Fatalf("loaded %d mappings, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("mapping[%d] = %+v, want %+v", i, out[i], in[i])
		}
	}
}

func TestSaveReplacesPreviousSnapshot(t *testing.T) {
	db := testDB(t)

	if err := db.Save([]lidcache.Mapping{{LID: "1@lid", PN: "11@s.whatsapp.net"}}); err != nil {
		t.Fatal(err)
	}
	if err := db.Save([]lidcache.Mapping{{LID: "2@lid", PN: "22@s.whatsapp.net"}}); err != nil {
		t.Fatal(err)
	}

	out, err := db.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].LID != "2@lid" {
		t.Errorf("got %+v, want only 2@lid", out)
	}

	savedAt, err := db.SavedAt()
	if err != nil {
		t.Fatal(err)
	}
	if savedAt.IsZero() {
		t.Error("SavedAt() should be set after Save")
	}
}

// TestCacheRestore exercises the daemon path: snapshot a cache, persist it,
// load it into a fresh cache and resolve through it.
func TestCacheRestore(t *testing.T) {
	db := testDB(t)

	c := lidcache.New(10)
	c.Set("111@lid", "62811@s.whatsapp.net")
	if err := db.Save(c.Snapshot()); err != nil {
		t.Fatal(err)
	}

	loaded, err := db.Load()
	if err != nil {
		t.Fatal(err)
	}
	restored := lidcache.New(10)
	restored.Import(loaded)
	if got := restored.Resolve("111@lid"); got != "62811@s.whatsapp.net" {
		t.Errorf("Resolve = %q, want 62811@s.whatsapp.net", got)
	}
}

func TestSavedAtEmpty(t *testing.T) {
	db := testDB(t)
	ts, err := db.SavedAt()
	if err != nil {
		t.Fatal(err)
	}
	if !ts.IsZero() {
		t.Errorf("SavedAt() = %v, want zero", ts)
	}
}
