package tabforge

import (
	"context"
	"io"
	"reflect"
	"testing"
	"time"

	"pkt.systems/tabforge/core"
	"pkt.systems/tabforge/internal/persist"
	"pkt.systems/tabforge/schema"
)

type recordingLocal struct {
	keys []string
}

func (l *recordingLocal) Put(_ context.Context, key string, _ []byte) error {
	l.keys = append(l.keys, key)
	return nil
}

func TestSessionSinksScopeSaves(t *testing.T) {
	local := &recordingLocal{}
	exports, err := persist.NewDownloadDir(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("download dir: %v", err)
	}
	ctx := context.Background()
	now := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	for _, session := range []schema.SessionID{"alice", "bob"} {
		store := core.NewStore(core.StoreDeps{
			Session:  session,
			Local:    sessionLocal{local: local, session: session},
			Download: sessionDownloads{downloads: exports, session: session},
			Clock:    func() time.Time { return now },
		})
		store.SetFieldValue("name", string(session))
		if _, err := store.SaveData(ctx); err != nil {
			t.Fatalf("save %s: %v", session, err)
		}
	}
	want := []string{
		persist.SessionKey("alice", schema.StorageKey),
		persist.SessionKey("bob", schema.StorageKey),
	}
	if !reflect.DeepEqual(local.keys, want) {
		t.Fatalf("keys = %v, want %v", local.keys, want)
	}

	for _, session := range []schema.SessionID{"alice", "bob"} {
		f, err := exports.OpenSession(session, schema.DownloadName(now))
		if err != nil {
			t.Fatalf("open %s export: %v", session, err)
		}
		data, _ := io.ReadAll(f)
		f.Close()
		snap, err := persist.ValidateSnapshot(data)
		if err != nil {
			t.Fatalf("%s export invalid: %v", session, err)
		}
		if got := snap.Tabs[0].Fields[0].Value; got != string(session) {
			t.Fatalf("%s export holds %q", session, got)
		}
	}
}
