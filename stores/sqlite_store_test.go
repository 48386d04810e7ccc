package stores

import (
	"path/filepath"
	"testing"
	"time"

	models "github.com/novachat/nova/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStoreSimple(filepath.Join(t.TempDir(), "sessions.sqlite"))
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_CreateAndGetRoundTrip(t *testing.T) {
	store := newTestStore(t)

	messages := []models.Message{
		models.NewMessage(models.RoleUser, "hello"),
		models.NewMessage(models.RoleAssistant, "hi there"),
	}
	custom := &models.CustomPersonality{Name: "Wizard", Description: "riddles", Prompt: "Speak in riddles."}

	created, err := store.Create("my chat", messages, "custom", custom)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created.ID == "" {
		t.Error("created session should have an id")
	}

	got, err := store.Get(created.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected session, got nil")
	}
	if got.Name != "my chat" || got.Personality != "custom" {
		t.Errorf("session fields wrong: %+v", got)
	}

	loaded, err := got.Messages()
	if err != nil {
		t.Fatalf("messages unmarshal failed: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(loaded))
	}
	for i := range messages {
		if loaded[i].ID != messages[i].ID || loaded[i].Role != messages[i].Role || loaded[i].Content != messages[i].Content {
			t.Errorf("message %d lost fidelity: got %+v, want %+v", i, loaded[i], messages[i])
		}
	}

	loadedCustom, err := got.CustomPersonality()
	if err != nil {
		t.Fatalf("custom unmarshal failed: %v", err)
	}
	if loadedCustom == nil || *loadedCustom != *custom {
		t.Errorf("custom personality lost fidelity: %+v", loadedCustom)
	}
}

func TestSQLiteStore_GetMissingReturnsNil(t *testing.T) {
	store := newTestStore(t)

	got, err := store.Get("no-such-id")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing session, got %+v", got)
	}
}

func TestSQLiteStore_ListOrderedByUpdatedAt(t *testing.T) {
	store := newTestStore(t)

	first, err := store.Create("first", nil, "nice", nil)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	second, err := store.Create("second", nil, "chaos", nil)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	sessions, err := store.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0].ID != second.ID || sessions[1].ID != first.ID {
		t.Errorf("expected most recently updated first, got %s then %s", sessions[0].Name, sessions[1].Name)
	}

	// touching the older session moves it to the front
	time.Sleep(10 * time.Millisecond)
	if err := store.Update(first.ID, SessionUpdate{Messages: []models.Message{models.NewMessage(models.RoleUser, "ping")}}); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	sessions, _ = store.List()
	if sessions[0].ID != first.ID {
		t.Errorf("update should bump session to front, got %s first", sessions[0].Name)
	}
}

func TestSQLiteStore_UpdatePersonalityAndClearCustom(t *testing.T) {
	store := newTestStore(t)

	custom := &models.CustomPersonality{Name: "Wizard", Prompt: "riddles"}
	created, err := store.Create("chat", nil, "custom", custom)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	personality := "pirate"
	err = store.Update(created.ID, SessionUpdate{
		Messages:    []models.Message{models.NewMessage(models.RoleUser, "ahoy")},
		Personality: &personality,
		ClearCustom: true,
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}

	got, _ := store.Get(created.ID)
	if got.Personality != "pirate" {
		t.Errorf("personality = %q, want pirate", got.Personality)
	}
	loadedCustom, err := got.CustomPersonality()
	if err != nil {
		t.Fatalf("custom unmarshal failed: %v", err)
	}
	if loadedCustom != nil {
		t.Errorf("custom should be cleared, got %+v", loadedCustom)
	}
	msgs, _ := got.Messages()
	if len(msgs) != 1 || msgs[0].Content != "ahoy" {
		t.Errorf("messages not replaced: %+v", msgs)
	}
}

func TestSQLiteStore_UpdateMissingSessionFails(t *testing.T) {
	store := newTestStore(t)

	err := store.Update("no-such-id", SessionUpdate{})
	if err == nil {
		t.Error("expected error updating a missing session")
	}
}

func TestSQLiteStore_Rename(t *testing.T) {
	store := newTestStore(t)

	created, err := store.Create("old name", nil, "nice", nil)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := store.Rename(created.ID, "new name"); err != nil {
		t.Fatalf("rename failed: %v", err)
	}
	got, _ := store.Get(created.ID)
	if got.Name != "new name" {
		t.Errorf("name = %q, want %q", got.Name, "new name")
	}

	if err := store.Rename("no-such-id", "x"); err == nil {
		t.Error("expected error renaming a missing session")
	}
}

func TestSQLiteStore_Delete(t *testing.T) {
	store := newTestStore(t)

	created, err := store.Create("doomed", nil, "nice", nil)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := store.Delete(created.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	got, _ := store.Get(created.ID)
	if got != nil {
		t.Errorf("session should be gone, got %+v", got)
	}
}

func TestSQLiteStore_Ping(t *testing.T) {
	store := newTestStore(t)
	if err := store.Ping(); err != nil {
		t.Errorf("ping failed: %v", err)
	}
}
