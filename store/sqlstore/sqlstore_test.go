package sqlstore

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/lib/pq"

	"github.com/lowkeylab/agentloop/types"
)

func getTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Fatalf("Failed to ping: %v", err)
	}
	return db
}

func TestIntegration_SessionLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	db := getTestDB(t)
	defer db.Close()

	ctx := context.Background()
	s := New(db)
	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	if _, err := db.ExecContext(ctx, "TRUNCATE TABLE agentloop_sessions"); err != nil {
		t.Fatalf("Failed to clean table: %v", err)
	}

	sess, err := s.GetOrCreate(ctx, "test:lifecycle")
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if len(sess.History) != 0 {
		t.Errorf("new session has %d messages", len(sess.History))
	}

	sess.History = append(sess.History,
		types.NewUserMessage("hello"),
		types.NewAssistantMessage("hi there"),
	)
	if err := s.Save(ctx, sess); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := s.GetOrCreate(ctx, "test:lifecycle")
	if err != nil {
		t.Fatalf("GetOrCreate() reload error = %v", err)
	}
	if len(got.History) != 2 {
		t.Fatalf("reloaded history has %d messages, want 2", len(got.History))
	}
	if got.History[0].ContentText() != "hello" {
		t.Errorf("reloaded content = %q", got.History[0].ContentText())
	}
	if got.History[1].Role != types.RoleAssistant {
		t.Errorf("reloaded role = %q", got.History[1].Role)
	}

	if err := s.Delete(ctx, "test:lifecycle"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	fresh, err := s.GetOrCreate(ctx, "test:lifecycle")
	if err != nil {
		t.Fatalf("GetOrCreate() after delete error = %v", err)
	}
	if len(fresh.History) != 0 {
		t.Errorf("deleted session still has %d messages", len(fresh.History))
	}
}

func TestIntegration_ToolCallsSurviveRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	db := getTestDB(t)
	defer db.Close()

	ctx := context.Background()
	s := New(db)
	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}

	sess, err := s.GetOrCreate(ctx, "test:toolcalls")
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	sess.History = append(sess.History,
		types.NewAssistantMessage("checking", types.ToolCall{
			ID:        "call_1",
			Name:      "get_weather",
			Arguments: []byte(`{"city":"Tokyo"}`),
		}),
		types.NewToolMessage("call_1", "get_weather", "sunny"),
	)
	if err := s.Save(ctx, sess); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := s.GetOrCreate(ctx, "test:toolcalls")
	if err != nil {
		t.Fatalf("GetOrCreate() reload error = %v", err)
	}
	if !got.History[0].HasToolCalls() {
		t.Fatal("tool calls lost in round trip")
	}
	if got.History[1].ToolCallID != "call_1" {
		t.Errorf("ToolCallID = %q, want call_1", got.History[1].ToolCallID)
	}

	_ = s.Delete(ctx, "test:toolcalls")
}
