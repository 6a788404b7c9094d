package ui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/spotsync/internal/tasks"
)

func sampleResult() *tasks.SyncResult {
	return &tasks.SyncResult{
		Tracks:    tasks.SweepResult{Name: "saved tracks", Pages: 3, Songs: 120, Skipped: 2},
		Albums:    tasks.SweepResult{Name: "saved albums", Pages: 1, Songs: 30, Truncated: true, Err: errors.New("status 500")},
		Playlists: tasks.SweepResult{Name: "playlists", Pages: 1, Songs: 10, Playlists: 2},
		Started:   time.Now().Add(-time.Second),
		Finished:  time.Now(),
	}
}

// drain runs cmd and returns the first ui message it yields.
func drain(t *testing.T, cmd tea.Cmd) Msg {
	t.Helper()
	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()
	select {
	case msg := <-done:
		m, ok := msg.(Msg)
		if !ok {
			t.Fatalf("expected ui message, got %T", msg)
		}
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
	return Msg{}
}

func TestModel(t *testing.T) {
	t.Run("progress then result", func(t *testing.T) {
		release := make(chan struct{})
		m := NewModel(context.Background(), func(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*tasks.SyncResult, error) {
			progress <- tasks.ProgressUpdate{Phase: tasks.SyncTracks, Step: 1, Total: 3, Message: "[1/3] saved tracks"}
			<-release
			return sampleResult(), nil
		})

		msg := drain(t, m.startSync())
		if msg.kind != MsgProgressUpdate {
			t.Fatalf("expected progress message, got %v", msg.kind)
		}
		m.Update(msg)
		if m.progress.Step != 1 || m.progress.Total != 3 {
			t.Errorf("expected step 1 of 3, got %+v", m.progress)
		}
		if !strings.Contains(m.View(), "Saved tracks") {
			t.Errorf("expected phase label in view, got %q", m.View())
		}

		close(release)
		msg = drain(t, m.waitForProgress())
		if msg.kind != MsgSyncComplete {
			t.Fatalf("expected completion, got %v", msg.kind)
		}
		m.Update(msg)

		if m.view != ResultView || m.Result() == nil {
			t.Fatalf("expected result view, got %v", m.view)
		}
		view := m.View()
		if !strings.Contains(view, "160 songs and 2 playlists") {
			t.Errorf("expected totals in result view, got %q", view)
		}
		if !strings.Contains(view, "saved albums: status 500") {
			t.Errorf("expected sweep error in result view, got %q", view)
		}
	})

	t.Run("sync failure", func(t *testing.T) {
		m := NewModel(context.Background(), nil)
		m.Update(syncCompleteMsg(nil, errors.New("not ready")))
		if m.Err() == nil || !strings.Contains(m.View(), "Sync failed: not ready") {
			t.Errorf("expected failure view, got %q", m.View())
		}
	})

	t.Run("esc cancels the running sync", func(t *testing.T) {
		m := NewModel(context.Background(), nil)
		m.Update(tea.KeyMsg{Type: tea.KeyEsc})
		if m.ctx.Err() == nil {
			t.Error("expected context to be cancelled")
		}
	})

	t.Run("q quits", func(t *testing.T) {
		m := NewModel(context.Background(), nil)
		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
		if cmd == nil {
			t.Fatal("expected a quit command")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Error("expected tea.QuitMsg")
		}
	})
}

func TestFraction(t *testing.T) {
	tests := []struct {
		update tasks.ProgressUpdate
		want   float64
	}{
		{tasks.ProgressUpdate{Step: 1, Total: 4}, 0.25},
		{tasks.ProgressUpdate{Step: 0, Total: 0}, 0},
		{tasks.ProgressUpdate{Step: 5, Total: 4}, 1},
	}
	for _, tt := range tests {
		if got := fraction(tt.update); got != tt.want {
			t.Errorf("expected %v, got %v", tt.want, got)
		}
	}
}

func TestSweepItem(t *testing.T) {
	items := sweepItems(sampleResult())
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}

	tracks := items[0].(sweepItem)
	if tracks.Title() != "✓ saved tracks" || tracks.Description() != "3 pages • 120 songs • 2 skipped" {
		t.Errorf("unexpected tracks item %q / %q", tracks.Title(), tracks.Description())
	}

	albums := items[1].(sweepItem)
	if !strings.HasPrefix(albums.Title(), "⚠") {
		t.Errorf("expected truncated marker, got %q", albums.Title())
	}

	aborted := sweepItem{tasks.SweepResult{Name: "x", Err: errors.New("network")}}
	if !strings.HasPrefix(aborted.Title(), "✗") {
		t.Errorf("expected aborted marker, got %q", aborted.Title())
	}
}
