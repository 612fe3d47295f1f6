package models

import (
	"testing"
	"time"
)

func TestCanBeEdited(t *testing.T) {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		elapsed   time.Duration
		isDeleted bool
		want      bool
	}{
		{"immediately after creation", 0, false, true},
		{"ten minutes in", 10 * time.Minute, false, true},
		{"one nanosecond before the window closes", DefaultEditWindow - time.Nanosecond, false, true},
		{"exactly at the window boundary", DefaultEditWindow, false, false},
		{"one nanosecond after the window closes", DefaultEditWindow + time.Nanosecond, false, false},
		{"sixteen minutes in", 16 * time.Minute, false, false},
		{"deleted inside the window", time.Minute, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Comment{CreatedAt: created, IsDeleted: tt.isDeleted}
			if tt.isDeleted {
				c.DeletedAt = &created
			}
			if got := c.CanBeEdited(created.Add(tt.elapsed), DefaultEditWindow); got != tt.want {
				t.Errorf("CanBeEdited() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanBeRestored(t *testing.T) {
	deleted := time.Date(2024, 5, 1, 12, 20, 0, 0, time.UTC)

	tests := []struct {
		name    string
		elapsed time.Duration
		want    bool
	}{
		{"right after deletion", 0, true},
		{"five minutes after deletion", 5 * time.Minute, true},
		{"one nanosecond before the window closes", DefaultRestoreWindow - time.Nanosecond, true},
		{"exactly at the window boundary", DefaultRestoreWindow, false},
		{"one nanosecond after the window closes", DefaultRestoreWindow + time.Nanosecond, false},
		{"twenty minutes after deletion", 20 * time.Minute, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Comment{CreatedAt: deleted.Add(-time.Hour)}
			c.MarkDeleted(deleted)
			if got := c.CanBeRestored(deleted.Add(tt.elapsed), DefaultRestoreWindow); got != tt.want {
				t.Errorf("CanBeRestored() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanBeRestored_NotDeleted(t *testing.T) {
	now := time.Now()
	c := &Comment{CreatedAt: now}
	if c.CanBeRestored(now, DefaultRestoreWindow) {
		t.Error("a live comment must not be restorable")
	}

	// Inconsistent row: flag set without timestamp
	c.IsDeleted = true
	if c.CanBeRestored(now, DefaultRestoreWindow) {
		t.Error("a comment without deleted_at must not be restorable")
	}
}

func TestDeleteRestoreKeepsFlagAndTimestampInSync(t *testing.T) {
	now := time.Now()
	c := &Comment{CreatedAt: now}

	c.MarkDeleted(now.Add(time.Minute))
	if !c.IsDeleted || c.DeletedAt == nil {
		t.Fatalf("expected deleted state, got is_deleted=%v deleted_at=%v", c.IsDeleted, c.DeletedAt)
	}
	if !c.DeletedAt.Equal(now.Add(time.Minute)) {
		t.Errorf("deleted_at = %v, want %v", c.DeletedAt, now.Add(time.Minute))
	}

	c.MarkRestored(now.Add(2 * time.Minute))
	if c.IsDeleted || c.DeletedAt != nil {
		t.Fatalf("expected restored state, got is_deleted=%v deleted_at=%v", c.IsDeleted, c.DeletedAt)
	}
	if !c.UpdatedAt.Equal(now.Add(2 * time.Minute)) {
		t.Errorf("updated_at = %v, want %v", c.UpdatedAt, now.Add(2*time.Minute))
	}
}
