package watch

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestFileWatcher_DetectsChanges(t *testing.T) {
	tmpDir := t.TempDir()

	watched := filepath.Join(tmpDir, "catalog.json")
	other := filepath.Join(tmpDir, "notes.txt")
	for _, f := range []string{watched, other} {
		if err := os.WriteFile(f, []byte("{}"), 0644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}
	}

	var mu sync.Mutex
	var changes [][]string

	watcher, err := NewFileWatcher([]string{watched}, func(files []string) error {
		mu.Lock()
		defer mu.Unlock()
		changes = append(changes, files)
		return nil
	}, WithDelay(50*time.Millisecond))
	if err != nil {
		t.Fatalf("Failed to create watcher: %v", err)
	}
	defer watcher.Stop()

	if err := watcher.Start(); err != nil {
		t.Fatalf("Failed to start watcher: %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(other, []byte("ignored"), 0644); err != nil {
		t.Fatalf("Failed to modify file: %v", err)
	}
	if err := os.WriteFile(watched, []byte(`{"catalog": {}}`), 0644); err != nil {
		t.Fatalf("Failed to modify file: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(changes)
		mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()

	if len(changes) == 0 {
		t.Fatal("Expected changes to be detected")
	}
	for _, batch := range changes {
		for _, f := range batch {
			if filepath.Base(f) != "catalog.json" {
				t.Errorf("Unexpected change reported for %s", f)
			}
		}
	}
}

func TestDebouncer_Add(t *testing.T) {
	var mu sync.Mutex
	var called bool
	var files []string

	debouncer := NewDebouncer(50 * time.Millisecond)
	debouncer.SetCallback(func(f []string) {
		mu.Lock()
		defer mu.Unlock()
		called = true
		files = f
	})

	debouncer.Add("b.json")
	debouncer.Add("a.json")
	debouncer.Add("b.json")

	time.Sleep(150 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()

	if !called {
		t.Fatal("Expected callback to be called")
	}
	if len(files) != 2 || files[0] != "a.json" || files[1] != "b.json" {
		t.Errorf("Expected sorted unique files, got %v", files)
	}
}

func TestDebouncer_MultipleFlushes(t *testing.T) {
	var mu sync.Mutex
	var callCount int

	debouncer := NewDebouncer(30 * time.Millisecond)
	debouncer.SetCallback(func(f []string) {
		mu.Lock()
		defer mu.Unlock()
		callCount++
	})

	debouncer.Add("a.json")
	time.Sleep(100 * time.Millisecond)

	debouncer.Add("b.json")
	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()

	if callCount != 2 {
		t.Errorf("Expected 2 callback calls, got %d", callCount)
	}
}

func TestDebouncer_StopCancelsPending(t *testing.T) {
	var mu sync.Mutex
	called := false

	debouncer := NewDebouncer(30 * time.Millisecond)
	debouncer.SetCallback(func(f []string) {
		mu.Lock()
		defer mu.Unlock()
		called = true
	})

	debouncer.Add("a.json")
	debouncer.Stop()
	debouncer.Add("b.json")
	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if called {
		t.Error("Expected no callback after Stop")
	}
}

func TestShouldIgnore(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{"catalog.json", false},
		{".catalog.json.swp", true},
		{"catalog.json~", true},
		{".#catalog.json", true},
		{"#catalog.json#", true},
		{"dir/catalog.yaml", false},
	}

	for _, tt := range tests {
		if result := shouldIgnore(tt.path); result != tt.expected {
			t.Errorf("shouldIgnore(%q) = %v, expected %v", tt.path, result, tt.expected)
		}
	}
}

func TestFileWatcher_Stop(t *testing.T) {
	watcher, err := NewFileWatcher([]string{filepath.Join(t.TempDir(), "doc.json")}, func(files []string) error { return nil })
	if err != nil {
		t.Fatalf("Failed to create watcher: %v", err)
	}

	if err := watcher.Start(); err != nil {
		t.Fatalf("Failed to start watcher: %v", err)
	}
	if err := watcher.Stop(); err != nil {
		t.Errorf("Stop() returned error: %v", err)
	}
	if err := watcher.Stop(); err != nil {
		t.Errorf("second Stop() returned error: %v", err)
	}
}

func BenchmarkDebouncer_Add(b *testing.B) {
	debouncer := NewDebouncer(100 * time.Millisecond)
	debouncer.SetCallback(func(files []string) {})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		debouncer.Add("doc.json")
	}
	debouncer.Stop()
}
