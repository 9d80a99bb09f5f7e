package workspace

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestDetectEncodingASCII(t *testing.T) {
	result := DetectEncoding([]byte("package Vehicles;"))
	if result.Encoding != "ascii" {
		t.Errorf("expected ascii, got %s", result.Encoding)
	}
	if result.Confidence != 1.0 {
		t.Errorf("expected full confidence, got %f", result.Confidence)
	}
}

func TestDetectEncodingUTF8WithBOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("package P;")...)
	result := DetectEncoding(data)
	if result.Encoding != "utf-8" || !result.HasBOM {
		t.Errorf("expected utf-8 with BOM, got %+v", result)
	}

	normalized := NormalizeToUTF8(data, result)
	if normalized != "package P;" {
		t.Errorf("BOM not stripped: %q", normalized)
	}
}

func TestDetectEncodingUTF16LE(t *testing.T) {
	data := []byte{0xFF, 0xFE, 'p', 0, 'a', 0, 'r', 0, 't', 0}
	result := DetectEncoding(data)
	if result.Encoding != "utf-16le" {
		t.Errorf("expected utf-16le, got %s", result.Encoding)
	}

	normalized := NormalizeToUTF8(data, result)
	if normalized != "part" {
		t.Errorf("expected decoded text, got %q", normalized)
	}
}

func TestDetectEncodingUTF16WithoutBOM(t *testing.T) {
	data := []byte{'p', 0, 'a', 0, 'c', 0, 'k', 0, 'a', 0, 'g', 0, 'e', 0, ' ', 0}
	result := DetectEncoding(data)
	if result.Encoding != "utf-16le" {
		t.Errorf("expected utf-16le, got %s", result.Encoding)
	}
}

func TestDetectEncodingWindows1252(t *testing.T) {
	// 0x93/0x94 are curly quotes in Windows-1252, control chars elsewhere.
	data := []byte{'d', 'o', 'c', ' ', 0x93, 'h', 'i', 0x94}
	result := DetectEncoding(data)
	if result.Encoding != "windows-1252" {
		t.Errorf("expected windows-1252, got %s", result.Encoding)
	}

	normalized := NormalizeToUTF8(data, result)
	if normalized != "doc “hi”" {
		t.Errorf("unexpected decode: %q", normalized)
	}
}

func TestDetectEncodingLatin1(t *testing.T) {
	data := []byte{'M', 0xFC, 'l', 'l', 'e', 'r'}
	result := DetectEncoding(data)
	if result.Encoding != "iso-8859-1" {
		t.Errorf("expected iso-8859-1, got %s", result.Encoding)
	}

	normalized := NormalizeToUTF8(data, result)
	if normalized != "Müller" {
		t.Errorf("unexpected decode: %q", normalized)
	}
}

func TestReadFileAsUTF8(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.sysml")
	content := append([]byte{0xEF, 0xBB, 0xBF}, []byte("package P;\n")...)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}

	text, detected, err := ReadFileAsUTF8(path)
	if err != nil {
		t.Fatalf("ReadFileAsUTF8: %v", err)
	}
	if text != "package P;\n" {
		t.Errorf("unexpected content: %q", text)
	}
	if !detected.HasBOM {
		t.Error("BOM not detected")
	}
}

func TestScanFindsSourceFiles(t *testing.T) {
	root := t.TempDir()

	write := func(rel, content string) {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	write("vehicles.sysml", "package Vehicles;\n")
	write("sub/engine.sysml", "package Engines;\n")
	write("notes.txt", "not a model\n")
	write(".git/config.sysml", "ignored\n")
	write("build/out.sysml", "ignored\n")

	files, err := Scan(root, DefaultWatcherConfig())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	if len(files) != 2 {
		paths := make([]string, 0, len(files))
		for _, f := range files {
			paths = append(paths, f.Path)
		}
		t.Fatalf("expected 2 source files, got %d: %v", len(files), paths)
	}

	if filepath.Base(files[0].Path) != "engine.sysml" {
		t.Errorf("expected sorted order with engine.sysml first, got %s", files[0].Path)
	}
	if files[1].Content != "package Vehicles;\n" {
		t.Errorf("unexpected content: %q", files[1].Content)
	}
}

func TestDebouncerCoalescesPerPath(t *testing.T) {
	var mu sync.Mutex
	var batches [][]FileEvent

	d := NewDebouncer(30*time.Millisecond, 100, func(events []FileEvent) {
		mu.Lock()
		batches = append(batches, events)
		mu.Unlock()
	})
	defer d.Stop()

	for i := 0; i < 5; i++ {
		d.Add(FileEvent{Path: "/ws/a.sysml", Type: EventModify, Timestamp: time.Now()})
	}
	d.Add(FileEvent{Path: "/ws/b.sysml", Type: EventCreate, Timestamp: time.Now()})

	time.Sleep(150 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()

	if len(batches) != 1 {
		t.Fatalf("expected 1 flush, got %d", len(batches))
	}
	if len(batches[0]) != 2 {
		t.Errorf("expected 2 coalesced events, got %d", len(batches[0]))
	}
}

func TestDebouncerMergesEventKinds(t *testing.T) {
	flushed := make(chan []FileEvent, 1)

	d := NewDebouncer(time.Hour, 100, func(events []FileEvent) {
		flushed <- events
	})

	// A freshly created file edited in the same window is still a create;
	// a file deleted and rewritten is a net modify.
	d.Add(FileEvent{Path: "/ws/a.sysml", Type: EventCreate})
	d.Add(FileEvent{Path: "/ws/a.sysml", Type: EventModify})
	d.Add(FileEvent{Path: "/ws/b.sysml", Type: EventDelete})
	d.Add(FileEvent{Path: "/ws/b.sysml", Type: EventCreate})
	d.Stop()

	select {
	case events := <-flushed:
		if len(events) != 2 {
			t.Fatalf("expected 2 events, got %d", len(events))
		}
		if events[0].Path != "/ws/a.sysml" || events[1].Path != "/ws/b.sysml" {
			t.Errorf("batch not sorted by path: %+v", events)
		}
		if events[0].Type != EventCreate {
			t.Errorf("create+modify should stay create, got %v", events[0].Type)
		}
		if events[1].Type != EventModify {
			t.Errorf("delete+create should merge to modify, got %v", events[1].Type)
		}
	case <-time.After(time.Second):
		t.Fatal("Stop did not flush pending events")
	}
}

func TestDebouncerMaxBatchFlushesEarly(t *testing.T) {
	flushed := make(chan []FileEvent, 1)

	d := NewDebouncer(time.Hour, 2, func(events []FileEvent) {
		flushed <- events
	})
	defer d.Stop()

	d.Add(FileEvent{Path: "/ws/a.sysml", Type: EventModify})
	d.Add(FileEvent{Path: "/ws/b.sysml", Type: EventModify})

	select {
	case events := <-flushed:
		if len(events) != 2 {
			t.Errorf("expected 2 events, got %d", len(events))
		}
	case <-time.After(time.Second):
		t.Fatal("batch limit did not trigger a flush")
	}
}

func TestDebouncerStopFlushesPending(t *testing.T) {
	flushed := make(chan []FileEvent, 1)

	d := NewDebouncer(time.Hour, 100, func(events []FileEvent) {
		flushed <- events
	})

	d.Add(FileEvent{Path: "/ws/a.sysml", Type: EventModify})
	d.Stop()

	select {
	case events := <-flushed:
		if len(events) != 1 {
			t.Errorf("expected 1 event, got %d", len(events))
		}
	case <-time.After(time.Second):
		t.Fatal("Stop did not flush pending events")
	}
}
