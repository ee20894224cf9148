package watch

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileWatcherReportsChanges(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "annotations")
	require.NoError(t, os.Mkdir(sub, 0755))
	file := filepath.Join(sub, "service.xml")
	require.NoError(t, os.WriteFile(file, []byte("<a/>"), 0644))

	changes := make(chan []string, 4)
	watcher, err := NewFileWatcher(Options{
		Root:     root,
		Patterns: []string{"*.xml"},
		Debounce: 20 * time.Millisecond,
	}, func(files []string) error {
		changes <- files
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, watcher.Start())
	defer watcher.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(sub, "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(file, []byte("<b/>"), 0644))

	select {
	case files := <-changes:
		assert.Equal(t, []string{file}, files)
	case <-time.After(5 * time.Second):
		t.Fatal("expected changes to be detected")
	}
}

func TestDebouncerCollectsUniqueFiles(t *testing.T) {
	var mu sync.Mutex
	var batches [][]string

	debouncer := NewDebouncer(30 * time.Millisecond)
	debouncer.SetCallback(func(files []string) {
		mu.Lock()
		defer mu.Unlock()
		batches = append(batches, files)
	})

	debouncer.Add("b.xml")
	debouncer.Add("a.xml")
	debouncer.Add("b.xml")

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(batches) == 1
	}, time.Second, 5*time.Millisecond)

	debouncer.Add("c.xml")
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(batches) == 2
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a.xml", "b.xml"}, batches[0])
	assert.Equal(t, []string{"c.xml"}, batches[1])
}

func TestDebouncerStop(t *testing.T) {
	called := make(chan struct{}, 1)
	debouncer := NewDebouncer(10 * time.Millisecond)
	debouncer.SetCallback(func([]string) { called <- struct{}{} })

	debouncer.Add("a.xml")
	debouncer.Stop()
	debouncer.Add("b.xml")

	select {
	case <-called:
		t.Fatal("callback must not run after Stop")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestShouldIgnore(t *testing.T) {
	watcher := &FileWatcher{ignored: []string{"*.swp", "node_modules"}}

	tests := []struct {
		path     string
		expected bool
	}{
		{"service.xml", false},
		{"service.xml.swp", true},
		{"app/node_modules", true},
		{".git", true},
		{"dir/.hidden.xml", true},
		{".", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, watcher.shouldIgnore(tt.path))
		})
	}
}

func TestMatchesPattern(t *testing.T) {
	tests := []struct {
		patterns []string
		path     string
		expected bool
	}{
		{[]string{"*.xml"}, "srv/annotations.xml", true},
		{[]string{"*.xml"}, "srv/notes.txt", false},
		{[]string{"*.xml", "*.edmx"}, "metadata.edmx", true},
		{[]string{"metadata.*"}, "a/metadata.xml", true},
		{nil, "anything.txt", true},
	}
	for _, tt := range tests {
		watcher := &FileWatcher{patterns: tt.patterns}
		assert.Equal(t, tt.expected, watcher.matchesPattern(tt.path), "%v %s", tt.patterns, tt.path)
	}
}

func TestFindDirectoriesSkipsIgnored(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a", "b"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git", "objects"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules", "x"), 0755))

	watcher := &FileWatcher{root: root, ignored: []string{"node_modules"}}
	dirs, err := watcher.findDirectories()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{root, filepath.Join(root, "a"), filepath.Join(root, "a", "b")}, dirs)
}

func TestStopTwice(t *testing.T) {
	watcher, err := NewFileWatcher(Options{Root: t.TempDir()}, func([]string) error { return nil })
	require.NoError(t, err)
	require.NoError(t, watcher.Start())
	assert.NoError(t, watcher.Stop())
	assert.NoError(t, watcher.Stop())
}

func TestConcurrentStop(t *testing.T) {
	watcher, err := NewFileWatcher(Options{Root: t.TempDir()}, func([]string) error { return nil })
	require.NoError(t, err)
	require.NoError(t, watcher.Start())

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = watcher.Stop()
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
}
