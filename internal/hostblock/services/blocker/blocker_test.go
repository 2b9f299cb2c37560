package blocker_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/hostblock/internal/hostblock/common/clock"
	"github.com/haukened/hostblock/internal/hostblock/common/log"
	"github.com/haukened/hostblock/internal/hostblock/domain"
	"github.com/haukened/hostblock/internal/hostblock/repos/decision"
	"github.com/haukened/hostblock/internal/hostblock/repos/rulefile"
	"github.com/haukened/hostblock/internal/hostblock/services/blocker"
)

// fakeSource is a scriptable RuleSource. Changed mirrors the real detector's
// contract: it compares the caller's snapshot against the fake's current one.
type fakeSource struct {
	mu        sync.Mutex
	rules     []domain.BlockRule
	snap      rulefile.Snapshot
	loadErr   error
	loadCalls int
}

func (f *fakeSource) Load() ([]domain.BlockRule, rulefile.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loadCalls++
	if f.loadErr != nil {
		return nil, rulefile.Snapshot{}, f.loadErr
	}
	return append([]domain.BlockRule(nil), f.rules...), f.snap, nil
}

func (f *fakeSource) Changed(last rulefile.Snapshot) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !last.Equal(f.snap)
}

func (f *fakeSource) Path() string { return "fake" }

func (f *fakeSource) set(rules []domain.BlockRule, size int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = rules
	f.snap = rulefile.Snapshot{ModTime: time.Now(), Size: size}
}

func newFakeBlocker(f *fakeSource) *blocker.Blocker {
	return blocker.New(blocker.Options{
		Source: f,
		Caches: decision.NewFactory(64),
		Logger: log.NewNoopLogger(),
	})
}

// newFileBlocker wires a Blocker over a real temp rule file.
func newFileBlocker(t *testing.T, content string) (*blocker.Blocker, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hosts")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	source := rulefile.NewSource(path, time.Millisecond, &clock.MockClock{CurrentTime: time.Now()}, log.NewNoopLogger())
	return blocker.New(blocker.Options{
		Source:      source,
		Caches:      decision.NewFactory(64),
		Logger:      log.NewNoopLogger(),
		BloomFPRate: 0.01,
	}), path
}

func TestBlocker_ResolveMatrix(t *testing.T) {
	b, _ := newFileBlocker(t, ""+
		"0.0.0.0 tracker.com\n"+
		"127.0.0.1 .ads.example.com\n"+
		"9.9.9.9 exact.example.org\n")

	tests := []struct {
		name    string
		blocked bool
		address string
	}{
		{"tracker.com", true, "0.0.0.0"},
		{"TRACKER.com", true, "0.0.0.0"}, // case-insensitive
		{"www.tracker.com", false, ""},   // exact rule, no sub-domains
		{"ads.example.com", true, "127.0.0.1"},
		{"banner.ads.example.com", true, "127.0.0.1"},
		{"a.b.ads.example.com", true, "127.0.0.1"},
		{"example.com", false, ""},
		{"exact.example.org", true, "9.9.9.9"},
		{"unlisted.net", false, ""},
		{"localhost", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blocked, addr := b.Resolve(tt.name)
			assert.Equal(t, tt.blocked, blocked)
			assert.Equal(t, tt.address, addr)
		})
	}
}

func TestBlocker_LeadingDotQuery(t *testing.T) {
	// A query that itself starts with "." still walks its suffixes through
	// the full prefilter-cache-index pipeline.
	b, _ := newFileBlocker(t, "0.0.0.0 .com\n")

	blocked, addr := b.Resolve(".x.com")
	require.True(t, blocked, `".x.com" should be covered by the ".com" wildcard`)
	assert.Equal(t, "0.0.0.0", addr)

	blocked, _ = b.Resolve(".x.org")
	assert.False(t, blocked)
}

func TestBlocker_LastLineWins(t *testing.T) {
	b, _ := newFileBlocker(t, "0.0.0.0 x.com\n9.9.9.9 x.com\n")

	blocked, addr := b.Resolve("x.com")
	require.True(t, blocked)
	assert.Equal(t, "9.9.9.9", addr)
}

func TestBlocker_LazyFirstLoad(t *testing.T) {
	b, _ := newFileBlocker(t, "0.0.0.0 tracker.com\n")

	// No ForceReload: the first Resolve must load the file on demand.
	blocked, addr := b.Resolve("tracker.com")
	assert.True(t, blocked)
	assert.Equal(t, "0.0.0.0", addr)

	stats := b.Stats()
	assert.True(t, stats.Loaded)
	assert.Equal(t, 1, stats.RuleCount)
}

func TestBlocker_MissingFileFailsOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "never-created")
	source := rulefile.NewSource(path, time.Millisecond, &clock.MockClock{}, log.NewNoopLogger())
	b := blocker.New(blocker.Options{
		Source: source,
		Caches: decision.NewFactory(0),
		Logger: log.NewNoopLogger(),
	})

	blocked, addr := b.Resolve("tracker.com")
	assert.False(t, blocked)
	assert.Equal(t, "", addr)

	stats := b.Stats()
	assert.False(t, stats.Loaded, "nothing should ever have loaded")
	assert.Zero(t, stats.RuleCount)

	require.Error(t, b.ForceReload())
}

func TestBlocker_ForceReloadIdempotent(t *testing.T) {
	b, _ := newFileBlocker(t, "0.0.0.0 a.com\n0.0.0.0 b.com\n1.2.3.4 c.com\n")

	require.NoError(t, b.ForceReload())
	first := b.Stats()

	require.NoError(t, b.ForceReload())
	second := b.Stats()

	assert.Equal(t, first.RuleCount, second.RuleCount)
	assert.Equal(t, first.UniqueAddressCount, second.UniqueAddressCount)

	blocked, addr := b.Resolve("a.com")
	assert.True(t, blocked)
	assert.Equal(t, "0.0.0.0", addr)
}

func TestBlocker_Stats(t *testing.T) {
	b, _ := newFileBlocker(t, "0.0.0.0 a.com\n0.0.0.0 b.com\n1.2.3.4 c.com\n")
	require.NoError(t, b.ForceReload())

	stats := b.Stats()
	assert.Equal(t, 3, stats.RuleCount)
	assert.Equal(t, 2, stats.UniqueAddressCount, "shared addresses intern to one entry")
	assert.True(t, stats.Loaded)
}

func TestBlocker_PicksUpRewrite(t *testing.T) {
	f := &fakeSource{}
	f.set([]domain.BlockRule{{Key: "old.com", Address: "0.0.0.0"}}, 10)
	b := newFakeBlocker(f)

	blocked, _ := b.Resolve("old.com")
	require.True(t, blocked)

	// Rewrite: new rules, new fingerprint. The next Resolve must reload.
	f.set([]domain.BlockRule{{Key: "new.com", Address: "9.9.9.9"}}, 20)

	blocked, _ = b.Resolve("old.com")
	assert.False(t, blocked, "old rules must be gone after reload")

	blocked, addr := b.Resolve("new.com")
	assert.True(t, blocked)
	assert.Equal(t, "9.9.9.9", addr)
}

func TestBlocker_UnchangedFileLoadsOnce(t *testing.T) {
	f := &fakeSource{}
	f.set([]domain.BlockRule{{Key: "a.com", Address: "0.0.0.0"}}, 10)
	b := newFakeBlocker(f)

	for i := 0; i < 50; i++ {
		b.Resolve("a.com")
	}

	f.mu.Lock()
	calls := f.loadCalls
	f.mu.Unlock()
	assert.Equal(t, 1, calls, "an unchanged file must parse exactly once")
}

func TestBlocker_FailedReloadKeepsPreviousGeneration(t *testing.T) {
	f := &fakeSource{}
	f.set([]domain.BlockRule{{Key: "keep.com", Address: "0.0.0.0"}}, 10)
	b := newFakeBlocker(f)

	blocked, _ := b.Resolve("keep.com")
	require.True(t, blocked)

	// The file "changes" but becomes unreadable: stale-but-valid data keeps
	// serving and the error only surfaces through ForceReload.
	f.mu.Lock()
	f.snap = rulefile.Snapshot{ModTime: time.Now().Add(time.Hour), Size: 99}
	f.loadErr = os.ErrPermission
	f.mu.Unlock()

	blocked, addr := b.Resolve("keep.com")
	assert.True(t, blocked)
	assert.Equal(t, "0.0.0.0", addr)

	assert.Error(t, b.ForceReload())
}

func TestBlocker_ConcurrentResolve(t *testing.T) {
	b, _ := newFileBlocker(t, ""+
		"0.0.0.0 tracker.com\n"+
		"127.0.0.1 .ads.example.com\n")
	require.NoError(t, b.ForceReload())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				blocked, addr := b.Resolve("tracker.com")
				if !blocked || addr != "0.0.0.0" {
					t.Errorf("Resolve(tracker.com) = (%v, %q)", blocked, addr)
					return
				}
				blocked, addr = b.Resolve("banner.ads.example.com")
				if !blocked || addr != "127.0.0.1" {
					t.Errorf("Resolve(banner.ads.example.com) = (%v, %q)", blocked, addr)
					return
				}
				if blocked, _ := b.Resolve("unlisted.net"); blocked {
					t.Error("unlisted.net should never block")
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestBlocker_ConcurrentResolveWithReload(t *testing.T) {
	f := &fakeSource{}
	f.set([]domain.BlockRule{{Key: "a.com", Address: "0.0.0.0"}}, 10)
	b := newFakeBlocker(f)

	stop := make(chan struct{})
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for i := int64(0); ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			f.set([]domain.BlockRule{{Key: "a.com", Address: "0.0.0.0"}}, 10+i)
			_ = b.ForceReload()
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				// Every generation carries the same rule, so the answer must
				// hold across reloads.
				blocked, addr := b.Resolve("a.com")
				if !blocked || addr != "0.0.0.0" {
					t.Errorf("Resolve(a.com) = (%v, %q)", blocked, addr)
					return
				}
			}
		}()
	}

	wg.Wait()
	close(stop)
	<-writerDone
}

func TestNoop(t *testing.T) {
	var svc blocker.Service = blocker.Noop{}

	blocked, addr := svc.Resolve("tracker.com")
	assert.False(t, blocked)
	assert.Equal(t, "", addr)
	assert.NoError(t, svc.ForceReload())
	assert.Zero(t, svc.Stats().RuleCount)
}
