package channels

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"twitch-chat-archiver/config"
	"twitch-chat-archiver/state"
)

type fakeTransport struct {
	mu     sync.Mutex
	joins  []string
	parts  []string
	joined []time.Time
}

func (f *fakeTransport) Join(ch string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joins = append(f.joins, ch)
	f.joined = append(f.joined, time.Now())
}

func (f *fakeTransport) sent() (joins, parts []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.joins...), append([]string(nil), f.parts...)
}

func (f *fakeTransport) Depart(ch string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.parts = append(f.parts, ch)
}

type fakeDirs struct {
	made []string
}

func (f *fakeDirs) EnsureDirs(channels ...string) error {
	f.made = append(f.made, channels...)
	return nil
}

type failingStore struct{}

func (failingStore) Load() (config.Config, error) { return config.Config{}, nil }
func (failingStore) Update(config.Config) error   { return errors.New("disk full") }

func TestNormalize(t *testing.T) {
	inputs := []string{"foo", "#foo", "FOO", " #Foo ", "##foo", "", "#"}
	for _, in := range inputs {
		once := Normalize(in)
		if !strings.HasPrefix(once, "#") {
			t.Errorf("Normalize(%q) = %q lacks '#'", in, once)
		}
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
	if got := Normalize("Foo"); got != "#foo" {
		t.Errorf("Normalize(Foo) = %q", got)
	}
}

func TestSet(t *testing.T) {
	s := NewSet("zeta", "#alpha", "Alpha", "mid")
	if diff := cmp.Diff([]string{"#alpha", "#mid", "#zeta"}, s.List()); diff != "" {
		t.Errorf("set (-want +got):\n%s", diff)
	}
	if s.Add("#mid") {
		t.Errorf("duplicate add succeeded")
	}
	if !s.Remove("zeta") || s.Remove("zeta") {
		t.Errorf("remove semantics wrong")
	}
	if s.Add("") || s.Add("#") {
		t.Errorf("empty channel accepted")
	}
}

func newTestManager(t *testing.T, names ...string) (*Manager, *fakeTransport, *state.Bot, config.FileStore) {
	t.Helper()
	store := config.FileStore{Path: filepath.Join(t.TempDir(), "config.toml")}
	if err := store.Update(config.Config{Twitch: config.TwitchConfig{Username: "bot", Channels: names}}); err != nil {
		t.Fatal(err)
	}
	tr := &fakeTransport{}
	bot := state.New(len(names), false, time.Now())
	m := NewManager(names, tr, store, bot, &fakeDirs{}, 0)
	return m, tr, bot, store
}

func TestJoin(t *testing.T) {
	m, tr, bot, store := newTestManager(t, "#a")

	joined, err := m.Join(context.Background(), []string{"c", "#b", "a", "C"})
	if err != nil {
		t.Fatalf("Join returned error: %v", err)
	}
	if diff := cmp.Diff([]string{"#c", "#b"}, joined); diff != "" {
		t.Errorf("joined (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"#c", "#b"}, tr.joins); diff != "" {
		t.Errorf("transport joins (-want +got):\n%s", diff)
	}
	if got := bot.Buffer(); got != 120 {
		t.Errorf("buffer = %d, want 120", got)
	}
	if diff := cmp.Diff([]string{"#a", "#b", "#c"}, m.List()); diff != "" {
		t.Errorf("list (-want +got):\n%s", diff)
	}

	cfg, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"#a", "#b", "#c"}, cfg.Twitch.Channels); diff != "" {
		t.Errorf("persisted channels (-want +got):\n%s", diff)
	}
	if cfg.Twitch.Username != "bot" {
		t.Errorf("persist clobbered other config: %+v", cfg.Twitch)
	}
}

func TestJoinTrackedIsNoop(t *testing.T) {
	m, tr, bot, _ := newTestManager(t, "#a")

	joined, err := m.Join(context.Background(), []string{"#a", "A"})
	if err != nil || joined != nil {
		t.Fatalf("Join = %v, %v; want nil, nil", joined, err)
	}
	if len(tr.joins) != 0 {
		t.Errorf("duplicate JOIN sent: %v", tr.joins)
	}
	if got := bot.Buffer(); got != 100 {
		t.Errorf("buffer changed: %d", got)
	}
}

func TestPart(t *testing.T) {
	names := []string{"#a", "#b", "#c", "#d", "#e", "#f", "#g", "#h", "#i", "#j", "#k", "#l"}
	m, tr, bot, store := newTestManager(t, names...)

	left, err := m.Part(context.Background(), []string{"b", "#zzz", "l"})
	if err != nil {
		t.Fatalf("Part returned error: %v", err)
	}
	if diff := cmp.Diff([]string{"#b", "#l"}, left); diff != "" {
		t.Errorf("left (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"#b", "#l"}, tr.parts); diff != "" {
		t.Errorf("transport parts (-want +got):\n%s", diff)
	}
	if got := bot.Buffer(); got != 100 {
		t.Errorf("buffer = %d, want 100", got)
	}
	cfg, _ := store.Load()
	if len(cfg.Twitch.Channels) != 10 {
		t.Errorf("persisted %d channels, want 10", len(cfg.Twitch.Channels))
	}
}

func TestPartUntrackedIsNoop(t *testing.T) {
	m, tr, bot, _ := newTestManager(t, "#a")

	left, err := m.Part(context.Background(), []string{"#nope"})
	if err != nil || left != nil {
		t.Fatalf("Part = %v, %v; want nil, nil", left, err)
	}
	if len(tr.parts) != 0 || bot.Buffer() != 100 || m.Len() != 1 {
		t.Errorf("untracked part changed state: parts=%v buffer=%d len=%d", tr.parts, bot.Buffer(), m.Len())
	}
}

func TestJoinPersistFailureKeepsMemory(t *testing.T) {
	tr := &fakeTransport{}
	bot := state.New(0, false, time.Now())
	m := NewManager(nil, tr, failingStore{}, bot, &fakeDirs{}, 0)

	joined, err := m.Join(context.Background(), []string{"#a"})
	if err == nil {
		t.Fatalf("expected persist error")
	}
	if diff := cmp.Diff([]string{"#a"}, joined); diff != "" {
		t.Errorf("joined (-want +got):\n%s", diff)
	}
	if !m.Contains("#a") || bot.Buffer() != 110 {
		t.Errorf("in-memory change lost on persist failure")
	}
}

func TestJoinIsPaced(t *testing.T) {
	tr := &fakeTransport{}
	bot := state.New(0, false, time.Now())
	m := NewManager(nil, tr, failingStore{}, bot, &fakeDirs{}, 40*time.Millisecond)

	start := time.Now()
	m.Join(context.Background(), []string{"#a", "#b", "#c"})
	if elapsed := time.Since(start); elapsed < 75*time.Millisecond {
		t.Errorf("three joins took %v, want at least two intervals", elapsed)
	}
}

func TestJoinAll(t *testing.T) {
	m, tr, _, _ := newTestManager(t, "#b", "#a")
	if err := m.JoinAll(context.Background()); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"#a", "#b"}, tr.joins); diff != "" {
		t.Errorf("joins (-want +got):\n%s", diff)
	}
}

func TestJoinAllCancelled(t *testing.T) {
	tr := &fakeTransport{}
	m := NewManager([]string{"#a", "#b", "#c"}, tr, failingStore{}, state.New(3, false, time.Now()), &fakeDirs{}, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := m.JoinAll(ctx); err == nil {
		t.Fatalf("expected error from cancelled context")
	}
}

func TestJoinAllSkipsChannelPartedWhileWaiting(t *testing.T) {
	tr := &fakeTransport{}
	bot := state.New(3, false, time.Now())
	m := NewManager([]string{"#a", "#b", "#c"}, tr, failingStore{}, bot, &fakeDirs{}, 50*time.Millisecond)

	done := make(chan error, 1)
	go func() { done <- m.JoinAll(context.Background()) }()

	time.Sleep(10 * time.Millisecond)
	left, _ := m.Part(context.Background(), []string{"#c"})
	if diff := cmp.Diff([]string{"#c"}, left); diff != "" {
		t.Fatalf("left (-want +got):\n%s", diff)
	}
	if err := <-done; err != nil {
		t.Fatal(err)
	}

	joins, parts := tr.sent()
	if diff := cmp.Diff([]string{"#a", "#b"}, joins); diff != "" {
		t.Errorf("joins (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"#c"}, parts); diff != "" {
		t.Errorf("parts (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"#a", "#b"}, m.List()); diff != "" {
		t.Errorf("tracked (-want +got):\n%s", diff)
	}
}
