// Package debug provides sinks for intermediate images produced while a frame
// moves through the localization pipeline.
package debug

import (
	"fmt"
	"image"
	"log/slog"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/MeKo-Tech/platefinder/internal/utils"
	"github.com/google/uuid"
)

// Sink receives intermediate images keyed by a stage label.
type Sink interface {
	Emit(label string, img image.Image)
}

// Scoper hands out sinks namespaced to a single source image so that
// concurrent workers never write to the same location.
type Scoper interface {
	ForImage(id string) Sink
}

// Nop discards everything. It is the default sink.
type Nop struct{}

// Emit implements Sink.
func (Nop) Emit(string, image.Image) {}

// ForImage implements Scoper.
func (n Nop) ForImage(string) Sink { return n }

// Scope returns a sink for id when s supports scoping, otherwise s itself.
// A nil sink yields Nop.
func Scope(s Sink, id string) Sink {
	if s == nil {
		return Nop{}
	}
	if sc, ok := s.(Scoper); ok {
		return sc.ForImage(id)
	}
	return s
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// sanitize turns a label or image id into a single path element.
func sanitize(s string) string {
	s = unsafeChars.ReplaceAllString(strings.TrimSpace(s), "_")
	return strings.Trim(s, "._")
}

// DirSink writes PNG files under Root/<image id>/<seq>_<label>.png.
type DirSink struct {
	root    string
	imageID string
	seq     *atomic.Int64
}

// NewDirSink creates a sink rooted at dir. Images emitted before ForImage is
// called land in a directory named after a random id.
func NewDirSink(dir string) *DirSink {
	return &DirSink{root: dir, imageID: uuid.NewString(), seq: new(atomic.Int64)}
}

// Root returns the base directory.
func (s *DirSink) Root() string { return s.root }

// Dir returns the directory this sink writes into.
func (s *DirSink) Dir() string { return filepath.Join(s.root, s.imageID) }

// ForImage implements Scoper. The directory is the sanitized base name
// followed by a short name-based uuid of the full id, so inputs sharing a base
// name in different folders stay apart. Empty or unusable ids get a random uuid.
func (s *DirSink) ForImage(id string) Sink {
	return &DirSink{root: s.root, imageID: imageDirName(id), seq: new(atomic.Int64)}
}

func imageDirName(id string) string {
	base := sanitize(filepath.Base(id))
	if base == "" {
		return uuid.NewString()
	}
	sum := uuid.NewSHA1(uuid.NameSpaceURL, []byte(filepath.ToSlash(filepath.Clean(id))))
	return base + "-" + sum.String()[:8]
}

// Emit implements Sink. Write failures are logged and otherwise ignored.
func (s *DirSink) Emit(label string, img image.Image) {
	if img == nil {
		return
	}
	n := s.seq.Add(1)
	path := filepath.Join(s.Dir(), fmt.Sprintf("%02d_%s.png", n, sanitize(label)))
	if err := utils.SavePNG(path, img); err != nil {
		slog.Warn("Failed to write debug image", "path", path, "error", err)
		return
	}
	slog.Debug("Wrote debug image", "label", label, "path", path)
}

// Entry is one image recorded by a MemorySink.
type Entry struct {
	Image string
	Label string
	Img   image.Image
}

// MemorySink keeps emitted images in memory.
type MemorySink struct {
	mu      sync.Mutex
	entries *[]Entry
	imageID string
	shared  *sync.Mutex
}

// NewMemorySink returns an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{entries: &[]Entry{}}
}

func (m *MemorySink) lock() *sync.Mutex {
	if m.shared != nil {
		return m.shared
	}
	return &m.mu
}

// Emit implements Sink.
func (m *MemorySink) Emit(label string, img image.Image) {
	l := m.lock()
	l.Lock()
	defer l.Unlock()
	*m.entries = append(*m.entries, Entry{Image: m.imageID, Label: label, Img: img})
}

// ForImage implements Scoper. Scoped sinks share storage with their parent.
func (m *MemorySink) ForImage(id string) Sink {
	return &MemorySink{entries: m.entries, imageID: id, shared: m.lock()}
}

// Entries returns a copy of everything emitted so far.
func (m *MemorySink) Entries() []Entry {
	l := m.lock()
	l.Lock()
	defer l.Unlock()
	return append([]Entry(nil), *m.entries...)
}

// Labels returns the emitted labels for one image id, in emission order.
func (m *MemorySink) Labels(imageID string) []string {
	var out []string
	for _, e := range m.Entries() {
		if e.Image == imageID {
			out = append(out, e.Label)
		}
	}
	return out
}

// Images returns the distinct image ids seen, sorted.
func (m *MemorySink) Images() []string {
	seen := map[string]struct{}{}
	for _, e := range m.Entries() {
		seen[e.Image] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
