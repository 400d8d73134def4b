package roster

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/exp/slog"
)

// DefaultDebounce пауза после последнего события файла перед обработкой.
const DefaultDebounce = 500 * time.Millisecond

// Inbox следит за каталогом и передает обработчику новые файлы ведомостей.
// Обработчик вызывается один раз на серию событий одного файла.
type Inbox struct {
	dir      string
	watcher  *fsnotify.Watcher
	handle   func(path string)
	debounce time.Duration
	log      *slog.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
}

func NewInbox(dir string, handle func(path string), log *slog.Logger) (*Inbox, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create inbox dir: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch inbox %s: %w", dir, err)
	}

	return &Inbox{
		dir:      dir,
		watcher:  watcher,
		handle:   handle,
		debounce: DefaultDebounce,
		log:      log.With("component", "roster_inbox", "dir", dir),
		pending:  make(map[string]*time.Timer),
	}, nil
}

// SetDebounce вызывать до Run.
func (in *Inbox) SetDebounce(d time.Duration) {
	in.debounce = d
}

// Run блокирует до отмены ctx и закрывает наблюдатель.
func (in *Inbox) Run(ctx context.Context) error {
	defer in.stop()

	in.log.Info("watching roster inbox")
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-in.watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !Supported(event.Name) {
				continue
			}
			in.schedule(event.Name)

		case err, ok := <-in.watcher.Errors:
			if !ok {
				return nil
			}
			in.log.Warn("inbox watcher error", "error", err)
		}
	}
}

func (in *Inbox) schedule(path string) {
	in.mu.Lock()
	defer in.mu.Unlock()

	if t, ok := in.pending[path]; ok {
		t.Reset(in.debounce)
		return
	}

	in.pending[path] = time.AfterFunc(in.debounce, func() {
		in.mu.Lock()
		delete(in.pending, path)
		in.mu.Unlock()

		in.log.Info("roster file received", "path", path)
		in.handle(path)
	})
}

func (in *Inbox) stop() {
	in.mu.Lock()
	for path, t := range in.pending {
		t.Stop()
		delete(in.pending, path)
	}
	in.mu.Unlock()

	if err := in.watcher.Close(); err != nil {
		in.log.Warn("failed to close inbox watcher", "error", err)
	}
}
