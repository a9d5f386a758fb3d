package repository_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/polytrack/internal/adapters/repository"
	"github.com/okian/polytrack/internal/config"
	"github.com/okian/polytrack/internal/domain/model"
	"github.com/okian/polytrack/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// failingBackend accepts reads but refuses every write.
type failingBackend struct {
	*repository.MemoryBackend
}

func (failingBackend) Put(context.Context, string, []byte) error {
	return errors.New("disk full")
}

// appendResults appends n results concurrently and returns the failures.
func appendResults(ctx context.Context, s *repository.Store, n int) []error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := repository.Update[model.ResultLog](ctx, s, repository.DocResults, func(doc *model.ResultLog) error {
				doc.Results = append(doc.Results, model.RaceResult{
					TrackID: "oval", UserID: fmt.Sprintf("u%d", i), TimeMs: int64(1000 + i),
				})
				return nil
			})
			if err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	return errs
}

func storeSuite(newBackend func(t *testing.T) repository.Backend) func(t *testing.T) {
	return func(t *testing.T) {
		Convey("Given a store", t, func() {
			ctx := context.Background()
			s := repository.NewStore(newBackend(t), repository.WithQueueSize(4))
			defer func() { So(s.Close(ctx), ShouldBeNil) }()

			Convey("When a document was never written", func() {
				doc := repository.Load[model.ResultLog](ctx, s, repository.DocResults)

				Convey("Then it loads as the empty default", func() {
					So(doc.Results, ShouldNotBeNil)
					So(doc.Results, ShouldBeEmpty)
				})
			})

			Convey("When many goroutines append concurrently", func() {
				So(appendResults(ctx, s, 40), ShouldBeEmpty)

				Convey("Then no append is lost", func() {
					doc := repository.Load[model.ResultLog](ctx, s, repository.DocResults)
					So(doc.Results, ShouldHaveLength, 40)
				})
			})

			Convey("When mutate fails", func() {
				boom := errors.New("rejected")
				err := repository.Update[model.TrackRegistry](ctx, s, repository.DocTracks, func(doc *model.TrackRegistry) error {
					doc.Tracks = append(doc.Tracks, model.Track{TrackID: "x"})
					return boom
				})

				Convey("Then the error is returned and nothing is written", func() {
					So(errors.Is(err, boom), ShouldBeTrue)
					doc := repository.Load[model.TrackRegistry](ctx, s, repository.DocTracks)
					So(doc.Tracks, ShouldBeEmpty)
				})
			})

			Convey("When different documents are updated", func() {
				So(repository.Update[model.LockState](ctx, s, repository.DocLockState, func(doc *model.LockState) error {
					doc.Locked = true
					return nil
				}), ShouldBeNil)
				So(appendResults(ctx, s, 3), ShouldBeEmpty)

				Convey("Then each keeps its own content", func() {
					So(repository.Load[model.LockState](ctx, s, repository.DocLockState).Locked, ShouldBeTrue)
					So(repository.Load[model.ResultLog](ctx, s, repository.DocResults).Results, ShouldHaveLength, 3)
				})
			})
		})
	}
}

func TestStoreMemory(t *testing.T) {
	storeSuite(func(*testing.T) repository.Backend { return repository.NewMemoryBackend() })(t)
}

func TestStoreFile(t *testing.T) {
	storeSuite(func(t *testing.T) repository.Backend {
		b, err := repository.NewFileBackend(t.TempDir())
		if err != nil {
			t.Fatalf("file backend: %v", err)
		}
		return b
	})(t)
}

func TestStoreSQLite(t *testing.T) {
	storeSuite(func(t *testing.T) repository.Backend {
		b, err := repository.NewSQLiteBackend(context.Background(), filepath.Join(t.TempDir(), "docs.db"))
		if err != nil {
			t.Fatalf("sqlite backend: %v", err)
		}
		return b
	})(t)
}

func TestStorePostgres(t *testing.T) {
	url := os.Getenv("POLYTRACK_TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("POLYTRACK_TEST_POSTGRES_URL not set")
	}
	storeSuite(func(t *testing.T) repository.Backend {
		b, err := repository.NewPostgresBackend(context.Background(), url)
		if err != nil {
			t.Fatalf("postgres backend: %v", err)
		}
		// Start each run from an empty table.
		for _, name := range []string{repository.DocResults, repository.DocTracks, repository.DocLockState} {
			if err := b.Put(context.Background(), name, []byte("{}")); err != nil {
				t.Fatalf("reset %s: %v", name, err)
			}
		}
		return b
	})(t)
}

func TestStoreFailSoft(t *testing.T) {
	Convey("Given a document holding malformed JSON", t, func() {
		ctx := context.Background()
		backend := repository.NewMemoryBackend()
		So(backend.Put(ctx, repository.DocResults, []byte("{not json")), ShouldBeNil)
		s := repository.NewStore(backend)
		defer s.Close(ctx)

		Convey("Then it loads as the empty default", func() {
			doc := repository.Load[model.ResultLog](ctx, s, repository.DocResults)
			So(doc.Results, ShouldNotBeNil)
			So(doc.Results, ShouldBeEmpty)
		})

		Convey("Then the next update starts from the empty default", func() {
			So(appendResults(ctx, s, 1), ShouldBeEmpty)
			So(repository.Load[model.ResultLog](ctx, s, repository.DocResults).Results, ShouldHaveLength, 1)
		})
	})

	Convey("Given a backend that refuses writes", t, func() {
		ctx := context.Background()
		s := repository.NewStore(failingBackend{repository.NewMemoryBackend()})
		defer s.Close(ctx)

		err := repository.Update[model.LockState](ctx, s, repository.DocLockState, func(doc *model.LockState) error {
			doc.Locked = true
			return nil
		})

		Convey("Then the update fails with ErrWrite", func() {
			So(errors.Is(err, repository.ErrWrite), ShouldBeTrue)
			So(repository.Load[model.LockState](ctx, s, repository.DocLockState).Locked, ShouldBeFalse)
		})
	})

	Convey("Given a closed store", t, func() {
		ctx := context.Background()
		s := repository.NewStore(repository.NewMemoryBackend())
		So(s.Close(ctx), ShouldBeNil)
		So(s.Close(ctx), ShouldBeNil)

		Convey("Then updates are refused", func() {
			err := repository.Update[model.LockState](ctx, s, repository.DocLockState, func(*model.LockState) error { return nil })
			So(errors.Is(err, repository.ErrClosed), ShouldBeTrue)
		})
	})
}

func TestFileBackend(t *testing.T) {
	Convey("Given a file backend", t, func() {
		ctx := context.Background()
		dir := t.TempDir()
		b, err := repository.NewFileBackend(filepath.Join(dir, "nested"))
		So(err, ShouldBeNil)

		Convey("When a document is written twice", func() {
			So(b.Put(ctx, "tracks", []byte(`{"tracks":[]}`)), ShouldBeNil)
			So(b.Put(ctx, "tracks", []byte(`{"tracks":[{"trackId":"a"}]}`)), ShouldBeNil)

			Convey("Then the file holds the last body and no temp files remain", func() {
				data, err := os.ReadFile(filepath.Join(dir, "nested", "tracks.json"))
				So(err, ShouldBeNil)
				So(string(data), ShouldEqual, `{"tracks":[{"trackId":"a"}]}`)

				entries, err := os.ReadDir(filepath.Join(dir, "nested"))
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 1)
			})
		})

		Convey("When a missing document is read", func() {
			_, err := b.Get(ctx, "results")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("When a name escapes the directory", func() {
			So(b.Put(ctx, "../evil", []byte("x")), ShouldNotBeNil)
			_, err := b.Get(ctx, "..")
			So(err, ShouldNotBeNil)
		})
	})

	Convey("Given a store over files", t, func() {
		ctx := context.Background()
		dir := t.TempDir()
		b, err := repository.NewFileBackend(dir)
		So(err, ShouldBeNil)
		s := repository.NewStore(b)
		So(repository.Update[model.LockState](ctx, s, repository.DocLockState, func(doc *model.LockState) error {
			doc.Locked = true
			return nil
		}), ShouldBeNil)
		So(s.Close(ctx), ShouldBeNil)

		Convey("Then documents are written as indented JSON", func() {
			data, err := os.ReadFile(filepath.Join(dir, "lock-state.json"))
			So(err, ShouldBeNil)
			So(string(data), ShouldEqual, "{\n  \"locked\": true\n}")
		})
	})
}

func TestOpen(t *testing.T) {
	Convey("Given configurations for each local backend", t, func() {
		ctx := context.Background()
		dir := t.TempDir()

		for _, backend := range []string{config.BackendFile, config.BackendSQLite, config.BackendMemory} {
			cfg := config.New()
			cfg.StoreBackend = backend
			cfg.DataDir = filepath.Join(dir, "data")
			cfg.SQLitePath = filepath.Join(dir, "db", "polytrack.db")

			s, err := repository.Open(ctx, cfg)
			So(err, ShouldBeNil)
			So(s, ShouldNotBeNil)
			So(s.Close(ctx), ShouldBeNil)
		}

		Convey("When the backend is unknown", func() {
			cfg := config.New()
			cfg.StoreBackend = "redis"
			_, err := repository.Open(ctx, cfg)
			So(errors.Is(err, repository.ErrUnknownBackend), ShouldBeTrue)
		})
	})
}

func TestUpdateRespectsCallerContext(t *testing.T) {
	Convey("Given a caller whose context is already done", t, func() {
		s := repository.NewStore(repository.NewMemoryBackend())
		defer s.Close(context.Background())
		ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
		defer cancel()
		time.Sleep(time.Millisecond)

		err := repository.Update[model.LockState](ctx, s, repository.DocLockState, func(doc *model.LockState) error {
			doc.Locked = true
			return nil
		})

		Convey("Then nothing is written", func() {
			So(err, ShouldNotBeNil)
			So(repository.Load[model.LockState](context.Background(), s, repository.DocLockState).Locked, ShouldBeFalse)
		})
	})
}
