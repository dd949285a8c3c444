package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/dmitrijs2005/tutorly/internal/client/backend"
	"github.com/dmitrijs2005/tutorly/internal/client/backend/postgres"
	"github.com/dmitrijs2005/tutorly/internal/client/backend/rest"
	"github.com/dmitrijs2005/tutorly/internal/client/config"
	"github.com/dmitrijs2005/tutorly/internal/client/content"
	"github.com/dmitrijs2005/tutorly/internal/client/models"
	"github.com/dmitrijs2005/tutorly/internal/client/nav"
	"github.com/dmitrijs2005/tutorly/internal/client/progress"
	"github.com/dmitrijs2005/tutorly/internal/client/recovery"
	"github.com/dmitrijs2005/tutorly/internal/client/repositories"
	"github.com/dmitrijs2005/tutorly/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/tutorly/internal/client/services"
	"github.com/dmitrijs2005/tutorly/internal/client/session"
	"github.com/dmitrijs2005/tutorly/internal/logging"
)

// sessionStore is the part of session.Store the commands use.
type sessionStore interface {
	Snapshot() session.State
	SignOut(ctx context.Context)
}

// progressView is the read side of progress.Tracker.
type progressView interface {
	GetCourseProgress(ctx context.Context, course string) models.CourseProgress
	Records() []models.ProgressRecord
	Loading() bool
}

// urlSessionDetector adopts the token pair of a recovery link fragment.
type urlSessionDetector interface {
	DetectSessionInURL(ctx context.Context, fragment string) (*models.Session, error)
}

type App struct {
	config        *config.Config
	logger        logging.Logger
	authService   services.AuthService
	lessonService services.LessonService
	session       sessionStore
	progress      progressView
	history       *nav.History
	detector      urlSessionDetector
	outlines      services.OutlineRegistrar
	reader        *bufio.Reader
	out           io.Writer
	closers       []func()
}

// NewApp builds the object graph described by c. The session is restored
// from client-side storage before it returns.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewTextLogger(os.Stderr, parseLevel(c.LogLevel))
	a := &App{config: c, logger: logger, reader: bufio.NewReader(os.Stdin), out: os.Stdout}

	repos, err := repositories.InitDatabase(ctx, c.DatabaseDSN)
	if err != nil {
		logger.Error(ctx, "error initializing database", "err", err)
		return nil, err
	}
	a.onClose(func() { _ = repos.Close() })

	httpClient := &http.Client{Timeout: c.RequestTimeout}
	client := rest.New(c.BackendURL, c.AnonKey, repos.Storage,
		rest.WithHTTPClient(httpClient), rest.WithLogger(logger))

	store, err := a.progressStore(ctx, client)
	if err != nil {
		a.Close()
		return nil, err
	}

	src, err := newContentSource(ctx, c, httpClient)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.history = nav.NewHistory(nav.Location{Path: "/"})

	sess := session.New(client, repos.Storage, a.history, logger,
		session.WithSignOutTimeout(c.SignOutTimeout),
		session.WithEntryPoint(c.EntryPoint),
		session.WithHardNavigation(c.HardNavigate),
		session.WithSessionStorage(metadata.NewMemoryRepository()),
	)
	a.onClose(sess.Close)

	tracker := progress.New(store, logger)
	a.onClose(tracker.Wait)
	a.onClose(tracker.Attach(ctx, sess))

	a.onClose(recovery.NewRedirector(client, sess, a.history, logger).Mount(ctx))

	sess.Initialize(ctx)

	a.session = sess
	a.progress = tracker
	a.detector = client
	a.authService = services.NewAuthService(client, c.RedirectURL, services.DefaultUpdateTimeout)
	var lessonOpts []services.LessonOption
	if a.outlines != nil {
		lessonOpts = append(lessonOpts, services.WithOutlineRegistrar(a.outlines, logger))
	}
	a.lessonService = services.NewLessonService(src, tracker, lessonOpts...)
	return a, nil
}

// progressStore picks Postgres when a DSN is configured and the REST
// backend otherwise.
func (a *App) progressStore(ctx context.Context, client *rest.Client) (backend.ProgressStore, error) {
	if a.config.ProgressDSN == "" {
		return client, nil
	}
	db, err := postgres.Open(ctx, a.config.ProgressDSN)
	if err != nil {
		a.logger.Error(ctx, "error opening progress database", "err", err)
		return nil, err
	}
	a.onClose(func() { _ = db.Close() })
	a.outlines = courseRegistrar{db: db}
	return postgres.NewStore(db), nil
}

// courseRegistrar feeds course outlines to the Postgres progress aggregate.
type courseRegistrar struct {
	db *sql.DB
}

func (r courseRegistrar) RegisterOutline(ctx context.Context, c *content.Course) error {
	return postgres.RegisterCourse(ctx, r.db, c.Slug, courseOutline(c))
}

func courseOutline(c *content.Course) []postgres.LessonRef {
	var refs []postgres.LessonRef
	for _, u := range c.Units {
		for _, l := range u.Lessons {
			refs = append(refs, postgres.LessonRef{UnitOrder: u.Order, LessonSlug: l.Slug})
		}
	}
	return refs
}

// newContentSource maps the configured content location to a Source:
// s3://bucket/prefix, http(s)://base or a directory path.
func newContentSource(ctx context.Context, c *config.Config, hc *http.Client) (content.Source, error) {
	u, err := url.Parse(c.ContentSource)
	if err == nil {
		switch u.Scheme {
		case "s3":
			src, err := content.NewS3Source(ctx, content.S3Config{
				Bucket:    u.Host,
				Prefix:    strings.Trim(u.Path, "/"),
				Region:    c.S3Region,
				Endpoint:  c.S3Endpoint,
				AccessKey: c.S3AccessKey,
				SecretKey: c.S3SecretKey,
			})
			if err != nil {
				return nil, fmt.Errorf("content source: %w", err)
			}
			return src, nil
		case "http", "https":
			return content.NewHTTPSource(c.ContentSource, hc), nil
		}
	}
	return content.NewDirSource(c.ContentSource), nil
}

func parseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelWarn
	}
	return l
}

func (a *App) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

// Close releases everything NewApp opened, newest first.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *App) Run(ctx context.Context) {
	defer a.Close()
	a.Root(ctx)
}

func (a *App) isLoggedIn() bool {
	return !a.session.Snapshot().Anonymous()
}
