package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"io"
	"net/http"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/dmitrijs2005/gooutside/internal/camera"
	"github.com/dmitrijs2005/gooutside/internal/capture"
	"github.com/dmitrijs2005/gooutside/internal/classifier"
	"github.com/dmitrijs2005/gooutside/internal/config"
	"github.com/dmitrijs2005/gooutside/internal/database"
	"github.com/dmitrijs2005/gooutside/internal/diary"
	"github.com/dmitrijs2005/gooutside/internal/location"
	"github.com/dmitrijs2005/gooutside/internal/logging"
	"github.com/dmitrijs2005/gooutside/internal/media"
)

// isTerminal is a test seam for term.IsTerminal.
var isTerminal = term.IsTerminal

// geocoderTimeout bounds a single reverse geocoding request.
const geocoderTimeout = 10 * time.Second

type App struct {
	config  *config.Config
	log     logging.Logger
	db      *sql.DB
	diary   *diary.Store
	device  *camera.FileDevice
	session *capture.Session
	reader  *bufio.Reader
	out     io.Writer
	now     func() time.Time
}

// NewApp opens the diary database and builds the capture session described
// by c.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	log := newLogger(c, os.Stderr)

	db, err := database.InitDatabase(ctx, c.DatabaseDSN)
	if err != nil {
		log.Error(ctx, "error initializing database", "error", err)
		return nil, err
	}

	a, err := buildApp(ctx, c, db, log)
	if err != nil {
		log.Error(ctx, "error initializing app", "error", err)
		_ = db.Close()
		return nil, err
	}
	return a, nil
}

func buildApp(ctx context.Context, c *config.Config, db *sql.DB, log logging.Logger) (*App, error) {
	store, err := newMediaStore(ctx, c, log)
	if err != nil {
		return nil, err
	}

	engine, err := newClassifier(c, log)
	if err != nil {
		return nil, err
	}

	locator, err := newLocator(c, log)
	if err != nil {
		return nil, err
	}

	d := diary.NewSQLStore(db, log)
	device := camera.NewFileDevice(log)
	session := capture.NewSession(device, engine, locator, store, d, log, capture.Options{
		AnalysisDelay: c.AnalysisDelay,
		HighAccuracy:  c.HighAccuracy,
	})

	a := newApp(d, device, session, log, bufio.NewReader(os.Stdin), os.Stdout)
	a.config = c
	a.db = db
	return a, nil
}

func newApp(d *diary.Store, device *camera.FileDevice, session *capture.Session, log logging.Logger, r *bufio.Reader, w io.Writer) *App {
	return &App{
		log:     log,
		diary:   d,
		device:  device,
		session: session,
		reader:  r,
		out:     w,
		now:     time.Now,
	}
}

// newLogger writes human-readable text to a terminal and JSON otherwise.
func newLogger(c *config.Config, w io.Writer) *logging.SlogLogger {
	text := false
	if f, ok := w.(*os.File); ok {
		text = isTerminal(int(f.Fd()))
	}
	return logging.New(w, c.LogLevel, text)
}

func newMediaStore(ctx context.Context, c *config.Config, log logging.Logger) (media.Store, error) {
	format, err := media.ParseFormat(c.MediaFormat)
	if err != nil {
		return nil, err
	}

	if c.MediaBackend == config.MediaBackendS3 {
		sc := media.S3Config{
			Bucket:    c.S3Bucket,
			Region:    c.S3Region,
			Endpoint:  c.S3Endpoint,
			Prefix:    c.S3Prefix,
			AccessKey: c.S3AccessKey,
			SecretKey: c.S3SecretKey,
		}
		client, err := media.NewS3Client(ctx, sc)
		if err != nil {
			return nil, err
		}
		return media.NewS3Store(client, sc, format, log)
	}
	return media.NewFileStore(c.MediaDir, format, log)
}

func newClassifier(c *config.Config, log logging.Logger) (*classifier.Engine, error) {
	table, err := classifier.DefaultTable()
	if err != nil {
		return nil, err
	}
	labeler, err := classifier.NewOllamaLabeler(c.OllamaURL, c.OllamaModel, table, log)
	if err != nil {
		return nil, err
	}
	return classifier.NewEngine(labeler, log, classifier.WithTable(table))
}

func newLocator(c *config.Config, log logging.Logger) (*location.Service, error) {
	perm, err := c.Permission()
	if err != nil {
		return nil, err
	}
	fix, err := c.Fix()
	if err != nil {
		return nil, err
	}

	var geocoder location.Geocoder
	if c.GeocoderURL != config.GeocoderOff {
		geocoder = location.NewNominatimGeocoder(c.GeocoderURL, &http.Client{Timeout: geocoderTimeout})
	}
	return location.NewService(location.NewStaticProvider(perm, fix), geocoder, log, c.LocationTimeout), nil
}

// Run starts the REPL and blocks until the user exits, the input ends or
// ctx is cancelled.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	printlnFn("Welcome to GoOutside (type 'help' for commands)")
	scanner := bufio.NewScanner(a.reader)
	runREPL(ctx, a, a.getStatus, scanner)
}

// Close stops the capture session and closes the database.
func (a *App) Close() error {
	var errs []error
	if a.session != nil {
		errs = append(errs, a.session.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}

func (a *App) getStatus() string {
	st := a.session.State()
	return st.Phase.String() + " " + st.Flash.String() + "/" + st.Facing.String()
}
