package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpHelper "github.com/Luzifer/go_helpers/http"
	"github.com/Luzifer/rconfig/v2"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/Luzifer/empdir/pkg/bucket"
	"github.com/Luzifer/empdir/pkg/bucket/gcs"
	"github.com/Luzifer/empdir/pkg/bucket/s3"
	"github.com/Luzifer/empdir/pkg/employee"
	"github.com/Luzifer/empdir/pkg/resolver"
	"github.com/Luzifer/empdir/pkg/storage/local"
	"github.com/Luzifer/empdir/pkg/theme"
	"github.com/Luzifer/empdir/pkg/web"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

var (
	cfg = struct {
		Listen   string `flag:"listen" default:":81" description:"Port/IP to listen on"`
		LogLevel string `flag:"log-level" default:"info" description:"Log level (debug, info, warn, error, fatal)"`

		Color    string `flag:"color" env:"APP_COLOR" default:"lime" description:"Page color (red, green, blue, blue2, pink, darkblue, lime or random)"`
		UserName string `flag:"user-name" env:"YOUR_NAME" default:"CLO835 Student" description:"Name displayed on the pages"`

		ImageProvider       string `flag:"image-provider" default:"s3" description:"Where the background image is stored (s3, gcs)"`
		ImageBucket         string `flag:"image-bucket" env:"S3_BUCKET" default:"clo835-finalproject-g8rt" description:"Bucket holding the background image"`
		ImageKey            string `flag:"image-key" env:"S3_IMAGE_KEY" default:"background.jpg" description:"Object key of the background image"`
		ImageRegion         string `flag:"image-region" env:"AWS_REGION" default:"us-east-1" description:"Region of the S3 bucket"`
		ImageEndpoint       string `flag:"image-endpoint" default:"" description:"Custom S3 endpoint (MinIO, LocalStack, ...)"`
		ImageForcePathStyle bool   `flag:"image-force-path-style" default:"false" description:"Use path-style addressing with the custom S3 endpoint"`
		CacheDir            string `flag:"cache-dir" default:"images" description:"Where to cache the background image"`

		DBDriver          string        `flag:"db-driver" default:"mysql" description:"Database driver (mysql, postgres, ramsql)"`
		DBHost            string        `flag:"db-host" env:"DBHOST" default:"localhost" description:"Database host"`
		DBPort            int           `flag:"db-port" env:"DBPORT" default:"3306" description:"Database port"`
		DBUser            string        `flag:"db-user" env:"DBUSER" default:"root" description:"Database user"`
		DBPassword        string        `flag:"db-password" env:"DBPWD" default:"password" description:"Database password"`
		DBName            string        `flag:"db-name" env:"DATABASE" default:"employees" description:"Database (schema) name"`
		DBSSLMode         string        `flag:"db-ssl-mode" default:"disable" description:"SSL mode for postgres connections"`
		DBMaxOpenConns    int           `flag:"db-max-open-conns" default:"10" description:"Maximum number of open database connections"`
		DBMaxIdleConns    int           `flag:"db-max-idle-conns" default:"2" description:"Maximum number of idle database connections"`
		DBConnMaxLifetime time.Duration `flag:"db-conn-max-lifetime" default:"5m" description:"Maximum lifetime of a database connection"`
		DBConnectAttempts uint          `flag:"db-connect-attempts" default:"5" description:"How often to try reaching the database on startup"`
		DBMigrate         bool          `flag:"db-migrate" default:"false" description:"Create the employee table if missing"`

		VersionAndExit bool `flag:"version" default:"false" description:"Prints current version and exits"`
	}{}

	version = "dev"
)

func initApp() error {
	rconfig.AutoEnv(true)
	if err := rconfig.ParseAndValidate(&cfg); err != nil {
		return errors.Wrap(err, "parsing commandline options")
	}

	l, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return errors.Wrap(err, "parsing log-level")
	}
	log.SetLevel(l)

	return nil
}

func main() {
	var err error

	if err = initApp(); err != nil {
		log.WithError(err).Fatal("initializing app")
	}

	if cfg.VersionAndExit {
		fmt.Printf("empdir %s\n", version)
		os.Exit(0)
	}

	color, err := theme.Select(cfg.Color, rand.IntN)
	if err != nil {
		log.WithError(err).Fatal("selecting color")
	}
	log.WithFields(log.Fields{
		"color":     color.Name,
		"requested": cfg.Color,
	}).Info("color selected")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	source, err := newSource(ctx)
	if err != nil {
		log.WithError(err).Fatal("creating image source")
	}

	images := local.New(cfg.CacheDir)
	bg := resolver.New(source, images, cfg.ImageKey)

	db, err := employee.Open(ctx, employee.Config{
		Driver:          cfg.DBDriver,
		Host:            cfg.DBHost,
		Port:            cfg.DBPort,
		User:            cfg.DBUser,
		Password:        cfg.DBPassword,
		Name:            cfg.DBName,
		SSLMode:         cfg.DBSSLMode,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnectAttempts: cfg.DBConnectAttempts,
		ConnectDelay:    time.Second,
	})
	if err != nil {
		log.WithError(err).Fatal("connecting to database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.WithError(err).Error("closing database")
		}
	}()

	employees, err := employee.NewStore(db, cfg.DBDriver)
	if err != nil {
		log.WithError(err).Fatal("creating employee store")
	}

	if cfg.DBMigrate || cfg.DBDriver == string(employee.DialectRamSQL) {
		if err = employees.Migrate(ctx); err != nil {
			log.WithError(err).Fatal("migrating database")
		}
	}

	log.WithField("url", bg.BackgroundURL(ctx)).Info("background image ready")

	srv, err := web.New(web.Config{Color: color, UserName: cfg.UserName}, bg, employees, images)
	if err != nil {
		log.WithError(err).Fatal("creating web server")
	}

	var hdl http.Handler = srv.Router()
	hdl = httpHelper.GzipHandler(hdl)
	hdl = httpHelper.NewHTTPLogHandlerWithLogger(hdl, log.StandardLogger())

	server := &http.Server{
		Addr:              cfg.Listen,
		Handler:           hdl,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		<-ctx.Done()

		sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer scancel()

		if err := server.Shutdown(sctx); err != nil {
			log.WithError(err).Error("shutting down HTTP server")
		}
	}()

	log.WithFields(log.Fields{
		"listen":  cfg.Listen,
		"version": version,
	}).Info("empdir started")

	if err = server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("running HTTP server")
	}

	log.Info("empdir stopped")
}

func newSource(ctx context.Context) (bucket.Source, error) {
	switch cfg.ImageProvider {
	case "s3":
		return s3.New(s3.Config{
			Bucket:         cfg.ImageBucket,
			Region:         cfg.ImageRegion,
			Endpoint:       cfg.ImageEndpoint,
			ForcePathStyle: cfg.ImageForcePathStyle,
		})

	case "gcs":
		return gcs.New(ctx, cfg.ImageBucket)

	default:
		return nil, errors.Errorf("unsupported image provider %q", cfg.ImageProvider)
	}
}
