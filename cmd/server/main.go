package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/jrsteele09/field-portal/auth"
	"github.com/jrsteele09/field-portal/feedback"
	feedbackmongo "github.com/jrsteele09/field-portal/feedback/mongostore"
	fakefeedbackrepo "github.com/jrsteele09/field-portal/feedback/repofakes"
	"github.com/jrsteele09/field-portal/internal/config"
	"github.com/jrsteele09/field-portal/internal/mongodb"
	"github.com/jrsteele09/field-portal/server"
	"github.com/jrsteele09/field-portal/sessions"
	"github.com/jrsteele09/field-portal/sessions/redisstore"
	"github.com/jrsteele09/field-portal/sessions/sessionstore"
	"github.com/jrsteele09/field-portal/token"
	"github.com/jrsteele09/field-portal/users"
	usermongo "github.com/jrsteele09/field-portal/users/mongostore"
	fakeuserrepo "github.com/jrsteele09/field-portal/users/repofake"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const sweepInterval = 10 * time.Minute

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("failed to load .env")
	}

	for {
		if err := run(); err != nil {
			log.Error().Err(err).Msg("Error running server")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	configureLogging(c)
	if err := config.Validate(c); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	displayAppname(c.GetAppName())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	services, sessionRepo, closeStores, err := buildServices(ctx, c)
	if err != nil {
		return err
	}
	defer closeStores()

	if _, err := server.BootstrapAdmin(ctx, c, services.Users); err != nil {
		return err
	}

	handler, err := server.New(c, services)
	if err != nil {
		return err
	}
	httpServer := &http.Server{Addr: c.GetPort(), Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error { return listenAndServe(httpServer) })
	group.Go(func() error {
		sweepExpiredSessions(groupCtx, sessionRepo)
		return nil
	})

	waitForStopSignal(groupCtx)
	returnError = shutdown(httpServer)
	cancel()
	if err := group.Wait(); err != nil && returnError == nil {
		returnError = err
	}
	return returnError
}

func configureLogging(c config.Config) {
	level, err := zerolog.ParseLevel(c.GetLogLevel())
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if c.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

// buildServices wires the stores selected by SESSION_STORE. The memory store keeps
// users and feedback in memory too.
func buildServices(ctx context.Context, c config.Config) (server.Services, sessions.Repo, func(), error) {
	var (
		userRepo     users.UserRepo
		feedbackRepo feedback.Repo
		deps         sessionstore.Dependencies
		closers      []func(context.Context) error
	)

	closeAll := func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](closeCtx); err != nil {
				log.Warn().Err(err).Msg("failed to close store")
			}
		}
	}
	fail := func(err error) (server.Services, sessions.Repo, func(), error) {
		closeAll()
		return server.Services{}, nil, nil, err
	}

	if c.GetSessionStore() == config.SessionStoreMemory {
		log.Warn().Msg("using in-memory stores, data is lost on restart")
		userRepo = fakeuserrepo.NewFakeUserRepo()
		feedbackRepo = fakefeedbackrepo.NewFakeFeedbackRepo()
	} else {
		conn, err := mongodb.Connect(ctx, c.GetMongoURI(), c.GetMongoDatabase())
		if err != nil {
			return fail(err)
		}
		closers = append(closers, conn.Close)
		deps.MongoDB = conn.Database

		if userRepo, err = usermongo.New(ctx, conn.Database); err != nil {
			return fail(err)
		}
		if feedbackRepo, err = feedbackmongo.New(ctx, conn.Database); err != nil {
			return fail(err)
		}
	}

	sessionRepo, err := sessionstore.New(ctx, sessionstore.Config{
		Driver: c.GetSessionStore(),
		Redis: redisstore.Config{
			Addr:     c.GetRedisAddr(),
			Password: c.GetRedisPassword(),
			DB:       c.GetRedisDB(),
			Prefix:   c.GetRedisPrefix(),
		},
	}, deps)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, sessionRepo.Close)

	codec, err := token.NewCodec(c.GetJWTSecret())
	if err != nil {
		return fail(err)
	}
	authService, err := auth.NewService(codec, sessionRepo,
		auth.WithSingleActiveSession(c.GetSingleActiveSession()),
		auth.WithQRTokenValidity(c.GetQRTokenValidity()),
	)
	if err != nil {
		return fail(err)
	}
	userService, err := users.NewService(userRepo)
	if err != nil {
		return fail(err)
	}
	feedbackService, err := feedback.NewService(feedbackRepo)
	if err != nil {
		return fail(err)
	}

	return server.Services{
		Auth:     authService,
		Users:    userService,
		Feedback: feedbackService,
	}, sessionRepo, closeAll, nil
}

// sweepExpiredSessions purges expired records for stores without native expiry.
func sweepExpiredSessions(ctx context.Context, repo sessions.Repo) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := repo.DeleteExpired(ctx); err != nil && ctx.Err() == nil {
				log.Warn().Err(err).Msg("failed to delete expired sessions")
			}
		}
	}
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal(ctx context.Context) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)
	select {
	case <-stop:
	case <-ctx.Done():
	}
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
