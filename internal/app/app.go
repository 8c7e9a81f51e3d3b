package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	swaggerfiles "github.com/swaggo/files"
	swagger "github.com/swaggo/gin-swagger"
	"github.com/wagslane/go-rabbitmq"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	_ "github.com/Nazarious-ucu/weather-push-notifier/docs"
	"github.com/Nazarious-ucu/weather-push-notifier/internal/config"
	"github.com/Nazarious-ucu/weather-push-notifier/internal/consumer"
	"github.com/Nazarious-ucu/weather-push-notifier/internal/controller"
	grpchandler "github.com/Nazarious-ucu/weather-push-notifier/internal/handlers/grpc"
	httphandler "github.com/Nazarious-ucu/weather-push-notifier/internal/handlers/http"
	"github.com/Nazarious-ucu/weather-push-notifier/internal/metrics"
	"github.com/Nazarious-ucu/weather-push-notifier/internal/models"
	"github.com/Nazarious-ucu/weather-push-notifier/internal/notifier"
	"github.com/Nazarious-ucu/weather-push-notifier/internal/producers"
	"github.com/Nazarious-ucu/weather-push-notifier/internal/services/logger"
	"github.com/Nazarious-ucu/weather-push-notifier/internal/services/push"
	"github.com/Nazarious-ucu/weather-push-notifier/internal/services/weather"
	filelogger "github.com/Nazarious-ucu/weather-push-notifier/pkg/logger"
	"github.com/Nazarious-ucu/weather-push-notifier/pkg/messaging"
)

const (
	timeoutDuration     = 5 * time.Second
	outboundHTTPTimeout = 15 * time.Second
	weatherBreakerName  = "openweathermap"
)

type pushSender interface {
	Send(ctx context.Context, msgs []models.PushMessage) (models.PushReceipt, error)
}

type ServiceContainer struct {
	Store       subscriptionStore
	Gateway     *push.Gateway
	Notificator *notifier.Notifier
	Controller  *controller.Controller
	GrpcServer  *grpc.Server

	Router *gin.Engine
	Srv    *http.Server

	rabbitConn      *rabbitmq.Conn
	publisher       *rabbitmq.Publisher
	commentConsumer *rabbitmq.Consumer
	closeStore      func() error
	fileLogger      *zap.Logger
}

type App struct {
	cfg config.Config
	l   zerolog.Logger
	m   *metrics.Metrics
}

func New(cfg config.Config, l zerolog.Logger, m *metrics.Metrics) *App {
	l = l.With().Str("service", "weather-push").Logger()
	return &App{cfg: cfg, l: l, m: m}
}

// Start wires every component, serves HTTP and gRPC and runs the daily
// scheduler until ctx is cancelled.
func (a *App) Start(ctx context.Context) error {
	c, err := a.Init(ctx)
	if err != nil {
		return err
	}

	errCh := make(chan error, 2)

	lc := net.ListenConfig{}
	lis, err := lc.Listen(ctx, "tcp", a.cfg.GrpcAddress())
	if err != nil {
		_ = a.Stop(c)
		return fmt.Errorf("grpc listen: %w", err)
	}
	go func() {
		a.l.Info().Str("grpc_addr", a.cfg.GrpcAddress()).Msg("gRPC server running")
		if err := c.GrpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc serve: %w", err)
		}
	}()

	go func() {
		a.l.Info().Str("http_addr", a.cfg.ServerAddress()).Msg("HTTP server listening")
		if err := c.Srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http serve: %w", err)
		}
	}()

	if err := c.Notificator.Start(ctx); err != nil {
		_ = a.Stop(c)
		return err
	}
	a.l.Info().Str("schedule", a.cfg.Notifier.Schedule).Str("tz", a.cfg.Notifier.TimeZone).Msg("Notifier started")

	if c.commentConsumer != nil {
		handler := consumer.NewCommentConsumer(c.Notificator, a.l, a.m, 0)
		go func() {
			if err := c.commentConsumer.Run(handler.ReceiveComment); err != nil {
				a.l.Error().Err(err).Msg("comment consumer stopped")
			}
		}()
	}

	select {
	case <-ctx.Done():
		a.l.Info().Msg("Shutdown signal received")
	case err = <-errCh:
		a.l.Error().Err(err).Msg("server error")
	}

	if stopErr := a.Stop(c); stopErr != nil && err == nil {
		err = stopErr
	}
	return err
}

// Init builds the container without starting any listener.
func (a *App) Init(ctx context.Context) (ServiceContainer, error) {
	var c ServiceContainer

	initCtx, cancel := context.WithTimeout(ctx, timeoutDuration)
	defer cancel()

	store, closeStore, err := openStore(initCtx, a.cfg.Store, a.l, a.m)
	if err != nil {
		return c, err
	}
	c.Store = store
	c.closeStore = closeStore
	a.l.Info().Str("driver", a.cfg.Store.Driver).Msg("Subscription store ready")

	fileLogger, err := filelogger.NewFileLogger(a.cfg.HTTPLogsPath)
	if err != nil {
		_ = closeStore()
		return c, fmt.Errorf("http file logger: %w", err)
	}
	c.fileLogger = fileLogger
	httpClient := &http.Client{
		Transport: logger.NewRoundTripper(fileLogger),
		Timeout:   outboundHTTPTimeout,
	}

	weatherSvc := weather.NewService(a.l, weather.NewBreakerClient(
		weatherBreakerName,
		weather.BreakerConfig{
			TimeInterval: time.Duration(a.cfg.Breaker.TimeInterval) * time.Second,
			TimeTimeOut:  time.Duration(a.cfg.Breaker.TimeTimeOut) * time.Second,
			RepeatNumber: a.cfg.Breaker.RepeatNumber,
		},
		weather.NewClientOpenWeatherMap(
			a.cfg.Weather.OpenWeatherMapAPIKey,
			a.cfg.Weather.OpenWeatherMapURL,
			a.cfg.Weather.IconURL,
			httpClient,
			a.l,
		),
		a.l,
	))

	if a.cfg.RabbitMQ.Enabled {
		if err := a.initRabbit(&c); err != nil {
			a.release(c)
			return c, err
		}
	}

	var sender pushSender
	switch a.cfg.Push.Gateway {
	case config.GatewayRabbitMQ:
		sender = producers.NewProducer(c.publisher, a.l, a.m)
	default:
		sender = push.NewExpoClient(a.cfg.Push.ExpoURL, a.cfg.Push.AccessToken, httpClient, a.l)
	}
	runTimeout := time.Duration(a.cfg.Notifier.RunTimeout) * time.Second
	c.Gateway = push.NewGateway(sender, a.l, runTimeout)

	loc, err := a.cfg.Location()
	if err != nil {
		a.release(c)
		return c, err
	}
	c.Notificator = notifier.New(store, weatherSvc, c.Gateway, a.l, notifier.Options{
		Schedule:   a.cfg.Notifier.Schedule,
		Location:   loc,
		City:       a.cfg.Notifier.City,
		RunTimeout: runTimeout,
	}, a.m)

	c.Controller = controller.New(store, controller.NewNotifierTester(c.Notificator), a.l)

	c.Router = a.router(c)
	c.Srv = &http.Server{
		Addr:        a.cfg.ServerAddress(),
		Handler:     c.Router,
		ReadTimeout: time.Duration(a.cfg.Server.ReadTimeout) * time.Second,
	}

	c.GrpcServer = grpc.NewServer(grpc.UnaryInterceptor(a.m.UnaryServerInterceptor()))
	grpchandler.RegisterNotificationServer(c.GrpcServer, grpchandler.NewNotificationGRPCServer(c.Controller, a.l))
	a.m.GRPC.InitializeMetrics(c.GrpcServer)

	return c, nil
}

func (a *App) initRabbit(c *ServiceContainer) error {
	conn, err := setupConn(a.cfg.RabbitMQ, a.l)
	if err != nil {
		return err
	}
	c.rabbitConn = conn

	if a.cfg.Push.Gateway == config.GatewayRabbitMQ {
		publisher, err := setupPublisher(conn, a.l)
		if err != nil {
			return fmt.Errorf("rabbitmq publisher: %w", err)
		}
		c.publisher = publisher
	}

	commentConsumer, err := setupConsumer(conn, messaging.CommentQueueName, messaging.CommentRoutingKey)
	if err != nil {
		return fmt.Errorf("rabbitmq comment consumer: %w", err)
	}
	c.commentConsumer = commentConsumer
	return nil
}

func (a *App) router(c ServiceContainer) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), a.m.HTTPMiddleware())

	httphandler.Handlers{
		Test:          httphandler.NewTestHandler(c.Notificator, a.cfg.TestEndpointStrict, a.testTimeout(), a.l),
		Subscriptions: httphandler.NewSubscriptionHandler(c.Store, c.Controller, a.l),
		Events:        httphandler.NewEventsHandler(c.Store, c.Notificator, a.l),
	}.Register(router)

	router.GET("/swagger/*any", swagger.WrapHandler(swaggerfiles.Handler))
	router.GET("/metrics", gin.WrapH(a.m.Handler()))
	return router
}

// testTimeout leaves the notifier's run timeout room to expire first, so a
// slow dispatch reports its own error rather than the handler's deadline.
func (a *App) testTimeout() time.Duration {
	return time.Duration(a.cfg.Notifier.RunTimeout)*time.Second + timeoutDuration
}

func (a *App) Stop(c ServiceContainer) error {
	a.l.Info().Msg("Stopping application")

	c.Notificator.Stop()
	a.l.Info().Msg("Notifier stopped")

	c.GrpcServer.GracefulStop()
	a.l.Info().Msg("gRPC server stopped")

	ctx, cancel := context.WithTimeout(context.Background(), timeoutDuration)
	defer cancel()
	var err error
	if err = c.Srv.Shutdown(ctx); err != nil {
		a.l.Error().Err(err).Msg("HTTP shutdown error")
	} else {
		a.l.Info().Msg("HTTP server stopped")
	}

	c.Gateway.Close()
	a.release(c)

	a.l.Info().Msg("Application shutdown complete")
	return err
}

// release closes the connections Init opened, in reverse order.
func (a *App) release(c ServiceContainer) {
	if c.commentConsumer != nil {
		c.commentConsumer.Close()
	}
	if c.publisher != nil {
		c.publisher.Close()
	}
	if c.rabbitConn != nil {
		if err := c.rabbitConn.Close(); err != nil {
			a.l.Error().Err(err).Msg("RabbitMQ close error")
		}
	}
	if c.fileLogger != nil {
		_ = c.fileLogger.Sync()
	}
	if c.closeStore != nil {
		if err := c.closeStore(); err != nil {
			a.l.Error().Err(err).Msg("Store close error")
		} else {
			a.l.Info().Msg("Store closed")
		}
	}
}
