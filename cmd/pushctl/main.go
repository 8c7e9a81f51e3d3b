// Command pushctl toggles and tests the daily weather notification of one
// device, either over the HTTP API or the gRPC NotificationService.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/Nazarious-ucu/weather-push-notifier/internal/controller"
	grpchandler "github.com/Nazarious-ucu/weather-push-notifier/internal/handlers/grpc"
	"github.com/Nazarious-ucu/weather-push-notifier/internal/models"
)

const (
	// outlasts the server's /test deadline at the default NOTIFIER_RUN_TIMEOUT
	requestTimeout = 45 * time.Second
	grpcService    = "NotificationService"

	usage = `usage: pushctl [-api URL | -grpc ADDR] [-token TOKEN] subscribe|unsubscribe|status|test`
)

type subscriptionClient interface {
	SetSubscriptionActive(ctx context.Context, pushToken string, active bool) error
	ReadSubscriptionActive(ctx context.Context, pushToken string) (bool, error)
	TestSubscription(ctx context.Context, pushToken string) error
}

func main() {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to read .env: %v\n", err)
	}
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("pushctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	apiURL := fs.String("api", os.Getenv("PUSHCTL_API_URL"), "base URL of the HTTP API")
	grpcAddr := fs.String("grpc", os.Getenv("PUSHCTL_GRPC_ADDR"), "address of the gRPC NotificationService")
	token := fs.String("token", os.Getenv("PUSHCTL_PUSH_TOKEN"), "Expo push token of the device")
	verbose := fs.Bool("v", false, "log requests")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 || (*apiURL == "") == (*grpcAddr == "") {
		fmt.Fprintln(stderr, usage)
		return 2
	}

	level := zerolog.WarnLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	l := zerolog.New(zerolog.ConsoleWriter{Out: stderr}).Level(level).With().Timestamp().Logger()

	var client subscriptionClient
	if *apiURL != "" {
		httpClient := &http.Client{Timeout: requestTimeout}
		client = controller.New(
			controller.NewHTTPStore(*apiURL, httpClient),
			controller.NewHTTPTester(*apiURL, httpClient, l),
			l,
		)
	} else {
		conn, err := grpc.NewClient(*grpcAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			fmt.Fprintln(stderr, controller.MsgNetwork)
			l.Debug().Err(err).Msg("grpc client")
			return 1
		}
		defer func() { _ = conn.Close() }()
		client = grpcClient{c: grpchandler.NewNotificationClient(conn)}
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	out, err := execute(ctx, client, fs.Arg(0), *token)
	if err != nil {
		if errors.Is(err, errUnknownCommand) {
			fmt.Fprintln(stderr, usage)
			return 2
		}
		l.Debug().Err(err).Str("command", fs.Arg(0)).Msg("command failed")
		fmt.Fprintln(stderr, controller.DisplayMessage(err))
		return 1
	}
	fmt.Fprintln(stdout, out)
	return 0
}

var errUnknownCommand = errors.New("unknown command")

func execute(ctx context.Context, client subscriptionClient, command, token string) (string, error) {
	switch command {
	case "subscribe":
		if err := client.SetSubscriptionActive(ctx, token, true); err != nil {
			return "", err
		}
		return "subscribed", nil
	case "unsubscribe":
		if err := client.SetSubscriptionActive(ctx, token, false); err != nil {
			return "", err
		}
		return "unsubscribed", nil
	case "status":
		active, err := client.ReadSubscriptionActive(ctx, token)
		if err != nil {
			return "", err
		}
		if active {
			return "active", nil
		}
		return "inactive", nil
	case "test":
		if err := client.TestSubscription(ctx, token); err != nil {
			return "", err
		}
		return "test notification sent", nil
	}
	return "", fmt.Errorf("%w %q", errUnknownCommand, command)
}

// grpcClient adapts NotificationClient to the controller's method set and
// maps status codes back to the error kinds DisplayMessage understands.
type grpcClient struct {
	c *grpchandler.NotificationClient
}

func (g grpcClient) SetSubscriptionActive(ctx context.Context, pushToken string, active bool) error {
	return fromStatus(g.c.SetSubscription(ctx, pushToken, active))
}

func (g grpcClient) ReadSubscriptionActive(ctx context.Context, pushToken string) (bool, error) {
	active, err := g.c.GetSubscription(ctx, pushToken)
	return active, fromStatus(err)
}

func (g grpcClient) TestSubscription(ctx context.Context, pushToken string) error {
	return fromStatus(g.c.SendTest(ctx, pushToken))
}

func fromStatus(err error) error {
	if err == nil {
		return nil
	}
	st := status.Convert(err)
	switch st.Code() {
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", models.ErrMalformedIdentity, st.Message())
	case codes.Aborted:
		return fmt.Errorf("%w: %s", controller.ErrOperationInFlight, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return &models.TransportError{Service: grpcService, Err: err}
	default:
		return &models.UpstreamError{Service: grpcService, Message: st.Message()}
	}
}
