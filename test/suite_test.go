//go:build integration_test || all_tests

package test

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/2beens/kvnotes/internal"
	"github.com/2beens/kvnotes/internal/config"
	"github.com/2beens/kvnotes/internal/notesclient"
	testingpkg "github.com/2beens/kvnotes/pkg/testing"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/suite"
)

const (
	serverPort = 9077
	serverHost = "127.0.0.1"
)

var serverEndpoint = fmt.Sprintf("http://%s:%d", serverHost, serverPort)

// Define the suite, and absorb the built-in basic suite
// functionality from testify - including a T() method which
// returns the current testing context
type IntegrationTestSuite struct {
	suite.Suite

	redisClient *redis.Client
	server      *internal.Server
	notesClient *notesclient.Client
	httpClient  *http.Client
}

// In order for 'go test' to run this suite, we need to create
// a normal test function and pass our suite to suite.Run
func TestIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(IntegrationTestSuite))
}

// runs before all tests are executed
func (s *IntegrationTestSuite) SetupSuite() {
	ctx := context.Background()
	t := s.T()

	redisAddr := testingpkg.RedisAddr(t)
	redisHost, redisPort, err := net.SplitHostPort(redisAddr)
	s.Require().NoError(err)

	s.redisClient = redis.NewClient(&redis.Options{Addr: redisAddr})

	cfg := getTestConfig(redisHost, redisPort)
	s.server, err = internal.NewServer(ctx, internal.NewServerParams{
		Config:                  cfg,
		HoneycombTracingEnabled: false,
	})
	s.Require().NoError(err, "new server")

	s.server.Serve(cfg.Host, cfg.Port)

	s.httpClient = &http.Client{Timeout: 5 * time.Second}
	s.Require().Eventually(func() bool {
		resp, err := s.httpClient.Get(serverEndpoint + "/notes")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 10*time.Second, 100*time.Millisecond, "server not reachable")

	s.notesClient, err = notesclient.NewClient(serverEndpoint, notesclient.WithHTTPClient(s.httpClient))
	s.Require().NoError(err)
}

// runs before each test, every test starts with an empty store
func (s *IntegrationTestSuite) SetupTest() {
	s.Require().NoError(s.redisClient.FlushDB(context.Background()).Err())
}

func (s *IntegrationTestSuite) TearDownSuite() {
	if s.server != nil {
		s.server.GracefulShutdown()
	}
	if s.redisClient != nil {
		_ = s.redisClient.Close()
	}
}

func getTestConfig(redisHost, redisPort string) *config.Config {
	return &config.Config{
		Environment:              "development",
		Host:                     serverHost,
		Port:                     serverPort,
		Store:                    config.StoreRedis,
		NotesKeyPrefix:           "note:",
		RedisHost:                redisHost,
		RedisPort:                redisPort,
		MutationsRateLimitPerMin: 5,
	}
}
