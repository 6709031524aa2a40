package http_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/agora-labs/gatekeeper/domain"
	"github.com/agora-labs/gatekeeper/log"
	systemhttp "github.com/agora-labs/gatekeeper/system/delivery/http"
)

type storePingerStub struct {
	err error
}

func (s storePingerStub) Ping(ctx context.Context) error {
	return s.err
}

type chainClientStub struct {
	height uint64
	err    error
}

func (c chainClientStub) BlockNumber(ctx context.Context) (uint64, error) {
	return c.height, c.err
}

func newSystemEcho(store systemhttp.StorePinger, chain systemhttp.ChainClient) *echo.Echo {
	e := echo.New()

	config := domain.DefaultConfig
	config.LoggerIsProduction = true
	config.Telegram = &domain.TelegramConfig{BotToken: "123456:secret", InviteExpirySeconds: 600}

	systemhttp.NewSystemHandler(e, config, &log.NoOpLogger{}, store, chain)

	return e
}

func TestGetHealthStatus(t *testing.T) {
	testCases := []struct {
		name  string
		store systemhttp.StorePinger
		chain systemhttp.ChainClient

		expectedStatus int
	}{
		{
			name:           "store and chain healthy",
			store:          storePingerStub{},
			chain:          chainClientStub{height: 19000000},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "store unreachable",
			store:          storePingerStub{err: errors.New("database is locked")},
			chain:          chainClientStub{height: 19000000},
			expectedStatus: http.StatusServiceUnavailable,
		},
		{
			name:           "chain unreachable",
			store:          storePingerStub{},
			chain:          chainClientStub{err: errors.New("connection refused")},
			expectedStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			e := newSystemEcho(tc.store, tc.chain)

			req := httptest.NewRequest(http.MethodGet, "/healthcheck", nil)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			require.Equal(t, tc.expectedStatus, rec.Code)

			if tc.expectedStatus == http.StatusOK {
				require.Contains(t, rec.Body.String(), "19000000")
			}
		})
	}
}

func TestGetConfig_RedactsBotToken(t *testing.T) {
	e := newSystemEcho(storePingerStub{}, chainClientStub{})

	req := httptest.NewRequest(http.MethodGet, "/config", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), "secret")
	require.Contains(t, rec.Body.String(), "[redacted]")
}
