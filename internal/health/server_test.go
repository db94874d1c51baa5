package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

type stubMongoChecker struct {
	err error
}

func (s stubMongoChecker) Ping(context.Context) error {
	return s.err
}

type stubMaintenance struct {
	on  bool
	err error
}

func (s stubMaintenance) MaintenanceEnabled(context.Context) (bool, error) {
	return s.on, s.err
}

func serveHealth(t *testing.T, mongo MongoChecker, maintenance MaintenanceReader) *httptest.ResponseRecorder {
	t.Helper()

	logger, _ := logtest.NewNullLogger()
	server := NewServer(0, mongo, maintenance, logrus.NewEntry(logger))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	server.server.Handler.ServeHTTP(rr, req)

	return rr
}

func TestHealthHandlerOK(t *testing.T) {
	rr := serveHealth(t, stubMongoChecker{}, stubMaintenance{})

	if rr.Code != http.StatusOK {
		t.Fatalf("expected HTTP 200, got %d", rr.Code)
	}

	body := strings.TrimSpace(rr.Body.String())
	if body != `{"status":"ok","maintenance":false}` {
		t.Fatalf("unexpected body: %s", body)
	}

	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected content-type application/json, got %s", ct)
	}
}

func TestHealthHandlerMongoError(t *testing.T) {
	rr := serveHealth(t, stubMongoChecker{err: errors.New("mongo down")}, stubMaintenance{})

	if rr.Code != http.StatusOK {
		t.Fatalf("expected HTTP 200, got %d", rr.Code)
	}

	body := strings.TrimSpace(rr.Body.String())
	if body != `{"status":"degraded","mongo":"error","maintenance":false}` {
		t.Fatalf("unexpected body: %s", body)
	}
}

func TestHealthHandlerMissingMongoChecker(t *testing.T) {
	rr := serveHealth(t, nil, stubMaintenance{})

	body := strings.TrimSpace(rr.Body.String())
	if body != `{"status":"degraded","mongo":"error","maintenance":false}` {
		t.Fatalf("unexpected body: %s", body)
	}
}

func TestHealthHandlerReportsMaintenance(t *testing.T) {
	rr := serveHealth(t, stubMongoChecker{}, stubMaintenance{on: true})

	body := strings.TrimSpace(rr.Body.String())
	if body != `{"status":"ok","maintenance":true}` {
		t.Fatalf("unexpected body: %s", body)
	}
}

func TestHealthHandlerToleratesMaintenanceReadError(t *testing.T) {
	rr := serveHealth(t, stubMongoChecker{}, stubMaintenance{err: errors.New("settings down")})

	body := strings.TrimSpace(rr.Body.String())
	if body != `{"status":"ok","maintenance":false}` {
		t.Fatalf("unexpected body: %s", body)
	}
}
