package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ok(detail string) Check {
	return func(context.Context) (string, error) { return detail, nil }
}

func failing(msg string) Check {
	return func(context.Context) (string, error) { return "", errors.New(msg) }
}

func TestRun_AllUp(t *testing.T) {
	c := NewChecker(time.Second)
	c.Critical("index", ok("5 documents"))
	c.Optional("redis", ok("localhost:6379"))

	report := c.Run(context.Background())
	assert.Equal(t, StatusUp, report.Status)
	require.Len(t, report.Components, 2)
	assert.Equal(t, "5 documents", report.Components["index"].Detail)
	assert.True(t, report.Components["index"].Critical)
}

func TestRun_OptionalFailureDegrades(t *testing.T) {
	c := NewChecker(time.Second)
	c.Critical("index", ok(""))
	c.Optional("redis", failing("connection refused"))

	report := c.Run(context.Background())
	assert.Equal(t, StatusDegraded, report.Status)
	assert.Equal(t, "connection refused", report.Components["redis"].Error)
}

func TestRun_CriticalFailureIsDown(t *testing.T) {
	c := NewChecker(time.Second)
	c.Critical("index", failing("no index loaded"))
	c.Optional("redis", failing("connection refused"))

	assert.Equal(t, StatusDown, c.Run(context.Background()).Status)
}

func TestRun_ChecksAreBoundedByTimeout(t *testing.T) {
	c := NewChecker(20 * time.Millisecond)
	c.Optional("slow", func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	report := c.Run(context.Background())
	assert.Equal(t, StatusDegraded, report.Status)
	assert.Contains(t, report.Components["slow"].Error, "deadline exceeded")
}

func TestHandler_StatusCodes(t *testing.T) {
	c := NewChecker(time.Second)
	c.Critical("index", ok("loaded"))

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var report Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, StatusUp, report.Status)

	c.Critical("index", failing("no index loaded"))
	rec = httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
