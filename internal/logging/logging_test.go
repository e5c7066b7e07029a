package logging

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestNew_LevelAndFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New("debug", "json", &buf)

	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
	log.WithField("user", "alice").Debug("hello")

	out := buf.String()
	assert.Contains(t, out, `"msg":"hello"`)
	assert.Contains(t, out, `"user":"alice"`)
}

func TestNew_UnknownLevelFallsBackToInfo(t *testing.T) {
	log := New("loud", "text", &bytes.Buffer{})
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	log := New("info", "text", &buf)

	e := echo.New()
	e.Use(RequestLogger(log))
	e.GET("/ping", func(c echo.Context) error {
		return c.String(http.StatusOK, "pong")
	})
	e.GET("/missing", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "nope")
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	out := buf.String()
	assert.Contains(t, out, "uri=/ping")
	assert.Contains(t, out, "status=200")
	assert.Contains(t, out, "uri=/missing")
	assert.Contains(t, out, "status=404")
	assert.Contains(t, out, "request rejected")
}
