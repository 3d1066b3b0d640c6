package logging

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestNewParsesLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("debug", &buf)
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())

	l.WithField("url", "https://example.com").Debug("fetched")
	assert.Contains(t, buf.String(), "url=\"https://example.com\"")
}

func TestNewFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("loud", &buf)
	assert.Equal(t, logrus.InfoLevel, l.GetLevel())
	assert.Contains(t, buf.String(), "unknown log level")

	assert.Equal(t, logrus.InfoLevel, NewWithWriter("", &buf).GetLevel())
}
