package logger

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestNewLevels(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, New("debug", "json").GetLevel())
	assert.Equal(t, logrus.WarnLevel, New("WARN", "text").GetLevel())
	assert.Equal(t, logrus.InfoLevel, New("chatty", "json").GetLevel())
}

func TestNewFormatter(t *testing.T) {
	_, isText := New("info", "text").Formatter.(*logrus.TextFormatter)
	assert.True(t, isText)
	_, isJSON := New("info", "").Formatter.(*logrus.JSONFormatter)
	assert.True(t, isJSON)
}
