package logging

import (
	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

// GemFields builds the per-gem fields reused by download and install logs.
func GemFields(runID, name, version, url string) logrus.Fields {
	return logrus.Fields{
		"run_id":  runID,
		"gem":     name,
		"version": version,
		"url":     url,
	}
}

// RemovalFields builds the fields for cache sweep logs, with a
// human-readable byte count.
func RemovalFields(action string, dirs, bytes uint64) logrus.Fields {
	return logrus.Fields{
		"action": action,
		"dirs":   dirs,
		"freed":  humanize.Bytes(bytes),
	}
}
