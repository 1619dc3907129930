package chirp

import (
	"net"
	"os"
	"time"

	logrustash "github.com/bshuster-repo/logrus-logstash-hook"
	"github.com/sirupsen/logrus"
)

var logger = logrus.New()

func init() {
	initLogger()
}

func initLogger() {
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)
	logger.SetLevel(logrus.WarnLevel)
	if lvl, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logger.SetLevel(lvl)
	}

	// Dev builds can ship logs to a logstash endpoint.
	if addr := os.Getenv("LOGSTASH_ADDR"); addr != "" {
		conn, err := net.Dial("tcp", addr)
		if err != nil {
			logger.WithError(err).Warn("Could not reach logstash, logging to stdout only")
			return
		}
		hook := logrustash.New(conn, logrustash.DefaultFormatter(logrus.Fields{"type": "chirp-client"}))
		logger.Hooks.Add(hook)
	}
}

func afterRequest(start time.Time, method, path string) {
	// Check if a request takes longer than 2 seconds

	duration := time.Since(start)

	if duration > 2*time.Second {
		logger.WithFields(logrus.Fields{
			"method":   method,
			"path":     path,
			"duration": duration,
		}).Warn("Slow request detected")
	} else {
		logger.WithFields(logrus.Fields{
			"method":   method,
			"path":     path,
			"duration": duration,
		}).Info("Request completed quickly")
	}
}
