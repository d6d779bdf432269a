package monitor

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func (m *Monitor) setupRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginLogger(logrus.StandardLogger()))
	router.GET("/power", m.getPower)
	router.GET("/energy", m.getEnergy)
	router.GET("/history", m.getHistory)
	router.GET("/sampler", m.getSampler)
	router.GET("/rate", m.getRate)
	router.PUT("/rate", m.setRate)
	router.PUT("/zip", m.setZip)
	router.PUT("/auto-detect", m.setAutoDetect)
	router.PUT("/cadence", m.setCadence)
	router.POST("/reset-lifetime", m.resetLifetime)
	router.GET("/version", getVersion)

	return router
}

// Run starts the monitor loops and serves the control API on a unix
// socket until SIGINT or SIGTERM.
func Run(m *Monitor, unixSocketPath string, allowNonRoot bool) error {
	router := m.setupRoutes()

	if err := m.Start(); err != nil {
		logrus.Fatalf("failed to start monitor: %v", err)
	}

	srv := &http.Server{
		Handler: router,
	}

	// Create the socket to listen on:
	l, err := net.Listen("unix", unixSocketPath)
	if err != nil {
		logrus.Fatal(err)
	}

	if allowNonRoot {
		logrus.Infof("non-root access is allowed, changing permissions of %s to 0777", unixSocketPath)
		err = os.Chmod(unixSocketPath, 0777)
		if err != nil {
			logrus.Fatal(err)
		}
	}

	// Serve HTTP on unix socket
	go func() {
		logrus.Infof("http server listening on %s", l.Addr().String())
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatal(err)
		}
	}()

	// Handle common process-killing signals, so we can gracefully shut down:
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	// Wait for a SIGINT or SIGTERM:
	sig := <-sigc
	logrus.Infof("caught signal \"%s\": shutting down.", sig)

	logrus.Info("shutting down http server")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = srv.Shutdown(ctx)
	if err != nil {
		logrus.Errorf("failed to shutdown http server: %v", err)
	}
	cancel()

	logrus.Info("stopping monitor")
	m.Stop()

	logrus.Info("exiting")
	return nil
}
