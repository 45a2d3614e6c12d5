// Copyright 2025 Ewout Prangsma
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// Author Ewout Prangsma
//

package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/binkynet/PortDriver/pkg/board"
	"github.com/binkynet/PortDriver/pkg/gpio"
	"github.com/binkynet/PortDriver/pkg/port"
)

// Config for the HTTP server.
type Config struct {
	// Host interface to listen on
	Host string
	// Port to listen on for HTTP requests
	Port int
}

// Board is the part of the application served over HTTP.
type Board interface {
	// Status returns the state of all pins.
	Status() board.Status
	// Table returns the pin table of the board.
	Table() *gpio.PinTable
	// SetLED turns the LED with the given name on or off.
	SetLED(name string, on bool) error
}

// Simulator applies external levels to pins of a simulated chip.
type Simulator interface {
	Press(id port.ID, pin uint8)
	Release(id port.ID, pin uint8)
}

// Server runs the HTTP server for the worker.
type Server struct {
	Config
	log   zerolog.Logger
	board Board
	sim   Simulator
}

// New configures a new Server.
// sim may be nil when the worker does not run on a simulated chip.
func New(cfg Config, log zerolog.Logger, b Board, sim Simulator) (*Server, error) {
	if b == nil {
		return nil, errors.New("Board must be set")
	}
	return &Server{
		Config: cfg,
		log:    log.With().Str("component", "server").Logger(),
		board:  b,
		sim:    sim,
	}, nil
}

// Run the server until the given context is canceled.
func (s *Server) Run(ctx context.Context) error {
	log := s.log
	httpAddr := net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
	httpLis, err := net.Listen("tcp", httpAddr)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on address %s", httpAddr)
	}
	httpSrv := http.Server{
		Handler: s.router(),
	}

	log.Debug().Str("address", httpAddr).Msg("Serving HTTP")
	served := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(httpLis); err != nil && err != http.ErrServerClosed {
			served <- errors.Wrap(err, "failed to serve HTTP server")
			return
		}
		log.Debug().Str("address", httpAddr).Msg("Done Serving HTTP")
		served <- nil
	}()

	// Wait until context closed
	select {
	case <-ctx.Done():
	case err := <-served:
		return err
	}

	log.Info().Msg("Closing server")
	httpSrv.Shutdown(context.Background())
	return <-served
}

// router builds the HTTP routes.
func (s *Server) router() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/debug/pprof/*", echo.WrapHandler(http.HandlerFunc(pprof.Index)))
	e.GET("/health", echo.WrapHandler(http.HandlerFunc(healthHandler)))
	e.GET("/api/pins", s.getPins)
	e.POST("/api/pins/:name/press", s.pressPin)
	e.POST("/api/pins/:name/release", s.releasePin)
	e.PUT("/api/leds/:name/on", s.ledOn)
	e.PUT("/api/leds/:name/off", s.ledOff)
	return e
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintln(w, "OK")
}

func (s *Server) getPins(c echo.Context) error {
	return c.JSON(http.StatusOK, s.board.Status())
}

func (s *Server) pressPin(c echo.Context) error {
	return s.simulate(c, true)
}

func (s *Server) releasePin(c echo.Context) error {
	return s.simulate(c, false)
}

// simulate presses or releases the pin named in the request.
func (s *Server) simulate(c echo.Context, press bool) error {
	if s.sim == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "not running on a simulated chip")
	}
	name := c.Param("name")
	table := s.board.Table()
	id, found := table.ByName(name)
	if !found {
		return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("unknown pin '%s'", name))
	}
	desc, err := table.Lookup(id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	if press {
		s.sim.Press(desc.Port, desc.Pin)
	} else {
		s.sim.Release(desc.Port, desc.Pin)
	}
	s.log.Debug().Str("pin", name).Bool("press", press).Msg("Simulated button")
	return c.JSON(http.StatusOK, s.board.Status())
}

func (s *Server) ledOn(c echo.Context) error {
	return s.setLED(c, true)
}

func (s *Server) ledOff(c echo.Context) error {
	return s.setLED(c, false)
}

func (s *Server) setLED(c echo.Context, on bool) error {
	name := c.Param("name")
	if err := s.board.SetLED(name, on); err != nil {
		if board.IsNotFound(err) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return err
	}
	return c.JSON(http.StatusOK, s.board.Status())
}
