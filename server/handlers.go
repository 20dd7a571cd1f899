package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	gin "github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/rustyeddy/tradereplay/feed"
	"github.com/rustyeddy/tradereplay/market"
	"github.com/rustyeddy/tradereplay/notify"
	"github.com/rustyeddy/tradereplay/replay"
	"github.com/rustyeddy/tradereplay/sim"
)

// paramsRequest overrides the server defaults field by field.
type paramsRequest struct {
	Source     string `json:"source"`
	Symbol     string `json:"symbol"`
	Strategy   string `json:"strategy"`
	Resolution string `json:"resolution"`
	Lookback   string `json:"lookback"`
}

type createRequest struct {
	paramsRequest
	Speed     string `json:"speed"`
	AutoStart bool   `json:"autostart"`
}

type speedRequest struct {
	Speed string `json:"speed"`
}

type positionView struct {
	sim.Position
	Open         bool            `json:"open"`
	RealizedPL   decimal.Decimal `json:"realized_pl"`
	UnrealizedPL decimal.Decimal `json:"unrealized_pl"`
}

type positionsResponse struct {
	Rows []positionView `json:"rows"`
}

type pnlResponse struct {
	sim.PnL
	Stats sim.Stats `json:"stats"`
}

type notificationsResponse struct {
	Ephemeral []notify.Notification `json:"ephemeral"`
	History   []notify.Notification `json:"history"`
}

// query merges r over base. File feeds are not reachable over HTTP.
func (r paramsRequest) query(base feed.Query) (feed.Query, error) {
	q := base
	if r.Source != "" {
		src, err := feed.ParseSource(r.Source)
		if err != nil {
			return feed.Query{}, err
		}
		q.Source = src
	}
	if q.Source == feed.SourceFile {
		return feed.Query{}, errFileSource
	}
	if r.Symbol != "" {
		q.Symbol = strings.ToUpper(strings.TrimSpace(r.Symbol))
	}
	if r.Strategy != "" {
		q.Strategy = r.Strategy
	}
	if r.Resolution != "" {
		res, err := market.ParseResolution(r.Resolution)
		if err != nil {
			return feed.Query{}, err
		}
		q.Resolution = res
	}
	if r.Lookback != "" {
		q.Lookback = r.Lookback
	}
	q.File = ""
	return q, q.Validate()
}

type requestError string

func (e requestError) Error() string { return string(e) }

const errFileSource = requestError("file feeds are not available over HTTP")

// --- Handlers ---

func (s *Server) createSession(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		s.badRequest(c, "invalid JSON body")
		return
	}

	base := s.defaults
	if base.Source == feed.SourceFile {
		base.Source = feed.SourceStrategy
	}
	q, err := req.query(base)
	if err != nil {
		s.badRequest(c, err.Error())
		return
	}
	speed, err := replay.ParseSpeed(req.Speed)
	if err != nil {
		s.badRequest(c, err.Error())
		return
	}

	sess, err := s.newSession(newID(), q, speed)
	if err != nil {
		s.commandError(c, "newSession", err)
		return
	}
	s.add(sess)

	if req.AutoStart {
		if err := sess.Start(c.Request.Context()); err != nil {
			// the client never learns the id, so the session goes with the request
			s.remove(sess.ID())
			_ = sess.Close()
			s.commandError(c, "Start", err)
			return
		}
	}
	c.JSON(http.StatusCreated, sess.Snapshot())
}

func (s *Server) listSessions(c *gin.Context) {
	rows := []replay.Snapshot{}
	for _, sess := range s.sorted() {
		rows = append(rows, sess.Snapshot())
	}
	c.JSON(http.StatusOK, gin.H{"rows": rows})
}

func (s *Server) getSession(c *gin.Context, sess *replay.Session) {
	c.JSON(http.StatusOK, sess.Snapshot())
}

func (s *Server) deleteSession(c *gin.Context) {
	sess, ok := s.remove(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, apiError{Code: "not_found", Message: "session not found"})
		return
	}
	_ = sess.Close()
	c.Status(http.StatusNoContent)
}

func (s *Server) start(c *gin.Context, sess *replay.Session) {
	s.command(c, sess, "Start", func() error { return sess.Start(c.Request.Context()) })
}

func (s *Server) pause(c *gin.Context, sess *replay.Session) {
	s.command(c, sess, "Pause", sess.Pause)
}

func (s *Server) resume(c *gin.Context, sess *replay.Session) {
	s.command(c, sess, "Resume", sess.Resume)
}

func (s *Server) reset(c *gin.Context, sess *replay.Session) {
	s.command(c, sess, "Reset", sess.Reset)
}

func (s *Server) step(c *gin.Context, sess *replay.Session) {
	s.command(c, sess, "Step", func() error { return sess.Step(c.Request.Context()) })
}

func (s *Server) command(c *gin.Context, sess *replay.Session, name string, fn func() error) {
	if err := fn(); err != nil {
		s.commandError(c, name, err)
		return
	}
	c.JSON(http.StatusOK, sess.Snapshot())
}

func (s *Server) setParams(c *gin.Context, sess *replay.Session) {
	var req paramsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid JSON body")
		return
	}
	q, err := req.query(sess.Snapshot().Query)
	if err != nil {
		s.badRequest(c, err.Error())
		return
	}
	s.command(c, sess, "SetParams", func() error { return sess.SetParams(q) })
}

func (s *Server) setSpeed(c *gin.Context, sess *replay.Session) {
	var req speedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid JSON body")
		return
	}
	speed, err := replay.ParseSpeed(req.Speed)
	if err != nil {
		s.badRequest(c, err.Error())
		return
	}
	s.command(c, sess, "SetSpeed", func() error { return sess.SetSpeed(speed) })
}

func (s *Server) getPositions(c *gin.Context, sess *replay.Session) {
	snap := sess.Snapshot()
	positions := sess.Positions()

	rows := make([]positionView, 0, len(positions))
	for _, p := range positions {
		v := positionView{Position: p, Open: p.IsOpen(), RealizedPL: sim.RealizedPL(p), UnrealizedPL: decimal.Zero}
		if p.IsOpen() && snap.Bar != nil {
			v.UnrealizedPL = sim.UnrealizedPL(p, snap.Bar.Close)
		}
		rows = append(rows, v)
	}
	c.JSON(http.StatusOK, positionsResponse{Rows: rows})
}

func (s *Server) getPnL(c *gin.Context, sess *replay.Session) {
	pnl, stats := sess.Report()
	c.JSON(http.StatusOK, pnlResponse{PnL: pnl, Stats: stats})
}

func (s *Server) getNotifications(c *gin.Context, sess *replay.Session) {
	n := sess.Notifications()
	c.JSON(http.StatusOK, notificationsResponse{
		Ephemeral: nonNil(n.Ephemeral()),
		History:   nonNil(n.History()),
	})
}

func (s *Server) clearNotifications(c *gin.Context, sess *replay.Session) {
	sess.Notifications().ClearAll()
	c.Status(http.StatusNoContent)
}

func (s *Server) removeNotification(c *gin.Context, sess *replay.Session) {
	nid, err := strconv.ParseInt(c.Param("nid"), 10, 64)
	if err != nil {
		s.badRequest(c, "invalid notification id")
		return
	}
	if !sess.Notifications().Remove(nid) {
		c.JSON(http.StatusNotFound, apiError{Code: "not_found", Message: "notification not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func nonNil(list []notify.Notification) []notify.Notification {
	if list == nil {
		return []notify.Notification{}
	}
	return list
}
