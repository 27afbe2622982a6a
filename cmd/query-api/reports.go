package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const dateLayout = "2006-01-02"

type rangeQuery struct {
	From string `form:"from" binding:"required,datetime=2006-01-02"`
	To   string `form:"to" binding:"required,datetime=2006-01-02"`
}

type spendQuery struct {
	rangeQuery
	Level string `form:"level" binding:"omitempty,oneof=campaign adgroup ad"`
}

// dates parses a bound range. The binding tags have already checked the layout.
func (q rangeQuery) dates() (time.Time, time.Time, bool) {
	from, _ := time.Parse(dateLayout, q.From)
	to, _ := time.Parse(dateLayout, q.To)
	return from, to, !to.Before(from)
}

func (s *server) bindRange(c *gin.Context, q any, r *rangeQuery) (time.Time, time.Time, bool) {
	if err := c.ShouldBindQuery(q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return time.Time{}, time.Time{}, false
	}
	from, to, ok := r.dates()
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "to must not be before from"})
	}
	return from, to, ok
}

func (s *server) queryFailed(c *gin.Context, report string, err error) {
	s.log.WithFields(logrus.Fields{"report": report, "error": err.Error()}).Error("report query failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
}

func (s *server) handleAdSpend(c *gin.Context) {
	var q spendQuery
	from, to, ok := s.bindRange(c, &q, &q.rangeQuery)
	if !ok {
		return
	}
	if q.Level == "" {
		q.Level = "campaign"
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()
	series, err := s.reports.DailySpend(ctx, from, to, q.Level)
	if err != nil {
		s.queryFailed(c, "ad-spend", err)
		return
	}
	c.Header("Cache-Control", "public, max-age=30")
	c.JSON(http.StatusOK, gin.H{
		"from":   q.From,
		"to":     q.To,
		"level":  q.Level,
		"series": series,
	})
}

func (s *server) handleRevenue(c *gin.Context) {
	var q rangeQuery
	from, to, ok := s.bindRange(c, &q, &q)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()
	series, err := s.reports.DailyRevenue(ctx, from, to, s.timezone)
	if err != nil {
		s.queryFailed(c, "revenue", err)
		return
	}
	c.Header("Cache-Control", "public, max-age=30")
	c.JSON(http.StatusOK, gin.H{
		"from":     q.From,
		"to":       q.To,
		"timezone": s.timezone,
		"series":   series,
	})
}

func (s *server) handleDeadLetters(c *gin.Context) {
	var q rangeQuery
	from, to, ok := s.bindRange(c, &q, &q)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()
	counts, err := s.reports.DeadLetterCounts(ctx, from, to)
	if err != nil {
		s.queryFailed(c, "dead-letters", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"from": q.From, "to": q.To, "counts": counts})
}
