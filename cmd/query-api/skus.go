package main

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"market-etl/internal/skumap"
)

type mappingRequest struct {
	MasterSKU   string `json:"master_sku" binding:"required"`
	ProductName string `json:"product_name"`
	Variation   string `json:"variation"`
	Notes       string `json:"notes"`
}

func (s *server) handleListMappings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"mappings": s.mapper.Mappings()})
}

func (s *server) handleGetMapping(c *gin.Context) {
	m, ok := s.mapper.MappingDetails(c.Param("platform"), c.Param("sku"))
	if !ok {
		nf := &skumap.NotFoundError{Platform: strings.ToLower(c.Param("platform")), SKU: c.Param("sku")}
		c.JSON(http.StatusNotFound, gin.H{"error": nf.Error()})
		return
	}
	c.JSON(http.StatusOK, m)
}

func (s *server) handleMasterSKU(c *gin.Context) {
	master := c.Param("master")
	c.JSON(http.StatusOK, gin.H{"master_sku": master, "platform_skus": s.mapper.PlatformSKUs(master)})
}

func (s *server) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.mapper.Stats())
}

func (s *server) handlePutMapping(c *gin.Context) {
	var req mappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	m, err := s.mapper.AddMapping(strings.TrimSpace(req.MasterSKU), c.Param("platform"), c.Param("sku"), skumap.Details{
		ProductName: req.ProductName,
		Variation:   req.Variation,
		Notes:       req.Notes,
	})
	if errors.Is(err, skumap.ErrUnsupportedPlatform) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !s.persist(c) {
		return
	}
	c.JSON(http.StatusOK, m)
}

func (s *server) handleDeleteMapping(c *gin.Context) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	if !s.mapper.RemoveMapping(c.Param("platform"), c.Param("sku")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "mapping not found"})
		return
	}
	if !s.persist(c) {
		return
	}
	c.Status(http.StatusNoContent)
}

// persist writes the table back to its file. The in-memory edit stands even
// when the write fails; the next successful save carries it.
func (s *server) persist(c *gin.Context) bool {
	if s.mappingPath == "" {
		return true
	}
	if _, err := s.mapper.SaveFile(s.mappingPath); err != nil {
		s.log.WithFields(logrus.Fields{"file": s.mappingPath, "error": err.Error()}).Error("save SKU mappings failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "mapping updated but not saved"})
		return false
	}
	return true
}
