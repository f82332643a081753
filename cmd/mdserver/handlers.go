package main

import (
	"errors"
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/helixdata/mdkit/logger"
	"github.com/helixdata/mdkit/masterdata"
	"github.com/helixdata/mdkit/query"
	"github.com/helixdata/mdkit/source"
)

type server struct {
	log     logger.Logger
	manager *masterdata.Manager
	samples *sampleStore
}

func (s *server) routes(zl *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(ginzap.Ginzap(zl, time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(zl, true))

	router.GET("/", s.health)

	api := router.Group("/api")
	{
		// Sample-data backend the manager's endpoints point at.
		api.GET("/master-data/:table", s.sampleData)
		api.POST("/master-data/:table/rotate", s.rotateSample)

		// Manager surface.
		api.POST("/sync", s.syncAll)
		api.GET("/data/:table", s.tableData)
		api.GET("/data/:table/:key", s.tableRecord)
		api.POST("/query/:table", s.queryTable)
		api.GET("/stats", s.stats)
		api.GET("/status", s.status)
		api.DELETE("/cache", s.clearCaches)
	}
	return router
}

func (s *server) health(c *gin.Context) {
	c.String(http.StatusOK, "online")
}

func (s *server) sampleData(c *gin.Context) {
	records, version, ok := s.samples.snapshot(c.Param("table"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown sample table"})
		return
	}
	c.Header(source.VersionHeader, version)
	c.JSON(http.StatusOK, records)
}

func (s *server) rotateSample(c *gin.Context) {
	table := c.Param("table")
	version, ok := s.samples.rotate(table)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown sample table"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"table": table, "version": version})
}

func (s *server) syncAll(c *gin.Context) {
	if err := s.manager.SyncAllTables(c.Request.Context()); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.manager.SyncStatuses())
}

func (s *server) tableData(c *gin.Context) {
	table := c.Param("table")
	data, err := s.manager.GetData(c.Request.Context(), table)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"table": table,
		"count": len(data),
		"data":  data,
	})
}

func (s *server) tableRecord(c *gin.Context) {
	rec, found, err := s.manager.GetDataByKey(c.Request.Context(), c.Param("table"), c.Param("key"))
	if err != nil {
		s.fail(c, err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *server) queryTable(c *gin.Context) {
	var opts query.Options
	if err := c.ShouldBindJSON(&opts); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := s.manager.Query(c.Request.Context(), c.Param("table"), opts)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *server) stats(c *gin.Context) {
	c.JSON(http.StatusOK, s.manager.CacheStats())
}

func (s *server) status(c *gin.Context) {
	c.JSON(http.StatusOK, s.manager.SyncStatuses())
}

func (s *server) clearCaches(c *gin.Context) {
	if err := s.manager.ClearAllCaches(c.Request.Context()); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *server) fail(c *gin.Context, err error) {
	var iqe *masterdata.InvalidQueryError
	switch {
	case errors.As(err, &iqe):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query", "messages": iqe.Messages})
	case errors.Is(err, masterdata.ErrUnknownTable):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, masterdata.ErrManagerClosed):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		s.log.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
