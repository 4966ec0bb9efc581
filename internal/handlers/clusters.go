package handlers

import (
	"net/http"

	"kubeops-dashboard/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ClusterHandler serves managed-cluster profile CRUD and connection tests
type ClusterHandler struct {
	clusters *services.ClusterService
	log      *zap.Logger
}

func NewClusterHandler(clusters *services.ClusterService, log *zap.Logger) *ClusterHandler {
	return &ClusterHandler{clusters: clusters, log: log}
}

type clusterURI struct {
	ID uint `uri:"id" binding:"required"`
}

// List returns every stored profile
func (h *ClusterHandler) List(c *gin.Context) {
	views, err := h.clusters.List()
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

// Create tests and stores a new profile
func (h *ClusterHandler) Create(c *gin.Context) {
	var in services.ClusterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	view, err := h.clusters.Create(ctx, in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// Update changes the supplied fields of a profile
func (h *ClusterHandler) Update(c *gin.Context) {
	var uri clusterURI
	var in services.ClusterInput
	if err := c.ShouldBindUri(&uri); err != nil {
		badRequest(c, err)
		return
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}

	view, err := h.clusters.Update(uri.ID, in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Delete removes a profile
func (h *ClusterHandler) Delete(c *gin.Context) {
	var uri clusterURI
	if err := c.ShouldBindUri(&uri); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.clusters.Delete(uri.ID); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// TestStored probes the endpoints of a stored profile
func (h *ClusterHandler) TestStored(c *gin.Context) {
	var uri clusterURI
	if err := c.ShouldBindUri(&uri); err != nil {
		badRequest(c, err)
		return
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	result, err := h.clusters.TestStored(ctx, uri.ID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// TestProbe probes endpoints given in the request body
func (h *ClusterHandler) TestProbe(c *gin.Context) {
	var probe services.ConnectionProbe
	if err := c.ShouldBindJSON(&probe); err != nil {
		badRequest(c, err)
		return
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	c.JSON(http.StatusOK, h.clusters.TestProbe(ctx, probe))
}
