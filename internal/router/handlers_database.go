package router

import (
	"context"
	"net/http"

	"github.com/HelixDevelopment/nldbexplorer/internal/connection"
	"github.com/HelixDevelopment/nldbexplorer/internal/contracts"
	"github.com/HelixDevelopment/nldbexplorer/internal/event"
	"github.com/google/uuid"
	"github.com/gin-gonic/gin"
)

type connectRequest struct {
	UserID               uuid.UUID         `json:"userId" binding:"required"`
	ConnectionName       string            `json:"connectionName" binding:"required"`
	DatabaseType         string            `json:"databaseType" binding:"required"`
	Host                 string            `json:"host" binding:"required"`
	Port                 int               `json:"port" binding:"required"`
	DatabaseName         string            `json:"databaseName" binding:"required"`
	Username             string            `json:"username"`
	Password             string            `json:"password"`
	AdditionalProperties map[string]string `json:"additionalProperties"`
}

func (req connectRequest) toEstablishRequest() connection.EstablishRequest {
	return connection.EstablishRequest{
		UserID:               req.UserID,
		ConnectionName:       req.ConnectionName,
		Kind:                 connection.DatabaseKind(req.DatabaseType),
		Host:                 req.Host,
		Port:                 req.Port,
		DatabaseName:         req.DatabaseName,
		Username:             req.Username,
		Password:             req.Password,
		AdditionalProperties: req.AdditionalProperties,
	}
}

func (r *Router) connect(c *gin.Context) {
	var req connectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, contracts.NewErrorf(contracts.ErrValidation, "%v", err))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), askTimeout)
	defer cancel()

	establishReq := req.toEstablishRequest()
	connectionID, err := r.connections.Establish(ctx, establishReq)
	if err != nil {
		r.publish(event.Event{Type: event.EventConnectionFailed, Source: "router", Severity: event.SeverityWarning, UserID: req.UserID.String()})
		respondError(c, err)
		return
	}

	r.publish(event.Event{Type: event.EventConnectionEstablished, Source: "router", Severity: event.SeverityInfo, UserID: req.UserID.String(), ConnectionID: connectionID.String()})
	r.ingestSchemaAsync(connectionID, req.UserID, establishReq.Kind)
	c.JSON(http.StatusCreated, gin.H{"connectionId": connectionID})
}

type connectSavedRequest struct {
	ConnectionID uuid.UUID `json:"connectionId" binding:"required"`
	UserID       uuid.UUID `json:"userId" binding:"required"`
}

func (r *Router) connectSaved(c *gin.Context) {
	var req connectSavedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, contracts.NewErrorf(contracts.ErrValidation, "%v", err))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), askTimeout)
	defer cancel()

	if err := r.connections.ConnectSaved(ctx, req.ConnectionID, req.UserID); err != nil {
		respondError(c, err)
		return
	}

	kind, err := r.connections.Kind(ctx, req.ConnectionID, req.UserID)
	if err == nil {
		r.ingestSchemaAsync(req.ConnectionID, req.UserID, kind)
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (r *Router) listConnections(c *gin.Context) {
	userID, err := uuid.Parse(c.Query("userId"))
	if err != nil {
		respondError(c, contracts.NewError(contracts.ErrValidation, "userId query parameter is required"))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), askTimeout)
	defer cancel()

	list, err := r.connections.ListSaved(ctx, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"connections": list})
}

func (r *Router) testConnection(c *gin.Context) {
	var req connectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, contracts.NewErrorf(contracts.ErrValidation, "%v", err))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), askTimeout)
	defer cancel()

	if err := r.connections.Test(ctx, req.toEstablishRequest()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (r *Router) closeConnection(c *gin.Context) {
	connectionID, userID, err := idAndOwner(c)
	if err != nil {
		respondError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), askTimeout)
	defer cancel()

	if err := r.connections.Close(ctx, connectionID, userID); err != nil {
		respondError(c, err)
		return
	}
	r.publish(event.Event{Type: event.EventConnectionClosed, Source: "router", Severity: event.SeverityInfo, UserID: userID.String(), ConnectionID: connectionID.String()})
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (r *Router) deleteSavedConnection(c *gin.Context) {
	connectionID, userID, err := idAndOwner(c)
	if err != nil {
		respondError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), askTimeout)
	defer cancel()

	if err := r.connections.DeleteSaved(ctx, connectionID, userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (r *Router) connectionStatus(c *gin.Context) {
	connectionID, userID, err := idAndOwner(c)
	if err != nil {
		respondError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), askTimeout)
	defer cancel()

	status, err := r.connections.Status(ctx, connectionID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"connectionId": connectionID, "status": status})
}

// idAndOwner parses the path's :id and the userId query parameter every
// per-connection route needs.
func idAndOwner(c *gin.Context) (uuid.UUID, uuid.UUID, error) {
	connectionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, uuid.Nil, contracts.NewError(contracts.ErrValidation, "invalid connection id")
	}
	userID, err := uuid.Parse(c.Query("userId"))
	if err != nil {
		return uuid.Nil, uuid.Nil, contracts.NewError(contracts.ErrValidation, "userId query parameter is required")
	}
	return connectionID, userID, nil
}

// ingestSchemaAsync runs SchemaIngestor in the background so the caller's
// connect/connect-saved response doesn't wait on a full schema walk. It
// uses its own background context rather than the request's, which will
// already be cancelled by the time this goroutine runs.
func (r *Router) ingestSchemaAsync(connectionID, userID uuid.UUID, kind connection.DatabaseKind) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
		defer cancel()
		if _, err := r.schema.Ingest(ctx, connectionID, userID, kind); err != nil {
			r.logger.Warn("schema ingestion for connection %s failed: %v", connectionID, err)
			r.publish(event.Event{Type: event.EventSchemaIngestFailed, Source: "router", Severity: event.SeverityWarning, UserID: userID.String(), ConnectionID: connectionID.String()})
			return
		}
		r.publish(event.Event{Type: event.EventSchemaIngested, Source: "router", Severity: event.SeverityInfo, UserID: userID.String(), ConnectionID: connectionID.String()})
	}()
}
