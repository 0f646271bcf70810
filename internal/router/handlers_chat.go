package router

import (
	"context"
	"net/http"

	"github.com/HelixDevelopment/nldbexplorer/internal/contracts"
	"github.com/HelixDevelopment/nldbexplorer/internal/event"
	"github.com/google/uuid"
	"github.com/gin-gonic/gin"
)

type chatRequest struct {
	Message      string `json:"message" binding:"required"`
	SessionID    string `json:"sessionId"`
	ConnectionID string `json:"connectionId"`
}

func (r *Router) chat(c *gin.Context) {
	userID := c.GetHeader("X-User-ID")
	if userID == "" {
		respondError(c, contracts.NewError(contracts.ErrValidation, "X-User-ID header is required"))
		return
	}

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, contracts.NewErrorf(contracts.ErrValidation, "%v", err))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), queryTimeout)
	defer cancel()

	turn := &contracts.ConversationTurn{
		RequestID:    uuid.NewString(),
		UserID:       userID,
		SessionID:    req.SessionID,
		ConnectionID: req.ConnectionID,
		UserText:     req.Message,
	}

	if err := r.orchestrator.HandleTurn(ctx, turn); err != nil {
		respondError(c, err)
		return
	}

	r.publishTurnEvent(turn)
	c.JSON(http.StatusOK, chatResponse(turn))
}

// publishTurnEvent reports the outcome of a completed turn that involved a
// generated query, distinguishing a denylist block from any other failure.
func (r *Router) publishTurnEvent(turn *contracts.ConversationTurn) {
	if turn.GeneratedQuery == "" {
		return
	}
	evt := event.Event{Source: "router", UserID: turn.UserID, ConnectionID: turn.ConnectionID}
	switch {
	case turn.Error == nil:
		evt.Type, evt.Severity = event.EventQueryExecuted, event.SeverityInfo
	case turn.Error.Kind == contracts.ErrBlocked:
		evt.Type, evt.Severity = event.EventQueryBlocked, event.SeverityWarning
	default:
		evt.Type, evt.Severity = event.EventQueryFailed, event.SeverityWarning
	}
	r.publish(evt)
}

// chatResponse renders turn into this surface's single chat response
// shape. It always returns 200 at the transport level: a pipeline failure
// is reported in the error field, not the status code, since the turn
// itself completed (classification, and in most failure modes context
// retrieval, already happened).
func chatResponse(turn *contracts.ConversationTurn) gin.H {
	body := gin.H{
		"responseType": turn.Classification,
		"response":     turn.Explanation,
		"metadata": gin.H{
			"contextTables": turn.ContextTables,
			"timings":       turn.Timings,
		},
	}
	if turn.GeneratedQuery != "" {
		body["query"] = turn.GeneratedQuery
	}
	if turn.QueryResult != nil {
		body["data"] = turn.QueryResult
	}
	if turn.Error != nil {
		body["error"] = gin.H{"kind": turn.Error.Kind, "message": turn.Error.Message}
	}
	return body
}
