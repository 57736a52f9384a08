package handlers

import (
	"log"
	"net/http"
	"strconv"

	"quizlive/services"

	"github.com/gin-gonic/gin"
)

// Every endpoint answers with the same envelope: {ok: true, value} on
// success, {ok: false, kind, error} on failure. The kind drives both
// the HTTP status here and the user-facing copy client-side.

func respond(c *gin.Context, status int, value interface{}) {
	c.JSON(status, gin.H{"ok": true, "value": value})
}

func respondError(c *gin.Context, err error) {
	kind := services.KindOf(err)
	message := err.Error()
	if kind == services.KindInternal {
		// Infrastructure failures are logged, not leaked.
		log.Printf("Internal error: %v", err)
		message = "internal error"
	}
	c.JSON(statusFor(kind), gin.H{"ok": false, "kind": kind, "error": message})
}

func statusFor(kind services.ErrorKind) int {
	switch kind {
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindUnauthorized:
		return http.StatusUnauthorized
	case services.KindIllegalTransition:
		return http.StatusConflict
	case services.KindConflict:
		return http.StatusConflict
	case services.KindLocked:
		return http.StatusForbidden
	case services.KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func sessionIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "kind": services.KindValidation, "error": "invalid session id"})
		return 0, false
	}
	return uint(id), true
}

func hostIDFrom(c *gin.Context) (uint, bool) {
	hostID, exists := c.Get("host_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "kind": services.KindUnauthorized, "error": "host not authenticated"})
		return 0, false
	}
	return hostID.(uint), true
}
