package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Envelope codes.
const (
	CodeOK    = 0
	CodeError = 400
)

// Response is the envelope of every control-plane reply. Code is 0 exactly
// when the operation succeeded; Data is null on failure.
type Response struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data any    `json:"data"`
}

func ok(data any) Response { return Response{Code: CodeOK, Msg: "ok", Data: data} }

func fail(err error) Response { return Response{Code: CodeError, Msg: err.Error()} }

// writeOK replies with a success envelope.
func writeOK(c *gin.Context, data any) { writeJSON(c, http.StatusOK, ok(data)) }

// writeErr replies with a failure envelope. Operation failures keep HTTP 200;
// the caller inspects code.
func writeErr(c *gin.Context, status int, err error) { writeJSON(c, status, fail(err)) }
