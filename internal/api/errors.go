package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v5"
)

// ErrInvalidRequest marks a request body that parsed but was rejected.
var ErrInvalidRequest = errors.New("invalid request")

// requestError names the body field a rejection is about.
type requestError struct {
	param string
	msg   string
}

func (e *requestError) Error() string { return e.msg }

func (e *requestError) Unwrap() error { return ErrInvalidRequest }

func newInvalidRequest(param, msg string) error {
	return &requestError{param: param, msg: msg}
}

// writeRequestError reports a body that could not be used. Rejections report
// as invalid_request_error with the offending field. Anything else failed to
// parse and reports as invalid_json.
func writeRequestError(c *echo.Context, err error) error {
	info := ErrorInfo{Message: err.Error(), Type: "invalid_json"}
	if errors.Is(err, ErrInvalidRequest) {
		info.Type = "invalid_request_error"
		var re *requestError
		if errors.As(err, &re) {
			info.Param = re.param
		}
	}
	return c.JSON(http.StatusBadRequest, map[string]any{"error": info})
}
