package middleware

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

const timeoutBody = `{"message":"request timed out"}` + "\n"

// RequestTimeout puts a deadline on the request context and answers 504 if
// the handler has not returned by then. Paths under any of skipPrefixes keep
// the caller's context untouched.
//
// The handler writes into a buffer that is copied to the client only if it
// finishes in time. On timeout the 504 goes straight to the underlying
// writer, and the middleware still waits for the handler before returning:
// echo recycles the context once the chain returns.
func RequestTimeout(timeout time.Duration, skipPrefixes ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			for _, p := range skipPrefixes {
				if strings.HasPrefix(path, p) {
					return next(c)
				}
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
			defer cancel()
			c.SetRequest(c.Request().WithContext(ctx))

			res := c.Response()
			orig := res.Writer
			tw := &timeoutWriter{header: make(http.Header)}
			res.Writer = tw

			done := make(chan handlerResult, 1)
			go func() {
				var out handlerResult
				defer func() {
					if p := recover(); p != nil {
						out.panicked = p
					}
					done <- out
				}()
				out.err = next(c)
			}()

			select {
			case out := <-done:
				res.Writer = orig
				if out.panicked != nil {
					panic(out.panicked)
				}
				tw.flushTo(orig)
				return out.err

			case <-ctx.Done():
				tw.expire()
				writeTimeout(orig, ctx.Err())

				out := <-done
				res.Writer = orig
				res.Committed = true
				res.Status = http.StatusGatewayTimeout
				if out.panicked != nil {
					panic(out.panicked)
				}
				return nil
			}
		}
	}
}

type handlerResult struct {
	err      error
	panicked any
}

func writeTimeout(w http.ResponseWriter, cause error) {
	status := http.StatusGatewayTimeout
	if cause == context.Canceled {
		// Client went away; nobody reads the body.
		status = http.StatusServiceUnavailable
	}
	w.Header().Set(echo.HeaderContentType, echo.MIMEApplicationJSONCharsetUTF8)
	w.WriteHeader(status)
	_, _ = w.Write([]byte(timeoutBody))
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// timeoutWriter buffers a handler's response. Once expired, further writes
// are dropped with http.ErrHandlerTimeout.
type timeoutWriter struct {
	mu      sync.Mutex
	header  http.Header
	buf     bytes.Buffer
	code    int
	expired bool
}

func (tw *timeoutWriter) Header() http.Header { return tw.header }

func (tw *timeoutWriter) WriteHeader(code int) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.expired || tw.code != 0 {
		return
	}
	tw.code = code
}

func (tw *timeoutWriter) Write(p []byte) (int, error) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.expired {
		return 0, http.ErrHandlerTimeout
	}
	if tw.code == 0 {
		tw.code = http.StatusOK
	}
	return tw.buf.Write(p)
}

func (tw *timeoutWriter) expire() {
	tw.mu.Lock()
	tw.expired = true
	tw.mu.Unlock()
}

// flushTo copies the buffered response to w. Headers are copied even when
// nothing was written, so an error handler downstream still sees them.
func (tw *timeoutWriter) flushTo(w http.ResponseWriter) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	dst := w.Header()
	for k, vv := range tw.header {
		dst[k] = vv
	}
	if tw.code == 0 {
		return
	}
	w.WriteHeader(tw.code)
	_, _ = w.Write(tw.buf.Bytes())
}
