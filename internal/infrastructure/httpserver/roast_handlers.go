package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/henzogomes/git-shame/internal/core/domain/i18n"
	"github.com/henzogomes/git-shame/internal/core/domain/roast"
)

type roastResponse struct {
	Shame     string `json:"shame"`
	Language  string `json:"language"`
	Model     string `json:"model"`
	FromCache bool   `json:"fromCache"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// sseSink delivers stream frames over the response writer. Headers are
// written lazily on the first frame so a cache hit can still answer JSON.
type sseSink struct {
	c       echo.Context
	started bool
}

func (s *sseSink) start() {
	h := s.c.Response().Header()
	h.Set(echo.HeaderContentType, "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	s.c.Response().WriteHeader(http.StatusOK)
	s.started = true
}

func (s *sseSink) Send(chunk roast.StreamChunk) error {
	if !s.started {
		s.start()
	}
	payload, err := json.Marshal(chunk)
	if err != nil {
		return fmt.Errorf("failed to encode stream frame: %w", err)
	}
	if _, err := fmt.Fprintf(s.c.Response(), "data: %s\n\n", payload); err != nil {
		return err
	}
	s.c.Response().Flush()
	return nil
}

func (s *sseSink) Done() error {
	if !s.started {
		s.start()
	}
	if _, err := fmt.Fprint(s.c.Response(), "data: [DONE]\n\n"); err != nil {
		return err
	}
	s.c.Response().Flush()
	return nil
}

// clientIdentifier resolves the rate-limit identity: first entry of
// X-Forwarded-For, or a sentinel when absent.
func clientIdentifier(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first := strings.TrimSpace(strings.Split(fwd, ",")[0]); first != "" {
			return first
		}
	}
	return "unknown-ip"
}

func (s *Server) roast(c echo.Context) error {
	lang := i18n.Resolve(c.QueryParam("lang"), c.Request().Header.Get("Accept-Language"))

	// Cache misses stream by default; ?stream=false forces buffered JSON.
	mode := roast.DeliveryBuffered
	if s.config.StreamEnabled && c.QueryParam("stream") != "false" {
		mode = roast.DeliveryStreamed
	}

	req := &roast.Request{
		Username: c.QueryParam("username"),
		Language: lang,
		ClientIP: clientIdentifier(c.Request()),
		Mode:     mode,
	}

	sink := &sseSink{c: c}
	result, err := s.roastSvc.Roast(c.Request().Context(), req, sink)
	if err != nil {
		return s.roastError(c, lang, sink.started, err)
	}

	outcome := "generated"
	switch {
	case result.FromCache:
		outcome = "cache_hit"
	case result.Streamed:
		outcome = "streamed"
	}
	roastsTotal.WithLabelValues(outcome, string(result.Language)).Inc()

	if result.Streamed {
		// Frames and the terminal marker are already on the wire.
		return nil
	}
	return c.JSON(http.StatusOK, roastResponse{
		Shame:     result.Text,
		Language:  string(result.Language),
		Model:     result.Model,
		FromCache: result.FromCache,
		AvatarURL: result.AvatarURL,
	})
}

// roastError maps orchestrator errors onto localized HTTP responses.
func (s *Server) roastError(c echo.Context, lang i18n.Language, streamStarted bool, err error) error {
	strs := i18n.Get(lang)

	var rle *roast.RateLimitError
	switch {
	case errors.As(err, &rle):
		rateLimitRejections.Inc()
		c.Response().Header().Set("X-RateLimit-Reset", strconv.Itoa(rle.ResetSeconds))
		return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
			"error":          strs.RateLimitError,
			"resetInSeconds": rle.ResetSeconds,
		})
	case errors.Is(err, roast.ErrUsernameRequired):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: strs.UsernameRequired})
	case errors.Is(err, roast.ErrUserNotFound):
		return c.JSON(http.StatusNotFound, errorResponse{Error: strs.UserNotFound})
	}

	s.logger.WithError(err).Error("roast request failed")
	if streamStarted && c.Response().Committed {
		// The stream broke mid-flight; closing without the terminal marker
		// is the error signal. A JSON body can no longer be sent.
		return err
	}
	return c.JSON(http.StatusInternalServerError, errorResponse{Error: strs.RequestFailed})
}
