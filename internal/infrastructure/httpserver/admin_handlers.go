package httpserver

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
)

type refreshAvatarsRequest struct {
	Secret string `json:"secret"`
}

func (s *Server) secretMatches(candidate string) bool {
	if s.config.AdminSecret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(s.config.AdminSecret)) == 1
}

// refreshAvatars re-fetches avatars for every username with rows lacking
// one. Guarded by the shared admin secret.
func (s *Server) refreshAvatars(c echo.Context) error {
	var req refreshAvatarsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if !s.secretMatches(req.Secret) {
		return c.JSON(http.StatusUnauthorized, map[string]interface{}{
			"success": false,
			"message": "Unauthorized",
		})
	}

	report, err := s.avatarSvc.RefreshMissing(c.Request().Context())
	if err != nil {
		s.logger.WithError(err).Error("avatar refresh failed")
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"message": "Failed to update avatars",
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":             true,
		"message":             "Avatars updated for all users with missing avatars",
		"runId":               report.RunID,
		"uniqueUsersUpdated":  report.UniqueUsersUpdated,
		"totalRecordsUpdated": report.TotalRecordsUpdated,
		"updates":             report.Updates,
	})
}

// report lists every cache row. Answers 404 unless the secret query
// parameter matches, so the route stays invisible to probing.
func (s *Server) report(c echo.Context) error {
	if !s.secretMatches(c.QueryParam("s")) {
		return echo.NewHTTPError(http.StatusNotFound)
	}

	entries, err := s.cacheRepo.ListAll(c.Request().Context())
	if err != nil {
		s.logger.WithError(err).Error("failed to load cache report")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load report")
	}
	return c.JSON(http.StatusOK, entries)
}
