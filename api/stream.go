package api

import (
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
)

const streamInterval = 5 * time.Second

// streamTasks pushes the owner's full task collection over server-sent
// events. EventSource cannot set headers, so the session token may arrive as
// a query parameter instead.
func streamTasks(store TaskStore, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		if header == "" {
			if token := c.QueryParam("token"); token != "" {
				header = "Bearer " + token
			}
		}
		userID, err := auth.UserIDFromAuthHeader(header)
		if err != nil {
			return unauthorized(c)
		}

		c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
		c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
		c.Response().Header().Set(echo.HeaderConnection, "keep-alive")
		c.Response().Header().Set("X-Accel-Buffering", "no")
		flusher, ok := c.Response().Writer.(http.Flusher)
		if !ok {
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: "stream unsupported"})
		}

		ctx := c.Request().Context()
		ticker := time.NewTicker(streamInterval)
		defer ticker.Stop()
		for {
			tasks, err := store.ListTasks(ctx, userID)
			if err == nil {
				data, _ := sonic.Marshal(tasks)
				if _, err := c.Response().Write([]byte("data: ")); err != nil {
					return nil
				}
				if _, err := c.Response().Write(data); err != nil {
					return nil
				}
				if _, err := c.Response().Write([]byte("\n\n")); err != nil {
					return nil
				}
				flusher.Flush()
			}
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	}
}
