package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"taskflow-api/domain"
)

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, tasks TaskStore, users UserStore, auth SessionAuth, deduper Deduper, sink EventSink, logger *log.Logger) {
	e.POST("/api/auth/login", postLogin(users, auth, logger))
	e.POST("/api/auth/register", postRegister(users, logger))

	e.GET("/api/tasks", getTasks(tasks, auth, logger))
	e.POST("/api/tasks", createTask(tasks, auth, deduper, logger))
	e.PUT("/api/tasks/:id", updateTask(tasks, auth))
	e.PATCH("/api/tasks/:id/status", changeTaskStatus(tasks, auth))
	e.DELETE("/api/tasks/:id", deleteTask(tasks, auth))
	e.GET("/api/tasks/stream", streamTasks(tasks, auth))

	e.GET("/api/stats", getStats(tasks, auth))
	e.GET("/api/dashboard", getDashboard(tasks, auth))
	e.GET("/healthz", healthz())

	initEventPublisher(sink, logger)
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, errorResponse{Error: "Unauthorized"})
}

// writeError maps the domain error taxonomy onto the wire contract. Anything
// outside the taxonomy is logged and reported generically; it never crashes
// the handler.
func writeError(c echo.Context, err error) error {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: ve.Message})
	}
	var nfe *domain.NotFoundError
	if errors.As(err, &nfe) {
		return c.JSON(http.StatusNotFound, errorResponse{Error: nfe.Error()})
	}
	var ae *domain.AuthError
	if errors.As(err, &ae) {
		return c.JSON(http.StatusUnauthorized, errorResponse{Error: ae.Message})
	}
	c.Logger().Error(err)
	return c.JSON(http.StatusInternalServerError, errorResponse{Error: "Internal server error"})
}

func decodeBody(c echo.Context, v any) error {
	lr := io.LimitReader(c.Request().Body, requestBodyMaxSize)
	dec := sonic.ConfigStd.NewDecoder(lr)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func getTasks(store TaskStore, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics, spanCtx := newTaskRequestMetrics(ctx, logger)
		if spanCtx != nil {
			c.SetRequest(c.Request().WithContext(spanCtx))
			ctx = spanCtx
		}
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		authStart := time.Now()
		userID, authErr := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		metrics.ObserveAuth(time.Since(authStart))
		if authErr != nil {
			metrics.SetErrorStage("auth")
			err = unauthorized(c)
			return err
		}

		query := c.QueryParam("q")
		status := c.QueryParam("status")
		priority := c.QueryParam("priority")
		metrics.SetFiltered(query != "" ||
			(status != "" && status != domain.FilterAll) ||
			(priority != "" && priority != domain.FilterAll))

		fetchStart := time.Now()
		tasks, fetchErr := store.ListTasks(ctx, userID)
		metrics.ObserveFetch(time.Since(fetchStart))
		if fetchErr != nil {
			metrics.SetErrorStage("storage")
			err = writeError(c, fetchErr)
			return err
		}

		filterStart := time.Now()
		view := domain.Filter(tasks, query, status, priority)
		metrics.ObserveFilter(time.Since(filterStart))
		metrics.SetTasksReturned(len(view))

		encodeStart := time.Now()
		err = c.JSON(http.StatusOK, view)
		metrics.ObserveEncode(time.Since(encodeStart))
		if err != nil {
			metrics.SetErrorStage("encode_response")
		}
		return err
	}
}

func createTask(store TaskStore, auth Authenticator, deduper Deduper, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return unauthorized(c)
		}

		var fields domain.TaskFields
		if err := decodeBody(c, &fields); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}

		// A replayed Idempotency-Key means the client double-submitted the
		// form; a deduper outage must not block creates.
		key := c.Request().Header.Get("Idempotency-Key")
		if key != "" && deduper != nil {
			added, derr := deduper.Add(ctx, userID, key)
			if derr != nil {
				logger.Warnf("deduper unavailable: %v", derr)
			} else if !added {
				return c.JSON(http.StatusConflict, errorResponse{Error: "Duplicate request"})
			}
		}
		rollbackKey := func() {
			if key == "" || deduper == nil {
				return
			}
			if rerr := deduper.Remove(ctx, userID, key); rerr != nil {
				logger.Errorf("dedupe rollback failed, err: %v, key: %s, user: %s", rerr, key, userID)
			}
		}

		now := time.Now()
		if err := fields.Validate(now); err != nil {
			rollbackKey()
			return writeError(c, err)
		}

		task := domain.NewTask(userID, fields, now)
		if err := store.CreateTask(ctx, userID, task); err != nil {
			rollbackKey()
			return writeError(c, err)
		}

		publishTaskEvent(userID, domain.EventTaskCreated, task.ID, &task)
		return c.JSON(http.StatusCreated, task)
	}
}

func updateTask(store TaskStore, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return unauthorized(c)
		}

		var fields domain.TaskFields
		if err := decodeBody(c, &fields); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		if err := fields.Validate(time.Now()); err != nil {
			return writeError(c, err)
		}

		task, err := store.UpdateTask(ctx, userID, c.Param("id"), fields)
		if err != nil {
			return writeError(c, err)
		}

		publishTaskEvent(userID, domain.EventTaskUpdated, task.ID, &task)
		return c.JSON(http.StatusOK, task)
	}
}

// changeTaskStatus is the ChangeStatus convenience path: an update restricted
// to the status field. The board drag-and-drop gesture and the explicit
// status control both land here.
func changeTaskStatus(store TaskStore, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return unauthorized(c)
		}

		var req statusRequest
		if err := decodeBody(c, &req); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		if !req.Status.Valid() {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid status"})
		}

		task, err := store.ChangeStatus(ctx, userID, c.Param("id"), req.Status)
		if err != nil {
			return writeError(c, err)
		}

		publishTaskEvent(userID, domain.EventTaskUpdated, task.ID, &task)
		return c.JSON(http.StatusOK, task)
	}
}

func deleteTask(store TaskStore, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return unauthorized(c)
		}

		taskID := c.Param("id")
		if err := store.DeleteTask(ctx, userID, taskID); err != nil {
			return writeError(c, err)
		}

		publishTaskEvent(userID, domain.EventTaskDeleted, taskID, nil)
		return c.JSON(http.StatusOK, messageResponse{Message: "Task deleted successfully"})
	}
}

func getStats(store TaskStore, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return unauthorized(c)
		}

		tasks, err := store.ListTasks(ctx, userID)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, domain.ComputeStats(tasks, time.Now()))
	}
}

// getDashboard serves the filtered view and the aggregate statistics in one
// round trip. Statistics always cover the full collection, never the
// filtered subset.
func getDashboard(store TaskStore, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return unauthorized(c)
		}

		tasks, err := store.ListTasks(ctx, userID)
		if err != nil {
			return writeError(c, err)
		}

		view := domain.Filter(tasks, c.QueryParam("q"), c.QueryParam("status"), c.QueryParam("priority"))
		resp := dashboardResponse{
			Tasks: view,
			Stats: domain.ComputeStats(tasks, time.Now()),
		}
		return c.JSON(http.StatusOK, resp)
	}
}
