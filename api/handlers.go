package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"kanban-api/domain"
	"kanban-api/engine"
)

const requestMaxSize = 1 << 20

// Register wires up all task routes on the provided Echo instance.
func Register(e *echo.Echo, eng *engine.Engine, auth Authenticator, logger *log.Logger) {
	if logger == nil {
		logger = log.StandardLogger()
	}
	e.POST("/api/boards/:boardId/tasks", createTask(eng, auth, logger))
	e.PUT("/api/tasks/:id", updateTask(eng, auth, logger))
	e.PUT("/api/tasks/:id/status", setTaskStatus(eng, auth, logger))
	e.PUT("/api/tasks/:id/dates", setTaskDates(eng, auth, logger))
	e.POST("/api/tasks/:id/copy", copyTask(eng, auth, logger))
	e.POST("/api/tasks/:id/copy-per-user", copyTaskPerUser(eng, auth, logger))
	e.DELETE("/api/tasks/:id", deleteTask(eng, auth, logger))
	e.POST("/api/tasks/:id/assignees/:userId", assignUser(eng, auth, logger))
	e.DELETE("/api/tasks/:id/assignees/:userId", expelUser(eng, auth, logger))
	e.GET("/healthz", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
}

func decodeBody(c echo.Context, v any) error {
	lr := io.LimitReader(c.Request().Body, requestMaxSize)
	dec := sonic.ConfigStd.NewDecoder(lr)
	return dec.Decode(v)
}

func actorID(c echo.Context, auth Authenticator) (string, error) {
	return auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
}

func writeError(c echo.Context, logger *log.Logger, err error) error {
	var verrs domain.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		return c.JSON(http.StatusUnprocessableEntity, map[string]any{"errors": verrs})
	case errors.Is(err, domain.ErrInvalidGrouping):
		return c.String(http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return c.String(http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		return c.String(http.StatusForbidden, err.Error())
	default:
		logger.WithFields(log.Fields{"path": c.Path(), "error": err}).Error("request failed")
		return c.String(http.StatusInternalServerError, err.Error())
	}
}

// groupingFromRequest maps the query parameters onto the engine's grouping
// union. Exactly one of bucketId, userId, status, date must be present.
func groupingFromRequest(c echo.Context) (engine.Grouping, error) {
	var groups []engine.Grouping
	if v := c.QueryParam("bucketId"); v != "" {
		groups = append(groups, engine.GroupByBucket(v))
	}
	if v := c.QueryParam("userId"); v != "" {
		groups = append(groups, engine.GroupByAssignee(v))
	}
	if v := c.QueryParam("status"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return engine.Grouping{}, domain.ErrInvalidGrouping
		}
		groups = append(groups, engine.GroupByStatus(domain.Status(n)))
	}
	if v := c.QueryParam("date"); v != "" {
		due, err := parseDateParam(v)
		if err != nil {
			return engine.Grouping{}, domain.ErrInvalidGrouping
		}
		groups = append(groups, engine.GroupByDueDate(due))
	}
	if len(groups) != 1 {
		return engine.Grouping{}, domain.ErrInvalidGrouping
	}
	return groups[0], nil
}

func parseDateParam(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", v)
}

type createRequest struct {
	Subject     string     `json:"subject"`
	Description string     `json:"description"`
	BucketID    string     `json:"bucketId"`
	Status      int        `json:"status"`
	StartDate   *time.Time `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
	TicketID    string     `json:"ticketId"`
	Assignees   []string   `json:"assignees"`
	CopyPerUser bool       `json:"copyPerUser"`
}

type createResponse struct {
	Task   domain.Task   `json:"task"`
	Clones []domain.Task `json:"clones,omitempty"`
	Group  string        `json:"group"`
}

func createTask(eng *engine.Engine, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		actor, err := actorID(c, auth)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		group, err := groupingFromRequest(c)
		if err != nil {
			return writeError(c, logger, err)
		}
		var req createRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		res, err := eng.Create(c.Request().Context(), actor, c.Param("boardId"), group, engine.CreateInput{
			BucketID:    req.BucketID,
			Subject:     req.Subject,
			Description: req.Description,
			Status:      domain.Status(req.Status),
			StartDate:   req.StartDate,
			EndDate:     req.EndDate,
			TicketID:    req.TicketID,
			Assignees:   req.Assignees,
			CopyPerUser: req.CopyPerUser,
		})
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(http.StatusCreated, createResponse{Task: res.Task, Clones: res.Clones, Group: res.Group})
	}
}

// updateRequest carries no file uploads; engine.UpdateInput.NewFiles is fed
// by callers of the engine directly, not through this surface.
type updateRequest struct {
	domain.TaskPatch
	Checklist   engine.Submission[domain.ChecklistAttrs] `json:"checklist"`
	Links       engine.Submission[domain.LinkAttrs]      `json:"links"`
	Assignees   []string                                 `json:"assignees"`
	Comment     string                                   `json:"comment"`
	Attachments map[string]domain.AttachmentAttrs        `json:"attachments"`
}

func updateTask(eng *engine.Engine, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		actor, err := actorID(c, auth)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var req updateRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		res, err := eng.Update(c.Request().Context(), actor, c.Param("id"), engine.UpdateInput{
			Patch:       req.TaskPatch,
			Checklist:   req.Checklist,
			Links:       req.Links,
			Assignees:   req.Assignees,
			Comment:     req.Comment,
			Attachments: req.Attachments,
		})
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(http.StatusOK, res.Task)
	}
}

func setTaskStatus(eng *engine.Engine, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		actor, err := actorID(c, auth)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var req struct {
			Status int `json:"status"`
		}
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		task, _, err := eng.SetStatus(c.Request().Context(), actor, c.Param("id"), domain.Status(req.Status))
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(http.StatusOK, task)
	}
}

func setTaskDates(eng *engine.Engine, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		actor, err := actorID(c, auth)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var req struct {
			StartDate *time.Time `json:"startDate"`
			EndDate   *time.Time `json:"endDate"`
		}
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		task, err := eng.SetDates(c.Request().Context(), actor, c.Param("id"), req.StartDate, req.EndDate)
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(http.StatusOK, task)
	}
}

type copyRequest struct {
	Subject         string `json:"subject"`
	BucketID        string `json:"bucketId"`
	CopyDescription bool   `json:"copyDescription"`
	CopyDates       bool   `json:"copyDates"`
	CopyStatus      bool   `json:"copyStatus"`
	CopyAssignment  bool   `json:"copyAssignment"`
	CopyChecklist   bool   `json:"copyChecklist"`
	CopyAttachments bool   `json:"copyAttachments"`
	CopyLinks       bool   `json:"copyLinks"`
}

func copyTask(eng *engine.Engine, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		actor, err := actorID(c, auth)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var req copyRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		res, err := eng.Copy(c.Request().Context(), actor, c.Param("id"), engine.CopyOptions{
			Subject:     req.Subject,
			BucketID:    req.BucketID,
			Description: req.CopyDescription,
			Dates:       req.CopyDates,
			Status:      req.CopyStatus,
			Assignment:  req.CopyAssignment,
			Checklist:   req.CopyChecklist,
			Attachments: req.CopyAttachments,
			Links:       req.CopyLinks,
		})
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(http.StatusCreated, res.Task)
	}
}

func copyTaskPerUser(eng *engine.Engine, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		actor, err := actorID(c, auth)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var req struct {
			Assignees []string `json:"assignees"`
		}
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		res, err := eng.CopyPerUser(c.Request().Context(), actor, c.Param("id"), req.Assignees)
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(http.StatusCreated, res.Tasks)
	}
}

func deleteTask(eng *engine.Engine, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		actor, err := actorID(c, auth)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		if err := eng.Delete(c.Request().Context(), actor, c.Param("id")); err != nil {
			return writeError(c, logger, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func assignUser(eng *engine.Engine, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		actor, err := actorID(c, auth)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		task, err := eng.AssignUser(c.Request().Context(), actor, c.Param("id"), c.Param("userId"))
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(http.StatusOK, task)
	}
}

func expelUser(eng *engine.Engine, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		actor, err := actorID(c, auth)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		task, err := eng.ExpelUser(c.Request().Context(), actor, c.Param("id"), c.Param("userId"))
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(http.StatusOK, task)
	}
}
