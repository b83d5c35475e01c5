package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskflow-api/internal/board"
	"github.com/BuzzLyutic/taskflow-api/internal/model"
	"github.com/BuzzLyutic/taskflow-api/internal/service"
	"github.com/BuzzLyutic/taskflow-api/pkg/respond"
)

type TaskHandler struct {
	service *service.TaskService
	board   *board.Board
	logger  *zap.Logger
}

func NewTaskHandler(srv *service.TaskService, b *board.Board, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		service: srv,
		board:   b,
		logger:  logger,
	}
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength == 0 {
		respond.Error(w, r, http.StatusBadRequest, "empty request body")
		return
	}

	var req model.Task
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debug("failed to decode json", zap.Error(err))
		respond.Error(w, r, http.StatusBadRequest, fmt.Sprintf("invalid json: %v", err))
		return
	}

	task, err := h.service.Create(r.Context(), req)
	if err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/tasks/%d", task.ID))
	respond.JSON(w, r, http.StatusCreated, task)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}

	task, err := h.service.Get(r.Context(), id)
	if err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, task)
}

// List отдает задачи из репозитория, newest first, с фильтрами из query.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}

	tasks, err := h.service.List(r.Context(), filter, r.URL.Query().Get("q"))
	if err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	respond.JSON(w, r, http.StatusOK, tasks)
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}

	var patch model.TaskPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respond.Error(w, r, http.StatusBadRequest, "invalid json")
		return
	}

	task, err := h.service.Update(r.Context(), id, patch)
	if err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, task)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Toggle flips completion through the board so the cached view reflects it
// immediately.
func (h *TaskHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}

	task, err := h.board.Toggle(r.Context(), id)
	if err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, task)
}

// View reloads the board and derives the displayed list. When the reload
// fails after an earlier success, the last snapshot is served instead.
func (h *TaskHandler) View(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		handleErrors(h.logger, w, r, err)
		return
	}

	if err := h.board.Refresh(r.Context()); err != nil && !errors.Is(err, board.ErrStale) {
		if !h.board.Loaded() {
			handleErrors(h.logger, w, r, err)
			return
		}
		h.logger.Warn("serving last board snapshot", zap.Error(err))
	}

	respond.JSON(w, r, http.StatusOK, h.board.View(filter, r.URL.Query().Get("q")))
}

func parseFilter(q url.Values) (model.Filter, error) {
	filter := model.Filter{
		Status:   model.Status(q.Get("status")),
		Priority: model.Priority(q.Get("priority")),
		Category: q.Get("category"),
	}

	switch filter.Status {
	case "", model.StatusAll, model.StatusPending, model.StatusCompleted:
	default:
		return filter, fmt.Errorf("%w: unknown status %q", service.ErrValidation, filter.Status)
	}
	if filter.Priority != "" && filter.Priority != model.FilterAll && !filter.Priority.Valid() {
		return filter, fmt.Errorf("%w: unknown priority %q", service.ErrValidation, filter.Priority)
	}
	return filter, nil
}
