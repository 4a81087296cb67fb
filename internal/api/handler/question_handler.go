package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"qna_catalog/internal/api/middleware"
	"qna_catalog/internal/app/service"
	"qna_catalog/internal/common"
	"qna_catalog/internal/domain/model"
)

type QuestionHandler struct {
	questionService *service.QuestionService
}

func NewQuestionHandler(qs *service.QuestionService) *QuestionHandler {
	return &QuestionHandler{questionService: qs}
}

func (h *QuestionHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.listQuestions)                // GET /api/v1/questions
	r.Get("/roots", h.listRootQuestions)       // GET /api/v1/questions/roots?page=&pageSize=
	r.Get("/{questionID}", h.getQuestion)      // GET /api/v1/questions/42

	r.Group(func(curatorRouter chi.Router) {
		curatorRouter.Use(middleware.Authenticator)
		curatorRouter.Use(middleware.AdminOrModerator)
		curatorRouter.Post("/", h.createNode)                     // POST /api/v1/questions
		curatorRouter.Post("/delete", h.deleteNode)               // POST /api/v1/questions/delete
		curatorRouter.Post("/update/{questionID}", h.updateNode)  // POST /api/v1/questions/update/42
	})
}

func (h *QuestionHandler) listQuestions(w http.ResponseWriter, r *http.Request) {
	responses, err := h.questionService.GetAllQuestionsWithSubtree(r.Context())
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, responses)
}

func (h *QuestionHandler) listRootQuestions(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page <= 0 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	questions, total, err := h.questionService.ListRootQuestions(r.Context(), page, pageSize)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}

	type PaginatedQuestionsResponse struct {
		Questions []model.QuestionResponse `json:"questions"`
		Total     int                      `json:"total"`
		Page      int                      `json:"page"`
		PageSize  int                      `json:"page_size"`
	}
	common.RespondWithJSON(w, http.StatusOK, PaginatedQuestionsResponse{
		Questions: questions,
		Total:     total,
		Page:      page,
		PageSize:  pageSize,
	})
}

func (h *QuestionHandler) getQuestion(w http.ResponseWriter, r *http.Request) {
	questionID, err := strconv.ParseInt(chi.URLParam(r, "questionID"), 10, 64)
	if err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid question id")
		return
	}

	response, err := h.questionService.GetQuestionWithSubtree(r.Context(), questionID)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, response)
}

func (h *QuestionHandler) createNode(w http.ResponseWriter, r *http.Request) {
	var req service.CreateNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	node, err := h.questionService.CreateNode(r.Context(), req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, node)
}

type deleteNodeRequest struct {
	QuestionID    int64 `json:"question_id"`
	SubQuestionID int64 `json:"sub_question_id"` // 0 deletes the question itself
}

func (h *QuestionHandler) deleteNode(w http.ResponseWriter, r *http.Request) {
	var req deleteNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}
	if req.QuestionID <= 0 {
		common.RespondWithError(w, http.StatusBadRequest, "question_id is required")
		return
	}

	if err := h.questionService.DeleteNode(r.Context(), req.QuestionID, req.SubQuestionID); err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithAck(w, "Node deleted")
}

func (h *QuestionHandler) updateNode(w http.ResponseWriter, r *http.Request) {
	questionID, err := strconv.ParseInt(chi.URLParam(r, "questionID"), 10, 64)
	if err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid question id")
		return
	}

	var req service.UpdateNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	response, err := h.questionService.UpdateNode(r.Context(), questionID, req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, response)
}
