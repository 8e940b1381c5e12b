package ingest

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/damoang/angple-bugreport/internal/common"
	"github.com/damoang/angple-bugreport/internal/domain"
	"github.com/damoang/angple-bugreport/pkg/ginutil"
	"github.com/gin-gonic/gin"
)

// DefaultMaxBodyBytes 스크린샷 포함 요청 본문 상한
const DefaultMaxBodyBytes int64 = 4 << 20

// Handler handles HTTP requests for bug reports
type Handler struct {
	svc     *Service
	maxBody int64
}

// NewHandler creates a new Handler
func NewHandler(svc *Service, maxBodyBytes int64) *Handler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return &Handler{svc: svc, maxBody: maxBodyBytes}
}

// Create handles POST /api/v1/bug-reports
// @Summary 버그 리포트 접수
// @Description 클라이언트가 보낸 리포트를 저장한다. 같은 report_id 재전송은 저장된 요약을 200으로 돌려준다
// @Tags bug-reports
// @Accept json
// @Produce json
// @Param report body domain.BugReportPayload true "버그 리포트"
// @Success 201 {object} common.V2Response{data=Summary}
// @Success 200 {object} common.V2Response{data=Summary}
// @Failure 400 {object} common.V2Response
// @Failure 413 {object} common.V2Response
// @Failure 422 {object} common.V2Response
// @Failure 429 {object} common.V2Response
// @Router /bug-reports [post]
func (h *Handler) Create(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBody)

	var payload domain.BugReportPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			common.V2ErrorResponse(c, http.StatusRequestEntityTooLarge, "리포트가 너무 큽니다", nil)
			return
		}
		common.V2ErrorResponse(c, http.StatusBadRequest, "잘못된 요청입니다", err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	rec, created, err := h.svc.Ingest(ctx, payload, c.ClientIP())
	if err != nil {
		if errors.Is(err, ErrInvalidReport) {
			common.V2ErrorResponse(c, http.StatusUnprocessableEntity, "리포트 형식이 올바르지 않습니다", err)
			return
		}
		common.V2ErrorResponse(c, http.StatusInternalServerError, "리포트 저장 실패", err)
		return
	}

	if created {
		common.V2Created(c, rec.Summary())
		return
	}
	common.V2Success(c, rec.Summary())
}

// List handles GET /api/v1/bug-reports
// @Summary 버그 리포트 목록
// @Tags bug-reports
// @Produce json
// @Param page query int false "페이지" default(1)
// @Param limit query int false "페이지당 항목" default(20)
// @Param source_app query string false "앱 필터"
// @Param error_source query string false "에러 출처" Enums(boundary, global_error, unhandled_rejection, manual)
// @Param user_id query string false "사용자 필터"
// @Success 200 {object} common.V2Response{data=[]Record}
// @Failure 400 {object} common.V2Response
// @Failure 403 {object} common.V2Response
// @Security BearerAuth
// @Router /bug-reports [get]
func (h *Handler) List(c *gin.Context) {
	page, limit := pagination(c)
	filter := ListFilter{
		Page:        page,
		Limit:       limit,
		SourceApp:   c.Query("source_app"),
		ErrorSource: domain.ErrorSource(c.Query("error_source")),
		UserID:      c.Query("user_id"),
	}
	if filter.ErrorSource != "" && !filter.ErrorSource.Valid() {
		common.V2ErrorResponse(c, http.StatusBadRequest, "알 수 없는 error_source", nil)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	records, total, err := h.svc.List(ctx, filter)
	if err != nil {
		common.V2ErrorResponse(c, http.StatusInternalServerError, "리포트 목록 조회 실패", err)
		return
	}
	common.V2SuccessWithMeta(c, records, common.NewV2Meta(page, limit, total))
}

// Get handles GET /api/v1/bug-reports/:id
// @Summary 버그 리포트 상세
// @Tags bug-reports
// @Produce json
// @Param id path string true "report_id"
// @Success 200 {object} common.V2Response{data=Record}
// @Failure 404 {object} common.V2Response
// @Security BearerAuth
// @Router /bug-reports/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	rec, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, ErrNotFound) {
		common.V2ErrorResponse(c, http.StatusNotFound, "리포트를 찾을 수 없습니다", nil)
		return
	}
	if err != nil {
		common.V2ErrorResponse(c, http.StatusInternalServerError, "리포트 조회 실패", err)
		return
	}
	common.V2Success(c, rec)
}

// Search handles GET /api/v1/bug-reports/search?q=
// @Summary 버그 리포트 검색
// @Tags bug-reports
// @Produce json
// @Param q query string true "검색어"
// @Param page query int false "페이지" default(1)
// @Param limit query int false "페이지당 항목" default(20)
// @Success 200 {object} common.V2Response
// @Failure 400 {object} common.V2Response
// @Failure 503 {object} common.V2Response
// @Security BearerAuth
// @Router /bug-reports/search [get]
func (h *Handler) Search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		common.V2ErrorResponse(c, http.StatusBadRequest, "검색어를 입력해주세요", nil)
		return
	}
	page, limit := pagination(c)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	res, err := h.svc.Search(ctx, q, page, limit)
	if errors.Is(err, ErrSearchDisabled) {
		common.V2ErrorResponse(c, http.StatusServiceUnavailable, "검색이 설정되지 않았습니다", nil)
		return
	}
	if err != nil {
		common.V2ErrorResponse(c, http.StatusInternalServerError, "검색 실패", err)
		return
	}
	common.V2SuccessWithMeta(c, res.Results, common.NewV2Meta(page, limit, res.Total))
}

func pagination(c *gin.Context) (int, int) {
	return ginutil.Pagination(c, 20, 100)
}
