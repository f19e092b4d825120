package gateway

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/bizmatters/deviation-service/internal/audit"
	"github.com/bizmatters/deviation-service/internal/auth"
	"github.com/bizmatters/deviation-service/internal/classify"
	"github.com/bizmatters/deviation-service/internal/models"
	"github.com/bizmatters/deviation-service/internal/orchestration"
	"github.com/bizmatters/deviation-service/internal/record"
)

// Config holds the gateway's request limits.
type Config struct {
	MaxUploadBytes int64
	TokenTTL       time.Duration
	// UploadDir is where per-request upload directories are created. Empty
	// means os.TempDir().
	UploadDir string
}

// Handler handles HTTP requests for the gateway layer
type Handler struct {
	service    *orchestration.Service
	jwtManager *auth.JWTManager
	// pool and events are nil when no database is configured.
	pool   *pgxpool.Pool
	events *audit.PostgresRecorder
	cfg    Config
	logger *zap.Logger
}

// NewHandler creates a new gateway handler
func NewHandler(service *orchestration.Service, jwtManager *auth.JWTManager, pool *pgxpool.Pool, events *audit.PostgresRecorder, cfg Config, logger *zap.Logger) *Handler {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 25 << 20
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	return &Handler{
		service:    service,
		jwtManager: jwtManager,
		pool:       pool,
		events:     events,
		cfg:        cfg,
		logger:     logger,
	}
}

func unavailable(c *gin.Context, what string) {
	c.AbortWithStatusJSON(http.StatusServiceUnavailable, models.ErrorResponse{
		Error: what + " requires a database, none is configured",
		Code:  models.ErrCodeInternalError,
	})
}

// Login godoc
// @Summary User login
// @Description Authenticate user and return JWT token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.LoginRequest true "Login credentials"
// @Success 200 {object} models.LoginResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}
	if h.pool == nil {
		unavailable(c, "login")
		return
	}

	var user models.User
	err := h.pool.QueryRow(c.Request.Context(),
		`SELECT id, name, email, hashed_password, roles, created_at FROM users WHERE email = $1`,
		req.Email,
	).Scan(&user.ID, &user.Name, &user.Email, &user.HashedPassword, &user.Roles, &user.CreatedAt)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			h.logger.Error("user lookup failed", zap.Error(err))
		}
		h.logger.Warn("user not found", zap.String("email", req.Email))
		invalidCredentials(c)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(req.Password)); err != nil {
		h.logger.Warn("invalid password", zap.String("email", req.Email))
		invalidCredentials(c)
		return
	}

	h.issueToken(c, user.ToUserInfo())
}

func invalidCredentials(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
		Error: "Invalid email or password",
		Code:  models.ErrCodeUnauthorized,
	})
}

func (h *Handler) issueToken(c *gin.Context, user models.UserInfo) {
	token, err := h.jwtManager.GenerateToken(c.Request.Context(), user.ID, user.Email, user.Roles, h.cfg.TokenTTL)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, models.LoginResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(h.cfg.TokenTTL).UTC(),
		User:      user,
	})
}

// Refresh godoc
// @Summary Refresh token
// @Description Exchange a valid token for a new one with a fresh expiry
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.RefreshRequest true "Current token"
// @Success 200 {object} models.LoginResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/refresh [post]
func (h *Handler) Refresh(c *gin.Context) {
	var req models.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}
	token, claims, err := h.jwtManager.RefreshToken(c.Request.Context(), req.Token, h.cfg.TokenTTL)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
			Error: "Invalid or expired token",
			Code:  models.ErrCodeUnauthorized,
		})
		return
	}
	c.JSON(http.StatusOK, models.LoginResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(h.cfg.TokenTTL).UTC(),
		User:      models.UserInfo{ID: claims.UserID, Email: claims.Username, Roles: claims.Roles},
	})
}

// AnalyzeIncident godoc
// @Summary Analyze an incident
// @Description Transcribe audio and extract document text, then return the strict incident analysis
// @Tags incident
// @Accept multipart/form-data
// @Produce plain
// @Param audio formData file false "Audio recordings"
// @Param file formData file false "Supporting documents"
// @Success 200 {string} string "===ANALYSIS START=== followed by one line per field"
// @Failure 400 {object} models.ErrorResponse
// @Failure 413 {object} models.ErrorResponse
// @Failure 422 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /incident/analyze [post]
func (h *Handler) AnalyzeIncident(c *gin.Context) {
	s, ok := h.openSpool(c)
	if !ok {
		return
	}
	defer s.Close(h.logger)

	audio, docs := s.Uploads("audio"), s.Uploads("file", "files")
	if len(audio) == 0 && len(docs) == 0 {
		badRequest(c, "at least one audio or document file is required")
		return
	}
	analysis, err := h.service.AnalyzeIncident(c.Request.Context(), audio, docs, auth.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.String(http.StatusOK, analysis.Text)
}

// ModifyIncident godoc
// @Summary Modify an incident analysis
// @Description Apply one text or voice instruction to an incident analysis
// @Tags incident
// @Accept multipart/form-data
// @Produce json
// @Param incident_response formData string true "Incident analysis as JSON or labelled text"
// @Param impact_assessment formData string false "Impact assessment as JSON or labelled text"
// @Param instruction formData string false "Modification instruction"
// @Param instruction_audio formData file false "Spoken modification instruction"
// @Success 200 {object} models.TurnResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 422 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /incident/modify [post]
func (h *Handler) ModifyIncident(c *gin.Context) {
	s, ok := h.openSpool(c)
	if !ok {
		return
	}
	defer s.Close(h.logger)

	out, err := h.service.ModifyIncident(c.Request.Context(), s.Value("incident_response"), s.Value("impact_assessment"), directive(s), auth.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respondTurn(c, out)
}

// AssessImpact godoc
// @Summary Assess impact
// @Description Produce the eight-line impact assessment from a prior incident analysis and documents
// @Tags impact
// @Accept multipart/form-data
// @Produce plain
// @Param analysis formData string true "Prior incident analysis"
// @Param files[] formData file false "Supporting documents"
// @Success 200 {string} string "One KEY: value line per assessment field"
// @Failure 400 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /impact-assessment [post]
func (h *Handler) AssessImpact(c *gin.Context) {
	s, ok := h.openSpool(c)
	if !ok {
		return
	}
	defer s.Close(h.logger)

	text, _, err := h.service.AssessImpact(c.Request.Context(), s.Value("analysis"), s.Uploads("files[]", "files", "file"), auth.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.String(http.StatusOK, text)
}

// ModifyInvestigation godoc
// @Summary Modify an investigation
// @Description Apply one text or voice instruction to an investigation document
// @Tags investigation
// @Accept multipart/form-data
// @Produce json
// @Param investigation_response formData string true "Investigation as JSON or labelled text"
// @Param instruction formData string false "Modification instruction"
// @Param instruction_audio formData file false "Spoken modification instruction"
// @Success 200 {object} models.TurnResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 422 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /investigation/modify [post]
func (h *Handler) ModifyInvestigation(c *gin.Context) {
	s, ok := h.openSpool(c)
	if !ok {
		return
	}
	defer s.Close(h.logger)

	out, err := h.service.ModifyInvestigation(c.Request.Context(), s.Value("investigation_response"), directive(s), auth.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respondTurn(c, out)
}

// RunTurn godoc
// @Summary Run a workflow stage
// @Description Run one INIT, PER_MINUTE, FINAL, REPEAT or MODIFY turn. The caller holds the record between turns.
// @Tags workflows
// @Accept json
// @Produce json
// @Param workflow path string true "Workflow name"
// @Param stage path string true "Stage" Enums(init, per-minute, final, repeat, modify)
// @Param request body models.TurnRequest true "Turn input"
// @Success 200 {object} models.TurnResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 422 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /workflows/{workflow}/{stage} [post]
func (h *Handler) RunTurn(c *gin.Context) {
	var req models.TurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}
	rec, err := decodeRecord(req.Record)
	if err != nil {
		badRequest(c, "Invalid record: "+err.Error())
		return
	}

	out, err := h.service.Run(c.Request.Context(), c.Param("workflow"), orchestration.Stage(c.Param("stage")), orchestration.Request{
		Record:      rec,
		Transcript:  req.Transcript,
		Instruction: req.Instruction,
		Documents:   req.Documents,
		Analysis:    req.Analysis,
		UserID:      auth.UserID(c),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respondTurn(c, out)
}

// decodeRecord treats an absent or null record as none.
func decodeRecord(raw []byte) (*record.Record, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	return record.Parse(raw)
}

// directive reads the instruction fields shared by the modify endpoints.
func directive(s *spool) orchestration.Directive {
	return orchestration.Directive{Text: s.Value("instruction"), Audio: s.Upload("instruction_audio")}
}

func (h *Handler) respondTurn(c *gin.Context, out *orchestration.Outcome) {
	resp, err := turnResponse(out)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func turnResponse(out *orchestration.Outcome) (models.TurnResponse, error) {
	raw, err := out.Record.MarshalJSON()
	if err != nil {
		return models.TurnResponse{}, err
	}
	resp := models.TurnResponse{
		Record:      raw,
		Fallback:    out.Fallback,
		Changed:     out.Changed,
		AddedKeys:   out.Drift.Added,
		MissingKeys: out.Drift.Missing,
	}
	if resp.Changed == nil {
		resp.Changed = []string{}
	}
	if out.Instruction != "" {
		resp.Instruction = out.Instruction
		resp.Modification = string(classify.Classify(out.Instruction))
	}
	return resp, nil
}

// ListWorkflows godoc
// @Summary List workflows
// @Description List registered workflows and their stages
// @Tags workflows
// @Produce json
// @Success 200 {array} models.WorkflowInfo
// @Security BearerAuth
// @Router /workflows [get]
func (h *Handler) ListWorkflows(c *gin.Context) {
	names := orchestration.Workflows()
	out := make([]models.WorkflowInfo, 0, len(names))
	for _, name := range names {
		wf, _ := orchestration.Lookup(name)
		info := models.WorkflowInfo{Name: name}
		for _, st := range wf.Stages() {
			info.Stages = append(info.Stages, string(st))
		}
		out = append(out, info)
	}
	c.JSON(http.StatusOK, out)
}

// Transcribe godoc
// @Summary Transcribe audio
// @Description Transcribe each uploaded audio file
// @Tags transcription
// @Accept multipart/form-data
// @Produce json
// @Param audio_files[] formData file true "Audio recordings"
// @Success 200 {object} models.TranscribeResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /transcribe [post]
func (h *Handler) Transcribe(c *gin.Context) {
	s, ok := h.openSpool(c)
	if !ok {
		return
	}
	defer s.Close(h.logger)

	audio := s.Uploads("audio_files[]", "audio_files", "audio")
	if len(audio) == 0 {
		badRequest(c, "at least one audio file is required")
		return
	}
	transcripts, err := h.service.Transcribe(c.Request.Context(), audio)
	if err != nil {
		h.fail(c, err)
		return
	}
	if transcripts == nil {
		transcripts = []string{}
	}
	c.JSON(http.StatusOK, models.TranscribeResponse{Transcripts: transcripts})
}

// RecentEvents godoc
// @Summary Recent revision events
// @Description List the most recent completed turns of a workflow (admin only)
// @Tags audit
// @Produce json
// @Param workflow path string true "Workflow name"
// @Param limit query int false "Maximum events" default(50)
// @Success 200 {array} audit.Event
// @Failure 403 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /audit/{workflow} [get]
func (h *Handler) RecentEvents(c *gin.Context) {
	if h.events == nil {
		unavailable(c, "the audit log")
		return
	}
	limit := 50
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			badRequest(c, "limit must be between 1 and 500")
			return
		}
		limit = n
	}
	events, err := h.events.Recent(c.Request.Context(), c.Param("workflow"), limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}
