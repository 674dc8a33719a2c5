package qualityprofile

import (
	"bytes"
	stderrors "errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"qprofile/internal/auth"
	"qprofile/internal/constants"
	"qprofile/internal/logger"
	"qprofile/pkg/errors"
)

const (
	maxBackupSize = 10 << 20
	// Room for the multipart or JSON envelope around the document.
	maxRestoreBodySize = maxBackupSize + 1<<20
)

var errBackupTooLarge = errors.ErrValidation.WithMessage("backup exceeds the maximum size of %d bytes", maxBackupSize)

type BaseHandler struct {
	Service Service
	Logger  logger.Logger
}

func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	status := errors.ToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.Logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)
	} else {
		h.Logger.DebugwCtx(c.Request.Context(), "Request rejected", "error", err, "path", c.Request.URL.Path)
	}

	c.JSON(status, errors.ToErrorResponse(err))
}

func (h *BaseHandler) badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
}

type Handler struct {
	BaseHandler
}

func NewHandler(service Service, log logger.Logger) *Handler {
	return &Handler{
		BaseHandler: BaseHandler{
			Service: service,
			Logger:  log,
		},
	}
}

func (h *Handler) RegisterRoutes(router gin.IRouter) {
	api := router.Group("/api/qualityprofiles")
	{
		api.POST("/activate_rule", h.ActivateRule)
		api.POST("/deactivate_rule", h.DeactivateRule)
		api.POST("/activate_rules", h.ActivateRules)
		api.POST("/deactivate_rules", h.DeactivateRules)
		api.GET("/backup", h.Backup)
		api.POST("/restore", h.Restore)
		api.POST("/restore_built_in", h.RestoreBuiltIn)
		api.POST("/delete", h.Delete)
		api.POST("/rename", h.Rename)
		api.POST("/set_default", h.SetDefault)
		api.GET("/default", h.GetDefault)
		api.GET("/active_rules", h.ActiveRules)
	}
}

type ActivateRuleRequest struct {
	ProfileKey string            `json:"profile_key" binding:"required"`
	RuleKey    string            `json:"rule_key" binding:"required"`
	Severity   string            `json:"severity,omitempty"`
	Params     map[string]string `json:"params,omitempty"`
}

type DeactivateRuleRequest struct {
	ProfileKey string `json:"profile_key" binding:"required"`
	RuleKey    string `json:"rule_key" binding:"required"`
}

type BulkRequest struct {
	ProfileKey string    `json:"profile_key" binding:"required"`
	Query      RuleQuery `json:"query"`
	// Severity overrides the rule default for every activated rule.
	Severity string `json:"severity,omitempty"`
}

type RestoreRequest struct {
	Backup       string `json:"backup" binding:"required"`
	Organization string `json:"organization,omitempty"`
}

type ProfileKeyRequest struct {
	ProfileKey string `json:"profile_key" binding:"required"`
}

type RenameRequest struct {
	ProfileKey string `json:"profile_key" binding:"required"`
	Name       string `json:"name" binding:"required"`
}

// ActivateRule godoc
// @Summary      Activate a rule
// @Description  Activate a rule in a quality profile, or update its severity and parameters when already active
// @Tags         quality-profiles
// @Accept       json
// @Produce      json
// @Param        request  body      ActivateRuleRequest  true  "Activation"
// @Success      200      {object}  MutationResult
// @Failure      400      {object}  errors.ErrorResponse
// @Failure      401      {object}  errors.ErrorResponse
// @Failure      403      {object}  errors.ErrorResponse
// @Failure      404      {object}  errors.ErrorResponse
// @Failure      409      {object}  errors.ErrorResponse
// @Router       /qualityprofiles/activate_rule [post]
func (h *Handler) ActivateRule(c *gin.Context) {
	var req ActivateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	activation := RuleActivation{RuleKey: RuleKey(req.RuleKey), Params: req.Params}
	if req.Severity != "" {
		severity, err := ParseSeverity(req.Severity)
		if err != nil {
			h.badRequest(c, err)
			return
		}
		activation.Severity = Some(severity)
	}

	res, err := h.Service.Activate(c.Request.Context(), auth.FromGin(c), req.ProfileKey, activation)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// DeactivateRule godoc
// @Summary      Deactivate a rule
// @Description  Deactivate a rule in a quality profile. Deactivating an inactive rule changes nothing.
// @Tags         quality-profiles
// @Accept       json
// @Produce      json
// @Param        request  body      DeactivateRuleRequest  true  "Active rule"
// @Success      200      {object}  MutationResult
// @Failure      400      {object}  errors.ErrorResponse
// @Failure      401      {object}  errors.ErrorResponse
// @Failure      403      {object}  errors.ErrorResponse
// @Failure      404      {object}  errors.ErrorResponse
// @Router       /qualityprofiles/deactivate_rule [post]
func (h *Handler) DeactivateRule(c *gin.Context) {
	var req DeactivateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	key := NewActiveRuleKey(req.ProfileKey, RuleKey(req.RuleKey))
	res, err := h.Service.Deactivate(c.Request.Context(), auth.FromGin(c), key)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ActivateRules godoc
// @Summary      Bulk activate rules
// @Description  Activate every rule matched by the query. Per-rule failures are counted in the result.
// @Tags         quality-profiles
// @Accept       json
// @Produce      json
// @Param        request  body      BulkRequest  true  "Rule query"
// @Success      200      {object}  BulkChangeResult
// @Failure      400      {object}  errors.ErrorResponse
// @Failure      401      {object}  errors.ErrorResponse
// @Failure      403      {object}  errors.ErrorResponse
// @Failure      404      {object}  errors.ErrorResponse
// @Router       /qualityprofiles/activate_rules [post]
func (h *Handler) ActivateRules(c *gin.Context) {
	var req BulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	severity := None[Severity]()
	if req.Severity != "" {
		sev, err := ParseSeverity(req.Severity)
		if err != nil {
			h.badRequest(c, err)
			return
		}
		severity = Some(sev)
	}

	res, err := h.Service.BulkActivate(c.Request.Context(), auth.FromGin(c), req.Query, req.ProfileKey, severity)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// DeactivateRules godoc
// @Summary      Bulk deactivate rules
// @Description  Deactivate every rule matched by the query. Per-rule failures are counted in the result.
// @Tags         quality-profiles
// @Accept       json
// @Produce      json
// @Param        request  body      BulkRequest  true  "Rule query"
// @Success      200      {object}  BulkChangeResult
// @Failure      400      {object}  errors.ErrorResponse
// @Failure      401      {object}  errors.ErrorResponse
// @Failure      403      {object}  errors.ErrorResponse
// @Failure      404      {object}  errors.ErrorResponse
// @Router       /qualityprofiles/deactivate_rules [post]
func (h *Handler) DeactivateRules(c *gin.Context) {
	var req BulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	res, err := h.Service.BulkDeactivate(c.Request.Context(), auth.FromGin(c), req.Query, req.ProfileKey)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Backup godoc
// @Summary      Back up a profile
// @Description  Export a quality profile and its active rules as XML
// @Tags         quality-profiles
// @Produce      xml
// @Param        profileKey  query     string  true  "Profile key"
// @Success      200         {string}  string
// @Failure      400         {object}  errors.ErrorResponse
// @Failure      404         {object}  errors.ErrorResponse
// @Router       /qualityprofiles/backup [get]
func (h *Handler) Backup(c *gin.Context) {
	profileKey := c.Query("profileKey")
	if profileKey == "" {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithMessage("profileKey is required")))
		return
	}

	var buf bytes.Buffer
	if err := h.Service.Backup(c.Request.Context(), profileKey, &buf); err != nil {
		h.HandleError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+profileKey+`.xml"`)
	c.Data(http.StatusOK, "application/xml; charset=utf-8", buf.Bytes())
}

// Restore godoc
// @Summary      Restore a profile
// @Description  Restore a profile from an XML backup, sent as multipart field "backup" or as JSON
// @Tags         quality-profiles
// @Accept       mpfd
// @Accept       json
// @Produce      json
// @Param        backup        formData  file    false  "Backup file"
// @Param        organization  formData  string  false  "Organization"
// @Success      200           {object}  RestoreResult
// @Failure      400           {object}  errors.ErrorResponse
// @Failure      401           {object}  errors.ErrorResponse
// @Failure      403           {object}  errors.ErrorResponse
// @Router       /qualityprofiles/restore [post]
func (h *Handler) Restore(c *gin.Context) {
	backup, organization, err := h.readBackup(c)
	if err != nil {
		if errors.IsValidation(err) {
			h.HandleError(c, err)
		} else {
			h.badRequest(c, err)
		}
		return
	}
	defer backup.Close()

	res, err := h.Service.Restore(c.Request.Context(), auth.FromGin(c), backup, OptionOf(organization))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// readBackup rejects documents over maxBackupSize instead of truncating them.
func (h *Handler) readBackup(c *gin.Context) (io.ReadCloser, string, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxRestoreBodySize)

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		header, err := c.FormFile("backup")
		if err != nil {
			return nil, "", tooLarge(err)
		}
		if header.Size > maxBackupSize {
			return nil, "", errBackupTooLarge
		}
		file, err := header.Open()
		if err != nil {
			return nil, "", err
		}
		return file, c.PostForm("organization"), nil
	}

	var req RestoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, "", tooLarge(err)
	}
	if len(req.Backup) > maxBackupSize {
		return nil, "", errBackupTooLarge
	}
	return io.NopCloser(strings.NewReader(req.Backup)), req.Organization, nil
}

func tooLarge(err error) error {
	var maxErr *http.MaxBytesError
	if stderrors.As(err, &maxErr) {
		return errBackupTooLarge
	}
	return err
}

// RestoreBuiltIn godoc
// @Summary      Restore built-in profiles
// @Description  Reset the built-in profiles of a language to their shipped definitions
// @Tags         quality-profiles
// @Produce      json
// @Param        language  query     string  true  "Language"
// @Success      200       {object}  MutationResult
// @Failure      400       {object}  errors.ErrorResponse
// @Failure      401       {object}  errors.ErrorResponse
// @Failure      403       {object}  errors.ErrorResponse
// @Failure      404       {object}  errors.ErrorResponse
// @Router       /qualityprofiles/restore_built_in [post]
func (h *Handler) RestoreBuiltIn(c *gin.Context) {
	res, err := h.Service.RestoreBuiltInProfilesForLanguage(c.Request.Context(), auth.FromGin(c), c.Query("language"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Delete godoc
// @Summary      Delete a profile
// @Description  Delete a quality profile. The language default cannot be deleted.
// @Tags         quality-profiles
// @Accept       json
// @Produce      json
// @Param        request  body      ProfileKeyRequest  true  "Profile"
// @Success      200      {object}  MutationResult
// @Failure      401      {object}  errors.ErrorResponse
// @Failure      403      {object}  errors.ErrorResponse
// @Failure      404      {object}  errors.ErrorResponse
// @Failure      409      {object}  errors.ErrorResponse
// @Router       /qualityprofiles/delete [post]
func (h *Handler) Delete(c *gin.Context) {
	var req ProfileKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	res, err := h.Service.Delete(c.Request.Context(), auth.FromGin(c), req.ProfileKey)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Rename godoc
// @Summary      Rename a profile
// @Tags         quality-profiles
// @Accept       json
// @Param        request  body  RenameRequest  true  "New name"
// @Success      204      "No Content"
// @Failure      400      {object}  errors.ErrorResponse
// @Failure      404      {object}  errors.ErrorResponse
// @Failure      409      {object}  errors.ErrorResponse
// @Router       /qualityprofiles/rename [post]
func (h *Handler) Rename(c *gin.Context) {
	var req RenameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	if err := h.Service.Rename(c.Request.Context(), auth.FromGin(c), req.ProfileKey, req.Name); err != nil {
		h.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SetDefault godoc
// @Summary      Set the default profile
// @Description  Make a profile the default of its language, replacing the previous default
// @Tags         quality-profiles
// @Accept       json
// @Param        request  body  ProfileKeyRequest  true  "Profile"
// @Success      204      "No Content"
// @Failure      401      {object}  errors.ErrorResponse
// @Failure      403      {object}  errors.ErrorResponse
// @Failure      404      {object}  errors.ErrorResponse
// @Router       /qualityprofiles/set_default [post]
func (h *Handler) SetDefault(c *gin.Context) {
	var req ProfileKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	if err := h.Service.SetDefault(c.Request.Context(), auth.FromGin(c), req.ProfileKey); err != nil {
		h.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetDefault godoc
// @Summary      Get the default profile
// @Tags         quality-profiles
// @Produce      json
// @Param        language  query     string  true  "Language"
// @Success      200       {object}  Profile
// @Failure      404       {object}  errors.ErrorResponse
// @Router       /qualityprofiles/default [get]
func (h *Handler) GetDefault(c *gin.Context) {
	language := c.Query("language")
	if language == "" {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithMessage("language is required")))
		return
	}

	profile, err := h.Service.GetDefault(c.Request.Context(), language)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	p, ok := profile.Get()
	if !ok {
		h.HandleError(c, errors.ErrNotFound.WithMessage("no default profile for language %q", language))
		return
	}
	c.JSON(http.StatusOK, p)
}

// ActiveRules godoc
// @Summary      Search active rules
// @Description  Query the active rule index of a profile
// @Tags         quality-profiles
// @Produce      json
// @Param        profileKey  query     string  true   "Profile key"
// @Param        severity    query     string  false  "Severity"
// @Param        limit       query     int     false  "Maximum number of results (1-1000)" default(100)
// @Success      200         {array}   ActiveRule
// @Failure      400         {object}  errors.ErrorResponse
// @Failure      503         {object}  errors.ErrorResponse
// @Router       /qualityprofiles/active_rules [get]
func (h *Handler) ActiveRules(c *gin.Context) {
	query := IndexQuery{
		ProfileKey: c.Query("profileKey"),
		Limit:      parseLimit(c.Query("limit")),
	}
	if s := c.Query("severity"); s != "" {
		severity, err := ParseSeverity(s)
		if err != nil {
			h.badRequest(c, err)
			return
		}
		query.Severity = Some(severity)
	}

	rules, err := h.Service.SearchActiveRules(c.Request.Context(), query)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, rules)
}

func parseLimit(limitStr string) int {
	if limitStr == "" {
		return constants.DefaultLimit
	}
	parsed, err := strconv.Atoi(limitStr)
	if err != nil || parsed <= 0 || parsed > constants.MaxLimit {
		return constants.DefaultLimit
	}
	return parsed
}
