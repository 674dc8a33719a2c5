package qualityprofile

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qprofile/internal/auth"
	"qprofile/internal/config"
	"qprofile/internal/logger"
)

const (
	adminToken  = "admin-token"
	viewerToken = "viewer-token"
)

func newTestRouter(t *testing.T, f *fixture) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	resolver := auth.NewTokenResolver(config.AuthConfig{Tokens: []config.TokenConfig{
		{Token: adminToken, Login: "admin", Capabilities: []string{auth.CapabilityProfileAdmin}},
		{Token: viewerToken, Login: "viewer"},
	}})

	router := gin.New()
	router.Use(auth.Middleware(resolver))
	NewHandler(f.service(), logger.NopLogger()).RegisterRoutes(router)
	return router
}

func doJSON(router http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		_ = json.NewEncoder(&buf).Encode(b)
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHandler_ActivateRule(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(t, f)
	req := ActivateRuleRequest{ProfileKey: strictKey, RuleKey: string(ruleLongMethod), Severity: "BLOCKER", Params: map[string]string{"max": "30"}}

	tests := []struct {
		name       string
		token      string
		body       interface{}
		wantStatus int
		wantCode   string
	}{
		{name: "anonymous", body: req, wantStatus: http.StatusUnauthorized, wantCode: "UNAUTHORIZED"},
		{name: "missing capability", token: viewerToken, body: req, wantStatus: http.StatusForbidden, wantCode: "FORBIDDEN"},
		{name: "invalid json", token: adminToken, body: "{", wantStatus: http.StatusBadRequest, wantCode: "VALIDATION_ERROR"},
		{name: "missing rule key", token: adminToken, body: ActivateRuleRequest{ProfileKey: strictKey}, wantStatus: http.StatusBadRequest, wantCode: "VALIDATION_ERROR"},
		{name: "invalid severity", token: adminToken, body: ActivateRuleRequest{ProfileKey: strictKey, RuleKey: string(ruleLongMethod), Severity: "FATAL"}, wantStatus: http.StatusBadRequest, wantCode: "VALIDATION_ERROR"},
		{name: "unknown profile", token: adminToken, body: ActivateRuleRequest{ProfileKey: "missing", RuleKey: string(ruleLongMethod)}, wantStatus: http.StatusNotFound, wantCode: "NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(router, http.MethodPost, "/api/qualityprofiles/activate_rule", tt.token, tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCode, decodeBody(t, w)["error_code"])
		})
	}
	assert.Equal(t, 0, f.index.Writes())

	w := doJSON(router, http.MethodPost, "/api/qualityprofiles/activate_rule", adminToken, req)
	require.Equal(t, http.StatusOK, w.Code)
	var res MutationResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Len(t, res.Changes, 1)
	assert.Equal(t, ChangeActivated, res.Changes[0].Type)
	assert.False(t, res.IndexStale)

	active := f.activeRules(t, strictKey)
	require.Len(t, active, 1)
	assert.Equal(t, SeverityBlocker, active[0].Severity)
	assert.Equal(t, "30", active[0].Params["max"])
}

func TestHandler_IndexStale(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(t, f)
	f.index.FailWith(errors.New("index unavailable"))

	w := doJSON(router, http.MethodPost, "/api/qualityprofiles/activate_rule", adminToken,
		ActivateRuleRequest{ProfileKey: strictKey, RuleKey: string(ruleLongMethod)})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["index_stale"])
}

func TestHandler_BulkActivateAndDeactivate(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(t, f)

	w := doJSON(router, http.MethodPost, "/api/qualityprofiles/activate_rules", adminToken,
		BulkRequest{ProfileKey: strictKey, Severity: "CRITICAL"})
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, float64(2), body["succeeded"])
	assert.Equal(t, float64(1), body["failed"])

	w = doJSON(router, http.MethodGet, "/api/qualityprofiles/active_rules?profileKey="+strictKey+"&severity=CRITICAL", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var docs []ActiveRule
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &docs))
	assert.Len(t, docs, 2)

	w = doJSON(router, http.MethodPost, "/api/qualityprofiles/deactivate_rules", adminToken,
		BulkRequest{ProfileKey: strictKey, Query: RuleQuery{Tags: []string{"convention"}}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decodeBody(t, w)["succeeded"])

	w = doJSON(router, http.MethodPost, "/api/qualityprofiles/deactivate_rule", adminToken,
		DeactivateRuleRequest{ProfileKey: strictKey, RuleKey: string(ruleLongMethod)})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, f.activeRules(t, strictKey))
}

func TestHandler_ActiveRules_Validation(t *testing.T) {
	router := newTestRouter(t, newFixture(t))

	w := doJSON(router, http.MethodGet, "/api/qualityprofiles/active_rules", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, http.MethodGet, "/api/qualityprofiles/active_rules?profileKey="+strictKey+"&severity=LOUD", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_Backup(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(t, f)
	f.activate(t, sonarWayKey, RuleActivation{RuleKey: ruleLongMethod})

	w := doJSON(router, http.MethodGet, "/api/qualityprofiles/backup?profileKey="+sonarWayKey, "", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/xml")
	assert.Contains(t, w.Header().Get("Content-Disposition"), sonarWayKey+".xml")
	assert.Contains(t, w.Body.String(), "<key>S1234</key>")

	w = doJSON(router, http.MethodGet, "/api/qualityprofiles/backup", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = doJSON(router, http.MethodGet, "/api/qualityprofiles/backup?profileKey=missing", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_RestoreMultipart(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(t, f)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("backup", "sonar-way.xml")
	require.NoError(t, err)
	_, err = part.Write([]byte(sonarWayBackup))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("organization", "acme"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/qualityprofiles/restore", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+adminToken)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	restored := f.profileByName(t, "acme", "Sonar way", "java")
	require.NotNil(t, restored)
	assert.Equal(t, []RuleKey{ruleLongMethod}, ruleKeys(f.activeRules(t, restored.Key)))
}

func TestHandler_RestoreJSON(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(t, f)

	w := doJSON(router, http.MethodPost, "/api/qualityprofiles/restore", adminToken, RestoreRequest{Backup: sonarWayBackup})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []RuleKey{ruleLongMethod}, ruleKeys(f.activeRules(t, sonarWayKey)))

	w = doJSON(router, http.MethodPost, "/api/qualityprofiles/restore", adminToken, RestoreRequest{Backup: "<profile>"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, http.MethodPost, "/api/qualityprofiles/restore", viewerToken, RestoreRequest{Backup: sonarWayBackup})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHandler_RestoreRejectsOversizedBackup(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(t, f)
	oversized := strings.Replace(sonarWayBackup, "<profile>", "<profile><!--"+strings.Repeat("x", maxBackupSize)+"-->", 1)

	t.Run("json", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/api/qualityprofiles/restore", adminToken, RestoreRequest{Backup: oversized})
		require.Equal(t, http.StatusBadRequest, w.Code)

		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "VALIDATION_ERROR", resp["error_code"])
		assert.Contains(t, resp["error"], "maximum size")
	})

	t.Run("multipart", func(t *testing.T) {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		part, err := mw.CreateFormFile("backup", "huge.xml")
		require.NoError(t, err)
		_, err = part.Write([]byte(oversized))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/qualityprofiles/restore", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+adminToken)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "maximum size")
	})

	assert.Empty(t, f.activeRules(t, sonarWayKey))
}

func TestHandler_RestoreBuiltIn(t *testing.T) {
	f := newFixture(t, testBuiltIns()...)
	router := newTestRouter(t, f)

	w := doJSON(router, http.MethodPost, "/api/qualityprofiles/restore_built_in?language=java", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, f.activeRules(t, sonarWayKey), 2)

	w = doJSON(router, http.MethodPost, "/api/qualityprofiles/restore_built_in?language=python", adminToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_ProfileLifecycle(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(t, f)

	w := doJSON(router, http.MethodPost, "/api/qualityprofiles/delete", adminToken, ProfileKeyRequest{ProfileKey: sonarWayKey})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CONFLICT", decodeBody(t, w)["error_code"])

	w = doJSON(router, http.MethodPost, "/api/qualityprofiles/rename", adminToken, RenameRequest{ProfileKey: strictKey, Name: "Very strict"})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(router, http.MethodPost, "/api/qualityprofiles/set_default", adminToken, ProfileKeyRequest{ProfileKey: strictKey})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(router, http.MethodGet, "/api/qualityprofiles/default?language=java", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Very strict", decodeBody(t, w)["name"])

	w = doJSON(router, http.MethodGet, "/api/qualityprofiles/default?language=python", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(router, http.MethodPost, "/api/qualityprofiles/delete", adminToken, ProfileKeyRequest{ProfileKey: sonarWayKey})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, f.profile(t, sonarWayKey))
}

func TestParseLimit(t *testing.T) {
	assert.Equal(t, 100, parseLimit(""))
	assert.Equal(t, 25, parseLimit("25"))
	assert.Equal(t, 100, parseLimit("-1"))
	assert.Equal(t, 100, parseLimit("abc"))
	assert.Equal(t, 100, parseLimit(strings.Repeat("9", 6)))
}
