package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"suvidha-go/internal/eligibility"
	"suvidha-go/internal/middleware"
	"suvidha-go/internal/model"
	"suvidha-go/internal/repository"
	"suvidha-go/internal/service"
	"suvidha-go/internal/testutil"
	"suvidha-go/pkg/apperr"
	"suvidha-go/pkg/tasks"
	"suvidha-go/pkg/token"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type echoChat struct {
	citizens []string
}

func (e *echoChat) HandleMessage(_ context.Context, conversationID, text, citizenID string) (*service.ChatReply, error) {
	e.citizens = append(e.citizens, citizenID)
	if conversationID == "forbidden" {
		return nil, apperr.New(apperr.CodeForbidden, "You do not have access to this conversation")
	}
	return &service.ChatReply{MessageID: "m-1", Content: "echo: " + text}, nil
}

type recordingDispatcher struct {
	tasks []tasks.KnowledgeIngestTask
}

func (d *recordingDispatcher) Dispatch(_ context.Context, task tasks.KnowledgeIngestTask) error {
	d.tasks = append(d.tasks, task)
	return nil
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func do(t *testing.T, r http.Handler, method, path, bearer string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	out := map[string]any{}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func TestChatRoutes(t *testing.T) {
	jwtManager := token.NewJWTManager("secret", 1)
	citizenToken, err := jwtManager.GenerateToken("c-7", token.RoleCitizen)
	require.NoError(t, err)

	db := testutil.NewDB(t)
	chat := &echoChat{}
	conversations := NewConversationHandler(service.NewConversationService(repository.NewConversationRepository(db, nil, 20, 0)))
	chatHandler := NewChatHandler(chat, jwtManager)

	r := gin.New()
	g := r.Group("/api/v1/chat", middleware.OptionalCitizen(jwtManager))
	g.POST("/conversation", conversations.CreateConversation)
	g.POST("/message", chatHandler.SendMessage)
	g.GET("/history/:conversationId", conversations.GetHistory)
	g.GET("/ws", chatHandler.Socket)

	t.Run("creating a conversation returns its id", func(t *testing.T) {
		w, body := do(t, r, http.MethodPost, "/api/v1/chat/conversation", citizenToken, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, true, body["success"])
		assert.True(t, strings.HasPrefix(body["conversationId"].(string), "conv-"))
		assert.Equal(t, "c-7", body["citizenId"])

		id := body["conversationId"].(string)
		w, body = do(t, r, http.MethodGet, "/api/v1/chat/history/"+id, citizenToken, nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, true, body["success"])

		w, body = do(t, r, http.MethodGet, "/api/v1/chat/history/"+id, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, false, body["success"])
	})

	t.Run("message replies carry the chat shape", func(t *testing.T) {
		w, body := do(t, r, http.MethodPost, "/api/v1/chat/message", "", ChatMessageRequest{ConversationID: "conv-1", Message: "hi"})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, "echo: hi", body["response"])
		assert.Equal(t, "m-1", body["messageId"])
		assert.Equal(t, false, body["requiresAction"])
	})

	t.Run("missing fields are rejected", func(t *testing.T) {
		w, body := do(t, r, http.MethodPost, "/api/v1/chat/message", "", map[string]string{"message": "hi"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, false, body["success"])
	})

	t.Run("service errors map to statuses", func(t *testing.T) {
		w, body := do(t, r, http.MethodPost, "/api/v1/chat/message", citizenToken, ChatMessageRequest{ConversationID: "forbidden", Message: "hi"})
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "You do not have access to this conversation", body["error"])
	})

	t.Run("websocket frames mirror the POST reply", func(t *testing.T) {
		srv := httptest.NewServer(r)
		defer srv.Close()

		url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/chat/ws?token=" + citizenToken
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		defer conn.Close()

		require.NoError(t, conn.WriteJSON(ChatMessageRequest{ConversationID: "conv-ws", Message: "over socket"}))
		var reply map[string]any
		require.NoError(t, conn.ReadJSON(&reply))
		assert.Equal(t, true, reply["success"])
		assert.Equal(t, "echo: over socket", reply["response"])
		assert.Equal(t, "c-7", chat.citizens[len(chat.citizens)-1])

		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
		require.NoError(t, conn.ReadJSON(&reply))
		assert.Equal(t, false, reply["success"])
	})
}

func TestSchemeRoutes(t *testing.T) {
	jwtManager := token.NewJWTManager("secret", 1)
	db := testutil.NewDB(t)

	citizen := model.Citizen{FullName: "Ravi", MobileNumber: "9000000001"}
	require.NoError(t, db.Create(&citizen).Error)
	citizenToken, err := jwtManager.GenerateToken(citizen.ID, token.RoleCitizen)
	require.NoError(t, err)

	scheme := model.Scheme{Title: "Senior Pension", Department: model.DepartmentMunicipal, IsActive: true}
	require.NoError(t, db.Create(&scheme).Error)
	criterion := model.EligibilityCriterion{SchemeID: scheme.ID, QuestionText: "Are you above 60?", QuestionType: string(eligibility.TypeYesNo), Weightage: 10, Order: 1}
	require.NoError(t, db.Create(&criterion).Error)

	schemes := NewSchemeHandler(service.NewSchemeService(repository.NewSchemeRepository(db), repository.NewCitizenRepository(db), eligibility.Evaluator{}))
	r := gin.New()
	r.GET("/api/v1/schemes/:schemeId", middleware.OptionalCitizen(jwtManager), schemes.GetScheme)
	r.POST("/api/v1/schemes/:schemeId/check-eligibility", middleware.RequireCitizen(jwtManager), schemes.CheckEligibility)

	w, _ := do(t, r, http.MethodGet, "/api/v1/schemes/"+scheme.ID, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, r, http.MethodGet, "/api/v1/schemes/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = do(t, r, http.MethodPost, "/api/v1/schemes/"+scheme.ID+"/check-eligibility", "", map[string]any{"answers": map[string]any{}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	adminToken, err := jwtManager.GenerateToken("admin-1", token.RoleAdmin)
	require.NoError(t, err)
	req := CheckEligibilityRequest{Answers: eligibility.Answers{criterion.ID: "YES"}, SaveToProfile: true}
	w, _ = do(t, r, http.MethodPost, "/api/v1/schemes/"+scheme.ID+"/check-eligibility", adminToken, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req.SaveToProfile = false
	w, _ = do(t, r, http.MethodPost, "/api/v1/schemes/"+scheme.ID+"/check-eligibility", citizenToken, req)
	require.Equal(t, http.StatusOK, w.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	var report service.EligibilityReport
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.True(t, report.Eligible)
	assert.Equal(t, "100.00", report.Percentage)
}

func TestAdminAndIntegrationRoutes(t *testing.T) {
	jwtManager := token.NewJWTManager("secret", 1)
	adminToken, err := jwtManager.GenerateToken("admin-1", token.RoleAdmin)
	require.NoError(t, err)
	citizenToken, err := jwtManager.GenerateToken("c-1", token.RoleCitizen)
	require.NoError(t, err)

	db := testutil.NewDB(t)
	apiKeys := service.NewAPIKeyService(repository.NewAPIKeyRepository(db))
	dispatcher := &recordingDispatcher{}
	admin := NewAdminHandler(dispatcher, nil, apiKeys)

	r := gin.New()
	g := r.Group("/api/v1/admin", middleware.Authenticate(jwtManager), middleware.RequireAdmin())
	g.POST("/knowledge/rebuild", admin.RebuildKnowledge)
	g.POST("/knowledge/snapshots", admin.ExportSnapshot)
	g.POST("/api-keys", admin.CreateAPIKey)
	g.DELETE("/api-keys/:id", admin.RevokeAPIKey)

	t.Run("rebuild dispatches a task", func(t *testing.T) {
		w, _ := do(t, r, http.MethodPost, "/api/v1/admin/knowledge/rebuild", adminToken, RebuildRequest{Category: "faq"})
		require.Equal(t, http.StatusOK, w.Code)
		require.Len(t, dispatcher.tasks, 1)
		assert.Equal(t, "faq", dispatcher.tasks[0].Category)
		assert.Equal(t, "admin-1", dispatcher.tasks[0].RequestedBy)

		w, _ = do(t, r, http.MethodPost, "/api/v1/admin/knowledge/rebuild", adminToken, RebuildRequest{Category: "weather"})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w, _ = do(t, r, http.MethodPost, "/api/v1/admin/knowledge/rebuild", citizenToken, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("snapshots need object storage", func(t *testing.T) {
		w, _ := do(t, r, http.MethodPost, "/api/v1/admin/knowledge/snapshots", adminToken, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("issued keys open the integration surface until revoked", func(t *testing.T) {
		w, _ := do(t, r, http.MethodPost, "/api/v1/admin/api-keys", adminToken, CreateAPIKeyRequest{Name: "Gas agency", Department: model.DepartmentGas})
		require.Equal(t, http.StatusOK, w.Code)
		var env envelope
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
		var issued service.IssuedAPIKey
		require.NoError(t, json.Unmarshal(env.Data, &issued))

		knowledge := NewKnowledgeHandler(stubSearch{})
		integration := gin.New()
		integration.GET("/api/v1/integration/knowledge/search", middleware.APIKeyAuth(apiKeys), knowledge.DepartmentSearch)

		search := func() (*httptest.ResponseRecorder, envelope) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/integration/knowledge/search?query=cylinder", nil)
			req.Header.Set(middleware.APIKeyHeader, issued.Key)
			w := httptest.NewRecorder()
			integration.ServeHTTP(w, req)
			var env envelope
			_ = json.Unmarshal(w.Body.Bytes(), &env)
			return w, env
		}

		w, env = search()
		require.Equal(t, http.StatusOK, w.Code)
		var data struct {
			Department string                  `json:"department"`
			Results    []model.KnowledgeResult `json:"results"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &data))
		assert.Equal(t, model.DepartmentGas, data.Department)
		require.Len(t, data.Results, 1)
		assert.Equal(t, model.DepartmentGas, data.Results[0].Department)

		w, _ = do(t, r, http.MethodDelete, "/api/v1/admin/api-keys/"+issued.ID, adminToken, nil)
		require.Equal(t, http.StatusOK, w.Code)
		w, _ = search()
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

// stubSearch 把检索参数回显为一条结果。
type stubSearch struct{}

func (stubSearch) Search(_ context.Context, query string, opts service.SearchOptions) ([]model.KnowledgeResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apperr.New(apperr.CodeInvalidInput, "query is empty")
	}
	return []model.KnowledgeResult{{Title: query, Department: opts.Department, RelevanceScore: 1}}, nil
}

func TestKnowledgeSearchRoute(t *testing.T) {
	r := gin.New()
	r.GET("/api/v1/knowledge/search", NewKnowledgeHandler(stubSearch{}).Search)

	w, _ := do(t, r, http.MethodGet, "/api/v1/knowledge/search?query=water&topK=100", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, body := do(t, r, http.MethodGet, "/api/v1/knowledge/search", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "query is empty", body["message"])
}
