package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supportchat/internal/adapter/api"
	"supportchat/internal/adapter/api/handler"
	"supportchat/internal/adapter/api/router"
	"supportchat/internal/adapter/repository"
	"supportchat/internal/realtime"
	"supportchat/internal/usecase"
	"supportchat/pkg/response"
)

func newTestServer(t *testing.T) (*echo.Echo, *realtime.ConversationStore) {
	t.Helper()

	convRepo := repository.NewMemoryConversationRepository()
	stateRepo := repository.NewMemoryStateRepository()
	profiles := repository.NewMemoryProfileRepository()

	store := realtime.NewConversationStore(convRepo)
	presence := realtime.NewPresenceTracker(stateRepo, time.Minute, time.Minute)
	typing := realtime.NewTypingSignal(stateRepo)
	adminChannel := realtime.NewAdminChannel(stateRepo, time.Minute, time.Minute)

	chatUseCase := usecase.NewChatUseCase(store, presence, typing, adminChannel, "Welcome!")
	inboxUseCase := usecase.NewInboxUseCase(store, presence, typing, adminChannel, profiles)

	e := echo.New()
	e.Validator = api.NewValidator()
	router.SetupChatRouter(e, handler.NewChatHandler(chatUseCase))
	router.SetupInboxRouter(e, handler.NewInboxHandler(inboxUseCase))

	return e, store
}

func doJSON(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestSendAndGetMessages(t *testing.T) {
	e, _ := newTestServer(t)

	rec := doJSON(e, http.MethodPost, "/v1/conversations/u1/messages", `{"text":"hello"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created response.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.True(t, created.Success)

	rec = doJSON(e, http.MethodGet, "/v1/conversations/u1/messages", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"hello"`)
	assert.Contains(t, rec.Body.String(), `"sender":"user"`)
}

func TestSendMessageValidation(t *testing.T) {
	e, _ := newTestServer(t)

	rec := doJSON(e, http.MethodPost, "/v1/conversations/u1/messages", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION_ERROR")

	rec = doJSON(e, http.MethodPost, "/v1/conversations/u1/messages", `{"text":"   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "BAD_REQUEST")
}

func TestMarkReadEndpoint(t *testing.T) {
	e, _ := newTestServer(t)

	rec := doJSON(e, http.MethodPost, "/v1/conversations/u1/messages", `{"text":"anyone?"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(e, http.MethodPut, "/v1/conversations/u1/read", `{"role":"admin"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"marked":1`)

	// Nothing left unread; structurally a no-op.
	rec = doJSON(e, http.MethodPut, "/v1/conversations/u1/read", `{"role":"admin"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"marked":0`)

	rec = doJSON(e, http.MethodPut, "/v1/conversations/u1/read", `{"role":"moderator"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPresenceAndAdminStatusEndpoints(t *testing.T) {
	e, _ := newTestServer(t)

	rec := doJSON(e, http.MethodGet, "/v1/presence/u1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(e, http.MethodGet, "/v1/admin-channel/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "offline")
}

func TestAdminInboxEndpoints(t *testing.T) {
	e, _ := newTestServer(t)

	rec := doJSON(e, http.MethodPost, "/v1/conversations/u1/messages", `{"text":"help please"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(e, http.MethodGet, "/v1/admin/inbox", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"user_id":"u1"`)
	assert.Contains(t, rec.Body.String(), `"unread_count":1`)
	assert.Contains(t, rec.Body.String(), "Unknown user")

	rec = doJSON(e, http.MethodPost, "/v1/admin/conversations/u1/messages", `{"text":"on it"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"display_name":"Support"`)

	rec = doJSON(e, http.MethodPut, "/v1/admin/conversations/u1/read", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"marked":1`)
}
