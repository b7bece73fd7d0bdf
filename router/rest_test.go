package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"office-chat/attachment"
	"office-chat/chat"
	"office-chat/controller"
	"office-chat/database"
	"office-chat/event"
	"office-chat/membership"
	"office-chat/model"
	"office-chat/presence"
	"office-chat/store/storetest"
	"office-chat/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "rest-test-key"

type recordingPusher struct {
	mu    sync.Mutex
	rooms []string
}

func (p *recordingPusher) Broadcast(string, ...any) {}

func (p *recordingPusher) EmitTo(room string, _ string, _ ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rooms = append(p.rooms, room)
}

type envelope struct {
	Status  string          `json:"status"`
	Message any             `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type fixture struct {
	app    *fiber.App
	pusher *recordingPusher
	alice  model.User
	bob    model.User
	boss   model.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	t.Setenv("JWT_ACCESS_KEY", testKey)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, st := storetest.New(t)
	enforcer, err := database.Casbin(db)
	require.NoError(t, err)

	pusher := &recordingPusher{}
	protocol := chat.NewProtocol(st, presence.NewTracker(), membership.NewRouter(st), pusher, event.Nop{}, logger)
	files := attachment.NewDBStore(db, "/v1/chat/attachments")
	handlers := controller.NewChat(chat.NewService(st, logger), protocol, attachment.NewService(files, logger), files, logger)

	app := fiber.New()
	Rest(app, handlers, enforcer)

	boss := storetest.User(t, db, "boss")
	boss.Role = model.RoleAdmin
	require.NoError(t, db.Save(&boss).Error)

	return &fixture{
		app:    app,
		pusher: pusher,
		alice:  storetest.User(t, db, "alice"),
		bob:    storetest.User(t, db, "bob"),
		boss:   boss,
	}
}

func (f *fixture) call(t *testing.T, user model.User, method, path string, body any) (int, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user.ID != 0 {
		tok, err := utils.GenerateToken(user.ID, user.Role, false, time.Hour, []byte(testKey))
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	return f.do(t, req)
}

func (f *fixture) do(t *testing.T, req *http.Request) (int, envelope) {
	t.Helper()
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && resp.Header.Get("Content-Type") == fiber.MIMEApplicationJSON {
		require.NoError(t, json.Unmarshal(raw, &env))
	} else {
		env.Data = raw
	}
	return resp.StatusCode, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	status, env := f.call(t, model.User{}, "GET", "/health", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "success", env.Status)
}

func TestRequiresToken(t *testing.T) {
	f := newFixture(t)
	status, env := f.call(t, model.User{}, "GET", "/v1/chat/conversations", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "error", env.Status)
}

func TestDirectConversationFlow(t *testing.T) {
	f := newFixture(t)

	status, env := f.call(t, f.alice, "POST", "/v1/chat/dm", fiber.Map{"targetUserId": f.bob.ID})
	require.Equal(t, fiber.StatusOK, status)
	convID := decode[map[string]uint](t, env)["conversationId"]
	require.NotZero(t, convID)

	status, env = f.call(t, f.bob, "POST", "/v1/chat/dm", fiber.Map{"targetUserId": f.alice.ID})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, convID, decode[map[string]uint](t, env)["conversationId"])

	systemPath := fmt.Sprintf("/v1/admin/chat/conversations/%d/system-messages", convID)
	status, _ = f.call(t, f.alice, "POST", systemPath, fiber.Map{"text": "Desk booking opens today"})
	assert.Equal(t, fiber.StatusForbidden, status)

	status, env = f.call(t, f.boss, "POST", systemPath, fiber.Map{"text": "Desk booking opens today"})
	require.Equal(t, fiber.StatusCreated, status)
	assert.True(t, decode[chat.Message](t, env).IsSystem)
	assert.ElementsMatch(t, []string{membership.PersonalRoom(f.alice.ID), membership.PersonalRoom(f.bob.ID)}, f.pusher.rooms)

	status, env = f.call(t, f.bob, "GET", "/v1/chat/conversations", nil)
	require.Equal(t, fiber.StatusOK, status)
	list := decode[[]chat.ConversationSummary](t, env)
	require.Len(t, list, 1)
	assert.Equal(t, "alice", list[0].Name)
	assert.EqualValues(t, 1, list[0].Unread)
	assert.Equal(t, "Desk booking opens today", list[0].LastMessage)

	status, env = f.call(t, f.bob, "GET", fmt.Sprintf("/v1/chat/conversations/%d/messages", convID), nil)
	require.Equal(t, fiber.StatusOK, status)
	history := decode[[]chat.HistoryMessage](t, env)
	require.Len(t, history, 1)
	assert.True(t, history[0].IsSystem)

	status, env = f.call(t, f.bob, "POST", "/v1/chat/mark-read", fiber.Map{"conversationId": convID})
	require.Equal(t, fiber.StatusOK, status)
	result := decode[map[string]any](t, env)
	assert.Equal(t, true, result["success"])
	assert.EqualValues(t, 1, result["updated"])

	status, env = f.call(t, f.bob, "POST", "/v1/chat/mark-read", fiber.Map{"conversationId": convID})
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 0, decode[map[string]any](t, env)["updated"])
}

func TestErrorMapping(t *testing.T) {
	f := newFixture(t)

	status, env := f.call(t, f.alice, "POST", "/v1/chat/dm", fiber.Map{"targetUserId": f.bob.ID})
	require.Equal(t, fiber.StatusOK, status)
	convID := decode[map[string]uint](t, env)["conversationId"]

	cases := []struct {
		name   string
		user   model.User
		method string
		path   string
		body   any
		want   int
	}{
		{"history of foreign conversation", f.boss, "GET", fmt.Sprintf("/v1/chat/conversations/%d/messages", convID), nil, fiber.StatusForbidden},
		{"history with bad id", f.alice, "GET", "/v1/chat/conversations/abc/messages", nil, fiber.StatusBadRequest},
		{"dm without target", f.alice, "POST", "/v1/chat/dm", fiber.Map{}, fiber.StatusBadRequest},
		{"dm with self", f.alice, "POST", "/v1/chat/dm", fiber.Map{"targetUserId": f.alice.ID}, fiber.StatusBadRequest},
		{"dm with unknown user", f.alice, "POST", "/v1/chat/dm", fiber.Map{"targetUserId": 4242}, fiber.StatusNotFound},
		{"mark read without id", f.alice, "POST", "/v1/chat/mark-read", fiber.Map{}, fiber.StatusBadRequest},
		{"mark read foreign", f.boss, "POST", "/v1/chat/mark-read", fiber.Map{"conversationId": convID}, fiber.StatusForbidden},
		{"create with unknown kind", f.alice, "POST", "/v1/chat/conversations", fiber.Map{"name": "x", "kind": "channel"}, fiber.StatusBadRequest},
		{"add member to direct", f.alice, "POST", fmt.Sprintf("/v1/chat/conversations/%d/members", convID), fiber.Map{"userId": f.boss.ID}, fiber.StatusBadRequest},
		{"system message to unknown conversation", f.boss, "POST", "/v1/admin/chat/conversations/4242/system-messages", fiber.Map{"text": "hi"}, fiber.StatusNotFound},
		{"system message without text", f.boss, "POST", fmt.Sprintf("/v1/admin/chat/conversations/%d/system-messages", convID), fiber.Map{}, fiber.StatusBadRequest},
		{"missing attachment", f.alice, "GET", "/v1/chat/attachments/nope", nil, fiber.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, env := f.call(t, tc.user, tc.method, tc.path, tc.body)
			assert.Equal(t, tc.want, status)
			assert.Equal(t, "error", env.Status)
		})
	}
}

func TestGroupConversationAndMembers(t *testing.T) {
	f := newFixture(t)

	status, env := f.call(t, f.alice, "POST", "/v1/chat/conversations", fiber.Map{"name": "Facilities", "kind": "group", "members": []uint{f.bob.ID}})
	require.Equal(t, fiber.StatusCreated, status)
	group := decode[chat.ConversationSummary](t, env)
	assert.Equal(t, "Facilities", group.Name)
	assert.ElementsMatch(t, []uint{f.alice.ID, f.bob.ID}, group.Members)

	membersPath := fmt.Sprintf("/v1/chat/conversations/%d/members", group.ID)
	status, _ = f.call(t, f.bob, "POST", membersPath, fiber.Map{"userId": f.boss.ID})
	assert.Equal(t, fiber.StatusForbidden, status)

	status, env = f.call(t, f.alice, "POST", membersPath, fiber.Map{"userId": f.boss.ID})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, decode[map[string]bool](t, env)["added"])

	status, env = f.call(t, f.alice, "GET", "/v1/chat/users", nil)
	require.Equal(t, fiber.StatusOK, status)
	users := decode[[]chat.UserView](t, env)
	assert.Len(t, users, 2)
}

func TestAttachmentUploadAndDownload(t *testing.T) {
	f := newFixture(t)
	png := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", "seating.png")
	require.NoError(t, err)
	_, err = part.Write(png)
	require.NoError(t, err)
	require.NoError(t, form.Close())

	tok, err := utils.GenerateToken(f.alice.ID, model.RoleEmployee, false, time.Hour, []byte(testKey))
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/v1/chat/attachments", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+tok)
	status, env := f.do(t, req)
	require.Equal(t, fiber.StatusCreated, status)
	stored := decode[attachment.Stored](t, env)
	assert.Equal(t, "image/png", stored.MediaType)

	req = httptest.NewRequest("GET", stored.URL, nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	status, env = f.do(t, req)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, png, []byte(env.Data))

	req = httptest.NewRequest("POST", "/v1/chat/attachments", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	status, _ = f.do(t, req)
	assert.Equal(t, fiber.StatusBadRequest, status)
}
