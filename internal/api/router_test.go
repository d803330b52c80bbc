package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/trustshare/trustshare/internal/access"
	"github.com/trustshare/trustshare/internal/api/handlers"
	"github.com/trustshare/trustshare/internal/config"
	"github.com/trustshare/trustshare/internal/models"
	"github.com/trustshare/trustshare/internal/notify"
	"github.com/trustshare/trustshare/internal/sharelink"
	"github.com/trustshare/trustshare/internal/storage"
	"github.com/trustshare/trustshare/internal/testutil"
)

const testSecret = "test-secret"

type fixture struct {
	router http.Handler
	db     *gorm.DB
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := config.Config{
		JWTSecret:      testSecret,
		Environment:    "test",
		CorsConfig:     config.CorsConfig(),
		MaxUploadBytes: 100 << 20,
		FrontendURL:    "http://localhost:5173",
		ShareBaseURL:   "http://localhost:5173/share",
	}

	db := testutil.NewDB(t)
	log := testutil.NewLogger()

	blobs, err := storage.NewDiskStore(t.TempDir())
	require.NoError(t, err)

	files := storage.NewService(db, blobs, log)
	notices := notify.NewTracker(db)
	engine := access.NewEngine(db, notices, log, false)
	links := sharelink.NewIssuer(db, log)

	h := handlers.New(cfg, db, files, engine, links, notices, log)
	return &fixture{router: SetupRouter(cfg, h, log), db: db}
}

func (f *fixture) seedUser(t *testing.T, email string) uuid.UUID {
	t.Helper()
	user := models.User{
		ID:       uuid.New(),
		Username: email,
		Email:    email,
		Password: "x",
	}
	require.NoError(t, f.db.Create(&user).Error)
	return user.ID
}

func sessionCookie(t *testing.T, userID uuid.UUID) *http.Cookie {
	t.Helper()
	claims := jwt.MapClaims{
		"userId": userID.String(),
		"exp":    time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return &http.Cookie{Name: "token", Value: token}
}

func (f *fixture) do(t *testing.T, method, path string, body io.Reader, user *uuid.UUID, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(method, path, body)
	if contentType != "" {
		r.Header.Set("Content-Type", contentType)
	}
	if user != nil {
		r.AddCookie(sessionCookie(t, *user))
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, r)
	return w
}

func (f *fixture) doJSON(t *testing.T, method, path string, payload any, user *uuid.UUID) *httptest.ResponseRecorder {
	t.Helper()
	buf, err := json.Marshal(payload)
	require.NoError(t, err)
	return f.do(t, method, path, bytes.NewReader(buf), user, "application/json")
}

func (f *fixture) upload(t *testing.T, user uuid.UUID, name, content string) map[string]any {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	w := f.do(t, http.MethodPost, "/upload", &body, &user, mw.FormDataContentType())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var file map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &file))
	return file
}

func TestUnauthenticatedRequestsRejected(t *testing.T) {
	f := newFixture(t)

	for _, path := range []string{"/files", "/notifications", "/users"} {
		w := f.do(t, http.MethodGet, path, nil, nil, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestHealthIsPublic(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/health", nil, nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSignUpAndLogin(t *testing.T) {
	f := newFixture(t)

	w := f.doJSON(t, http.MethodPost, "/auth/sign-up", map[string]string{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "hunter22",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = f.doJSON(t, http.MethodPost, "/auth/login", map[string]string{
		"username": "alice",
		"password": "hunter22",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, "token", cookies[0].Name)
	assert.NotEmpty(t, cookies[0].Value)
}

func TestLoginBadCredentials(t *testing.T) {
	f := newFixture(t)

	w := f.doJSON(t, http.MethodPost, "/auth/sign-up", map[string]string{
		"username": "bob",
		"email":    "bob@example.com",
		"password": "correct",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = f.doJSON(t, http.MethodPost, "/auth/login", map[string]string{
		"username": "bob",
		"password": "wrong",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// The full product flow: upload, list, share, notification, download with the
// implicit mark-viewed, empty notifications afterwards.
func TestShareLifecycle(t *testing.T) {
	f := newFixture(t)
	alice := f.seedUser(t, "alice@example.com")
	bob := f.seedUser(t, "bob@example.com")

	file := f.upload(t, alice, "doc.pdf", "0123456789")
	fileID := file["_id"].(string)
	assert.Equal(t, "doc.pdf", file["originalName"])
	assert.Equal(t, float64(10), file["size"])

	// Alice sees it in her list.
	w := f.do(t, http.MethodGet, "/files", nil, &alice, "")
	require.Equal(t, http.StatusOK, w.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "doc.pdf", list[0]["originalName"])

	// Bob cannot download yet.
	w = f.do(t, http.MethodGet, "/download/"+fileID, nil, &bob, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Alice shares with Bob.
	w = f.doJSON(t, http.MethodPost, "/share", map[string]any{
		"fileId":  fileID,
		"userIds": []string{bob.String()},
	}, &alice)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Bob has a pending notification.
	w = f.do(t, http.MethodGet, "/notifications", nil, &bob, "")
	require.Equal(t, http.StatusOK, w.Code)
	var notif struct {
		Files []map[string]any `json:"files"`
		Count int              `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &notif))
	require.Equal(t, 1, notif.Count)
	assert.Equal(t, "doc.pdf", notif.Files[0]["originalName"])

	// Bob downloads; this marks the notification viewed.
	w = f.do(t, http.MethodGet, "/download/"+fileID, nil, &bob, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0123456789", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "doc.pdf")

	w = f.do(t, http.MethodGet, "/notifications", nil, &bob, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &notif))
	assert.Zero(t, notif.Count)
}

func TestShareRequiresOwnership(t *testing.T) {
	f := newFixture(t)
	alice := f.seedUser(t, "alice@example.com")
	mallory := f.seedUser(t, "mallory@example.com")

	file := f.upload(t, alice, "secret.txt", "ssh")
	fileID := file["_id"].(string)

	w := f.doJSON(t, http.MethodPost, "/share", map[string]any{
		"fileId":  fileID,
		"userIds": []string{mallory.String()},
	}, &mallory)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestShareLinkFlow(t *testing.T) {
	f := newFixture(t)
	alice := f.seedUser(t, "alice@example.com")
	bob := f.seedUser(t, "bob@example.com")

	file := f.upload(t, alice, "image.png", "pngbytes")
	fileID := file["_id"].(string)

	w := f.doJSON(t, http.MethodPost, "/share-link", map[string]any{
		"fileId": fileID,
	}, &alice)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var linkResp struct {
		Token string `json:"token"`
		URL   string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &linkResp))
	require.NotEmpty(t, linkResp.Token)
	assert.Contains(t, linkResp.URL, linkResp.Token)

	// Bob resolves the link and downloads with the token.
	w = f.do(t, http.MethodGet, "/file-by-link/"+linkResp.Token, nil, &bob, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var meta map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &meta))
	assert.Equal(t, "image.png", meta["originalName"])

	w = f.do(t, http.MethodGet, "/download/"+fileID+"?token="+linkResp.Token, nil, &bob, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pngbytes", w.Body.String())
}

func TestResolveUnknownLink(t *testing.T) {
	f := newFixture(t)
	alice := f.seedUser(t, "alice@example.com")

	w := f.do(t, http.MethodGet, "/file-by-link/definitely-not-a-token", nil, &alice, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExpiredFileIsGoneWithExpiredFlag(t *testing.T) {
	f := newFixture(t)
	alice := f.seedUser(t, "alice@example.com")

	past := time.Now().Add(-time.Minute)
	file := models.File{
		ID:           uuid.New(),
		OwnerID:      alice,
		OriginalName: "lapsed.txt",
		Size:         3,
		BlobKey:      "k",
		ExpiresAt:    &past,
	}
	require.NoError(t, f.db.Create(&file).Error)

	w := f.do(t, http.MethodGet, "/download/"+file.ID.String(), nil, &alice, "")
	require.Equal(t, http.StatusGone, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["expired"])
	assert.NotEmpty(t, body["error"])
}

func TestListUsersExcludesCaller(t *testing.T) {
	f := newFixture(t)
	alice := f.seedUser(t, "alice@example.com")
	f.seedUser(t, "bob@example.com")
	f.seedUser(t, "carol@example.com")

	w := f.do(t, http.MethodGet, "/users", nil, &alice, "")
	require.Equal(t, http.StatusOK, w.Code)

	var users []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &users))
	require.Len(t, users, 2)
	for _, u := range users {
		assert.NotEqual(t, "alice@example.com", u["email"])
		assert.NotEmpty(t, u["_id"])
	}
}

func TestMarkViewedEndpoint(t *testing.T) {
	f := newFixture(t)
	alice := f.seedUser(t, "alice@example.com")
	bob := f.seedUser(t, "bob@example.com")

	file := f.upload(t, alice, "note.md", "hi")
	fileID := file["_id"].(string)

	w := f.doJSON(t, http.MethodPost, "/share", map[string]any{
		"fileId":  fileID,
		"userIds": []string{bob.String()},
	}, &alice)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.doJSON(t, http.MethodPost, "/mark-viewed", map[string]any{
		"fileId": fileID,
	}, &bob)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/notifications", nil, &bob, "")
	var notif struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &notif))
	assert.Zero(t, notif.Count)
}

func TestUploadRejectsMissingFile(t *testing.T) {
	f := newFixture(t)
	alice := f.seedUser(t, "alice@example.com")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("userId", alice.String()))
	require.NoError(t, mw.Close())

	w := f.do(t, http.MethodPost, "/upload", &body, &alice, mw.FormDataContentType())
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadWithExpiry(t *testing.T) {
	f := newFixture(t)
	alice := f.seedUser(t, "alice@example.com")

	expiry := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("expiresAt", expiry))
	part, err := mw.CreateFormFile("file", "temp.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("short-lived"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	w := f.do(t, http.MethodPost, "/upload", &body, &alice, mw.FormDataContentType())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var file map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &file))
	assert.NotNil(t, file["expiresAt"])
}

func TestRevokeShareLinkEndpoint(t *testing.T) {
	f := newFixture(t)
	alice := f.seedUser(t, "alice@example.com")

	file := f.upload(t, alice, "doc.pdf", "0123456789")
	fileID := file["_id"].(string)

	w := f.doJSON(t, http.MethodPost, "/share-link", map[string]any{"fileId": fileID}, &alice)
	require.Equal(t, http.StatusCreated, w.Code)

	var linkResp struct {
		Token  string `json:"token"`
		LinkID string `json:"linkId"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &linkResp))

	w = f.doJSON(t, http.MethodPost, "/share-link/revoke", map[string]any{
		"linkId": linkResp.LinkID,
	}, &alice)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(t, http.MethodGet, "/file-by-link/"+linkResp.Token, nil, &alice, "")
	assert.Equal(t, http.StatusGone, w.Code)
}
