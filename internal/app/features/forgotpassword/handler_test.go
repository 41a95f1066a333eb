package forgotpassword_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/pharmausage/internal/app/features/forgotpassword"
	"github.com/dalemusser/pharmausage/internal/app/store/passwordreset"
	userstore "github.com/dalemusser/pharmausage/internal/app/store/users"
	"github.com/dalemusser/pharmausage/internal/app/system/mailer"
	"github.com/dalemusser/pharmausage/internal/app/system/ratelimit"
	"github.com/dalemusser/pharmausage/internal/domain/models"
	"github.com/dalemusser/pharmausage/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type captureSender struct {
	mu   sync.Mutex
	sent []mailer.Email
}

func (c *captureSender) Send(_ context.Context, msg mailer.Email) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
	return nil
}

func (c *captureSender) messages() []mailer.Email {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]mailer.Email(nil), c.sent...)
}

var tokenRE = regexp.MustCompile(`token=([0-9a-f]{24}\.[0-9a-f-]+)`)

func tokenFrom(t *testing.T, msg mailer.Email) string {
	t.Helper()
	m := tokenRE.FindStringSubmatch(msg.TextBody)
	if m == nil {
		t.Fatalf("no reset link in email body: %q", msg.TextBody)
	}
	return m[1]
}

type env struct {
	handler  *forgotpassword.Handler
	fixtures *testutil.Fixtures
	users    *userstore.Store
	mail     *captureSender
}

func newEnv(t *testing.T, limiter *ratelimit.Limiter) env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	mail := &captureSender{}
	users := userstore.New(db)
	h := forgotpassword.NewHandler(users, passwordreset.New(db, time.Hour), mail, nil, limiter,
		"https://usage.example.com/", zap.NewNop())
	return env{handler: h, fixtures: testutil.NewFixtures(t, db), users: users, mail: mail}
}

func post(h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h(rec, testutil.NewJSONRequest("POST", "/forgot-password", body))
	return rec
}

func TestHandleRequest_KnownUserGetsEmail(t *testing.T) {
	e := newEnv(t, nil)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	e.fixtures.CreateUser(ctx, "Corner Pharmacy", "corner@example.com", models.RolePharmacy, "old-pass")

	rec := post(e.handler.HandleRequest, `{"email":" Corner@example.com"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected status %d, got %d", http.StatusAccepted, rec.Code)
	}

	sent := e.mail.messages()
	if len(sent) != 1 {
		t.Fatalf("expected 1 email, got %d", len(sent))
	}
	if sent[0].To != "corner@example.com" {
		t.Errorf("To = %q", sent[0].To)
	}
	if !strings.Contains(sent[0].TextBody, "https://usage.example.com/reset-password?token=") {
		t.Errorf("reset link missing base URL: %q", sent[0].TextBody)
	}
	if !strings.Contains(sent[0].TextBody, "1 hour") {
		t.Errorf("expiry missing from body: %q", sent[0].TextBody)
	}
}

func TestHandleRequest_UnknownAndDisabledLookIdentical(t *testing.T) {
	e := newEnv(t, nil)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	off := e.fixtures.CreateUser(ctx, "Closed", "closed@example.com", models.RolePharmacy, "pw")
	e.fixtures.DisableUser(ctx, off.ID)

	for _, email := range []string{"nobody@example.com", "closed@example.com"} {
		rec := post(e.handler.HandleRequest, `{"email":"`+email+`"}`)
		if rec.Code != http.StatusAccepted {
			t.Errorf("%s: expected status %d, got %d", email, http.StatusAccepted, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), forgotpassword.MsgAccepted) {
			t.Errorf("%s: body %q", email, rec.Body.String())
		}
	}
	if n := len(e.mail.messages()); n != 0 {
		t.Errorf("expected no email, got %d", n)
	}
}

func TestHandleRequest_MalformedEmail(t *testing.T) {
	e := newEnv(t, nil)

	rec := post(e.handler.HandleRequest, `{"email":"not-an-email"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestHandleRequest_FormBody(t *testing.T) {
	e := newEnv(t, nil)

	req := httptest.NewRequest("POST", "/forgot-password", strings.NewReader(url.Values{"email": {"x@example.com"}}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	e.handler.HandleRequest(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Errorf("expected status %d, got %d", http.StatusAccepted, rec.Code)
	}
}

func TestHandleRequest_RateLimitedPerIP(t *testing.T) {
	limiter := ratelimit.New(1, time.Minute)
	defer limiter.Stop()
	e := newEnv(t, limiter)

	if rec := post(e.handler.HandleRequest, `{"email":"a@example.com"}`); rec.Code != http.StatusAccepted {
		t.Fatalf("first request: expected 202, got %d", rec.Code)
	}
	if rec := post(e.handler.HandleRequest, `{"email":"b@example.com"}`); rec.Code != http.StatusTooManyRequests {
		t.Errorf("second request: expected 429, got %d", rec.Code)
	}
}

func TestHandleReset_SetsPasswordOnce(t *testing.T) {
	e := newEnv(t, nil)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := e.fixtures.CreateUser(ctx, "Corner", "corner@example.com", models.RolePharmacy, "old-pass")
	post(e.handler.HandleRequest, `{"email":"corner@example.com"}`)
	token := tokenFrom(t, e.mail.messages()[0])

	body := `{"token":"` + token + `","password":"new-pass-1"}`
	if rec := post(e.handler.HandleReset, body); rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	got, err := e.users.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !userstore.CheckPassword(got, "new-pass-1") {
		t.Error("new password should verify")
	}
	if userstore.CheckPassword(got, "old-pass") {
		t.Error("old password should no longer verify")
	}

	rec := post(e.handler.HandleReset, body)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("reused token: expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
	if !strings.Contains(rec.Body.String(), forgotpassword.MsgInvalidToken) {
		t.Errorf("reused token: body %q", rec.Body.String())
	}
}

// flakyUsers fails the first password write.
type flakyUsers struct {
	*userstore.Store
	failed bool
}

func (f *flakyUsers) SetPassword(ctx context.Context, id primitive.ObjectID, password string) error {
	if !f.failed {
		f.failed = true
		return errors.New("write conflict")
	}
	return f.Store.SetPassword(ctx, id, password)
}

func TestHandleReset_FailedWriteKeepsToken(t *testing.T) {
	e := newEnv(t, nil)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := e.fixtures.CreateUser(ctx, "Corner", "corner@example.com", models.RolePharmacy, "old-pass")
	post(e.handler.HandleRequest, `{"email":"corner@example.com"}`)
	token := tokenFrom(t, e.mail.messages()[0])
	e.handler.Users = &flakyUsers{Store: e.users}

	body := `{"token":"` + token + `","password":"new-pass-1"}`
	if rec := post(e.handler.HandleReset, body); rec.Code != http.StatusInternalServerError {
		t.Fatalf("failed write: expected status %d, got %d", http.StatusInternalServerError, rec.Code)
	}
	if rec := post(e.handler.HandleReset, body); rec.Code != http.StatusOK {
		t.Fatalf("retry with same token: expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	got, err := e.users.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !userstore.CheckPassword(got, "new-pass-1") {
		t.Error("new password should verify after retry")
	}
	if rec := post(e.handler.HandleReset, body); rec.Code != http.StatusBadRequest {
		t.Errorf("token after success: expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestHandleReset_Rejects(t *testing.T) {
	e := newEnv(t, nil)

	tests := []struct {
		name string
		body string
	}{
		{"missing token", `{"password":"long-enough"}`},
		{"short password", `{"token":"abc.def","password":"123"}`},
		{"garbage token", `{"token":"abc.def","password":"long-enough"}`},
		{"unknown token", `{"token":"` + "64b7f0c2a1b2c3d4e5f60718" + `.00000000-0000-0000-0000-000000000000","password":"long-enough"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := post(e.handler.HandleReset, tt.body); rec.Code != http.StatusBadRequest {
				t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
			}
		})
	}
}
