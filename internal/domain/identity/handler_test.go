package identity

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/bloodbank/bloodbank/internal/platform/apperr"
	"github.com/bloodbank/bloodbank/internal/platform/auth"
	"github.com/bloodbank/bloodbank/pkg/pagination"
)

func newTestHandler() (*Handler, *echo.Echo) {
	svc, _ := newTestService()
	return NewHandler(svc), echo.New()
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func asCaller(req *http.Request, u *User) *http.Request {
	return req.WithContext(auth.WithPrincipal(req.Context(), auth.Principal{UserID: u.ID.String(), Role: u.Role}))
}

func TestHandler_Register(t *testing.T) {
	h, e := newTestHandler()
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/api/auth/register",
		`{"email":"new@example.com","password":"secret1","role":"hospital","firstName":"City","lastName":"General"}`), rec)

	if err := h.Register(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	var resp TokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Msg != "User registered successfully" || resp.Token == "" {
		t.Errorf("unexpected response %+v", resp)
	}
	p, err := testIssuer.Verify(resp.Token)
	if err != nil || p.Role != auth.RoleHospital {
		t.Errorf("expected hospital token, got %+v err=%v", p, err)
	}
}

func TestHandler_Register_Privileged(t *testing.T) {
	h, e := newTestHandler()
	c := e.NewContext(jsonRequest(http.MethodPost, "/api/auth/register",
		`{"email":"evil@example.com","password":"secret1","role":"admin"}`), httptest.NewRecorder())

	err := h.Register(c)
	if apperr.KindOf(err) != apperr.KindForbidden {
		t.Errorf("expected Forbidden, got %v", err)
	}
}

func TestHandler_Register_MalformedBody(t *testing.T) {
	h, e := newTestHandler()
	c := e.NewContext(jsonRequest(http.MethodPost, "/api/auth/register", `{"email":`), httptest.NewRecorder())
	if err := h.Register(c); apperr.KindOf(err) != apperr.KindBadRequest {
		t.Errorf("expected BadRequest, got %v", err)
	}
}

func TestHandler_Login(t *testing.T) {
	h, e := newTestHandler()
	mustRegister(t, h.svc, "login@example.com", "donor")

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/api/auth/login", `{"email":"login@example.com","password":"secret1"}`), rec)
	if err := h.Login(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"msg":"Logged in successfully"`) {
		t.Errorf("unexpected response %d %s", rec.Code, rec.Body.String())
	}

	c = e.NewContext(jsonRequest(http.MethodPost, "/api/auth/login", `{"email":"login@example.com","password":"nope"}`), httptest.NewRecorder())
	if err := h.Login(c); apperr.KindOf(err) != apperr.KindBadRequest {
		t.Errorf("expected BadRequest, got %v", err)
	}
}

func TestHandler_GetProfile_HidesPassword(t *testing.T) {
	h, e := newTestHandler()
	u := mustRegister(t, h.svc, "me@example.com", "donor")

	rec := httptest.NewRecorder()
	c := e.NewContext(asCaller(httptest.NewRequest(http.MethodGet, "/api/profile/me", nil), u), rec)
	if err := h.GetProfile(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body := rec.Body.String()
	if strings.Contains(body, "password") || strings.Contains(body, "$2a$") {
		t.Errorf("password hash leaked: %s", body)
	}
	var got map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got["_id"] != u.ID.String() || got["email"] != "me@example.com" || got["eligibilityStatus"] != "Unknown" {
		t.Errorf("unexpected profile %v", got)
	}
}

func TestHandler_GetProfile_Unauthenticated(t *testing.T) {
	h, e := newTestHandler()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/profile/me", nil), httptest.NewRecorder())
	if err := h.GetProfile(c); apperr.KindOf(err) != apperr.KindUnauthorized {
		t.Errorf("expected Unauthorized, got %v", err)
	}
}

func TestHandler_UpdateProfile(t *testing.T) {
	h, e := newTestHandler()
	u := mustRegister(t, h.svc, "upd@example.com", "doctor")

	rec := httptest.NewRecorder()
	req := asCaller(jsonRequest(http.MethodPut, "/api/profile/me", `{"firstName":"Dana","address":{"city":"Reno"}}`), u)
	if err := h.UpdateProfile(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp UserResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Msg != "Profile updated successfully" || resp.User.FirstName != "Dana" || resp.User.Address.City != "Reno" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestHandler_UpdateEligibility(t *testing.T) {
	h, e := newTestHandler()
	u := mustRegister(t, h.svc, "elig@example.com", "donor")

	rec := httptest.NewRecorder()
	req := asCaller(jsonRequest(http.MethodPut, "/api/profile/eligibility",
		`{"bloodType":"A+","medicalHistory":{"hasChronicIllness":true}}`), u)
	if err := h.UpdateEligibility(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp UserResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.User.EligibilityStatus != EligibilityDeferred {
		t.Errorf("expected Deferred, got %q", resp.User.EligibilityStatus)
	}
}

func TestHandler_ListUsers(t *testing.T) {
	h, e := newTestHandler()
	mustRegister(t, h.svc, "d1@example.com", "donor")
	mustRegister(t, h.svc, "h1@example.com", "hospital")

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/users?role=hospital", nil), rec)
	if err := h.ListUsers(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var users []User
	if err := json.Unmarshal(rec.Body.Bytes(), &users); err != nil {
		t.Fatal(err)
	}
	if len(users) != 1 || users[0].Email != "h1@example.com" {
		t.Errorf("unexpected users %+v", users)
	}
	if rec.Header().Get(pagination.TotalCountHeader) != "1" {
		t.Errorf("expected total header 1, got %q", rec.Header().Get(pagination.TotalCountHeader))
	}

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/api/users?role=surgeon", nil), rec)
	if err := h.ListUsers(c); apperr.KindOf(err) != apperr.KindBadRequest {
		t.Errorf("expected BadRequest for unknown role, got %v", err)
	}
}

func TestHandler_ListUsers_EmptyIsArray(t *testing.T) {
	h, e := newTestHandler()
	rec := httptest.NewRecorder()
	if err := h.ListUsers(e.NewContext(httptest.NewRequest(http.MethodGet, "/api/users", nil), rec)); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("expected empty array, got %s", rec.Body.String())
	}
}

func TestHandler_CreateUser(t *testing.T) {
	h, e := newTestHandler()
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/api/users",
		`{"email":"sup@example.com","password":"secret1","role":"supervisor"}`), rec)
	if err := h.CreateUser(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated || !strings.Contains(rec.Body.String(), `"role":"supervisor"`) {
		t.Errorf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
}

func TestHandler_Routes(t *testing.T) {
	h, e := newTestHandler()
	e.HTTPErrorHandler = apperr.HTTPErrorHandler(zerolog.Nop())
	h.RegisterRoutes(e.Group("/api"), auth.Authenticate(testIssuer), nil)
	donor := mustRegister(t, h.svc, "route@example.com", "donor")
	token, err := testIssuer.Issue(donor.ID.String(), donor.Role)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"profile without token", http.MethodGet, "/api/profile/me", "", http.StatusUnauthorized},
		{"profile with token", http.MethodGet, "/api/profile/me", token, http.StatusOK},
		{"users as donor", http.MethodGet, "/api/users", token, http.StatusForbidden},
		{"create user as donor", http.MethodPost, "/api/users", token, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := jsonRequest(tt.method, tt.path, `{}`)
			if tt.token != "" {
				req.Header.Set(auth.TokenHeader, tt.token)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}
