package bloodbank

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/bloodbank/bloodbank/internal/platform/apperr"
	"github.com/bloodbank/bloodbank/internal/platform/auth"
)

const createBody = `{
	"name": "Downtown",
	"contactEmail": "downtown@example.com",
	"contactPhone": "555-0101",
	"address": {
		"street": "2 Elm St", "city": "Springfield", "state": "IL", "zipCode": "62702", "country": "USA",
		"location": {"type": "Point", "coordinates": [-89.65, 39.78]}
	},
	"charges": {"A+": 100}
}`

func newTestHandler() (*Handler, *echo.Echo) {
	return NewHandler(NewService(newMockBankRepo())), echo.New()
}

func asAdmin(req *http.Request, id uuid.UUID) *http.Request {
	return req.WithContext(auth.WithPrincipal(req.Context(), auth.Principal{UserID: id.String(), Role: auth.RoleAdmin}))
}

func TestHandler_Create(t *testing.T) {
	h, e := newTestHandler()
	admin := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/api/blood-banks", strings.NewReader(createBody))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	if err := h.Create(e.NewContext(asAdmin(req, admin), rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	var resp struct {
		Msg       string                 `json:"msg"`
		BloodBank map[string]interface{} `json:"bloodBank"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Msg != "Blood bank created successfully" {
		t.Errorf("unexpected msg %q", resp.Msg)
	}
	if resp.BloodBank["managedBy"] != admin.String() {
		t.Errorf("expected managedBy %s, got %v", admin, resp.BloodBank["managedBy"])
	}
	addr := resp.BloodBank["address"].(map[string]interface{})
	loc := addr["location"].(map[string]interface{})
	if loc["type"] != "Point" {
		t.Errorf("expected GeoJSON point, got %v", loc)
	}
	charges := resp.BloodBank["charges"].(map[string]interface{})
	if charges["A+"] != 100.0 || charges["O-"] != 0.0 {
		t.Errorf("unexpected charges %v", charges)
	}
}

func TestHandler_Create_Unauthenticated(t *testing.T) {
	h, e := newTestHandler()
	req := httptest.NewRequest(http.MethodPost, "/api/blood-banks", strings.NewReader(createBody))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	err := h.Create(e.NewContext(req, httptest.NewRecorder()))
	if apperr.KindOf(err) != apperr.KindUnauthorized {
		t.Errorf("expected Unauthorized, got %v", err)
	}
}

func TestHandler_ListAndGet(t *testing.T) {
	h, e := newTestHandler()
	b, err := h.svc.Create(httptest.NewRequest(http.MethodGet, "/", nil).Context(), uuid.New(), validRequest("Public", "public@example.com"))
	if err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	if err := h.List(e.NewContext(httptest.NewRequest(http.MethodGet, "/api/blood-banks", nil), rec)); err != nil {
		t.Fatal(err)
	}
	var banks []BloodBank
	if err := json.Unmarshal(rec.Body.Bytes(), &banks); err != nil {
		t.Fatal(err)
	}
	if len(banks) != 1 || banks[0].ID != b.ID {
		t.Errorf("unexpected list %+v", banks)
	}

	rec = httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues(b.ID.String())
	if err := h.Get(c); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(rec.Body.String(), `"name":"Public"`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}

	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")
	if err := h.Get(c); apperr.KindOf(err) != apperr.KindBadRequest {
		t.Errorf("expected BadRequest, got %v", err)
	}
}

func TestHandler_List_Empty(t *testing.T) {
	h, e := newTestHandler()
	rec := httptest.NewRecorder()
	if err := h.List(e.NewContext(httptest.NewRequest(http.MethodGet, "/api/blood-banks", nil), rec)); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("expected [], got %s", rec.Body.String())
	}
}
