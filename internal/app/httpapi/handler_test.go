package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	app "github.com/assogest/assogest/internal/app"
	"github.com/assogest/assogest/internal/app/services/auth"
	"github.com/assogest/assogest/internal/logging"
)

// newTestHandler boots an in-memory application with one direction-level
// account and returns the routed handler plus a logged-in token.
func newTestHandler(t *testing.T) (http.Handler, *app.Application, string) {
	t.Helper()

	application, err := app.New(app.Stores{}, app.Options{JWTSecret: "test-secret"}, logging.Nop())
	if err != nil {
		t.Fatalf("new application: %v", err)
	}
	if err := application.Start(context.Background()); err != nil {
		t.Fatalf("start application: %v", err)
	}
	t.Cleanup(func() { _ = application.Stop(context.Background()) })

	if _, err := application.Auth.CreateUser(context.Background(), auth.CreateUserInput{
		Email:    "direction@asso.fr",
		Password: "secret123",
		Nom:      "Direction",
		Role:     "direction",
	}); err != nil {
		t.Fatalf("create user: %v", err)
	}

	handler := NewHandler(application, Config{RequestsPerSecond: 100, Burst: 100}, logging.Nop())
	token := loginAs(t, handler, "direction@asso.fr", "secret123")
	return handler, application, token
}

func loginAs(t *testing.T, handler http.Handler, email, password string) string {
	t.Helper()
	resp := do(t, handler, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email":    email,
		"password": password,
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("login status %d: %s", resp.Code, resp.Body.String())
	}
	var body struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal login: %v", err)
	}
	if body.Token == "" {
		t.Fatal("login returned no token")
	}
	return body.Token
}

// do runs one request through the handler. A nil body sends no payload.
func do(t *testing.T, handler http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, resp *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &m); err != nil {
		t.Fatalf("unmarshal response %q: %v", resp.Body.String(), err)
	}
	return m
}

func idOf(t *testing.T, m map[string]any) int64 {
	t.Helper()
	raw, ok := m["id"].(float64)
	if !ok {
		t.Fatalf("response has no numeric id: %v", m)
	}
	return int64(raw)
}

func TestHandlerLifecycle(t *testing.T) {
	handler, _, token := newTestHandler(t)

	resp := do(t, handler, http.MethodGet, "/healthz", "", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("healthz status: %d", resp.Code)
	}

	resp = do(t, handler, http.MethodPost, "/api/budget/subventions", token, map[string]any{
		"nom":       "CAF 2026",
		"financeur": "CAF",
		"annee":     2026,
		"montant":   12000,
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("create subvention status %d: %s", resp.Code, resp.Body.String())
	}
	subID := idOf(t, decode(t, resp))

	resp = do(t, handler, http.MethodPost, fmt.Sprintf("/api/budget/subventions/%d/lignes", subID), token, map[string]any{
		"intitule":      "Alimentation",
		"montant_prevu": 4000,
		"nature":        "charge",
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("create ligne status %d: %s", resp.Code, resp.Body.String())
	}
	ligneID := idOf(t, decode(t, resp))

	resp = do(t, handler, http.MethodPost, "/api/budget/depenses", token, map[string]any{
		"ligne_budget_id": ligneID,
		"libelle":         "Courses du mois",
		"montant":         250,
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("create depense status %d: %s", resp.Code, resp.Body.String())
	}

	// a ligne with recorded spending cannot be deleted
	resp = do(t, handler, http.MethodDelete, fmt.Sprintf("/api/budget/lignes/%d", ligneID), token, nil)
	if resp.Code != http.StatusConflict {
		t.Fatalf("delete spent ligne status %d: %s", resp.Code, resp.Body.String())
	}

	resp = do(t, handler, http.MethodGet, "/api/budget/synthese?exercice=2026", token, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("synthese status %d: %s", resp.Code, resp.Body.String())
	}
	synthese := decode(t, resp)
	subs, ok := synthese["subventions"].([]any)
	if !ok || len(subs) != 1 {
		t.Fatalf("expected one subvention in synthese, got %v", synthese["subventions"])
	}

	resp = do(t, handler, http.MethodGet, fmt.Sprintf("/api/budget/subventions/%d", subID), token, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("get subvention status: %d", resp.Code)
	}
	resp = do(t, handler, http.MethodGet, "/api/budget/subventions/9999", token, nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("missing subvention status %d: %s", resp.Code, resp.Body.String())
	}
}

func TestHandlerAuthAndPermissions(t *testing.T) {
	handler, application, _ := newTestHandler(t)

	resp := do(t, handler, http.MethodGet, "/api/participants", "", nil)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status: %d", resp.Code)
	}

	if _, err := application.Auth.CreateUser(context.Background(), auth.CreateUserInput{
		Email:    "resp@asso.fr",
		Password: "secret123",
		Nom:      "Responsable",
		Role:     "responsable_secteur",
		Secteur:  "jeunesse",
	}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	token := loginAs(t, handler, "resp@asso.fr", "secret123")

	resp = do(t, handler, http.MethodGet, "/api/participants", token, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("participants status %d: %s", resp.Code, resp.Body.String())
	}

	resp = do(t, handler, http.MethodGet, "/api/admin/users", token, nil)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("admin without permission status: %d", resp.Code)
	}

	// the launcher reflects the same gates
	resp = do(t, handler, http.MethodGet, "/api/launcher", token, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("launcher status: %d", resp.Code)
	}
	var tiles []struct {
		Code    string `json:"code"`
		Allowed bool   `json:"allowed"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &tiles); err != nil {
		t.Fatalf("unmarshal launcher: %v", err)
	}
	byCode := make(map[string]bool, len(tiles))
	for _, tile := range tiles {
		byCode[tile.Code] = tile.Allowed
	}
	if !byCode["participants"] {
		t.Fatal("responsable should enter participants")
	}
	if byCode["admin"] {
		t.Fatal("responsable should not enter admin")
	}
}

func TestKioskFlow(t *testing.T) {
	handler, _, token := newTestHandler(t)

	resp := do(t, handler, http.MethodPost, "/api/activite/ateliers", token, map[string]any{
		"nom":     "Cuisine",
		"secteur": "jeunesse",
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("create atelier status %d: %s", resp.Code, resp.Body.String())
	}
	atelierID := idOf(t, decode(t, resp))

	resp = do(t, handler, http.MethodPost, "/api/activite/sessions", token, map[string]any{
		"atelier_id":   atelierID,
		"date_session": "2026-03-14T00:00:00Z",
		"heure_debut":  "14:00",
		"heure_fin":    "16:00",
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("create session status %d: %s", resp.Code, resp.Body.String())
	}
	sessionID := idOf(t, decode(t, resp))

	resp = do(t, handler, http.MethodPost, "/api/participants", token, map[string]any{
		"nom":    "Martin",
		"prenom": "Luc",
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("create participant status %d: %s", resp.Code, resp.Body.String())
	}
	participantID := idOf(t, decode(t, resp))

	resp = do(t, handler, http.MethodPost, fmt.Sprintf("/api/activite/sessions/%d/kiosk/open", sessionID), token, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("open kiosk status %d: %s", resp.Code, resp.Body.String())
	}
	access := decode(t, resp)
	kioskToken, _ := access["token"].(string)
	pin, _ := access["pin"].(string)
	if len(kioskToken) != 64 || len(pin) != 6 {
		t.Fatalf("unexpected kiosk credentials: token %q pin %q", kioskToken, pin)
	}

	// device endpoints carry no user session
	resp = do(t, handler, http.MethodGet, "/api/kiosk/"+kioskToken, "", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("kiosk info status %d: %s", resp.Code, resp.Body.String())
	}
	info := decode(t, resp)
	if open, _ := info["kiosk_open"].(bool); !open {
		t.Fatal("kiosk should report open")
	}
	if _, leaked := info["kiosk_pin"]; leaked {
		t.Fatal("kiosk info must not expose the pin")
	}

	resp = do(t, handler, http.MethodGet, "/api/kiosk/"+kioskToken+"/participants?q=Mar", "", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("kiosk search status %d: %s", resp.Code, resp.Body.String())
	}

	resp = do(t, handler, http.MethodPost, "/api/kiosk/"+kioskToken+"/presences", "", map[string]any{
		"participant_id": participantID,
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("kiosk sign-in status %d: %s", resp.Code, resp.Body.String())
	}
	presence := decode(t, resp)
	if presence["mode"] != "kiosk" {
		t.Fatalf("expected kiosk mode, got %v", presence["mode"])
	}

	// signing in twice is a conflict
	resp = do(t, handler, http.MethodPost, "/api/kiosk/"+kioskToken+"/presences", "", map[string]any{
		"participant_id": participantID,
	})
	if resp.Code != http.StatusConflict {
		t.Fatalf("duplicate sign-in status %d: %s", resp.Code, resp.Body.String())
	}

	// the staff sheet shows the sign-in
	resp = do(t, handler, http.MethodGet, fmt.Sprintf("/api/activite/sessions/%d/sheet", sessionID), token, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("sheet status %d: %s", resp.Code, resp.Body.String())
	}
	var sheet []map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &sheet); err != nil {
		t.Fatalf("unmarshal sheet: %v", err)
	}
	if len(sheet) != 1 || sheet[0]["nom"] != "Martin" {
		t.Fatalf("unexpected sheet: %v", sheet)
	}

	resp = do(t, handler, http.MethodPost, fmt.Sprintf("/api/activite/sessions/%d/kiosk/close", sessionID), token, map[string]any{"pin": "not-it"})
	if resp.Code != http.StatusForbidden {
		t.Fatalf("close with wrong pin status %d: %s", resp.Code, resp.Body.String())
	}
	resp = do(t, handler, http.MethodPost, fmt.Sprintf("/api/activite/sessions/%d/kiosk/close", sessionID), token, map[string]any{"pin": pin})
	if resp.Code != http.StatusOK {
		t.Fatalf("close kiosk status %d: %s", resp.Code, resp.Body.String())
	}

	// the device token dies with the kiosk
	resp = do(t, handler, http.MethodGet, "/api/kiosk/"+kioskToken, "", nil)
	if resp.Code != http.StatusGone {
		t.Fatalf("closed kiosk status %d: %s", resp.Code, resp.Body.String())
	}
}

func TestProjetDetailEngagement(t *testing.T) {
	handler, _, token := newTestHandler(t)

	resp := do(t, handler, http.MethodPost, "/api/projets", token, map[string]any{
		"nom":           "Jardin partagé",
		"budget_global": 1500,
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("create projet status %d: %s", resp.Code, resp.Body.String())
	}
	projetID := idOf(t, decode(t, resp))

	resp = do(t, handler, http.MethodPost, fmt.Sprintf("/api/projets/%d/charges", projetID), token, map[string]any{
		"intitule":      "Graines et terreau",
		"montant_prevu": 500,
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("create charge status %d: %s", resp.Code, resp.Body.String())
	}
	chargeID := idOf(t, decode(t, resp))

	resp = do(t, handler, http.MethodPost, "/api/budget/depenses", token, map[string]any{
		"charge_projet_id": chargeID,
		"libelle":          "Semis de printemps",
		"montant":          120,
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("create depense status %d: %s", resp.Code, resp.Body.String())
	}

	resp = do(t, handler, http.MethodGet, fmt.Sprintf("/api/projets/%d", projetID), token, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("projet detail status %d: %s", resp.Code, resp.Body.String())
	}
	detail := decode(t, resp)
	if got := detail["total_engage"].(float64); got != 120 {
		t.Fatalf("total_engage = %v, want 120", got)
	}
	if got := detail["total_prevu"].(float64); got != 500 {
		t.Fatalf("total_prevu = %v, want 500", got)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	handler, _, token := newTestHandler(t)

	resp := do(t, handler, http.MethodGet, "/api/auth/me", token, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("me status %d: %s", resp.Code, resp.Body.String())
	}
	me := decode(t, resp)
	if perms, ok := me["permissions"].([]any); !ok || len(perms) == 0 {
		t.Fatalf("expected permissions in /auth/me, got %v", me["permissions"])
	}

	resp = do(t, handler, http.MethodPost, "/api/auth/logout", token, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("logout status: %d", resp.Code)
	}

	resp = do(t, handler, http.MethodGet, "/api/auth/me", token, nil)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("me after logout status: %d", resp.Code)
	}
}

func TestAuditTrailRecordsMutations(t *testing.T) {
	handler, _, token := newTestHandler(t)

	resp := do(t, handler, http.MethodPost, "/api/participants", token, map[string]any{"nom": "Durand"})
	if resp.Code != http.StatusCreated {
		t.Fatalf("create participant status %d: %s", resp.Code, resp.Body.String())
	}

	resp = do(t, handler, http.MethodGet, "/api/controle/audit", token, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("audit status %d: %s", resp.Code, resp.Body.String())
	}
	var entries []struct {
		User   string `json:"user"`
		Method string `json:"method"`
		Path   string `json:"path"`
		Status int    `json:"status"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &entries); err != nil {
		t.Fatalf("unmarshal audit: %v", err)
	}
	found := false
	for _, e := range entries {
		if e.Method == http.MethodPost && e.Path == "/api/participants" && e.Status == http.StatusCreated && e.User == "direction@asso.fr" {
			found = true
		}
	}
	if !found {
		t.Fatalf("participant creation missing from audit trail: %v", entries)
	}
}
