package http_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	apphttp "github.com/jhoicas/pos-core/internal/interfaces/http"
	"github.com/jhoicas/pos-core/pkg/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testUserID    = "00000000-0000-0000-0000-000000000001"
	testCompanyID = "00000000-0000-0000-0000-000000000002"
)

func testTokens(t *testing.T) *jwt.Codec {
	t.Helper()
	c, err := jwt.NewCodec("test-secret-key-for-unit-tests", "pos-core-test", time.Hour)
	require.NoError(t, err)
	return c
}

func tokenForRole(t *testing.T, role string) string {
	t.Helper()
	tok, err := testTokens(t).Issue(jwt.Identity{UserID: testUserID, CompanyID: testCompanyID, Role: role})
	require.NoError(t, err)
	return "Bearer " + tok
}

// guarded expone /protected para los roles dados y devuelve la identidad vista por el handler.
func guarded(t *testing.T, roles ...string) *fiber.App {
	app := fiber.New()
	app.Get("/protected", apphttp.AuthMiddleware(testTokens(t)), apphttp.RequireRole(roles...), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"user_id":    apphttp.GetUserID(c),
			"company_id": apphttp.GetCompanyID(c),
			"role":       apphttp.GetRole(c),
		})
	})
	return app
}

func get(t *testing.T, app *fiber.App, auth string) (int, []byte) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func TestAuth_IdentityReachesHandler(t *testing.T) {
	status, body := get(t, guarded(t, "admin", "bodeguero"), tokenForRole(t, "bodeguero"))
	require.Equal(t, http.StatusOK, status, string(body))

	var got map[string]string
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, map[string]string{"user_id": testUserID, "company_id": testCompanyID, "role": "bodeguero"}, got)
}

func TestAuth_Rejections(t *testing.T) {
	wrongIssuer, err := jwt.NewCodec("test-secret-key-for-unit-tests", "otro", time.Hour)
	require.NoError(t, err)
	foreign, err := wrongIssuer.Issue(jwt.Identity{UserID: testUserID, CompanyID: testCompanyID, Role: "admin"})
	require.NoError(t, err)

	cases := []struct {
		name   string
		roles  []string
		auth   string
		status int
		code   string
	}{
		{"sin header", []string{"admin"}, "", http.StatusUnauthorized, "MISSING_TOKEN"},
		{"esquema Basic", []string{"admin"}, "Basic abc", http.StatusUnauthorized, "INVALID_TOKEN"},
		{"bearer vacío", []string{"admin"}, "Bearer   ", http.StatusUnauthorized, "INVALID_TOKEN"},
		{"token malformado", []string{"admin"}, "Bearer token.invalido.aqui", http.StatusUnauthorized, "INVALID_TOKEN"},
		{"otro emisor", []string{"admin"}, "Bearer " + foreign, http.StatusUnauthorized, "INVALID_TOKEN"},
		{"sin rol", []string{"admin"}, tokenForRole(t, ""), http.StatusUnauthorized, "MISSING_ROLE"},
		{"vendedor en ruta admin", []string{"admin"}, tokenForRole(t, "vendedor"), http.StatusForbidden, "FORBIDDEN"},
		{"bodeguero en ruta de ventas", []string{"admin", "vendedor"}, tokenForRole(t, "bodeguero"), http.StatusForbidden, "FORBIDDEN"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := get(t, guarded(t, tc.roles...), tc.auth)
			assert.Equal(t, tc.status, status)
			assert.Contains(t, string(body), tc.code)
		})
	}
}
