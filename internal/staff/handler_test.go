package staff

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"qrmenu-backend/internal/auth"
	"qrmenu-backend/internal/database"
	"qrmenu-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

const secret = "test-secret-that-is-long-enough-1234"

func setup(t *testing.T) (*fiber.App, models.Restaurant) {
	t.Helper()
	db, err := database.OpenMemory(t.Name())
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	prev := database.DB
	database.DB = db
	t.Cleanup(func() { database.DB = prev })

	r := models.Restaurant{Name: "Blue Orchid", Slug: "blue-orchid"}
	db.Create(&r)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(auth.CtxSessionKey, &auth.Session{Kind: auth.KindOwner, SubjectID: "owner", RestaurantID: r.ID, Role: models.RoleOwner})
		c.Locals(auth.CtxRestaurantIDKey, r.ID)
		return c.Next()
	})
	app.Get("/staff", ListStaffHandler())
	app.Post("/staff", CreateStaffHandler())
	app.Put("/staff/:id", UpdateStaffHandler())
	app.Delete("/staff/:id", DeleteStaffHandler())
	return app, r
}

func do(t *testing.T, app *fiber.App, method, path, body string) (int, []byte) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, data
}

func TestCreateStaff(t *testing.T) {
	app, r := setup(t)

	code, data := do(t, app, http.MethodPost, "/staff", `{"name":"Ravi","email":"Ravi@Blue.test","password":"secret1","role":"kitchen"}`)
	if code != http.StatusCreated {
		t.Fatalf("create: %d %s", code, data)
	}
	var member models.Staff
	json.Unmarshal(data, &member)
	if !member.Active || member.Email != "ravi@blue.test" || member.RestaurantID != r.ID {
		t.Fatalf("unexpected member %+v", member)
	}
	if strings.Contains(string(data), "password") {
		t.Fatalf("password hash leaked: %s", data)
	}

	if code, _ := do(t, app, http.MethodPost, "/staff", `{"name":"Ravi 2","email":"ravi@blue.test","password":"secret1","role":"waiter"}`); code != http.StatusConflict {
		t.Fatalf("duplicate email: expected 409, got %d", code)
	}
	if code, _ := do(t, app, http.MethodPost, "/staff", `{"name":"Boss","email":"boss@blue.test","password":"secret1","role":"owner"}`); code != http.StatusBadRequest {
		t.Fatalf("owner role: expected 400, got %d", code)
	}

	code, data = do(t, app, http.MethodPost, "/staff", `{"name":"Meera","email":"meera@blue.test","password":"secret1","role":"cashier","active":false}`)
	if code != http.StatusCreated {
		t.Fatalf("create inactive: %d %s", code, data)
	}
	json.Unmarshal(data, &member)
	if member.Active {
		t.Fatal("explicit inactive flag must be kept")
	}
}

func TestDeactivatedStaffLosesSession(t *testing.T) {
	app, _ := setup(t)

	_, data := do(t, app, http.MethodPost, "/staff", `{"name":"Ravi","email":"ravi@blue.test","password":"secret1","role":"kitchen"}`)
	var member models.Staff
	json.Unmarshal(data, &member)

	token, err := auth.GenerateToken(secret, auth.JWTCustomClaims{
		Kind:         auth.KindStaff,
		SubjectID:    member.ID,
		RestaurantID: member.RestaurantID,
		Role:         member.Role,
	}, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := auth.Authenticate(secret, token); err != nil {
		t.Fatalf("active member must authenticate: %v", err)
	}

	if code, data := do(t, app, http.MethodPut, "/staff/"+member.ID, `{"active":false}`); code != http.StatusOK {
		t.Fatalf("deactivate: %d %s", code, data)
	}
	if _, err := auth.Authenticate(secret, token); !errors.Is(err, auth.ErrInactiveStaff) {
		t.Fatalf("expected ErrInactiveStaff, got %v", err)
	}

	if code, _ := do(t, app, http.MethodDelete, "/staff/"+member.ID, ""); code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", code)
	}
	if _, err := auth.Authenticate(secret, token); !errors.Is(err, auth.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken after delete, got %v", err)
	}
}

func TestStaffIsTenantScoped(t *testing.T) {
	app, _ := setup(t)
	other := models.Restaurant{Name: "Red Lotus", Slug: "red-lotus"}
	database.DB.Create(&other)
	foreign := models.Staff{RestaurantID: other.ID, Name: "Chef", Email: "chef@red.test", PasswordHash: "x", Role: models.RoleKitchen, Active: true}
	database.DB.Create(&foreign)

	if code, _ := do(t, app, http.MethodPut, "/staff/"+foreign.ID, `{"active":false}`); code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", code)
	}
	_, data := do(t, app, http.MethodGet, "/staff", "")
	var list []models.Staff
	json.Unmarshal(data, &list)
	if len(list) != 0 {
		t.Fatalf("listing leaked foreign staff: %s", data)
	}
}
