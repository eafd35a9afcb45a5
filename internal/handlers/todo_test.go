package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ya55en/pact-showcase/internal/model"
	"github.com/ya55en/pact-showcase/internal/repo"
	"github.com/ya55en/pact-showcase/internal/service"
	"github.com/ya55en/pact-showcase/internal/storage"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T) (*gin.Engine, *service.TodoService) {
	t.Helper()

	ctx := context.Background()
	db, err := storage.Open(ctx, storage.Options{Driver: storage.DriverSQLite, DSN: storage.MemoryDSN})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := storage.Migrate(ctx, db, storage.DriverSQLite, nil); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	svc := service.NewTodoService(repo.NewStore(db), nil)

	r := gin.New()
	r.NoRoute(NotFound)
	h := NewTodoHandler(svc, nil)
	r.GET("/todos", h.ListItems)
	r.GET("/todos/:id", h.GetItem)
	r.GET("/groups", h.ListGroups)
	r.GET("/groups/:id", h.GetGroup)
	return r, svc
}

func do(t *testing.T, r http.Handler, path string, out any) int {
	t.Helper()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	if out != nil {
		if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
			t.Fatalf("GET %s: decode %q: %v", path, w.Body.String(), err)
		}
	}
	return w.Code
}

func TestListAndGet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r, svc := newTestRouter(t)

	group, err := svc.CreateGroup(ctx, model.Fields{"name": "Daily", "comment": "Daily todos"})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	item, err := svc.CreateItem(ctx, model.Fields{"title": "Buy bread", "group": group})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	if _, err := svc.CreateItem(ctx, model.Fields{"title": "Loose"}); err != nil {
		t.Fatalf("create item: %v", err)
	}

	var items []map[string]any
	if code := do(t, r, "/todos", &items); code != http.StatusOK {
		t.Fatalf("GET /todos = %d", code)
	}
	if len(items) != 2 {
		t.Fatalf("items = %v", items)
	}
	if items[0]["title"] != "Buy bread" || items[0]["group_id"] != float64(group.ID) {
		t.Fatalf("first item = %v", items[0])
	}
	if v, ok := items[1]["group_id"]; !ok || v != nil {
		t.Fatalf("loose group_id = %v (present %v), want null", v, ok)
	}
	if _, ok := items[0]["group"]; ok {
		t.Fatal("relation serialized")
	}

	var one map[string]any
	if code := do(t, r, "/todos/1", &one); code != http.StatusOK {
		t.Fatalf("GET /todos/1 = %d", code)
	}
	if one["id"] != float64(item.ID) || one["description"] != nil {
		t.Fatalf("item = %v", one)
	}

	var groups []map[string]any
	if code := do(t, r, "/groups", &groups); code != http.StatusOK || len(groups) != 1 {
		t.Fatalf("GET /groups = %d %v", code, groups)
	}
	var g map[string]any
	if code := do(t, r, "/groups/1", &g); code != http.StatusOK {
		t.Fatalf("GET /groups/1 = %d", code)
	}
	if g["name"] != "Daily" || g["comment"] != "Daily todos" {
		t.Fatalf("group = %v", g)
	}
	if _, ok := g["items"]; ok {
		t.Fatal("relation serialized")
	}
}

func TestEmptyListsAreArrays(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)
	for _, path := range []string{"/todos", "/groups"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK || w.Body.String() != "[]" {
			t.Fatalf("GET %s = %d %q, want 200 []", path, w.Code, w.Body.String())
		}
	}
}

func TestNotFoundHasDetail(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)
	for _, path := range []string{"/todos/999", "/groups/999", "/todos/abc", "/groups/0", "/nowhere"} {
		var body map[string]string
		if code := do(t, r, path, &body); code != http.StatusNotFound {
			t.Fatalf("GET %s = %d, want 404", path, code)
		}
		if body["detail"] == "" {
			t.Fatalf("GET %s body = %v, want detail", path, body)
		}
	}
}

func TestInternalErrorHidesCause(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db, err := storage.Open(ctx, storage.Options{Driver: storage.DriverSQLite, DSN: storage.MemoryDSN})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	// No migrations: every query fails.
	t.Cleanup(func() { _ = db.Close() })
	h := NewTodoHandler(service.NewTodoService(repo.NewStore(db), nil), nil)

	r := gin.New()
	r.GET("/groups", h.ListGroups)
	var body map[string]string
	if code := do(t, r, "/groups", &body); code != http.StatusInternalServerError {
		t.Fatalf("code = %d, want 500", code)
	}
	if body["detail"] != MsgInternal {
		t.Fatalf("detail = %q", body["detail"])
	}
}

func TestRecoveryAnswersJSON(t *testing.T) {
	t.Parallel()

	r := gin.New()
	r.Use(gin.CustomRecovery(Recovery(slogDiscard())))
	r.GET("/boom", func(*gin.Context) { panic("secret state") })

	var body map[string]string
	if code := do(t, r, "/boom", &body); code != http.StatusInternalServerError {
		t.Fatalf("code = %d, want 500", code)
	}
	if body["detail"] != MsgInternal {
		t.Fatalf("detail = %q", body["detail"])
	}
}

func slogDiscard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
