package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/captionfoundry/internal/db"
	"github.com/captionfoundry/internal/handler"
	"github.com/captionfoundry/internal/router"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type e2eSuite struct {
	client  httpClient
	baseURL string
	gdb     *gorm.DB
	dataset db.Dataset
	files   []db.TrackedFile
}

type httpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type localClient struct {
	handler http.Handler
}

func (c *localClient) Do(req *http.Request) (*http.Response, error) {
	w := httptest.NewRecorder()
	c.handler.ServeHTTP(w, req)
	return w.Result(), nil
}

func TestE2E_CaptionWorkflow(t *testing.T) {
	suite := newE2ESuite(t)

	var setID string
	t.Run("create caption set", func(t *testing.T) {
		body := suite.doJSON(t, http.MethodPost, "/api/datasets/"+suite.dataset.ID+"/caption-sets",
			map[string]any{"name": "natural v1", "style": "natural"}, http.StatusCreated)
		setID = body["id"].(string)
	})

	t.Run("import and write captions", func(t *testing.T) {
		body := suite.doJSON(t, http.MethodPost, "/api/caption-sets/"+setID+"/import", nil, http.StatusOK)
		if body["imported"] != float64(1) {
			t.Fatalf("expected one imported caption, got %v", body["imported"])
		}

		body = suite.doJSON(t, http.MethodPost, "/api/caption-sets/"+setID+"/batch", map[string]any{
			"captions": []map[string]any{
				{"file_id": suite.files[1].ID, "text": "a dog", "source": "generated", "quality_score": 0.9},
				{"file_id": "missing", "text": "orphan"},
			},
		}, http.StatusOK)
		if body["created"] != float64(1) || len(body["errors"].([]any)) != 1 {
			t.Fatalf("unexpected batch result: %v", body)
		}

		set := suite.doJSON(t, http.MethodGet, "/api/caption-sets/"+setID, nil, http.StatusOK)
		if set["caption_count"] != float64(2) {
			t.Fatalf("expected caption_count=2, got %v", set["caption_count"])
		}
		if set["can_rollback_bulk_edit"] != false {
			t.Fatalf("expected no bulk edit to roll back yet")
		}
	})

	operations := map[string]any{
		"operations": []map[string]any{
			{"operation_type": "prepend", "text": "A photo of "},
			{"operation_type": "trim"},
		},
	}

	t.Run("bulk edit", func(t *testing.T) {
		preview := suite.doJSON(t, http.MethodPost, "/api/caption-sets/"+setID+"/bulk-edit-preview", operations, http.StatusOK)
		if preview["affected_captions"] != float64(2) {
			t.Fatalf("expected 2 affected captions, got %v", preview["affected_captions"])
		}
		if preview["operation_summary"] != "Prepend 'A photo of '; Trim whitespace" {
			t.Fatalf("unexpected summary %v", preview["operation_summary"])
		}

		result := suite.doJSON(t, http.MethodPost, "/api/caption-sets/"+setID+"/bulk-edit-apply", operations, http.StatusOK)
		if result["updated_count"] != preview["affected_captions"] {
			t.Fatalf("apply diverged from preview: %v vs %v", result, preview)
		}

		file := suite.doJSON(t, http.MethodGet, "/api/caption-sets/"+setID+"/files/"+suite.files[0].ID, nil, http.StatusOK)
		caption := file["caption"].(map[string]any)
		if caption["text"] != "A photo of a cat" {
			t.Fatalf("unexpected caption text %v", caption["text"])
		}
	})

	t.Run("bulk rollback", func(t *testing.T) {
		preview := suite.doJSON(t, http.MethodPost, "/api/caption-sets/"+setID+"/bulk-rollback-preview", nil, http.StatusOK)
		if preview["rollbackable_count"] != float64(2) {
			t.Fatalf("expected 2 rollbackable captions, got %v", preview["rollbackable_count"])
		}

		result := suite.doJSON(t, http.MethodPost, "/api/caption-sets/"+setID+"/bulk-rollback-apply", nil, http.StatusOK)
		if result["rolled_back_count"] != float64(2) {
			t.Fatalf("expected 2 rolled back captions, got %v", result["rolled_back_count"])
		}
	})

	t.Run("single caption history and rollback", func(t *testing.T) {
		file := suite.doJSON(t, http.MethodGet, "/api/caption-sets/"+setID+"/files/"+suite.files[0].ID, nil, http.StatusOK)
		captionID := file["caption"].(map[string]any)["id"].(string)
		if text := file["caption"].(map[string]any)["text"]; text != "a cat" {
			t.Fatalf("expected bulk rollback to restore text, got %v", text)
		}

		history := suite.doJSON(t, http.MethodGet, "/api/captions/"+captionID+"/history", nil, http.StatusOK)
		versions := history["versions"].([]any)
		if len(versions) != 2 {
			t.Fatalf("expected 2 versions, got %d", len(versions))
		}
		newest := versions[0].(map[string]any)
		if newest["operation"] != "bulk_rollback" {
			t.Fatalf("expected newest version to be bulk_rollback, got %v", newest["operation"])
		}

		// 回滚到批量回滚前的状态，即重新应用批量编辑的结果
		restored := suite.doJSON(t, http.MethodPost, fmt.Sprintf("/api/captions/%s/rollback/%s", captionID, newest["id"]), nil, http.StatusOK)
		if restored["text"] != "A photo of a cat" {
			t.Fatalf("unexpected restored text %v", restored["text"])
		}

		suite.doJSON(t, http.MethodPost, "/api/captions/"+captionID+"/rollback/missing", nil, http.StatusNotFound)
	})

	t.Run("invalid operations are rejected", func(t *testing.T) {
		suite.doJSON(t, http.MethodPost, "/api/caption-sets/"+setID+"/bulk-edit-apply", map[string]any{
			"operations": []map[string]any{{"operation_type": "case_convert", "case_type": "kebab"}},
		}, http.StatusBadRequest)
		suite.doJSON(t, http.MethodPost, "/api/caption-sets/"+setID+"/bulk-edit-apply", map[string]any{
			"operations": []map[string]any{},
		}, http.StatusBadRequest)
	})

	t.Run("delete caption set", func(t *testing.T) {
		suite.doJSON(t, http.MethodDelete, "/api/caption-sets/"+setID, nil, http.StatusOK)
		suite.doJSON(t, http.MethodGet, "/api/caption-sets/"+setID, nil, http.StatusNotFound)

		var versions int64
		if err := suite.gdb.Model(&db.CaptionVersion{}).Count(&versions).Error; err != nil {
			t.Fatalf("count versions: %v", err)
		}
		if versions != 0 {
			t.Fatalf("expected versions to be purged, got %d", versions)
		}
	})
}

func newE2ESuite(t *testing.T) *e2eSuite {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:e2e-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := db.Open(dsn, logger.Silent)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close(gdb) })

	dataset := db.Dataset{Name: "Portraits", Slug: "portraits"}
	if err := gdb.Create(&dataset).Error; err != nil {
		t.Fatalf("failed to seed dataset: %v", err)
	}

	imported := "a cat"
	files := []db.TrackedFile{
		{Filename: "cat.png", RelativePath: "cat.png", ImportedCaption: &imported, Exists: true},
		{Filename: "dog.png", RelativePath: "dog.png", Exists: true},
	}
	if err := gdb.Create(&files).Error; err != nil {
		t.Fatalf("failed to seed files: %v", err)
	}
	for i, file := range files {
		link := db.DatasetFile{DatasetID: dataset.ID, FileID: file.ID, OrderIndex: i}
		if err := gdb.Create(&link).Error; err != nil {
			t.Fatalf("failed to link file: %v", err)
		}
	}

	engine := router.SetupRouter(handler.NewAPI(gdb, nil), nil)
	return &e2eSuite{
		client:  &localClient{handler: engine},
		baseURL: "http://example.test",
		gdb:     gdb,
		dataset: dataset,
		files:   files,
	}
}

func (s *e2eSuite) doJSON(t *testing.T, method, path string, payload any, wantStatus int) map[string]any {
	t.Helper()

	var body io.Reader = http.NoBody
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to encode payload: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, s.baseURL+path, body)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response: %v", err)
	}
	if resp.StatusCode != wantStatus {
		t.Fatalf("%s %s: expected status %d, got %d: %s", method, path, wantStatus, resp.StatusCode, raw)
	}

	decoded := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("failed to decode response %q: %v", raw, err)
		}
	}
	return decoded
}
