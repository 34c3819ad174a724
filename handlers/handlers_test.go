package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"tubescribe/errors"
	"tubescribe/models"
	"tubescribe/services/video"
)

// fakeVideoService scripts the pipeline service for handler tests.
type fakeVideoService struct {
	submitFunc func(ctx context.Context, urls []string) ([]*models.Video, error)
	getFunc    func(ctx context.Context, id int64) (*models.Video, error)
	listFunc   func(ctx context.Context, categoryID int64) ([]*models.Video, error)
	deleteFunc func(ctx context.Context, id int64) error
	statsFunc  func(ctx context.Context) (*models.Stats, error)
}

func (f *fakeVideoService) Submit(ctx context.Context, urls []string) ([]*models.Video, error) {
	return f.submitFunc(ctx, urls)
}

func (f *fakeVideoService) Get(ctx context.Context, id int64) (*models.Video, error) {
	return f.getFunc(ctx, id)
}

func (f *fakeVideoService) List(ctx context.Context, categoryID int64) ([]*models.Video, error) {
	return f.listFunc(ctx, categoryID)
}

func (f *fakeVideoService) Delete(ctx context.Context, id int64) error {
	return f.deleteFunc(ctx, id)
}

func (f *fakeVideoService) Stats(ctx context.Context) (*models.Stats, error) {
	return f.statsFunc(ctx)
}

type fakeCategoryRepo struct {
	mu         sync.Mutex
	nextID     int64
	categories map[int64]*models.Category
}

func newFakeCategoryRepo() *fakeCategoryRepo {
	return &fakeCategoryRepo{categories: make(map[int64]*models.Category)}
}

func (r *fakeCategoryRepo) Create(ctx context.Context, category *models.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	category.ID = r.nextID
	clone := *category
	r.categories[category.ID] = &clone
	return nil
}

func (r *fakeCategoryRepo) Find(ctx context.Context, id int64) (*models.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.categories[id]; ok {
		clone := *c
		return &clone, nil
	}
	return nil, errors.NotFound("fakeCategoryRepo.Find", nil, "category not found")
}

func (r *fakeCategoryRepo) FindByName(ctx context.Context, name string) (*models.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.categories {
		if c.Name == name {
			clone := *c
			return &clone, nil
		}
	}
	return nil, errors.NotFound("fakeCategoryRepo.FindByName", nil, "category not found")
}

func (r *fakeCategoryRepo) List(ctx context.Context) ([]*models.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Category, 0, len(r.categories))
	for _, c := range r.categories {
		clone := *c
		out = append(out, &clone)
	}
	return out, nil
}

func (r *fakeCategoryRepo) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.categories[id]; !ok {
		return errors.NotFound("fakeCategoryRepo.Delete", nil, "category not found")
	}
	delete(r.categories, id)
	return nil
}

func (r *fakeCategoryRepo) Count(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.categories), nil
}

func newTestApp(service video.Service, categories *fakeCategoryRepo) *fiber.App {
	log := logrus.New()
	log.SetOutput(io.Discard)

	app := fiber.New(fiber.Config{
		ErrorHandler: NewErrorHandler(log),
	})

	videoHandler := NewVideoHandler(service, categories)
	categoryHandler := NewCategoryHandler(categories)

	api := app.Group("/api")
	api.Get("/videos", videoHandler.List)
	api.Post("/videos", videoHandler.Submit)
	api.Get("/videos/:id", videoHandler.Get)
	api.Delete("/videos/:id", videoHandler.Delete)
	api.Get("/categories", categoryHandler.List)
	api.Post("/categories", categoryHandler.Create)
	api.Delete("/categories/:id", categoryHandler.Delete)
	api.Get("/stats", videoHandler.Stats)

	return app
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

func doRequest(t *testing.T, app *fiber.App, method, target string, body interface{}) (int, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(buf)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp.StatusCode, env
}

func TestSubmitVideos(t *testing.T) {
	service := &fakeVideoService{
		submitFunc: func(ctx context.Context, urls []string) ([]*models.Video, error) {
			if len(urls) != 2 {
				t.Errorf("expected 2 URLs, got %d", len(urls))
			}
			return []*models.Video{
				{ID: 1, URL: urls[0], Title: "Processing...", Status: models.StatusQueued},
				{ID: 2, URL: urls[1], Title: "Processing...", Status: models.StatusQueued},
			}, nil
		},
	}
	app := newTestApp(service, newFakeCategoryRepo())

	status, env := doRequest(t, app, http.MethodPost, "/api/videos", map[string]interface{}{
		"urls": []string{
			"https://www.youtube.com/watch?v=abc123defgh",
			"https://www.youtube.com/watch?v=xyz987wvuts",
		},
	})

	if status != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, status)
	}
	if !env.Success {
		t.Error("expected success response")
	}

	var videos []*models.VideoResponse
	if err := json.Unmarshal(env.Data, &videos); err != nil {
		t.Fatalf("failed to decode videos: %v", err)
	}
	if len(videos) != 2 {
		t.Fatalf("expected 2 videos, got %d", len(videos))
	}
	if videos[0].Status != models.StatusQueued {
		t.Errorf("expected status %q, got %q", models.StatusQueued, videos[0].Status)
	}
}

func TestSubmitVideos_EmptyBody(t *testing.T) {
	service := &fakeVideoService{
		submitFunc: func(ctx context.Context, urls []string) ([]*models.Video, error) {
			t.Error("service should not be called")
			return nil, nil
		},
	}
	app := newTestApp(service, newFakeCategoryRepo())

	status, env := doRequest(t, app, http.MethodPost, "/api/videos", map[string]interface{}{
		"urls": []string{},
	})

	if status != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, status)
	}
	if env.Success {
		t.Error("expected failure response")
	}
	if env.Error != "No URLs provided" {
		t.Errorf("unexpected error message: %q", env.Error)
	}
}

func TestSubmitVideos_ServiceError(t *testing.T) {
	service := &fakeVideoService{
		submitFunc: func(ctx context.Context, urls []string) ([]*models.Video, error) {
			return nil, errors.InvalidInput("test", nil, "No valid URLs provided")
		},
	}
	app := newTestApp(service, newFakeCategoryRepo())

	status, env := doRequest(t, app, http.MethodPost, "/api/videos", map[string]interface{}{
		"urls": []string{"not-a-url"},
	})

	if status != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, status)
	}
	if env.Error != "No valid URLs provided" {
		t.Errorf("unexpected error message: %q", env.Error)
	}
}

func TestGetVideo(t *testing.T) {
	categories := newFakeCategoryRepo()
	cat := &models.Category{Name: "technology", Color: "#EF4444"}
	if err := categories.Create(context.Background(), cat); err != nil {
		t.Fatal(err)
	}

	service := &fakeVideoService{
		getFunc: func(ctx context.Context, id int64) (*models.Video, error) {
			if id != 42 {
				t.Errorf("expected id 42, got %d", id)
			}
			return &models.Video{
				ID:         42,
				URL:        "https://www.youtube.com/watch?v=abc123defgh",
				Title:      "A Video",
				Status:     models.StatusCompleted,
				Progress:   100,
				CategoryID: &cat.ID,
			}, nil
		},
	}
	app := newTestApp(service, categories)

	status, env := doRequest(t, app, http.MethodGet, "/api/videos/42", nil)

	if status != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, status)
	}

	var v models.VideoResponse
	if err := json.Unmarshal(env.Data, &v); err != nil {
		t.Fatalf("failed to decode video: %v", err)
	}
	if v.ID != 42 {
		t.Errorf("expected id 42, got %d", v.ID)
	}
	if v.Category == nil || v.Category.Name != "technology" {
		t.Errorf("expected resolved category, got %+v", v.Category)
	}
}

func TestGetVideo_NotFound(t *testing.T) {
	service := &fakeVideoService{
		getFunc: func(ctx context.Context, id int64) (*models.Video, error) {
			return nil, errors.NotFound("test", nil, "Video not found")
		},
	}
	app := newTestApp(service, newFakeCategoryRepo())

	status, env := doRequest(t, app, http.MethodGet, "/api/videos/99", nil)

	if status != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, status)
	}
	if env.Error != "Video not found" {
		t.Errorf("unexpected error message: %q", env.Error)
	}
}

func TestGetVideo_InvalidID(t *testing.T) {
	service := &fakeVideoService{
		getFunc: func(ctx context.Context, id int64) (*models.Video, error) {
			t.Error("service should not be called")
			return nil, nil
		},
	}
	app := newTestApp(service, newFakeCategoryRepo())

	status, _ := doRequest(t, app, http.MethodGet, "/api/videos/abc", nil)
	if status != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, status)
	}
}

func TestListVideos_CategoryFilter(t *testing.T) {
	var gotCategoryID int64
	service := &fakeVideoService{
		listFunc: func(ctx context.Context, categoryID int64) ([]*models.Video, error) {
			gotCategoryID = categoryID
			return []*models.Video{}, nil
		},
	}
	app := newTestApp(service, newFakeCategoryRepo())

	status, _ := doRequest(t, app, http.MethodGet, "/api/videos?category_id=7", nil)
	if status != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, status)
	}
	if gotCategoryID != 7 {
		t.Errorf("expected category filter 7, got %d", gotCategoryID)
	}

	status, _ = doRequest(t, app, http.MethodGet, "/api/videos", nil)
	if status != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, status)
	}
	if gotCategoryID != 0 {
		t.Errorf("expected no category filter, got %d", gotCategoryID)
	}
}

func TestDeleteVideo(t *testing.T) {
	var deletedID int64
	service := &fakeVideoService{
		deleteFunc: func(ctx context.Context, id int64) error {
			deletedID = id
			return nil
		},
	}
	app := newTestApp(service, newFakeCategoryRepo())

	status, env := doRequest(t, app, http.MethodDelete, "/api/videos/5", nil)
	if status != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, status)
	}
	if deletedID != 5 {
		t.Errorf("expected delete of id 5, got %d", deletedID)
	}
	if env.Message != "Video deleted successfully" {
		t.Errorf("unexpected message: %q", env.Message)
	}
}

func TestStats(t *testing.T) {
	service := &fakeVideoService{
		statsFunc: func(ctx context.Context) (*models.Stats, error) {
			return &models.Stats{
				TotalVideos:     3,
				CompletedVideos: 2,
				ErrorVideos:     1,
				TotalCategories: 2,
			}, nil
		},
	}
	app := newTestApp(service, newFakeCategoryRepo())

	status, env := doRequest(t, app, http.MethodGet, "/api/stats", nil)
	if status != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, status)
	}

	var stats models.Stats
	if err := json.Unmarshal(env.Data, &stats); err != nil {
		t.Fatalf("failed to decode stats: %v", err)
	}
	if stats.TotalVideos != 3 || stats.CompletedVideos != 2 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestCreateCategory(t *testing.T) {
	categories := newFakeCategoryRepo()
	app := newTestApp(&fakeVideoService{}, categories)

	status, env := doRequest(t, app, http.MethodPost, "/api/categories", map[string]string{
		"name":  "science",
		"color": "#22C55E",
	})
	if status != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, status)
	}

	var created models.CategoryResponse
	if err := json.Unmarshal(env.Data, &created); err != nil {
		t.Fatalf("failed to decode category: %v", err)
	}
	if created.Name != "science" {
		t.Errorf("expected name 'science', got %q", created.Name)
	}

	// Creating the same name again returns the existing category.
	status, env = doRequest(t, app, http.MethodPost, "/api/categories", map[string]string{
		"name": "science",
	})
	if status != http.StatusOK {
		t.Fatalf("expected status %d for existing category, got %d", http.StatusOK, status)
	}

	var existing models.CategoryResponse
	if err := json.Unmarshal(env.Data, &existing); err != nil {
		t.Fatalf("failed to decode category: %v", err)
	}
	if existing.ID != created.ID {
		t.Errorf("expected existing category %d, got %d", created.ID, existing.ID)
	}
}

func TestCreateCategory_MissingName(t *testing.T) {
	app := newTestApp(&fakeVideoService{}, newFakeCategoryRepo())

	status, env := doRequest(t, app, http.MethodPost, "/api/categories", map[string]string{
		"name": "   ",
	})
	if status != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, status)
	}
	if env.Error != "Category name is required" {
		t.Errorf("unexpected error message: %q", env.Error)
	}
}

func TestDeleteCategory_NotFound(t *testing.T) {
	app := newTestApp(&fakeVideoService{}, newFakeCategoryRepo())

	status, _ := doRequest(t, app, http.MethodDelete, "/api/categories/99", nil)
	if status != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, status)
	}
}
