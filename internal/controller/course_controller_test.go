package controller

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"tutor_market_backend/internal/config"
	"tutor_market_backend/internal/middleware"
	"tutor_market_backend/internal/model"
	"tutor_market_backend/internal/repository"
	"tutor_market_backend/internal/service"
	"tutor_market_backend/internal/util"
	"tutor_market_backend/pkg/database"
	"tutor_market_backend/pkg/locker"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "controller-test-secret"

type testServer struct {
	router  *gin.Engine
	teacher *model.User
	student *model.User
	notify  *service.NotificationService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.InitDB(&config.DatabaseConfig{
		Driver:   "sqlite",
		Path:     "file:" + filepath.Join(t.TempDir(), "api.db") + "?_pragma=busy_timeout(5000)",
		LogLevel: "silent",
	}, true)
	require.NoError(t, err)

	users := repository.NewUserRepository(db)
	teacher := &model.User{Name: "T", Email: "t@example.com", Password: "x", Role: model.Teacher}
	student := &model.User{Name: "S", Email: "s@example.com", Password: "x", Role: model.Student}
	require.NoError(t, users.Create(teacher))
	require.NoError(t, users.Create(student))

	courses := repository.NewCourseRepository(db)
	notify := service.NewNotificationService(repository.NewNotificationRepository(db), nil)
	content := service.NewCourseContentService(db, courses, locker.NewLocalLocker(50*time.Millisecond))
	c := NewCourseController(service.NewCourseService(courses, content, notify))

	t.Cleanup(func() {
		notify.Wait()
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	r := gin.New()
	r.GET("/api/courses/:id", middleware.TryAuthMiddleware(testSecret), c.GetCourse)
	teacherGroup := r.Group("/api/teacher", middleware.AuthMiddleware(testSecret), middleware.RoleMiddleware(model.Teacher))
	teacherGroup.POST("/courses", c.CreateCourse)
	teacherGroup.PUT("/courses/:id", c.UpdateCourse)
	teacherGroup.DELETE("/courses/:id", c.DeleteCourse)

	return &testServer{router: r, teacher: teacher, student: student, notify: notify}
}

func (s *testServer) do(t *testing.T, method, path string, user *model.User, body interface{}) (*httptest.ResponseRecorder, util.Response) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		token, err := util.GenerateJWT(user, testSecret, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var resp util.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func dataMap(t *testing.T, resp util.Response) map[string]interface{} {
	t.Helper()
	m, ok := resp.Data.(map[string]interface{})
	require.True(t, ok, "unexpected data %T", resp.Data)
	return m
}

func quizTopic() gin.H {
	return gin.H{
		"title": "Basics",
		"lessons": []gin.H{
			{"title": "Intro", "type": "lesson", "content": "# Hello"},
			{"title": "Check", "type": "quiz", "quiz": gin.H{
				"questions": []gin.H{
					{"question": "2+2?", "type": "single", "options": []string{"3", "4"}, "correctAnswers": []int{1}},
				},
			}},
		},
	}
}

func (s *testServer) createCourse(t *testing.T) string {
	t.Helper()
	w, resp := s.do(t, http.MethodPost, "/api/teacher/courses", s.teacher, gin.H{
		"title":  "Go 101",
		"topics": []gin.H{quizTopic()},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id, _ := dataMap(t, resp)["id"].(string)
	require.NotEmpty(t, id)
	return id
}

func TestCourseAPIAuth(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(t, http.MethodPost, "/api/teacher/courses", nil, gin.H{"title": "x"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/teacher/courses", s.student, gin.H{"title": "x"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/teacher/courses", s.teacher, gin.H{"description": "no title"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCourseAPICreateAndGet(t *testing.T) {
	s := newTestServer(t)
	id := s.createCourse(t)

	// 草稿对其他人不可见
	w, _ := s.do(t, http.MethodGet, "/api/courses/"+id, nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = s.do(t, http.MethodGet, "/api/courses/"+id, s.student, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, resp := s.do(t, http.MethodGet, "/api/courses/"+id, s.teacher, nil)
	require.Equal(t, http.StatusOK, w.Code)
	topics := dataMap(t, resp)["topics"].([]interface{})
	require.Len(t, topics, 1)
	lessons := topics[0].(map[string]interface{})["lessons"].([]interface{})
	require.Len(t, lessons, 2)
	intro := lessons[0].(map[string]interface{})
	assert.Equal(t, "Intro", intro["title"])
	assert.Contains(t, intro["contentHtml"], "<h1")
	assert.NotNil(t, lessons[1].(map[string]interface{})["quiz"])
}

func TestCourseAPIUpdate(t *testing.T) {
	s := newTestServer(t)
	id := s.createCourse(t)

	t.Run("version conflict", func(t *testing.T) {
		w, _ := s.do(t, http.MethodPut, "/api/teacher/courses/"+id, s.teacher, gin.H{"version": 99})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("invalid question reports field", func(t *testing.T) {
		topic := quizTopic()
		lessons := topic["lessons"].([]gin.H)
		lessons[1]["quiz"] = gin.H{"questions": []gin.H{
			{"question": "pick", "type": "single", "options": []string{"a", "b"}, "correctAnswers": []int{0, 1}},
		}}
		w, resp := s.do(t, http.MethodPut, "/api/teacher/courses/"+id, s.teacher, gin.H{"topics": []gin.H{topic}})
		require.Equal(t, http.StatusBadRequest, w.Code)
		fields := dataMap(t, resp)["fields"].([]interface{})
		require.NotEmpty(t, fields)
		assert.Contains(t, fields[0].(map[string]interface{})["field"], "topics[0].lessons[1].quiz.questions[0]")
	})

	t.Run("other teacher forbidden", func(t *testing.T) {
		other := &model.User{BaseModel: model.BaseModel{ID: s.student.ID + 100}, Role: model.Teacher}
		w, _ := s.do(t, http.MethodPut, "/api/teacher/courses/"+id, other, gin.H{"title": "hijack"})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("replace tree", func(t *testing.T) {
		w, resp := s.do(t, http.MethodPut, "/api/teacher/courses/"+id, s.teacher, gin.H{
			"title":  "Go 102",
			"topics": []gin.H{{"title": "Only", "lessons": []gin.H{{"title": "One", "type": "lesson"}}}},
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, id, dataMap(t, resp)["courseId"])

		_, resp = s.do(t, http.MethodGet, "/api/courses/"+id, s.teacher, nil)
		course := dataMap(t, resp)
		assert.Equal(t, "Go 102", course["title"])
		topics := course["topics"].([]interface{})
		require.Len(t, topics, 1)
		assert.Equal(t, "Only", topics[0].(map[string]interface{})["title"])
	})
}

func TestCourseAPIDelete(t *testing.T) {
	s := newTestServer(t)
	id := s.createCourse(t)

	w, _ := s.do(t, http.MethodDelete, "/api/teacher/courses/"+id, s.teacher, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/courses/"+id, s.teacher, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = s.do(t, http.MethodDelete, fmt.Sprintf("/api/teacher/courses/%s", id), s.teacher, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
