package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"coursehub/backend/config"
	"coursehub/backend/internal/dto"
	"coursehub/backend/internal/model"
	"coursehub/backend/internal/service"
	pkgerrors "coursehub/backend/pkg/errors"
	"coursehub/backend/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ═══════════════════════════════════════════════════════════
// Mock Services
// ═══════════════════════════════════════════════════════════

// ── Mock AuthService ──

type mockAuthService struct {
	registerResult *dto.UserResponse
	registerErr    error
	loginResult    *dto.TokenResponse
	loginErr       error
	logoutErr      error
	currentResult  *dto.UserResponse
	currentErr     error
}

func (m *mockAuthService) Register(_ context.Context, _ *dto.RegisterRequest) (*dto.UserResponse, error) {
	return m.registerResult, m.registerErr
}
func (m *mockAuthService) Login(_ context.Context, _ *dto.LoginRequest) (*dto.TokenResponse, error) {
	return m.loginResult, m.loginErr
}
func (m *mockAuthService) Logout(_ context.Context, _ string, _ time.Time) error {
	return m.logoutErr
}
func (m *mockAuthService) GetCurrentUser(_ context.Context, _ string) (*dto.UserResponse, error) {
	return m.currentResult, m.currentErr
}

// ── Mock CourseService ──

type mockCourseService struct {
	createResult     *model.Course
	createErr        error
	listResult       []model.Course
	listErr          error
	getResult        *model.Course
	getErr           error
	updateResult     *model.Course
	updateErr        error
	deleteErr        error
	enrollErr        error
	myResult         []dto.MyEnrollmentResponse
	myErr            error
	removeErr        error
	assignGradeErr   error
	createAsgResult  *model.Assignment
	createAsgErr     error
	submitAsgErr     error
	updateAsgResult  *model.Assignment
	updateAsgErr     error
	createQuizResult *model.Quiz
	createQuizErr    error
	updateQuizResult *model.Quiz
	updateQuizErr    error
	submitQuizErr    error
	gradesResult     []dto.GradeResponse
	gradesErr        error
	statsResult      []dto.CourseStatsResponse
	statsErr         error
	countsResult     []dto.EnrolledCountResponse
	countsErr        error
}

func (m *mockCourseService) CreateCourse(_ context.Context, _ *dto.CreateCourseRequest) (*model.Course, error) {
	return m.createResult, m.createErr
}
func (m *mockCourseService) ListCourses(_ context.Context) ([]model.Course, error) {
	return m.listResult, m.listErr
}
func (m *mockCourseService) GetCourseByID(_ context.Context, _ string) (*model.Course, error) {
	return m.getResult, m.getErr
}
func (m *mockCourseService) UpdateCourse(_ context.Context, _ string, _ *dto.UpdateCourseRequest, _ *model.User) (*model.Course, error) {
	return m.updateResult, m.updateErr
}
func (m *mockCourseService) DeleteCourse(_ context.Context, _ string) error {
	return m.deleteErr
}
func (m *mockCourseService) Enroll(_ context.Context, _ string, _ *dto.EnrollRequest, _ *model.User) error {
	return m.enrollErr
}
func (m *mockCourseService) MyEnrollment(_ context.Context, _ string) ([]dto.MyEnrollmentResponse, error) {
	return m.myResult, m.myErr
}
func (m *mockCourseService) RemoveEnrollment(_ context.Context, _ *dto.RemoveEnrollmentRequest) error {
	return m.removeErr
}
func (m *mockCourseService) AssignGrade(_ context.Context, _ *dto.AssignGradeRequest) error {
	return m.assignGradeErr
}
func (m *mockCourseService) CreateAssignment(_ context.Context, _ *dto.CreateAssignmentRequest, _ string) (*model.Assignment, error) {
	return m.createAsgResult, m.createAsgErr
}
func (m *mockCourseService) SubmitAssignment(_ context.Context, _ *dto.SubmitAssignmentRequest, _ string) error {
	return m.submitAsgErr
}
func (m *mockCourseService) UpdateAssignment(_ context.Context, _, _ string, _ *dto.UpdateAssignmentRequest, _ string) (*model.Assignment, error) {
	return m.updateAsgResult, m.updateAsgErr
}
func (m *mockCourseService) CreateQuiz(_ context.Context, _ *dto.CreateQuizRequest, _ string) (*model.Quiz, error) {
	return m.createQuizResult, m.createQuizErr
}
func (m *mockCourseService) UpdateQuiz(_ context.Context, _, _ string, _ *dto.UpdateQuizRequest, _ string) (*model.Quiz, error) {
	return m.updateQuizResult, m.updateQuizErr
}
func (m *mockCourseService) SubmitQuiz(_ context.Context, _ *dto.SubmitQuizRequest, _ string) error {
	return m.submitQuizErr
}
func (m *mockCourseService) ViewGrades(_ context.Context, _ string) ([]dto.GradeResponse, error) {
	return m.gradesResult, m.gradesErr
}
func (m *mockCourseService) AverageGrade(_ context.Context) ([]dto.CourseStatsResponse, error) {
	return m.statsResult, m.statsErr
}
func (m *mockCourseService) EnrolledStudentsCount(_ context.Context) ([]dto.EnrolledCountResponse, error) {
	return m.countsResult, m.countsErr
}

// ── Mock ExportService ──

type mockExportService struct {
	buf       *bytes.Buffer
	filename  string
	exportErr error
	ics       string
	icsName   string
	icsErr    error
}

func (m *mockExportService) ExportGrades(_ context.Context) (*bytes.Buffer, string, error) {
	return m.buf, m.filename, m.exportErr
}
func (m *mockExportService) CourseCalendar(_ context.Context, _ string) (string, string, error) {
	return m.ics, m.icsName, m.icsErr
}

// ═══════════════════════════════════════════════════════════
// Test Helpers
// ═══════════════════════════════════════════════════════════

func testConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			JWTSecret: "test-secret-key-for-unit-testing-2026",
			TokenTTL:  24 * time.Hour,
			Cookie:    config.CookieConfig{SameSite: "Lax"},
		},
	}
}

// fakeAuth 模拟认证中间件注入的上下文
func fakeAuth(user *model.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user", user)
		c.Set("user_id", user.UserID)
		c.Set("role", user.Role)
		c.Next()
	}
}

func jsonBody(v interface{}) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func parseResponse(w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

func doRequest(r *gin.Engine, method, path string, body io.Reader) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	r.ServeHTTP(w, req)
	return w
}

// ═══════════════════════════════════════════════════════════
// AuthHandler Tests
// ═══════════════════════════════════════════════════════════

func TestAuthHandler_Login_Success(t *testing.T) {
	mock := &mockAuthService{
		loginResult: &dto.TokenResponse{
			Token:     "test-token",
			ExpiresIn: 86400,
			User:      dto.UserResponse{ID: "user-1", Role: model.RoleStudent},
		},
	}
	h := NewAuthHandler(testConfig(), mock)

	r := gin.New()
	r.POST("/auth/login", h.Login)
	w := doRequest(r, "POST", "/auth/login", jsonBody(dto.LoginRequest{
		Email:    "student@test.com",
		Password: "password123",
	}))

	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际=%d，body=%s", w.Code, w.Body.String())
	}

	// 会话 Token 应通过 Cookie 下发
	cookies := w.Result().Cookies()
	var found bool
	for _, ck := range cookies {
		if ck.Name == "token" && ck.Value == "test-token" && ck.HttpOnly {
			found = true
		}
	}
	if !found {
		t.Error("登录成功应设置 HttpOnly 的 token Cookie")
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	mock := &mockAuthService{loginErr: service.ErrInvalidCredentials}
	h := NewAuthHandler(testConfig(), mock)

	r := gin.New()
	r.POST("/auth/login", h.Login)
	w := doRequest(r, "POST", "/auth/login", jsonBody(dto.LoginRequest{
		Email:    "student@test.com",
		Password: "wrong",
	}))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("期望 401，实际=%d", w.Code)
	}
}

func TestAuthHandler_Register_EmailTaken(t *testing.T) {
	mock := &mockAuthService{registerErr: service.ErrEmailTaken}
	h := NewAuthHandler(testConfig(), mock)

	r := gin.New()
	r.POST("/auth/register", h.Register)
	w := doRequest(r, "POST", "/auth/register", jsonBody(dto.RegisterRequest{
		Username: "新同学",
		Email:    "taken@test.com",
		Password: "password123",
		Role:     model.RoleStudent,
	}))

	if w.Code != http.StatusConflict {
		t.Errorf("期望 409，实际=%d", w.Code)
	}
}

func TestAuthHandler_Register_BadPayload(t *testing.T) {
	h := NewAuthHandler(testConfig(), &mockAuthService{})

	r := gin.New()
	r.POST("/auth/register", h.Register)
	// role 不在白名单内
	w := doRequest(r, "POST", "/auth/register", jsonBody(map[string]string{
		"username": "新同学",
		"email":    "new@test.com",
		"password": "password123",
		"role":     "superuser",
	}))

	if w.Code != http.StatusBadRequest {
		t.Errorf("期望 400，实际=%d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// CourseHandler Tests
// ═══════════════════════════════════════════════════════════

func TestCourseHandler_List_Success(t *testing.T) {
	mock := &mockCourseService{
		listResult: []model.Course{{CourseID: "course-1", Title: "算法设计"}},
	}
	h := NewCourseHandler(mock)

	r := gin.New()
	r.GET("/courses/all", h.List)
	w := doRequest(r, "GET", "/courses/all", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际=%d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 0 {
		t.Errorf("期望业务码 0，实际=%d", resp.Code)
	}
}

func TestCourseHandler_Get_NotFound(t *testing.T) {
	mock := &mockCourseService{getErr: service.ErrCourseNotFound}
	h := NewCourseHandler(mock)

	r := gin.New()
	r.GET("/courses/course/:id", h.Get)
	w := doRequest(r, "GET", "/courses/course/nonexistent", nil)

	if w.Code != http.StatusNotFound {
		t.Errorf("期望 404，实际=%d", w.Code)
	}
}

func TestCourseHandler_Create_Success(t *testing.T) {
	mock := &mockCourseService{
		createResult: &model.Course{CourseID: "course-1", Title: "数据库系统"},
	}
	h := NewCourseHandler(mock)

	r := gin.New()
	r.POST("/courses/create", h.Create)
	w := doRequest(r, "POST", "/courses/create", jsonBody(dto.CreateCourseRequest{
		Title:       "数据库系统",
		Description: "关系模型与事务",
		StartDate:   "2026-09-01",
		EndDate:     "2027-01-15",
		Teacher:     "8d7f5b9e-1111-4222-8333-444455556666",
	}))

	if w.Code != http.StatusCreated {
		t.Errorf("期望 201，实际=%d，body=%s", w.Code, w.Body.String())
	}
}

func TestCourseHandler_Create_BadPayload(t *testing.T) {
	h := NewCourseHandler(&mockCourseService{})

	r := gin.New()
	r.POST("/courses/create", h.Create)
	// 缺 title / teacher 非 UUID
	w := doRequest(r, "POST", "/courses/create", jsonBody(map[string]string{
		"description": "x",
		"teacher":     "not-a-uuid",
	}))

	if w.Code != http.StatusBadRequest {
		t.Errorf("期望 400，实际=%d", w.Code)
	}
}

func TestCourseHandler_Update_Conflict(t *testing.T) {
	mock := &mockCourseService{updateErr: pkgerrors.ErrOptimisticLock}
	h := NewCourseHandler(mock)

	teacher := &model.User{UserID: "teacher-1", Role: model.RoleTeacher}
	r := gin.New()
	r.PUT("/courses/update/:id", fakeAuth(teacher), h.Update)
	w := doRequest(r, "PUT", "/courses/update/course-1", jsonBody(map[string]string{
		"title": "并发修改",
	}))

	if w.Code != http.StatusConflict {
		t.Errorf("并发写冲突期望 409，实际=%d", w.Code)
	}
}

func TestCourseHandler_Update_Forbidden(t *testing.T) {
	mock := &mockCourseService{updateErr: service.ErrNotCourseOwner}
	h := NewCourseHandler(mock)

	teacher := &model.User{UserID: "teacher-2", Role: model.RoleTeacher}
	r := gin.New()
	r.PUT("/courses/update/:id", fakeAuth(teacher), h.Update)
	w := doRequest(r, "PUT", "/courses/update/course-1", jsonBody(map[string]string{
		"title": "越权修改",
	}))

	if w.Code != http.StatusForbidden {
		t.Errorf("期望 403，实际=%d", w.Code)
	}
}

func TestCourseHandler_Enroll_AlreadyEnrolled(t *testing.T) {
	mock := &mockCourseService{enrollErr: service.ErrAlreadyEnrolled}
	h := NewCourseHandler(mock)

	student := &model.User{UserID: "student-1", Role: model.RoleStudent}
	r := gin.New()
	r.POST("/courses/enroll/:id", fakeAuth(student), h.Enroll)
	w := doRequest(r, "POST", "/courses/enroll/course-1", nil)

	if w.Code != http.StatusBadRequest {
		t.Errorf("重复选课期望 400，实际=%d", w.Code)
	}
}

func TestCourseHandler_Enroll_MissingAuthContext(t *testing.T) {
	h := NewCourseHandler(&mockCourseService{})

	r := gin.New()
	r.POST("/courses/enroll/:id", h.Enroll) // 未经过认证中间件
	w := doRequest(r, "POST", "/courses/enroll/course-1", nil)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("缺少认证上下文期望 401，实际=%d", w.Code)
	}
}

func TestCourseHandler_SubmitAssignment_Created(t *testing.T) {
	h := NewCourseHandler(&mockCourseService{})

	student := &model.User{UserID: "student-1", Role: model.RoleStudent}
	r := gin.New()
	r.POST("/courses/submitassignments", fakeAuth(student), h.SubmitAssignment)
	w := doRequest(r, "POST", "/courses/submitassignments", jsonBody(dto.SubmitAssignmentRequest{
		CourseID:     "8d7f5b9e-1111-4222-8333-444455556666",
		AssignmentID: "8d7f5b9e-1111-4222-8333-444455557777",
		FileURL:      "https://files.test/hw1.pdf",
	}))

	if w.Code != http.StatusCreated {
		t.Errorf("期望 201，实际=%d，body=%s", w.Code, w.Body.String())
	}
}

func TestCourseHandler_AssignGrade_NotEnrolled(t *testing.T) {
	mock := &mockCourseService{assignGradeErr: service.ErrNotEnrolled}
	h := NewCourseHandler(mock)

	grade := 80.0
	r := gin.New()
	r.POST("/courses/assigngrades", h.AssignGrade)
	w := doRequest(r, "POST", "/courses/assigngrades", jsonBody(dto.AssignGradeRequest{
		CourseID:  "8d7f5b9e-1111-4222-8333-444455556666",
		StudentID: "8d7f5b9e-1111-4222-8333-444455558888",
		Grade:     &grade,
	}))

	if w.Code != http.StatusNotFound {
		t.Errorf("未选课评分期望 404，实际=%d", w.Code)
	}
}

func TestCourseHandler_AverageGrade_NoData(t *testing.T) {
	mock := &mockCourseService{statsErr: service.ErrNoStatistics}
	h := NewCourseHandler(mock)

	r := gin.New()
	r.GET("/courses/averagegrade", h.AverageGrade)
	w := doRequest(r, "GET", "/courses/averagegrade", nil)

	if w.Code != http.StatusNotFound {
		t.Errorf("期望 404，实际=%d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// ExportHandler Tests
// ═══════════════════════════════════════════════════════════

func TestExportHandler_ExportGrades_Success(t *testing.T) {
	mock := &mockExportService{
		buf:      bytes.NewBufferString("xlsx-bytes"),
		filename: "成绩报表_20260828.xlsx",
	}
	h := NewExportHandler(mock)

	r := gin.New()
	r.GET("/courses/exportgrades", h.ExportGrades)
	w := doRequest(r, "GET", "/courses/exportgrades", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际=%d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Errorf("Content-Type 不符: %s", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); cd == "" {
		t.Error("应设置 Content-Disposition 下载头")
	}
}

func TestExportHandler_CourseCalendar_Success(t *testing.T) {
	mock := &mockExportService{
		ics:     "BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n",
		icsName: "course-1.ics",
	}
	h := NewExportHandler(mock)

	r := gin.New()
	r.GET("/courses/calendar/:id", h.CourseCalendar)
	w := doRequest(r, "GET", "/courses/calendar/course-1", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际=%d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/calendar; charset=utf-8" {
		t.Errorf("Content-Type 不符: %s", ct)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("VCALENDAR")) {
		t.Error("响应体应是 ICS 内容")
	}
}

func TestExportHandler_CourseCalendar_NotFound(t *testing.T) {
	mock := &mockExportService{icsErr: service.ErrCourseNotFound}
	h := NewExportHandler(mock)

	r := gin.New()
	r.GET("/courses/calendar/:id", h.CourseCalendar)
	w := doRequest(r, "GET", "/courses/calendar/nonexistent", nil)

	if w.Code != http.StatusNotFound {
		t.Errorf("期望 404，实际=%d", w.Code)
	}
}
