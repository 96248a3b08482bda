package dto

// ── 课程模块 DTO ──

// CreateCourseRequest 创建课程请求（仅管理员）
type CreateCourseRequest struct {
	Title       string `json:"title"       binding:"required,min=1,max=200"`
	Description string `json:"description" binding:"required"`
	StartDate   string `json:"start_date"  binding:"required"` // "2026-09-01"
	EndDate     string `json:"end_date"    binding:"required"` // "2027-01-15"
	Teacher     string `json:"teacher"     binding:"required,uuid"`
}

// UpdateCourseRequest 更新课程请求
// 指针字段：缺省不改，显式传入（包括零值）则覆盖
// 管理员可改任意字段；授课教师本人只允许 assignments / quizzes 生效
type UpdateCourseRequest struct {
	Title       *string              `json:"title"       binding:"omitempty,min=1,max=200"`
	Description *string              `json:"description"`
	StartDate   *string              `json:"start_date"`
	EndDate     *string              `json:"end_date"`
	Teacher     *string              `json:"teacher"     binding:"omitempty,uuid"`
	Assignments *[]AssignmentPayload `json:"assignments"`
	Quizzes     *[]QuizPayload       `json:"quizzes"`
}

// AssignmentPayload 整体覆盖课程作业列表时的作业载荷
type AssignmentPayload struct {
	ID          string `json:"id"`
	Title       string `json:"title"       binding:"required"`
	Description string `json:"description" binding:"required"`
	DueDate     string `json:"due_date"    binding:"required"` // RFC3339
	FileURL     string `json:"file_url"`
}

// QuizPayload 整体覆盖课程测验列表时的测验载荷
type QuizPayload struct {
	ID        string                `json:"id"`
	Title     string                `json:"title"     binding:"required"`
	Questions []QuizQuestionPayload `json:"questions" binding:"required,dive"`
}

// QuizQuestionPayload 测验题目载荷
type QuizQuestionPayload struct {
	QuestionText  string   `json:"question_text"  binding:"required"`
	Options       []string `json:"options"        binding:"required,min=2"`
	CorrectOption int      `json:"correct_option" binding:"min=0"`
}

// EnrollRequest 选课请求
// 学生自助选课时 student_id 留空；管理员代选时必填
type EnrollRequest struct {
	StudentID string `json:"student_id" binding:"omitempty,uuid"`
}

// RemoveEnrollmentRequest 退课请求（仅管理员）
type RemoveEnrollmentRequest struct {
	CourseID  string `json:"course_id"  binding:"required,uuid"`
	StudentID string `json:"student_id" binding:"required,uuid"`
}

// AssignGradeRequest 评分请求（仅教师）
// Grade 用指针以区分「缺省」与「0 分」
type AssignGradeRequest struct {
	CourseID  string   `json:"course_id"  binding:"required,uuid"`
	StudentID string   `json:"student_id" binding:"required,uuid"`
	Grade     *float64 `json:"grade"      binding:"required"`
}

// CreateAssignmentRequest 创建作业请求（仅授课教师）
type CreateAssignmentRequest struct {
	CourseID    string `json:"course_id"   binding:"required,uuid"`
	Title       string `json:"title"       binding:"required,min=1,max=200"`
	Description string `json:"description" binding:"required"`
	DueDate     string `json:"due_date"    binding:"required"` // RFC3339
	FileURL     string `json:"file_url"`
}

// SubmitAssignmentRequest 提交作业请求
type SubmitAssignmentRequest struct {
	CourseID     string `json:"course_id"     binding:"required,uuid"`
	AssignmentID string `json:"assignment_id" binding:"required,uuid"`
	FileURL      string `json:"file_url"      binding:"required"`
}

// UpdateAssignmentRequest 更新作业请求
// 以「字段是否出现」为更新判据：显式传空串即可清空 file_url
type UpdateAssignmentRequest struct {
	Title       *string `json:"title"       binding:"omitempty,min=1,max=200"`
	Description *string `json:"description"`
	DueDate     *string `json:"due_date"`
	FileURL     *string `json:"file_url"`
}

// CreateQuizRequest 创建测验请求（仅授课教师）
type CreateQuizRequest struct {
	CourseID  string                `json:"course_id" binding:"required,uuid"`
	Title     string                `json:"title"     binding:"required,min=1,max=200"`
	Questions []QuizQuestionPayload `json:"questions" binding:"required,min=1,dive"`
}

// UpdateQuizRequest 更新测验请求
// questions 出现时整体替换题目列表
type UpdateQuizRequest struct {
	Title     *string                `json:"title"     binding:"omitempty,min=1,max=200"`
	Questions *[]QuizQuestionPayload `json:"questions" binding:"omitempty,dive"`
}

// SubmitQuizRequest 提交测验请求（仅学生）
type SubmitQuizRequest struct {
	CourseID string `json:"course_id" binding:"required,uuid"`
	QuizID   string `json:"quiz_id"   binding:"required,uuid"`
	Answers  []int  `json:"answers"   binding:"required"`
}

// ── 查询响应 ──

// MyEnrollmentResponse 我的选课（精简投影 + 授课教师用户名）
type MyEnrollmentResponse struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Teacher     string `json:"teacher"`
}

// GradeResponse 学生成绩单条目 {title, grade}
type GradeResponse struct {
	Title string   `json:"title"`
	Grade *float64 `json:"grade"`
}

// CourseStatsResponse 课程平均分统计
// 未评分的选课计入 number_of_students，但不参与平均分
type CourseStatsResponse struct {
	CourseTitle      string   `json:"course_title"`
	AverageGrade     *float64 `json:"average_grade"`
	NumberOfStudents int      `json:"number_of_students"`
}

// EnrolledCountResponse 课程选课人数统计
type EnrolledCountResponse struct {
	CourseTitle           string `json:"course_title"`
	EnrolledStudentsCount int    `json:"enrolled_students_count"`
}
