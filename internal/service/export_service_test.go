package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"coursehub/backend/internal/dto"
	"coursehub/backend/internal/model"
)

// ── 测试辅助 ──

func setupTestExportService(t *testing.T) (ExportService, CourseService, *mockUserRepo) {
	t.Helper()
	userRepo := newMockUserRepo()
	courseRepo := newMockCourseRepo(userRepo)
	repo := newTestRepository(userRepo, courseRepo)

	exportSvc := NewExportService(repo, zap.NewNop())
	courseSvc := NewCourseService(repo, zap.NewNop())
	return exportSvc, courseSvc, userRepo
}

// ── 成绩报表导出测试 ──

func TestExportGrades_NoCourses(t *testing.T) {
	exportSvc, _, _ := setupTestExportService(t)

	_, _, err := exportSvc.ExportGrades(context.Background())
	if !errors.Is(err, ErrExportNoCourses) {
		t.Errorf("期望 ErrExportNoCourses，实际: %v", err)
	}
}

func TestExportGrades_GeneratesWorkbook(t *testing.T) {
	exportSvc, courseSvc, userRepo := setupTestExportService(t)
	student := seedUser(userRepo, "student-1", "张同学", model.RoleStudent)
	seedUser(userRepo, "teacher-1", "王老师", model.RoleTeacher)
	course := seedCourse(t, courseSvc, "teacher-1")

	_ = courseSvc.Enroll(context.Background(), course.CourseID, &dto.EnrollRequest{}, student)
	_ = courseSvc.AssignGrade(context.Background(), &dto.AssignGradeRequest{
		CourseID: course.CourseID, StudentID: "student-1", Grade: f64Ptr(95),
	})

	buf, filename, err := exportSvc.ExportGrades(context.Background())
	if err != nil {
		t.Fatalf("ExportGrades 应成功: %v", err)
	}
	if buf == nil || buf.Len() == 0 {
		t.Fatal("导出内容不应为空")
	}
	if !strings.HasSuffix(filename, ".xlsx") {
		t.Errorf("文件名应以 .xlsx 结尾，实际=%s", filename)
	}

	// 回读校验表格内容
	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("导出内容应是合法的 xlsx: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("成绩报表")
	if err != nil {
		t.Fatalf("读取 Sheet 失败: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("期望表头 + 1 行数据，实际行数=%d", len(rows))
	}
	if rows[1][0] != "算法设计" || rows[1][1] != "张同学" || rows[1][2] != "95" {
		t.Errorf("数据行不符: %v", rows[1])
	}
}

func TestExportGrades_UngradedShownAsPlaceholder(t *testing.T) {
	exportSvc, courseSvc, userRepo := setupTestExportService(t)
	student := seedUser(userRepo, "student-1", "张同学", model.RoleStudent)
	course := seedCourse(t, courseSvc, "teacher-1")

	_ = courseSvc.Enroll(context.Background(), course.CourseID, &dto.EnrollRequest{}, student)

	buf, _, err := exportSvc.ExportGrades(context.Background())
	if err != nil {
		t.Fatalf("ExportGrades 应成功: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("导出内容应是合法的 xlsx: %v", err)
	}
	defer f.Close()

	rows, _ := f.GetRows("成绩报表")
	if len(rows) != 2 || rows[1][2] != "未评分" {
		t.Errorf("未评分学生的成绩列应为「未评分」，实际=%v", rows)
	}
}

// ── 课程日历导出测试 ──

func TestCourseCalendar_ContainsCourseAndDeadlines(t *testing.T) {
	exportSvc, courseSvc, _ := setupTestExportService(t)
	course := seedCourse(t, courseSvc, "teacher-1")

	_, err := courseSvc.CreateAssignment(context.Background(), &dto.CreateAssignmentRequest{
		CourseID:    course.CourseID,
		Title:       "第一次作业",
		Description: "实现快速排序",
		DueDate:     "2026-10-01T23:59:00Z",
	}, "teacher-1")
	if err != nil {
		t.Fatalf("CreateAssignment 失败: %v", err)
	}

	ics, filename, err := exportSvc.CourseCalendar(context.Background(), course.CourseID)
	if err != nil {
		t.Fatalf("CourseCalendar 应成功: %v", err)
	}

	if !strings.HasPrefix(ics, "BEGIN:VCALENDAR") {
		t.Error("输出应是 VCALENDAR 文档")
	}
	if !strings.Contains(ics, "算法设计") {
		t.Error("日历应包含课程标题事件")
	}
	if !strings.Contains(ics, "作业截止") {
		t.Error("日历应包含作业截止事件")
	}
	if !strings.HasSuffix(filename, ".ics") {
		t.Errorf("文件名应以 .ics 结尾，实际=%s", filename)
	}
}

func TestCourseCalendar_CourseNotFound(t *testing.T) {
	exportSvc, _, _ := setupTestExportService(t)

	_, _, err := exportSvc.CourseCalendar(context.Background(), "nonexistent")
	if !errors.Is(err, ErrCourseNotFound) {
		t.Errorf("期望 ErrCourseNotFound，实际: %v", err)
	}
}
