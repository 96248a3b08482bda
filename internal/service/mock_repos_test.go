package service

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"

	"coursehub/backend/internal/model"
	"coursehub/backend/internal/repository"
	pkgerrors "coursehub/backend/pkg/errors"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	users map[string]*model.User // key: user_id
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if user.UserID == "" {
		user.UserID = "user-" + user.Email
	}
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) ListByIDs(_ context.Context, ids []string) ([]model.User, error) {
	var result []model.User
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			result = append(result, *u)
		}
	}
	return result, nil
}

// ── Mock CourseRepository ──
//
// GetByID 返回深拷贝，模拟真实仓储「读出的文档与存储解耦」的行为：
// Service 对内存副本的修改只有经 Update 写回才生效

type mockCourseRepo struct {
	courses map[string]*model.Course
	order   []string // 保持插入顺序，模拟 created_at ASC
	users   *mockUserRepo
}

func newMockCourseRepo(users *mockUserRepo) *mockCourseRepo {
	return &mockCourseRepo{courses: make(map[string]*model.Course), users: users}
}

func deepCopyCourse(c *model.Course) *model.Course {
	data, _ := json.Marshal(c)
	var cp model.Course
	_ = json.Unmarshal(data, &cp)
	cp.Version = c.Version
	cp.Teacher = c.Teacher
	return &cp
}

func (m *mockCourseRepo) Create(_ context.Context, course *model.Course) error {
	if course.CourseID == "" {
		course.CourseID = fmt.Sprintf("course-%d", len(m.courses)+1)
	}
	if course.Version == 0 {
		course.Version = 1
	}
	m.courses[course.CourseID] = deepCopyCourse(course)
	m.order = append(m.order, course.CourseID)
	return nil
}

func (m *mockCourseRepo) GetByID(_ context.Context, id string) (*model.Course, error) {
	if c, ok := m.courses[id]; ok {
		cp := deepCopyCourse(c)
		m.attachTeacher(cp)
		return cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCourseRepo) List(_ context.Context) ([]model.Course, error) {
	result := make([]model.Course, 0, len(m.order))
	for _, id := range m.order {
		if c, ok := m.courses[id]; ok {
			cp := deepCopyCourse(c)
			m.attachTeacher(cp)
			result = append(result, *cp)
		}
	}
	return result, nil
}

func (m *mockCourseRepo) ListByEnrolledStudent(_ context.Context, studentID string) ([]model.Course, error) {
	var result []model.Course
	for _, id := range m.order {
		c, ok := m.courses[id]
		if !ok {
			continue
		}
		if c.FindEnrollment(studentID) != nil {
			cp := deepCopyCourse(c)
			m.attachTeacher(cp)
			result = append(result, *cp)
		}
	}
	return result, nil
}

func (m *mockCourseRepo) Update(_ context.Context, course *model.Course) error {
	stored, ok := m.courses[course.CourseID]
	if !ok || stored.Version != course.Version {
		return pkgerrors.ErrOptimisticLock
	}
	oldVersion := course.Version
	cp := deepCopyCourse(course)
	cp.Version = oldVersion + 1
	m.courses[course.CourseID] = cp
	course.Version = oldVersion + 1
	return nil
}

func (m *mockCourseRepo) Delete(_ context.Context, id string) (int64, error) {
	if _, ok := m.courses[id]; !ok {
		return 0, nil
	}
	delete(m.courses, id)
	for i, cid := range m.order {
		if cid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return 1, nil
}

// attachTeacher 模拟 Preload("Teacher")
func (m *mockCourseRepo) attachTeacher(c *model.Course) {
	if m.users == nil {
		return
	}
	if u, ok := m.users.users[c.TeacherID]; ok {
		c.Teacher = u
	}
}

// newTestRepository 用 mock 实现装配 Repository 聚合
func newTestRepository(users *mockUserRepo, courses *mockCourseRepo) *repository.Repository {
	return &repository.Repository{
		User:   users,
		Course: courses,
	}
}
