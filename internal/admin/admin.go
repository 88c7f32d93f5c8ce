// Package admin 提供只读的数据库浏览：固定表白名单，已知列名，参数化查询。
// 任何标识符都不来自请求输入。
package admin

import (
	"errors"

	"gorm.io/gorm"
)

var ErrUnknownTable = errors.New("unknown table")

// 可浏览的表与各自允许展示的列。口令哈希与盐不在列表里，永不返回。
var allowed = map[string][]string{
	"users":    {"id", "username", "created_at"},
	"rooms":    {"link", "name", "created_by", "created_at"},
	"messages": {"id", "room_link", "user_id", "content", "created_at"},
	"files":    {"id", "room_link", "user_id", "stored_name", "original_name", "size", "extension", "created_at"},
}

// 表的展示顺序固定，避免 map 遍历顺序抖动。
var tableOrder = []string{"users", "rooms", "messages", "files"}

const (
	defaultLimit = 50
	maxLimit     = 200
)

// Browser 暴露白名单表的行数统计和分页浏览。
type Browser struct {
	db *gorm.DB
}

func NewBrowser(db *gorm.DB) *Browser {
	return &Browser{db: db}
}

// TableInfo 是表概览条目。
type TableInfo struct {
	Name string `json:"name"`
	Rows int64  `json:"rows"`
}

// Tables 返回全部白名单表及行数。
func (b *Browser) Tables() ([]TableInfo, error) {
	out := make([]TableInfo, 0, len(tableOrder))
	for _, name := range tableOrder {
		var count int64
		if err := b.db.Table(name).Count(&count).Error; err != nil {
			return nil, err
		}
		out = append(out, TableInfo{Name: name, Rows: count})
	}
	return out, nil
}

// Browse 分页读取一张白名单表，只选取已知列。
func (b *Browser) Browse(table string, limit, offset int) ([]map[string]interface{}, error) {
	cols, ok := allowed[table]
	if !ok {
		return nil, ErrUnknownTable
	}
	if limit <= 0 || limit > maxLimit {
		limit = defaultLimit
	}
	if offset < 0 {
		offset = 0
	}
	var rows []map[string]interface{}
	if err := b.db.Table(table).Select(cols).Limit(limit).Offset(offset).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Columns 返回某表允许展示的列，供前端构建表头。
func (b *Browser) Columns(table string) ([]string, error) {
	cols, ok := allowed[table]
	if !ok {
		return nil, ErrUnknownTable
	}
	out := make([]string, len(cols))
	copy(out, cols)
	return out, nil
}
