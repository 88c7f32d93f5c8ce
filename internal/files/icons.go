// Package files 提供文件列表展示用的扩展名图标与大小格式化。
package files

import (
	"fmt"
	"strings"
)

const defaultIcon = "📎"

// 扩展名到图标的静态映射。
var icons = map[string]string{
	// 文档
	"pdf": "📕", "doc": "📄", "docx": "📄", "txt": "📝", "rtf": "📄",
	"odt": "📄", "tex": "📝", "md": "📝", "log": "📋",
	// 表格与数据库
	"xls": "📊", "xlsx": "📊", "csv": "📊", "ods": "📊",
	"db": "🗄️", "sql": "🗄️", "mdb": "🗄️",
	// 演示文稿
	"ppt": "📽️", "pptx": "📽️", "odp": "📽️", "key": "📽️",
	// 压缩包与镜像
	"zip": "📦", "rar": "📦", "7z": "📦", "tar": "📦", "gz": "📦",
	"bz2": "📦", "iso": "💿", "dmg": "💿",
	// 图片
	"jpg": "🖼", "jpeg": "🖼", "png": "🖼", "gif": "🖼", "bmp": "🖼",
	"svg": "🖼", "ico": "🖼", "webp": "🖼", "tiff": "🖼",
	"psd": "🎨", "ai": "🎨", "sketch": "🎨", "eps": "🎨",
	// 音频
	"mp3": "🎵", "wav": "🎵", "flac": "🎵", "ogg": "🎵", "aac": "🎵",
	"m4a": "🎵", "wma": "🎵", "mid": "🎵", "opus": "🎵",
	// 视频
	"mp4": "🎬", "avi": "🎬", "mov": "🎬", "mkv": "🎬", "wmv": "🎬",
	"flv": "🎬", "webm": "🎬", "m4v": "🎬", "3gp": "🎬", "mpeg": "🎬", "mpg": "🎬",
	// 可执行与脚本
	"exe": "⚙️", "msi": "⚙️", "apk": "📱", "deb": "🐧", "rpm": "🐧",
	"bat": "🖥️", "sh": "🐚", "ps1": "🔧", "jar": "☕", "dll": "🔧", "so": "🔧",
	// 代码与配置
	"py": "🐍", "js": "📜", "html": "🌐", "css": "🎨", "php": "🐘",
	"java": "☕", "cpp": "⚙️", "c": "⚙️", "h": "⚙️", "cs": "🔷",
	"rb": "💎", "go": "🐹", "rs": "🦀", "swift": "🐦", "kt": "🟪",
	"ts": "📘", "jsx": "⚛️", "tsx": "⚛️", "vue": "💚", "json": "📋",
	"xml": "📋", "yml": "📋", "yaml": "📋", "toml": "📋",
	"ini": "⚙️", "cfg": "⚙️", "conf": "⚙️", "env": "🌐",
	// 字体
	"ttf": "🔤", "otf": "🔤", "woff": "🔤", "woff2": "🔤",
	// 其他
	"torrent": "🔽", "url": "🔗", "lnk": "🔗",
	"ics": "📅", "vcf": "👤", "epub": "📚", "mobi": "📚",
	"bak": "💾", "backup": "💾", "dump": "💾", "tmp": "📄",
}

// Icon 按文件名扩展名返回展示图标，未知扩展名用回形针兜底。
func Icon(filename string) string {
	idx := strings.LastIndexByte(filename, '.')
	if idx < 0 || idx == len(filename)-1 {
		return defaultIcon
	}
	ext := strings.ToLower(filename[idx+1:])
	if icon, ok := icons[ext]; ok {
		return icon
	}
	return defaultIcon
}

var sizeUnits = []string{"B", "KB", "MB", "GB"}

// SizeHuman 把字节数格式化为带单位的可读形式。
func SizeHuman(sizeBytes int64) string {
	if sizeBytes == 0 {
		return "0 B"
	}
	size := float64(sizeBytes)
	i := 0
	for size >= 1024 && i < len(sizeUnits)-1 {
		size /= 1024
		i++
	}
	return fmt.Sprintf("%.1f %s", size, sizeUnits[i])
}
