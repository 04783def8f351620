package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// DeliveryFields 提供书籍 ID、格式、缓存模式与目标会话字段，供文件投递日志复用。
func DeliveryFields(bookID int64, format, cacheMode string, chatID int64) logrus.Fields {
	return logrus.Fields{
		"action":     "deliver",
		"book_id":    bookID,
		"format":     format,
		"cache_mode": cacheMode,
		"chat_id":    chatID,
	}
}

// PageFields 提供翻页作用域、查询键与页码字段。
func PageFields(prefix, key string, page int) logrus.Fields {
	return logrus.Fields{
		"action": "render_page",
		"prefix": prefix,
		"key":    key,
		"page":   page,
	}
}

// UpdateFields 提供 Telegram update 的定位字段。
func UpdateFields(updateID, chatID int64, kind string) logrus.Fields {
	return logrus.Fields{
		"action":    "update",
		"update_id": updateID,
		"chat_id":   chatID,
		"kind":      kind,
	}
}
