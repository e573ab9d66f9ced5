package services

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"livescore-service/pkg/common"
)

// DefaultChatMaxLength 聊天内容最大字符数
const DefaultChatMaxLength = 500

// NormalizeChatText 规范化 (NFC) 并校验聊天内容
// 空白内容或超过 maxLength 个字符时返回验证错误
func NormalizeChatText(text string, maxLength int) (string, error) {
	if maxLength <= 0 {
		maxLength = DefaultChatMaxLength
	}

	normalized := norm.NFC.String(text)
	if strings.TrimSpace(normalized) == "" {
		return "", common.NewValidationError("text", "must not be empty")
	}
	if n := utf8.RuneCountInString(normalized); n > maxLength {
		return "", common.NewValidationError("text", fmt.Sprintf("%d characters exceeds limit of %d", n, maxLength))
	}
	return normalized, nil
}

// DefaultChatUser 未提供用户名时使用 User-<连接ID前6位>
func DefaultChatUser(connID string) string {
	if len(connID) > 6 {
		connID = connID[:6]
	}
	return "User-" + connID
}
